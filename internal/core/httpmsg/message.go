package httpmsg

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Message 请求与响应共用的版本、头部与主体
//
// 主体以字节或文本之一为准，另一种表示按需生成并缓存。
// 文本按 UTF-8 解码，非法编码时 BodyString 返回 ok == false。
// Message 不是并发安全的。
type Message struct {
	// Version 协议版本，如 HTTP/1.1
	Version string

	// Header 头部集合
	Header Header

	bin     []byte
	hasBin  bool
	text    string
	hasText bool
	textOK  bool
}

// ============================================================================
//                              主体
// ============================================================================

// SetBody 以字节形式设置主体
//
// withContentLength 为 true 时同步设置 Content-Length。
func (m *Message) SetBody(body []byte, withContentLength bool) {
	m.bin = body
	m.hasBin = body != nil
	m.text, m.hasText, m.textOK = "", false, false
	if withContentLength {
		m.Header.Set(HeaderContentLength, strconv.Itoa(len(body)))
	}
}

// SetBodyString 以文本形式设置主体
func (m *Message) SetBodyString(body string, withContentLength bool) {
	m.text, m.hasText, m.textOK = body, true, true
	m.bin, m.hasBin = nil, false
	if withContentLength {
		m.Header.Set(HeaderContentLength, strconv.Itoa(len(body)))
	}
}

// Body 返回主体字节，无主体时返回 nil
func (m *Message) Body() []byte {
	if m.hasBin {
		return m.bin
	}
	if m.hasText && m.textOK {
		m.bin, m.hasBin = []byte(m.text), true
		return m.bin
	}
	return nil
}

// BodyString 返回主体文本
//
// 无主体或不是合法 UTF-8 时 ok 为 false。
func (m *Message) BodyString() (text string, ok bool) {
	if m.hasText {
		return m.text, m.textOK
	}
	if !m.hasBin {
		return "", false
	}
	m.hasText = true
	if utf8.Valid(m.bin) {
		m.text, m.textOK = string(m.bin), true
	}
	return m.text, m.textOK
}

// HasBody 是否设置了主体
func (m *Message) HasBody() bool {
	return m.hasBin || (m.hasText && m.textOK)
}

// ============================================================================
//                              头部语义
// ============================================================================

// IsChunked Transfer-Encoding 是否包含 chunked
func (m *Message) IsChunked() bool {
	return m.Header.ContainsValue(HeaderTransferEncoding, ValueChunked)
}

// IsKeepAlive 连接是否保持
//
// HTTP/1.0 仅在 Connection 包含 keep-alive 时保持；
// 其余版本默认保持，除非 Connection 包含 close。
func (m *Message) IsKeepAlive() bool {
	if m.Version == HTTP10 {
		return m.Header.ContainsValue(HeaderConnection, ValueKeepAlive)
	}
	return !m.Header.ContainsValue(HeaderConnection, ValueClose)
}

// ContentLength 返回 Content-Length，缺失或无法解析时为 0
func (m *Message) ContentLength() int {
	n, err := strconv.Atoi(strings.TrimSpace(m.Header.Get(HeaderContentLength)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ============================================================================
//                              写入
// ============================================================================

// Encode 写出起始行、头部与主体
func (m *Message) Encode(w io.Writer, startLine string) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(startLine)
	bw.WriteString("\r\n")
	m.Header.Each(func(name, value string) bool {
		bw.WriteString(name)
		bw.WriteString(": ")
		bw.WriteString(value)
		bw.WriteString("\r\n")
		return true
	})
	bw.WriteString("\r\n")

	body := m.Body()
	if m.IsChunked() {
		writeChunked(bw, body, DefaultChunkSize)
	} else if len(body) > 0 {
		bw.Write(body)
	}
	return bw.Flush()
}

func writeChunked(w *bufio.Writer, body []byte, chunkSize int) {
	for off := 0; off < len(body); off += chunkSize {
		n := min(chunkSize, len(body)-off)
		fmt.Fprintf(w, "%x\r\n", n)
		w.Write(body[off : off+n])
		w.WriteString("\r\n")
	}
	w.WriteString("0\r\n\r\n")
}

// format 返回便于日志输出的文本表示
func (m *Message) format(startLine string) string {
	var sb strings.Builder
	sb.WriteString(startLine)
	sb.WriteString("\r\n")
	m.Header.Each(func(name, value string) bool {
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(value)
		sb.WriteString("\r\n")
		return true
	})
	sb.WriteString("\r\n")
	if text, ok := m.BodyString(); ok {
		sb.WriteString(text)
	}
	return sb.String()
}

// ============================================================================
//                              读取
// ============================================================================

// ReadHeader 读取起始行与头部
//
// 起始行为空时返回 ErrMalformedStartLine。
func ReadHeader(r *bufio.Reader) (startLine string, header Header, err error) {
	startLine, err = readLine(r)
	if err != nil {
		return "", Header{}, err
	}
	if startLine == "" {
		return "", Header{}, ErrMalformedStartLine
	}

	for {
		line, err := readLine(r)
		if err != nil {
			return "", Header{}, err
		}
		if line == "" {
			return startLine, header, nil
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		header.Set(name, strings.TrimSpace(value))
	}
}

// readBody 按 chunked 或 Content-Length 读取主体
func (m *Message) readBody(r *bufio.Reader) error {
	if m.IsChunked() {
		body, err := readChunkedBody(r)
		if err != nil {
			return err
		}
		m.SetBody(body, false)
		return nil
	}

	n := m.ContentLength()
	if n > maxBodySize {
		return ErrBodyTooLarge
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	m.SetBody(body, false)
	return nil
}

func readChunkedBody(r *bufio.Reader) ([]byte, error) {
	body := []byte{}
	for {
		size, err := readChunkSize(r)
		if err != nil {
			return nil, err
		}
		if size == 0 {
			// 末尾空行，流在此结束也视为完整
			if _, err := readLine(r); err != nil && !errors.Is(err, ErrUnexpectedEOF) {
				return nil, err
			}
			return body, nil
		}
		if len(body)+size > maxBodySize {
			return nil, ErrBodyTooLarge
		}
		off := len(body)
		body = append(body, make([]byte, size)...)
		if _, err := io.ReadFull(r, body[off:]); err != nil {
			return nil, fmt.Errorf("read chunk: %w", err)
		}
		if _, err := readLine(r); err != nil {
			return nil, err
		}
	}
}

// readChunkSize 读取分块长度行，忽略 ';' 之后的扩展
func readChunkSize(r *bufio.Reader) (int, error) {
	line, err := readLine(r)
	if err != nil {
		return 0, err
	}
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, ErrMalformedChunk
	}
	size, err := strconv.ParseInt(line, 16, 32)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedChunk, line)
	}
	return int(size), nil
}

// readLine 读取一行，忽略 CR，以 LF 结束
//
// 未读到任何字节就遇到流结束时返回 ErrUnexpectedEOF；
// 读到部分内容后流结束则返回已读内容。
func readLine(r *bufio.Reader) (string, error) {
	var line []byte
	for {
		c, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(line) > 0 {
					return string(line), nil
				}
				return "", ErrUnexpectedEOF
			}
			return "", err
		}
		switch c {
		case '\r':
			continue
		case '\n':
			return string(line), nil
		}
		if len(line) >= maxLineLength {
			return "", ErrLineTooLong
		}
		line = append(line, c)
	}
}
