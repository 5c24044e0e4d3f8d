package httpmsg

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Response HTTP 响应
type Response struct {
	Message

	// StatusCode 状态码
	StatusCode int

	// Reason 原因短语
	Reason string
}

// NewResponse 创建指定状态的响应，原因短语取标准文本
func NewResponse(code int) *Response {
	r := &Response{Message: Message{Version: DefaultVersion}}
	r.SetStatus(code)
	return r
}

// SetStatus 设置状态码与标准原因短语
func (r *Response) SetStatus(code int) {
	r.StatusCode = code
	r.Reason = http.StatusText(code)
}

// StartLine 返回起始行
func (r *Response) StartLine() string {
	return r.Version + " " + strconv.Itoa(r.StatusCode) + " " + r.Reason
}

// SetStartLine 解析并设置起始行
//
// 格式为 "版本 状态码 原因"，三段缺一不可。
func (r *Response) SetStartLine(line string) error {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 3 {
		return fmt.Errorf("%w: %q", ErrMalformedStartLine, line)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil || code < 100 || code > 999 {
		return fmt.Errorf("%w: %q", ErrMalformedStartLine, line)
	}
	r.Version, r.StatusCode, r.Reason = parts[0], code, parts[2]
	return nil
}

// IsRedirect 是否为重定向状态
func (r *Response) IsRedirect() bool {
	switch r.StatusCode {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	}
	return false
}

// Write 写出响应
func (r *Response) Write(w io.Writer) error {
	return r.Encode(w, r.StartLine())
}

// String 返回响应的文本表示
func (r *Response) String() string {
	return r.format(r.StartLine())
}

// ReadResponse 从流中读取响应
func ReadResponse(br *bufio.Reader) (*Response, error) {
	line, header, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}
	r := &Response{Message: Message{Header: header}}
	if err := r.SetStartLine(line); err != nil {
		return nil, err
	}
	if err := r.readBody(br); err != nil {
		return nil, err
	}
	return r, nil
}
