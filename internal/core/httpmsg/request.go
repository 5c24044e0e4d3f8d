package httpmsg

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

// Request HTTP 请求
type Request struct {
	Message

	// Method 请求方法
	Method string

	// URI 请求目标，如 /event 或 *
	URI string

	// address 连接目标 host:port，由 SetURL 设置
	address string
}

// NewRequest 创建请求
func NewRequest(method string) *Request {
	return &Request{
		Message: Message{Version: DefaultVersion},
		Method:  method,
	}
}

// StartLine 返回起始行
func (r *Request) StartLine() string {
	return r.Method + " " + r.URI + " " + r.Version
}

// SetStartLine 解析并设置起始行
func (r *Request) SetStartLine(line string) error {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 3 || parts[0] == "" {
		return fmt.Errorf("%w: %q", ErrMalformedStartLine, line)
	}
	r.Method, r.URI, r.Version = parts[0], parts[1], parts[2]
	return nil
}

// SetURL 设置请求目标
//
// URI 取路径与查询部分；withHost 为 true 时同时设置 HOST 头。
func (r *Request) SetURL(u *url.URL, withHost bool) error {
	if u == nil || !strings.EqualFold(u.Scheme, "http") || u.Hostname() == "" {
		return fmt.Errorf("%w: %v", ErrInvalidURL, u)
	}
	port := u.Port()
	if port == "" {
		port = "80"
	}
	r.address = net.JoinHostPort(u.Hostname(), port)

	r.URI = u.EscapedPath()
	if r.URI == "" {
		r.URI = "/"
	}
	if u.RawQuery != "" {
		r.URI += "?" + u.RawQuery
	}

	if withHost {
		host := u.Hostname()
		if i := strings.IndexByte(host, '%'); i >= 0 {
			host = host[:i]
		}
		r.Header.Set(HeaderHost, net.JoinHostPort(host, port))
	}
	return nil
}

// Address 返回连接目标 host:port
func (r *Request) Address() string {
	return r.address
}

// SetAddress 直接设置连接目标
func (r *Request) SetAddress(hostport string) {
	r.address = hostport
}

// Write 写出请求
func (r *Request) Write(w io.Writer) error {
	return r.Encode(w, r.StartLine())
}

// String 返回请求的文本表示
func (r *Request) String() string {
	return r.format(r.StartLine())
}

// ReadRequest 从流中读取请求
func ReadRequest(br *bufio.Reader) (*Request, error) {
	line, header, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}
	r := &Request{Message: Message{Header: header}}
	if err := r.SetStartLine(line); err != nil {
		return nil, err
	}
	if err := r.readBody(br); err != nil {
		return nil, err
	}
	return r, nil
}
