package httpclient

import (
	"errors"
	"fmt"
)

var (
	// ErrTooManyRedirects 重定向次数超过上限
	ErrTooManyRedirects = errors.New("httpclient: too many redirects")

	// ErrNoBody 响应没有主体，由要求主体的调用方返回（如描述文件加载）
	ErrNoBody = errors.New("httpclient: response has no body")

	// ErrNotText 主体不是合法的 UTF-8 文本
	ErrNotText = errors.New("httpclient: body is not valid utf-8")

	// ErrClosed 客户端已关闭
	ErrClosed = errors.New("httpclient: client closed")
)

// StatusError 下载时响应状态不是 200
type StatusError struct {
	Code   int
	Reason string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpclient: unexpected status %d %s", e.Code, e.Reason)
}
