package httpmsg

import (
	"errors"
	"io"
)

var (
	// ErrUnexpectedEOF 尚未读到任何字节时流已结束
	ErrUnexpectedEOF = io.ErrUnexpectedEOF

	// ErrMalformedStartLine 起始行为空或格式错误
	ErrMalformedStartLine = errors.New("httpmsg: malformed start line")

	// ErrMalformedChunk 分块长度行错误
	ErrMalformedChunk = errors.New("httpmsg: malformed chunk size")

	// ErrLineTooLong 行长度超过上限
	ErrLineTooLong = errors.New("httpmsg: line too long")

	// ErrBodyTooLarge 主体长度超过上限
	ErrBodyTooLarge = errors.New("httpmsg: body too large")

	// ErrInvalidURL 不是可用的 http URL
	ErrInvalidURL = errors.New("httpmsg: invalid http url")
)
