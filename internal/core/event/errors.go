package event

import "errors"

var (
	// ErrNotStarted 接收服务器未启动
	ErrNotStarted = errors.New("event: receiver not started")

	// ErrAlreadyStarted 接收服务器已启动
	ErrAlreadyStarted = errors.New("event: receiver already started")
)
