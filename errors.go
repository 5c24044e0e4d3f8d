package upnpcp

import "errors"

// 公共错误定义
var (
	// ErrNotStarted 控制点未启动
	ErrNotStarted = errors.New("upnpcp: control point not started")

	// ErrAlreadyStarted 控制点已启动
	ErrAlreadyStarted = errors.New("upnpcp: control point already started")

	// ErrStopped 控制点已停止，执行器已终止，不可再次启动
	ErrStopped = errors.New("upnpcp: control point stopped")

	// ErrInvalidLocation 固定设备地址不是 http URL
	ErrInvalidLocation = errors.New("upnpcp: invalid location")
)
