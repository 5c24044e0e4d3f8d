package ssdp

import "errors"

var (
	// ErrNoInterface 没有可用的网卡
	ErrNoInterface = errors.New("ssdp: no usable network interface")

	// ErrNotStarted 传输未启动
	ErrNotStarted = errors.New("ssdp: transport not started")

	// ErrMalformed 数据报无法解析
	ErrMalformed = errors.New("ssdp: malformed message")
)
