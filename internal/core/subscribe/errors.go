package subscribe

import "errors"

var (
	// ErrNoSubscription 服务没有订阅 ID
	ErrNoSubscription = errors.New("subscribe: no subscription id")

	// ErrRejected 设备拒绝订阅请求
	ErrRejected = errors.New("subscribe: rejected by device")

	// ErrNoLocalAddr 不知道与设备通信的本地地址，无法构造 CALLBACK
	ErrNoLocalAddr = errors.New("subscribe: local address unknown")

	// ErrNoEventPort 事件接收服务器未启动
	ErrNoEventPort = errors.New("subscribe: event receiver not started")
)
