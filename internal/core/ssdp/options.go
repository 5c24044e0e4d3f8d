package ssdp

import (
	"time"

	"github.com/dep2p/go-upnpcp/internal/core/executor"
)

// DefaultTTL 组播 TTL / 跳数限制
const DefaultTTL = 4

// Listener 消息回调
//
// 在传输的接收 goroutine 中按到达顺序调用，不应阻塞。
type Listener func(m *Message)

// Observer 收发统计回调
type Observer interface {
	// Received 收到一个数据报
	Received(addr Address)

	// Dropped 丢弃一个数据报，reason 为 Drop* 常量之一
	Dropped(addr Address, reason string)
}

// Options 传输选项
type Options struct {
	// Executors 任务执行器，发送经由其 IO 执行器；为空时同步发送
	Executors *executor.Executors

	// SegmentCheck 是否对 IPv4 NOTIFY 做子网检查
	SegmentCheck bool

	// TTL 组播 TTL，<= 0 时使用 DefaultTTL
	TTL int

	// Observer 统计回调，可为空
	Observer Observer

	// Now 时钟，为空时使用 time.Now
	Now func() time.Time

	open socketFactory
}

// DefaultOptions 返回默认选项
func DefaultOptions() Options {
	return Options{SegmentCheck: true, TTL: DefaultTTL}
}

func (o Options) ttl() int {
	if o.TTL <= 0 {
		return DefaultTTL
	}
	return o.TTL
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) factory() socketFactory {
	if o.open != nil {
		return o.open
	}
	return openSocket
}

func (o Options) received(a Address) {
	if o.Observer != nil {
		o.Observer.Received(a)
	}
}

func (o Options) dropped(a Address, reason string) {
	if o.Observer != nil {
		o.Observer.Dropped(a, reason)
	}
}
