package ssdp

import (
	"context"
	"net"
	"net/netip"

	"github.com/dep2p/go-upnpcp/internal/core/httpmsg"
)

// NotifyReceiver 在一块网卡的一个地址族上接收 NOTIFY
type NotifyReceiver struct {
	*transport
	listener Listener
}

// NewNotifyReceiver 创建 NotifyReceiver
//
// 通过检查的 NOTIFY 交给 listener，listener 可为空。
func NewNotifyReceiver(b Binding, opts Options, listener Listener) *NotifyReceiver {
	r := &NotifyReceiver{
		transport: newTransport(b, Port, true, opts),
		listener:  listener,
	}
	r.handle = r.onReceive
	return r
}

// Start 绑定 1900 端口、加入组播组并开始接收
func (r *NotifyReceiver) Start(ctx context.Context) error { return r.start(ctx) }

// Stop 关闭套接字并等待接收循环退出
func (r *NotifyReceiver) Stop() error { return r.stop() }

// Binding 返回绑定信息
func (r *NotifyReceiver) Binding() Binding { return r.binding }

// LocalAddr 返回套接字本地地址，未启动时为 nil
func (r *NotifyReceiver) LocalAddr() net.Addr { return r.localAddr() }

func (r *NotifyReceiver) onReceive(src netip.Addr, data []byte) {
	if r.invalidSource(src) {
		r.opts.dropped(r.binding.Address, DropSegment)
		return
	}

	m, ok := r.parse(src, data)
	if !ok {
		return
	}
	if m.Kind != KindRequest || m.Method != httpmsg.MethodNotify {
		r.opts.dropped(r.binding.Address, DropMethod)
		return
	}
	if m.NTS() != NTSByebye && !validLocation(m, src) {
		r.opts.dropped(r.binding.Address, DropLocation)
		log.Debug("Location 与源地址不一致", "src", src.String(), "location", m.Location())
		return
	}

	if r.listener != nil {
		r.listener(m)
	}
}

// invalidSource 源地址是否应被网段规则拒绝
//
// IPv6 链路本地接收器只接受 fe80::/10 源地址且不做子网检查；
// IPv4 接收器拒绝 IPv6 源地址，开启 SegmentCheck 时要求同一子网。
func (r *NotifyReceiver) invalidSource(src netip.Addr) bool {
	src = src.Unmap()
	if r.binding.Address == AddressIPv6LinkLocal {
		return !isIPv6LinkLocal(src)
	}
	if !src.Is4() {
		return true
	}
	return r.opts.SegmentCheck && !sameSegment(r.binding.Prefix, src)
}
