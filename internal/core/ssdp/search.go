package ssdp

import (
	"context"
	"net"
	"net/netip"

	"github.com/dep2p/go-upnpcp/internal/core/httpmsg"
)

// SearchServer 在一块网卡的一个地址族上发送 M-SEARCH 并接收响应
type SearchServer struct {
	*transport
	listener Listener
}

// NewSearchServer 创建 SearchServer
//
// 通过 Location 检查的搜索响应交给 listener，listener 可为空。
func NewSearchServer(b Binding, opts Options, listener Listener) *SearchServer {
	s := &SearchServer{
		transport: newTransport(b, 0, false, opts),
		listener:  listener,
	}
	s.handle = s.onReceive
	return s
}

// Start 在网卡地址的临时端口上打开套接字并开始接收
func (s *SearchServer) Start(ctx context.Context) error { return s.start(ctx) }

// Stop 关闭套接字并等待接收循环退出
func (s *SearchServer) Stop() error { return s.stop() }

// Binding 返回绑定信息
func (s *SearchServer) Binding() Binding { return s.binding }

// LocalAddr 返回套接字本地地址，未启动时为 nil
func (s *SearchServer) LocalAddr() net.Addr { return s.localAddr() }

// Search 向组播组发送 M-SEARCH，st 为空时搜索 ssdp:all
func (s *SearchServer) Search(st string) error {
	return s.send(NewSearchRequest(s.binding.Address, st).Bytes())
}

// NewSearchRequest 构造 M-SEARCH 请求
func NewSearchRequest(addr Address, st string) *Message {
	if st == "" {
		st = STAll
	}
	m := NewRequest(httpmsg.MethodMSearch, "*")
	m.Header.Set(httpmsg.HeaderHost, addr.HostHeader())
	m.Header.Set(httpmsg.HeaderMan, ManDiscover)
	m.Header.Set(httpmsg.HeaderMX, "1")
	m.Header.Set(httpmsg.HeaderST, st)
	return m
}

func (s *SearchServer) onReceive(src netip.Addr, data []byte) {
	m, ok := s.parse(src, data)
	if !ok {
		return
	}
	if m.Kind != KindResponse {
		s.opts.dropped(s.binding.Address, DropMethod)
		return
	}
	if !validLocation(m, src) {
		s.opts.dropped(s.binding.Address, DropLocation)
		log.Debug("Location 与源地址不一致", "src", src.String(), "location", m.Location())
		return
	}

	if s.listener != nil {
		s.listener(m)
	}
}
