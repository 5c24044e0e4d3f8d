package ssdp

import (
	"net/netip"
	"net/url"

	"github.com/dep2p/go-upnpcp/internal/core/httpmsg"
)

// 丢弃原因
const (
	DropSegment   = "segment"
	DropMalformed = "malformed"
	DropMethod    = "method"
	DropLocation  = "location"
)

// sameSegment addr 是否与网卡地址处于同一子网
//
// 用网卡前缀长度分别掩码两者后比较。
func sameSegment(iface netip.Prefix, addr netip.Addr) bool {
	ifAddr := iface.Addr().WithZone("")
	addr = addr.WithZone("").Unmap()
	if ifAddr.BitLen() != addr.BitLen() {
		return false
	}
	a, err := ifAddr.Prefix(iface.Bits())
	if err != nil {
		return false
	}
	b, err := addr.Prefix(iface.Bits())
	if err != nil {
		return false
	}
	return a == b
}

// validLocation Location 的主机是否就是数据报源地址
func validLocation(m *Message, src netip.Addr) bool {
	loc := m.Location()
	if !httpmsg.IsHTTPURL(loc) {
		return false
	}
	u, err := url.Parse(loc)
	if err != nil {
		return false
	}
	host, err := netip.ParseAddr(u.Hostname())
	if err != nil {
		return false
	}
	return host.WithZone("").Unmap() == src.WithZone("").Unmap()
}
