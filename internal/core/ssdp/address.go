package ssdp

import (
	"net"
	"net/netip"
)

// Port SSDP 端口
const Port = 1900

// Address SSDP 组播地址族
type Address int

const (
	// AddressIPv4 239.255.255.250:1900
	AddressIPv4 Address = iota
	// AddressIPv6LinkLocal [FF02::C]:1900
	AddressIPv6LinkLocal
)

var (
	groupIPv4 = netip.MustParseAddr("239.255.255.250")
	groupIPv6 = netip.MustParseAddr("ff02::c")
)

// Group 组播组地址
func (a Address) Group() netip.AddrPort {
	if a == AddressIPv6LinkLocal {
		return netip.AddrPortFrom(groupIPv6, Port)
	}
	return netip.AddrPortFrom(groupIPv4, Port)
}

// HostHeader HOST 头取值
func (a Address) HostHeader() string {
	if a == AddressIPv6LinkLocal {
		return "[FF02::C]:1900"
	}
	return "239.255.255.250:1900"
}

// String 返回地址族名称
func (a Address) String() string {
	if a == AddressIPv6LinkLocal {
		return "ipv6-link-local"
	}
	return "ipv4"
}

func (a Address) network() string {
	if a == AddressIPv6LinkLocal {
		return "udp6"
	}
	return "udp4"
}

func (a Address) groupUDPAddr() *net.UDPAddr {
	return net.UDPAddrFromAddrPort(a.Group())
}
