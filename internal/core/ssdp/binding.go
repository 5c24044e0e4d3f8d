package ssdp

import (
	"fmt"
	"net"
	"net/netip"
	"slices"

	"github.com/dep2p/go-upnpcp/pkg/types"
)

// Binding 一个 (地址族, 网卡) 组合
type Binding struct {
	// Address 地址族
	Address Address

	// Iface 网卡
	Iface *net.Interface

	// Prefix 网卡在该地址族上的地址与前缀长度
	Prefix netip.Prefix
}

// ScopeID IPv6 时返回网卡索引，IPv4 返回 0
func (b Binding) ScopeID() int {
	if b.Address == AddressIPv6LinkLocal && b.Iface != nil {
		return b.Iface.Index
	}
	return 0
}

// String 返回便于日志输出的描述
func (b Binding) String() string {
	name := ""
	if b.Iface != nil {
		name = b.Iface.Name
	}
	return fmt.Sprintf("%s/%s/%s", b.Address, name, b.Prefix)
}

// bindAddr 绑定的本地地址
//
// port 为 0 时绑定到网卡地址（IPv6 链路本地附带 zone），
// 否则绑定到通配地址，依赖组播加组与接收网卡过滤。
func (b Binding) bindAddr(port int) string {
	if port != 0 {
		return fmt.Sprintf(":%d", port)
	}
	addr := b.Prefix.Addr()
	if b.Address == AddressIPv6LinkLocal && b.Iface != nil {
		addr = addr.WithZone(b.Iface.Name)
	}
	return netip.AddrPortFrom(addr, 0).String()
}

// Bindings 枚举可用的绑定
//
// 网卡须处于 up 状态、支持组播且不是回环；IPv4 需要 IPv4 地址，
// IPv6 需要链路本地地址。names 非空时只使用其中列出的网卡。
func Bindings(protocol types.Protocol, names []string) ([]Binding, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	var bindings []Binding
	for i := range ifaces {
		ifi := &ifaces[i]
		if !usableInterface(ifi) {
			continue
		}
		if len(names) > 0 && !slices.Contains(names, ifi.Name) {
			continue
		}
		addrs, err := ifi.Addrs()
		if err != nil {
			log.Debug("读取网卡地址失败", "iface", ifi.Name, "err", err)
			continue
		}
		bindings = append(bindings, bindingsForInterface(protocol, ifi, addrs)...)
	}

	if len(bindings) == 0 {
		return nil, ErrNoInterface
	}
	return bindings, nil
}

func bindingsForInterface(protocol types.Protocol, ifi *net.Interface, addrs []net.Addr) []Binding {
	var out []Binding
	if protocol.UsesIPv4() {
		if p, ok := firstPrefix(addrs, func(a netip.Addr) bool { return a.Is4() }); ok {
			out = append(out, Binding{Address: AddressIPv4, Iface: ifi, Prefix: p})
		}
	}
	if protocol.UsesIPv6() {
		if p, ok := firstPrefix(addrs, isIPv6LinkLocal); ok {
			out = append(out, Binding{Address: AddressIPv6LinkLocal, Iface: ifi, Prefix: p})
		}
	}
	return out
}

func usableInterface(ifi *net.Interface) bool {
	return ifi.Flags&net.FlagUp != 0 &&
		ifi.Flags&net.FlagMulticast != 0 &&
		ifi.Flags&net.FlagLoopback == 0
}

func firstPrefix(addrs []net.Addr, match func(netip.Addr) bool) (netip.Prefix, bool) {
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		addr, ok := netip.AddrFromSlice(ipnet.IP)
		if !ok {
			continue
		}
		addr = addr.Unmap()
		if !match(addr) {
			continue
		}
		ones, _ := ipnet.Mask.Size()
		return netip.PrefixFrom(addr, ones), true
	}
	return netip.Prefix{}, false
}

func isIPv6LinkLocal(a netip.Addr) bool {
	return a.Is6() && !a.Is4In6() && a.IsLinkLocalUnicast()
}
