package ssdp

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// packetConn 收发数据报的最小接口
//
// ReadFrom 返回接收网卡索引（平台不支持控制消息时为 0）。
type packetConn interface {
	ReadFrom(b []byte) (n int, ifIndex int, src netip.Addr, err error)
	WriteTo(b []byte, dst netip.AddrPort) (int, error)
	LocalAddr() net.Addr
	Close() error
}

// socketFactory 为绑定打开套接字
//
// port 为 0 时绑定到网卡地址的临时端口；join 为 true 时加入组播组。
type socketFactory func(ctx context.Context, b Binding, port, ttl int, join bool) (packetConn, error)

// openSocket 默认套接字工厂
func openSocket(ctx context.Context, b Binding, port, ttl int, join bool) (packetConn, error) {
	lc := net.ListenConfig{Control: reuseControl}
	pc, err := lc.ListenPacket(ctx, b.Address.network(), b.bindAddr(port))
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", b, err)
	}
	udp := pc.(*net.UDPConn)

	var conn packetConn
	if b.Address == AddressIPv6LinkLocal {
		conn, err = newIPv6Conn(udp, b, ttl, join)
	} else {
		conn, err = newIPv4Conn(udp, b, ttl, join)
	}
	if err != nil {
		_ = udp.Close()
		return nil, err
	}
	return conn, nil
}

// ============================================================================
//                              IPv4
// ============================================================================

type ipv4Conn struct {
	udp *net.UDPConn
	pc  *ipv4.PacketConn
}

func newIPv4Conn(udp *net.UDPConn, b Binding, ttl int, join bool) (*ipv4Conn, error) {
	pc := ipv4.NewPacketConn(udp)
	if join {
		if err := pc.JoinGroup(b.Iface, b.Address.groupUDPAddr()); err != nil {
			return nil, fmt.Errorf("join group on %s: %w", b.Iface.Name, err)
		}
	}
	if err := pc.SetMulticastInterface(b.Iface); err != nil {
		return nil, fmt.Errorf("set multicast interface %s: %w", b.Iface.Name, err)
	}
	if err := pc.SetMulticastTTL(ttl); err != nil {
		return nil, fmt.Errorf("set multicast ttl: %w", err)
	}
	if err := pc.SetMulticastLoopback(false); err != nil {
		log.Debug("关闭组播回环失败", "iface", b.Iface.Name, "err", err)
	}
	if err := pc.SetControlMessage(ipv4.FlagInterface, true); err != nil {
		log.Debug("平台不支持接收网卡控制消息", "iface", b.Iface.Name, "err", err)
	}
	return &ipv4Conn{udp: udp, pc: pc}, nil
}

func (c *ipv4Conn) ReadFrom(b []byte) (int, int, netip.Addr, error) {
	n, cm, src, err := c.pc.ReadFrom(b)
	if err != nil {
		return 0, 0, netip.Addr{}, err
	}
	ifIndex := 0
	if cm != nil {
		ifIndex = cm.IfIndex
	}
	return n, ifIndex, sourceAddr(src), nil
}

func (c *ipv4Conn) WriteTo(b []byte, dst netip.AddrPort) (int, error) {
	return c.pc.WriteTo(b, nil, net.UDPAddrFromAddrPort(dst))
}

func (c *ipv4Conn) LocalAddr() net.Addr { return c.udp.LocalAddr() }

func (c *ipv4Conn) Close() error { return c.udp.Close() }

// ============================================================================
//                              IPv6
// ============================================================================

type ipv6Conn struct {
	udp  *net.UDPConn
	pc   *ipv6.PacketConn
	zone string
}

func newIPv6Conn(udp *net.UDPConn, b Binding, ttl int, join bool) (*ipv6Conn, error) {
	pc := ipv6.NewPacketConn(udp)
	if join {
		if err := pc.JoinGroup(b.Iface, b.Address.groupUDPAddr()); err != nil {
			return nil, fmt.Errorf("join group on %s: %w", b.Iface.Name, err)
		}
	}
	if err := pc.SetMulticastInterface(b.Iface); err != nil {
		return nil, fmt.Errorf("set multicast interface %s: %w", b.Iface.Name, err)
	}
	if err := pc.SetMulticastHopLimit(ttl); err != nil {
		return nil, fmt.Errorf("set multicast hop limit: %w", err)
	}
	if err := pc.SetMulticastLoopback(false); err != nil {
		log.Debug("关闭组播回环失败", "iface", b.Iface.Name, "err", err)
	}
	if err := pc.SetControlMessage(ipv6.FlagInterface, true); err != nil {
		log.Debug("平台不支持接收网卡控制消息", "iface", b.Iface.Name, "err", err)
	}
	return &ipv6Conn{udp: udp, pc: pc, zone: b.Iface.Name}, nil
}

func (c *ipv6Conn) ReadFrom(b []byte) (int, int, netip.Addr, error) {
	n, cm, src, err := c.pc.ReadFrom(b)
	if err != nil {
		return 0, 0, netip.Addr{}, err
	}
	ifIndex := 0
	if cm != nil {
		ifIndex = cm.IfIndex
	}
	return n, ifIndex, sourceAddr(src), nil
}

func (c *ipv6Conn) WriteTo(b []byte, dst netip.AddrPort) (int, error) {
	addr := net.UDPAddrFromAddrPort(dst)
	if addr.Zone == "" {
		addr.Zone = c.zone
	}
	return c.pc.WriteTo(b, nil, addr)
}

func (c *ipv6Conn) LocalAddr() net.Addr { return c.udp.LocalAddr() }

func (c *ipv6Conn) Close() error { return c.udp.Close() }

// sourceAddr 提取数据报源地址，去掉 zone 与 IPv4 映射
func sourceAddr(a net.Addr) netip.Addr {
	ua, ok := a.(*net.UDPAddr)
	if !ok {
		return netip.Addr{}
	}
	addr, ok := netip.AddrFromSlice(ua.IP)
	if !ok {
		return netip.Addr{}
	}
	return addr.Unmap()
}
