package types

import (
	"fmt"
	"strings"
)

// ============================================================================
//                              Protocol - 协议栈模式
// ============================================================================

// Protocol SSDP 使用的地址族模式
type Protocol int

const (
	// ProtocolDualStack 同时使用 IPv4 与 IPv6（默认）
	ProtocolDualStack Protocol = iota
	// ProtocolIPv4Only 仅 IPv4
	ProtocolIPv4Only
	// ProtocolIPv6Only 仅 IPv6
	ProtocolIPv6Only
)

// DefaultProtocol 默认协议栈模式
const DefaultProtocol = ProtocolDualStack

// String 返回协议栈模式的字符串表示
func (p Protocol) String() string {
	switch p {
	case ProtocolIPv4Only:
		return "ipv4"
	case ProtocolIPv6Only:
		return "ipv6"
	case ProtocolDualStack:
		return "dual"
	default:
		return "unknown"
	}
}

// UsesIPv4 是否启用 IPv4
func (p Protocol) UsesIPv4() bool {
	return p == ProtocolIPv4Only || p == ProtocolDualStack
}

// UsesIPv6 是否启用 IPv6
func (p Protocol) UsesIPv6() bool {
	return p == ProtocolIPv6Only || p == ProtocolDualStack
}

// ParseProtocol 解析协议栈模式名称
//
// 空字符串返回默认值。
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dual", "dualstack", "dual-stack":
		return ProtocolDualStack, nil
	case "ipv4", "ip4", "v4":
		return ProtocolIPv4Only, nil
	case "ipv6", "ip6", "v6":
		return ProtocolIPv6Only, nil
	default:
		return ProtocolDualStack, fmt.Errorf("types: unknown protocol %q", s)
	}
}
