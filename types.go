package upnpcp

import (
	"github.com/dep2p/go-upnpcp/internal/core/device"
	"github.com/dep2p/go-upnpcp/internal/core/ssdp"
	"github.com/dep2p/go-upnpcp/internal/core/subscribe"
	"github.com/dep2p/go-upnpcp/pkg/interfaces"
	"github.com/dep2p/go-upnpcp/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              控制点状态
// ════════════════════════════════════════════════════════════════════════════

// State 控制点状态
type State int

const (
	// StateIdle 已创建，未启动
	StateIdle State = iota

	// StateRunning 运行中
	StateRunning

	// StateStopped 已停止，执行器已终止
	StateStopped
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              类型别名
// ════════════════════════════════════════════════════════════════════════════

type (
	// Device 设备
	Device = device.Device

	// Service 服务
	Service = device.Service

	// Icon 图标
	Icon = device.Icon

	// SSDPMessage SSDP 消息
	SSDPMessage = ssdp.Message

	// Subscription 订阅快照
	Subscription = subscribe.Subscription

	// Property 事件状态变量
	Property = types.Property

	// Protocol 协议栈模式
	Protocol = types.Protocol

	// DiscoveryListener 发现回调
	DiscoveryListener = interfaces.DiscoveryListener

	// NotifyEventListener 事件回调
	NotifyEventListener = interfaces.NotifyEventListener

	// SSDPListener 原始 SSDP 回调
	SSDPListener = interfaces.SSDPListener

	// DescriptionLoader 描述加载器
	DescriptionLoader = interfaces.DescriptionLoader
)

// 协议栈模式
const (
	ProtocolDualStack = types.ProtocolDualStack
	ProtocolIPv4Only  = types.ProtocolIPv4Only
	ProtocolIPv6Only  = types.ProtocolIPv6Only
)
