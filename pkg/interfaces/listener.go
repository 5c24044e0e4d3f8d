package interfaces

import (
	"github.com/dep2p/go-upnpcp/internal/core/device"
	"github.com/dep2p/go-upnpcp/internal/core/ssdp"
)

// DiscoveryListener 设备发现与丢失回调
type DiscoveryListener interface {
	// OnDiscover 描述文件加载完成，设备可用
	OnDiscover(d *device.Device)

	// OnLost 设备发送 byebye 或已过期
	OnLost(d *device.Device)
}

// NotifyEventListener GENA 事件回调
//
// 一个 NOTIFY 中的每个状态变量各回调一次。
type NotifyEventListener interface {
	OnNotifyEvent(s *device.Service, seq int64, variable, value string)
}

// SSDPListener 原始 SSDP 消息回调
type SSDPListener interface {
	OnSSDP(m *ssdp.Message)
}
