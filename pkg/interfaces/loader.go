package interfaces

import (
	"context"

	"github.com/dep2p/go-upnpcp/internal/core/device"
	"github.com/dep2p/go-upnpcp/internal/core/ssdp"
)

// DescriptionLoader 根据 SSDP 消息下载并解析设备描述
//
// 返回的 Device 以 msg 作为其 SSDP 消息，服务使用 manager 执行订阅。
type DescriptionLoader interface {
	Load(ctx context.Context, msg *ssdp.Message, manager device.SubscribeManager) (*device.Device, error)
}

// IconLoader 下载图标内容
type IconLoader interface {
	LoadIcon(ctx context.Context, url string) ([]byte, error)
}
