package device

import (
	"net/netip"
	"net/url"
	"sync"
	"time"

	"github.com/dep2p/go-upnpcp/internal/core/httpmsg"
	"github.com/dep2p/go-upnpcp/internal/core/ssdp"
)

// Icon 设备图标
type Icon struct {
	MimeType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Depth    int    `json:"depth"`
	URL      string `json:"url"`

	// Data 图标内容，仅在配置了图标加载器时填充
	Data []byte `json:"-"`
}

// DeviceParams 构造 Device 的参数
//
// UDN、DeviceType、FriendlyName 必填；根设备还要求 Location 与 SSDP。
// 嵌入设备继承根设备的 Location 与 SSDP。
type DeviceParams struct {
	SSDP     *ssdp.Message
	Location string

	UDN              string
	DeviceType       string
	FriendlyName     string
	Manufacturer     string
	ManufacturerURL  string
	ModelName        string
	ModelNumber      string
	ModelDescription string
	SerialNumber     string
	PresentationURL  string

	Icons    []Icon
	Services []ServiceParams
	Devices  []DeviceParams

	// Manager 订阅管理器，为空时订阅操作一律失败
	Manager SubscribeManager
}

// Device UPnP 设备
type Device struct {
	parent *Device
	root   *Device

	location         string
	udn              string
	deviceType       string
	friendlyName     string
	manufacturer     string
	manufacturerURL  string
	modelName        string
	modelNumber      string
	modelDescription string
	serialNumber     string
	presentationURL  string
	icons            []Icon
	services         []*Service
	devices          []*Device

	// 仅根设备使用
	mu   sync.RWMutex
	ssdp *ssdp.Message
}

// NewDevice 构造设备树
func NewDevice(p DeviceParams) (*Device, error) {
	return newDevice(p, nil)
}

func newDevice(p DeviceParams, parent *Device) (*Device, error) {
	if parent != nil {
		p.Location = parent.root.location
		p.SSDP = parent.root.SSDPMessage()
	}
	if err := requireFields("device",
		"UDN", p.UDN,
		"DeviceType", p.DeviceType,
		"FriendlyName", p.FriendlyName,
		"Location", p.Location,
	); err != nil {
		return nil, err
	}
	if p.SSDP == nil {
		return nil, &MissingFieldsError{Kind: "device", Fields: []string{"SSDP"}}
	}

	d := &Device{
		parent:           parent,
		location:         p.Location,
		udn:              p.UDN,
		deviceType:       p.DeviceType,
		friendlyName:     p.FriendlyName,
		manufacturer:     p.Manufacturer,
		manufacturerURL:  p.ManufacturerURL,
		modelName:        p.ModelName,
		modelNumber:      p.ModelNumber,
		modelDescription: p.ModelDescription,
		serialNumber:     p.SerialNumber,
		presentationURL:  p.PresentationURL,
		icons:            append([]Icon(nil), p.Icons...),
	}
	if parent == nil {
		d.root = d
		d.ssdp = p.SSDP
	} else {
		d.root = parent.root
	}

	for _, sp := range p.Services {
		s, err := newService(sp, d, p.Manager)
		if err != nil {
			return nil, err
		}
		d.services = append(d.services, s)
	}
	for _, dp := range p.Devices {
		if dp.Manager == nil {
			dp.Manager = p.Manager
		}
		child, err := newDevice(dp, d)
		if err != nil {
			return nil, err
		}
		d.devices = append(d.devices, child)
	}
	return d, nil
}

// ============================================================================
//                              访问器
// ============================================================================

// UDN 设备唯一名称（uuid:...）
func (d *Device) UDN() string { return d.udn }

// DeviceType 设备类型
func (d *Device) DeviceType() string { return d.deviceType }

// FriendlyName 友好名称
func (d *Device) FriendlyName() string { return d.friendlyName }

// Manufacturer 制造商
func (d *Device) Manufacturer() string { return d.manufacturer }

// ManufacturerURL 制造商网址
func (d *Device) ManufacturerURL() string { return d.manufacturerURL }

// ModelName 型号名称
func (d *Device) ModelName() string { return d.modelName }

// ModelNumber 型号编号
func (d *Device) ModelNumber() string { return d.modelNumber }

// ModelDescription 型号描述
func (d *Device) ModelDescription() string { return d.modelDescription }

// SerialNumber 序列号
func (d *Device) SerialNumber() string { return d.serialNumber }

// PresentationURL 展示页面地址
func (d *Device) PresentationURL() string { return d.presentationURL }

// Icons 图标列表
func (d *Device) Icons() []Icon { return d.icons }

// Services 本设备直接包含的服务
func (d *Device) Services() []*Service { return d.services }

// Devices 本设备直接包含的嵌入设备
func (d *Device) Devices() []*Device { return d.devices }

// Parent 父设备，根设备返回 nil
func (d *Device) Parent() *Device { return d.parent }

// Root 根设备
func (d *Device) Root() *Device { return d.root }

// IsEmbedded 是否为嵌入设备
func (d *Device) IsEmbedded() bool { return d.parent != nil }

// Location 描述文件地址
func (d *Device) Location() string { return d.root.location }

// SSDPMessage 根设备最近一次收到的 SSDP 消息
func (d *Device) SSDPMessage() *ssdp.Message {
	r := d.root
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ssdp
}

// UpdateSSDPMessage 用新收到的 alive / update 消息刷新过期时间
//
// 固定注册设备的消息不被替换。
func (d *Device) UpdateSSDPMessage(m *ssdp.Message) {
	r := d.root
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ssdp != nil && r.ssdp.IsPinned() {
		return
	}
	r.ssdp = m
}

// ExpireTime 过期时间
func (d *Device) ExpireTime() time.Time { return d.SSDPMessage().ExpireTime() }

// IsPinned 是否为固定注册设备
func (d *Device) IsPinned() bool { return d.SSDPMessage().IsPinned() }

// ScopeID IPv6 接收网卡索引
func (d *Device) ScopeID() int { return d.SSDPMessage().ScopeID() }

// LocalAddr 与设备通信使用的本地地址
func (d *Device) LocalAddr() netip.Addr { return d.SSDPMessage().LocalAddr() }

// AbsoluteURL 以 Location 为基准解析相对地址
func (d *Device) AbsoluteURL(ref string) (*url.URL, error) {
	return httpmsg.AbsoluteURL(d.Location(), ref, d.ScopeID())
}

// ============================================================================
//                              查找
// ============================================================================

// Walk 先序遍历设备树，fn 返回 false 时停止
func (d *Device) Walk(fn func(*Device) bool) bool {
	if !fn(d) {
		return false
	}
	for _, c := range d.devices {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// FindServiceByID 在整棵设备树中按 serviceId 查找服务
func (d *Device) FindServiceByID(id string) *Service {
	return d.findService(func(s *Service) bool { return s.serviceID == id })
}

// FindServiceByType 在整棵设备树中按 serviceType 查找服务
func (d *Device) FindServiceByType(typ string) *Service {
	return d.findService(func(s *Service) bool { return s.serviceType == typ })
}

// FindDeviceByType 在嵌入设备中按 deviceType 查找
func (d *Device) FindDeviceByType(typ string) *Device {
	var found *Device
	for _, c := range d.devices {
		c.Walk(func(x *Device) bool {
			if x.deviceType == typ {
				found = x
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// AllServices 整棵设备树的全部服务
func (d *Device) AllServices() []*Service {
	var out []*Service
	d.Walk(func(x *Device) bool {
		out = append(out, x.services...)
		return true
	})
	return out
}

func (d *Device) findService(match func(*Service) bool) *Service {
	var found *Service
	d.Walk(func(x *Device) bool {
		for _, s := range x.services {
			if match(s) {
				found = s
				return false
			}
		}
		return true
	})
	return found
}
