package description

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"

	"github.com/huin/goupnp"
	"golang.org/x/net/html/charset"

	"github.com/dep2p/go-upnpcp/internal/core/device"
	"github.com/dep2p/go-upnpcp/internal/core/httpclient"
	"github.com/dep2p/go-upnpcp/internal/core/httpmsg"
	"github.com/dep2p/go-upnpcp/internal/core/ssdp"
	"github.com/dep2p/go-upnpcp/internal/util/logger"
	"github.com/dep2p/go-upnpcp/pkg/interfaces"
)

var log = logger.Logger("upnp/description")

// Loader 基于 HTTP 的描述文件加载器
type Loader struct {
	clientOpts []httpclient.Option
	dial       httpclient.DialFunc
	icons      interfaces.IconLoader
}

var _ interfaces.DescriptionLoader = (*Loader)(nil)

// Option 加载器选项
type Option func(*Loader)

// WithClientOptions 设置下载使用的 HTTP 客户端选项
func WithClientOptions(opts ...httpclient.Option) Option {
	return func(l *Loader) {
		l.clientOpts = append(l.clientOpts, opts...)
	}
}

// WithDialer 设置下载使用的拨号函数
func WithDialer(dial httpclient.DialFunc) Option {
	return func(l *Loader) {
		if dial != nil {
			l.dial = dial
		}
	}
}

// WithIconLoader 设置图标加载器，设置后加载设备时一并下载图标
func WithIconLoader(icons interfaces.IconLoader) Option {
	return func(l *Loader) {
		l.icons = icons
	}
}

// NewLoader 创建加载器
func NewLoader(opts ...Option) *Loader {
	d := &net.Dialer{Timeout: httpclient.DefaultTimeout}
	l := &Loader{dial: d.DialContext}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load 下载 msg 的 Location 并构造设备树
//
// 消息尚无本地地址（固定注册设备）时，以下载连接的本地地址补充；
// 尚无 uuid 时以描述文件的 UDN 补充。消息的 uuid 可以是嵌入设备的 UDN，
// 返回的始终是根设备。
func (l *Loader) Load(ctx context.Context, msg *ssdp.Message, manager device.SubscribeManager) (*device.Device, error) {
	if msg.Location() == "" {
		return nil, ErrNoLocation
	}
	u, err := msg.LocationURL()
	if err != nil {
		return nil, err
	}

	// 服务端可能在响应后关闭连接，拨号时记录本地地址
	var local netip.Addr
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		conn, err := l.dial(ctx, network, address)
		if err == nil {
			if addr, ok := conn.LocalAddr().(*net.TCPAddr); ok {
				local = addr.AddrPort().Addr().Unmap().WithZone("")
			}
		}
		return conn, err
	}
	opts := append([]httpclient.Option{httpclient.WithKeepAlive(false)}, l.clientOpts...)
	client := httpclient.New(append(opts, httpclient.WithDialer(dial))...)
	defer client.Close()

	data, err := client.DownloadBytes(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", u, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("download %s: %w", u, httpclient.ErrNoBody)
	}
	if !msg.LocalAddr().IsValid() && local.IsValid() {
		msg.SetLocalAddr(local)
	}

	root, err := Parse(data)
	if err != nil {
		return nil, err
	}
	udn := trim(root.Device.UDN)
	switch {
	case msg.UUID() == "":
		msg.SetUUID(udn)
	case !containsUDN(&root.Device, msg.UUID()):
		return nil, fmt.Errorf("%w: ssdp=%s description=%s", ErrUDNMismatch, msg.UUID(), udn)
	}

	params := deviceParams(&root.Device)
	params.SSDP = msg
	params.Location = msg.Location()
	params.Manager = manager
	if l.icons != nil {
		l.loadIcons(ctx, &params, msg)
	}

	d, err := device.NewDevice(params)
	if err != nil {
		return nil, err
	}
	log.Debug("设备描述已加载", "udn", d.UDN(), "name", d.FriendlyName(), "location", d.Location())
	return d, nil
}

// Parse 解码设备描述文档
func Parse(data []byte) (*goupnp.RootDevice, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	var root goupnp.RootDevice
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("description: decode: %w", err)
	}
	return &root, nil
}

func deviceParams(d *goupnp.Device) device.DeviceParams {
	p := device.DeviceParams{
		UDN:              trim(d.UDN),
		DeviceType:       d.DeviceType,
		FriendlyName:     d.FriendlyName,
		Manufacturer:     d.Manufacturer,
		ManufacturerURL:  trim(d.ManufacturerURL.Str),
		ModelName:        d.ModelName,
		ModelNumber:      d.ModelNumber,
		ModelDescription: d.ModelDescription,
		SerialNumber:     d.SerialNumber,
		PresentationURL:  trim(d.PresentationURL.Str),
	}
	for _, icon := range d.Icons {
		p.Icons = append(p.Icons, device.Icon{
			MimeType: icon.Mimetype,
			Width:    int(icon.Width),
			Height:   int(icon.Height),
			Depth:    int(icon.Depth),
			URL:      trim(icon.URL.Str),
		})
	}
	for _, s := range d.Services {
		p.Services = append(p.Services, device.ServiceParams{
			ServiceType: s.ServiceType,
			ServiceID:   s.ServiceId,
			SCPDURL:     trim(s.SCPDURL.Str),
			ControlURL:  trim(s.ControlURL.Str),
			EventSubURL: trim(s.EventSubURL.Str),
		})
	}
	for i := range d.Devices {
		p.Devices = append(p.Devices, deviceParams(&d.Devices[i]))
	}
	return p
}

func trim(s string) string { return strings.TrimSpace(s) }

// containsUDN 设备树（含嵌入设备）中是否有该 UDN
func containsUDN(d *goupnp.Device, udn string) bool {
	if trim(d.UDN) == udn {
		return true
	}
	for i := range d.Devices {
		if containsUDN(&d.Devices[i], udn) {
			return true
		}
	}
	return false
}

// loadIcons 下载设备树中的全部图标，失败的图标保留为空
func (l *Loader) loadIcons(ctx context.Context, p *device.DeviceParams, msg *ssdp.Message) {
	for i := range p.Icons {
		icon := &p.Icons[i]
		u, err := httpmsg.AbsoluteURL(msg.Location(), icon.URL, msg.ScopeID())
		if err != nil {
			continue
		}
		data, err := l.icons.LoadIcon(ctx, u.String())
		if err != nil {
			log.Debug("图标下载失败", "url", u.String(), "err", err)
			continue
		}
		icon.Data = data
	}
	for i := range p.Devices {
		l.loadIcons(ctx, &p.Devices[i], msg)
	}
}

// ============================================================================
//                              图标加载
// ============================================================================

// HTTPIconLoader 通过 HTTP 下载图标
type HTTPIconLoader struct {
	clientOpts []httpclient.Option
}

var _ interfaces.IconLoader = (*HTTPIconLoader)(nil)

// NewHTTPIconLoader 创建图标加载器
func NewHTTPIconLoader(opts ...httpclient.Option) *HTTPIconLoader {
	return &HTTPIconLoader{clientOpts: opts}
}

// LoadIcon 下载图标内容
func (l *HTTPIconLoader) LoadIcon(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpmsg.ErrInvalidURL, err)
	}
	client := httpclient.New(append([]httpclient.Option{httpclient.WithKeepAlive(false)}, l.clientOpts...)...)
	defer client.Close()
	return client.DownloadBytes(ctx, u)
}
