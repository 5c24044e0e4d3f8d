package upnpcp

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-upnpcp/config"
	"github.com/dep2p/go-upnpcp/pkg/interfaces"
	"github.com/dep2p/go-upnpcp/pkg/types"
)

// Option 控制点配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	config     *config.Config
	protocol   *types.Protocol
	interfaces []string
	loader     interfaces.DescriptionLoader
	clock      clock.Clock
	fxOptions  []fx.Option
}

func newOptions() *options {
	return &options{config: config.NewConfig()}
}

// resolve 把单项覆盖合并进配置并验证
func (o *options) resolve() (*config.Config, error) {
	cfg := *o.config
	if o.protocol != nil {
		cfg.SSDP.Protocol = o.protocol.String()
	}
	if o.interfaces != nil {
		cfg.SSDP.Interfaces = o.interfaces
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	return &cfg, nil
}

// ============================================================================
//                              配置选项
// ============================================================================

// WithConfig 使用完整配置
//
// 之后的 WithProtocol / WithInterfaces 会覆盖其中对应字段。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config must not be nil")
		}
		o.config = cfg
		return nil
	}
}

// WithProtocol 设置 SSDP 协议栈模式
func WithProtocol(p types.Protocol) Option {
	return func(o *options) error {
		if p != types.ProtocolDualStack && p != types.ProtocolIPv4Only && p != types.ProtocolIPv6Only {
			return fmt.Errorf("unknown protocol %d", int(p))
		}
		o.protocol = &p
		return nil
	}
}

// WithInterfaces 限定使用的网卡
//
//	upnpcp.New(upnpcp.WithInterfaces("eth0", "wlan0"))
func WithInterfaces(names ...string) Option {
	return func(o *options) error {
		o.interfaces = append([]string{}, names...)
		return nil
	}
}

// WithDescriptionLoader 替换设备描述加载器
func WithDescriptionLoader(l interfaces.DescriptionLoader) Option {
	return func(o *options) error {
		if l == nil {
			return errors.New("description loader must not be nil")
		}
		o.loader = l
		return nil
	}
}

// WithClock 设置时钟，测试中可传入 clock.NewMock()
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		if clk == nil {
			return errors.New("clock must not be nil")
		}
		o.clock = clk
		return nil
	}
}

// WithFxOptions 追加自定义 fx 选项
//
// 可用于注入额外组件或读取内部组件：
//
//	var m *metrics.Metrics
//	upnpcp.New(upnpcp.WithFxOptions(fx.Populate(&m)))
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
