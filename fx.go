package upnpcp

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-upnpcp/config"
	"github.com/dep2p/go-upnpcp/internal/core/description"
	"github.com/dep2p/go-upnpcp/internal/core/event"
	"github.com/dep2p/go-upnpcp/internal/core/executor"
	"github.com/dep2p/go-upnpcp/internal/core/httpclient"
	"github.com/dep2p/go-upnpcp/internal/core/metrics"
	"github.com/dep2p/go-upnpcp/internal/core/registry"
	"github.com/dep2p/go-upnpcp/internal/core/subscribe"
	"github.com/dep2p/go-upnpcp/internal/debugapi"
)

// buildFxApp 构建 Fx 应用
//
// 模块的 Invoke 先于根级 Invoke 执行，生命周期钩子因此按以下顺序登记：
//  1. executor: 仅 OnStop，最后终止
//  2. event: 事件接收服务器
//  3. subscribe: 续期扫描
//  4. wire: 设备表 → SSDP 传输 → 调试接口
//
// 停止时 fx 逆序调用 OnStop。
func buildFxApp(cp *ControlPoint, o *options) *fx.App {
	cfg := cp.cfg

	// ════════════════════════════════════════════════════════════════════════
	// 1. 基础组件
	// ════════════════════════════════════════════════════════════════════════
	modules := []fx.Option{
		fx.Supply(cfg),
		fx.Supply(&executor.Config{IOGraceTimeout: cfg.Executor.IOGraceTimeout.Duration()}),
		fx.Provide(func() clock.Clock { return o.clock }),

		executor.Module(),
		metrics.Module(),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 事件订阅（条件加载）
	// ════════════════════════════════════════════════════════════════════════
	if cfg.Subscribe.Enable {
		modules = append(modules,
			fx.Supply(eventConfig(cfg)),
			fx.Provide(func(m *metrics.Metrics) *subscribe.Config {
				c := subscribeConfig(cfg)
				c.Observer = m.HTTPRequest
				return &c
			}),
			event.Module(),
			subscribe.Module(),
		)
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 控制点组件注入
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, fx.Invoke(cp.wire(o)))

	// ════════════════════════════════════════════════════════════════════════
	// 4. 用户扩展（Fx Options）
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules, o.fxOptions...)

	// 禁用 Fx 日志输出（避免干扰用户日志）
	modules = append(modules,
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	return fx.New(modules...)
}

func eventConfig(cfg *config.Config) *event.Config {
	return &event.Config{
		Port:        cfg.Event.Port,
		ReadTimeout: cfg.Event.ReadTimeout.Duration(),
		ServerName:  cfg.Product.UserAgent(),
	}
}

func subscribeConfig(cfg *config.Config) subscribe.Config {
	return subscribe.Config{
		Timeout: cfg.Subscribe.Timeout.Duration(),
		Holder: subscribe.HolderConfig{
			ScanInterval: cfg.Subscribe.ScanInterval.Duration(),
			RenewMargin:  cfg.Subscribe.RenewMargin.Duration(),
		},
		HTTPTimeout: cfg.HTTP.Timeout.Duration(),
		UserAgent:   cfg.Product.UserAgent(),
	}
}

// ════════════════════════════════════════════════════════════════════════════
// 组件注入
// ════════════════════════════════════════════════════════════════════════════

// wireParams 控制点组件注入参数
type wireParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Executors *executor.Executors
	Metrics   *metrics.Metrics
	Clock     clock.Clock

	// 关闭事件订阅时为空
	Receiver *event.Receiver    `optional:"true"`
	Manager  *subscribe.Manager `optional:"true"`
}

// wire 创建控制点自有组件并登记生命周期
func (cp *ControlPoint) wire(o *options) func(p wireParams) {
	return func(p wireParams) {
		cfg := cp.cfg
		cp.executors = p.Executors
		cp.metrics = p.Metrics
		cp.clock = p.Clock

		cp.manager = p.Manager
		if p.Manager != nil {
			cp.subscriber = p.Manager
			p.Metrics.TrackSubscriptions(p.Manager.Len)
		} else {
			cp.subscriber = subscribe.Empty{}
		}
		if p.Receiver != nil {
			p.Receiver.SetObserver(p.Metrics.EventStatus)
		}

		cp.registry = registry.New(cfg.Discovery.ScanInterval.Duration(), p.Clock, p.Executors.Manager())
		cp.registry.SetExpiredFunc(cp.lose)
		cp.embargo = registry.NewEmbargo(cfg.Discovery.EmbargoSize, cfg.Discovery.EmbargoTTL.Duration())
		p.Metrics.TrackDevices(cp.registry.Len)

		cp.loader = o.loader
		if cp.loader == nil {
			cp.loader = description.NewLoader(description.WithClientOptions(
				httpclient.WithTimeout(cfg.HTTP.Timeout.Duration()),
				httpclient.WithMaxRedirects(cfg.HTTP.MaxRedirects),
				httpclient.WithUserAgent(cfg.Product.UserAgent()),
				httpclient.WithObserver(p.Metrics.HTTPRequest),
			))
		}

		p.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				cp.registry.Start()
				return nil
			},
			OnStop: func(context.Context) error {
				cp.registry.Stop()
				return nil
			},
		})
		p.Lifecycle.Append(fx.Hook{
			OnStart: cp.startSSDP,
			OnStop: func(context.Context) error {
				return cp.stopSSDP()
			},
		})

		if cfg.Debug.Enabled() {
			cp.debug = debugapi.New(debugapi.Config{
				Addr:    cfg.Debug.Listen,
				Metrics: p.Metrics.Handler(),
			}, cp)
			p.Lifecycle.Append(fx.Hook{
				OnStart: cp.debug.Start,
				OnStop: func(context.Context) error {
					return cp.debug.Stop()
				},
			})
		}
	}
}
