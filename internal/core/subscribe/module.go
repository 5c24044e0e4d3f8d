package subscribe

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-upnpcp/internal/core/event"
	"github.com/dep2p/go-upnpcp/internal/core/executor"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Executors *executor.Executors
	Receiver  *event.Receiver
	Config    *Config     `optional:"true"`
	Clock     clock.Clock `optional:"true"`
}

// ProvideManager 提供订阅管理器，并把事件接收服务器的回调指向它
func ProvideManager(input ModuleInput) *Manager {
	cfg := DefaultConfig()
	if input.Config != nil {
		cfg = *input.Config
	}
	m := NewManager(cfg, input.Executors, input.Receiver.LocalPort, input.Clock)
	input.Receiver.SetListener(m.OnEvent)
	return m
}

func registerLifecycle(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			m.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			return m.Stop()
		},
	})
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("subscribe",
		fx.Provide(ProvideManager),
		fx.Invoke(registerLifecycle),
	)
}
