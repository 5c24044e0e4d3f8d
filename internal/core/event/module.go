package event

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-upnpcp/internal/core/executor"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Executors *executor.Executors
	Config    *Config `optional:"true"`
}

// ProvideReceiver 提供事件接收服务器，回调在之后由订阅管理器设置
func ProvideReceiver(input ModuleInput) *Receiver {
	cfg := DefaultConfig()
	if input.Config != nil {
		cfg = *input.Config
	}
	return NewReceiver(cfg, input.Executors, nil)
}

func registerLifecycle(lc fx.Lifecycle, r *Receiver) {
	lc.Append(fx.Hook{
		OnStart: r.Start,
		OnStop: func(context.Context) error {
			return r.Stop()
		},
	})
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("event",
		fx.Provide(ProvideReceiver),
		fx.Invoke(registerLifecycle),
	)
}
