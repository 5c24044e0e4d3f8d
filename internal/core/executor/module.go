package executor

import (
	"context"

	"go.uber.org/fx"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Config *Config `optional:"true"`
}

// ProvideExecutors 提供执行器集合
func ProvideExecutors(input ModuleInput) *Executors {
	cfg := DefaultConfig()
	if input.Config != nil {
		cfg = *input.Config
	}
	return New(cfg)
}

func registerLifecycle(lc fx.Lifecycle, executors *Executors) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			executors.Terminate()
			return nil
		},
	})
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("executor",
		fx.Provide(ProvideExecutors),
		fx.Invoke(registerLifecycle),
	)
}
