package config

import (
	"fmt"
	"net"
)

// DebugConfig 调试 HTTP 接口配置
type DebugConfig struct {
	// Listen 监听地址，如 127.0.0.1:8090；为空时不启动
	Listen string `json:"listen,omitempty" yaml:"listen,omitempty"`
}

// DefaultDebugConfig 返回默认调试配置
func DefaultDebugConfig() DebugConfig {
	return DebugConfig{}
}

// Enabled 是否启用调试接口
func (c DebugConfig) Enabled() bool {
	return c.Listen != ""
}

// Validate 验证调试配置
func (c DebugConfig) Validate() error {
	if c.Listen == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid debug listen address %q: %w", c.Listen, err)
	}
	return nil
}
