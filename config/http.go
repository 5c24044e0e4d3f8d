package config

import (
	"errors"
	"time"
)

// HTTPConfig HTTP 客户端配置
type HTTPConfig struct {
	// Timeout 单次请求的读写超时
	Timeout Duration `json:"timeout" yaml:"timeout"`

	// MaxRedirects 最多跟随的重定向次数，超过视为失败
	MaxRedirects int `json:"max_redirects" yaml:"max_redirects"`

	// KeepAlive 是否复用连接
	KeepAlive bool `json:"keep_alive" yaml:"keep_alive"`
}

// DefaultHTTPConfig 返回默认 HTTP 配置
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:      Duration(30 * time.Second),
		MaxRedirects: 5,
		KeepAlive:    true,
	}
}

// Validate 验证 HTTP 配置
func (c HTTPConfig) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("http timeout must be positive")
	}
	if c.MaxRedirects <= 0 {
		return errors.New("http max redirects must be positive")
	}
	return nil
}
