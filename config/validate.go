package config

import "errors"

// ValidateAll 验证整个配置的有效性
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并修复可自动修复的问题
//
//   - 非正的超时、间隔 -> 默认值
//   - 续期余量不小于订阅超时 -> 默认余量
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = DefaultHTTPConfig().Timeout
	}
	if c.HTTP.MaxRedirects <= 0 {
		c.HTTP.MaxRedirects = DefaultHTTPConfig().MaxRedirects
	}
	if c.Subscribe.Timeout <= 0 {
		c.Subscribe.Timeout = DefaultSubscribeConfig().Timeout
	}
	if c.Subscribe.ScanInterval <= 0 {
		c.Subscribe.ScanInterval = DefaultSubscribeConfig().ScanInterval
	}
	if c.Subscribe.RenewMargin <= 0 || c.Subscribe.RenewMargin >= c.Subscribe.Timeout {
		c.Subscribe.RenewMargin = DefaultSubscribeConfig().RenewMargin
	}
	if c.Discovery.ScanInterval <= 0 {
		c.Discovery.ScanInterval = DefaultDiscoveryConfig().ScanInterval
	}
	if c.Executor.IOGraceTimeout <= 0 {
		c.Executor.IOGraceTimeout = DefaultExecutorConfig().IOGraceTimeout
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
