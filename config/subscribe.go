package config

import (
	"errors"
	"time"
)

// SubscribeConfig 订阅配置
type SubscribeConfig struct {
	// Enable 是否启用事件订阅（关闭时不启动事件接收服务器）
	Enable bool `json:"enable" yaml:"enable"`

	// Timeout 请求的订阅时长（TIMEOUT: Second-N）
	Timeout Duration `json:"timeout" yaml:"timeout"`

	// RenewMargin 到期前多久自动续期
	RenewMargin Duration `json:"renew_margin" yaml:"renew_margin"`

	// ScanInterval 续期 / 过期扫描间隔
	ScanInterval Duration `json:"scan_interval" yaml:"scan_interval"`
}

// DefaultSubscribeConfig 返回默认订阅配置
func DefaultSubscribeConfig() SubscribeConfig {
	return SubscribeConfig{
		Enable:       true,
		Timeout:      Duration(300 * time.Second),
		RenewMargin:  Duration(10 * time.Second),
		ScanInterval: Duration(time.Second),
	}
}

// Validate 验证订阅配置
func (c SubscribeConfig) Validate() error {
	if c.Timeout < Duration(time.Second) {
		return errors.New("subscribe timeout must be at least 1s")
	}
	if c.RenewMargin <= 0 {
		return errors.New("subscribe renew margin must be positive")
	}
	if c.RenewMargin >= c.Timeout {
		return errors.New("subscribe renew margin must be less than timeout")
	}
	if c.ScanInterval <= 0 {
		return errors.New("subscribe scan interval must be positive")
	}
	return nil
}
