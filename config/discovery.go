package config

import (
	"errors"
	"time"
)

// DiscoveryConfig 设备发现配置
type DiscoveryConfig struct {
	// ScanInterval 设备过期扫描间隔
	ScanInterval Duration `json:"scan_interval" yaml:"scan_interval"`

	// EmbargoSize 加载失败位置的缓存容量
	EmbargoSize int `json:"embargo_size" yaml:"embargo_size"`

	// EmbargoTTL 加载失败后多久内不再重试同一位置
	EmbargoTTL Duration `json:"embargo_ttl" yaml:"embargo_ttl"`

	// Pinned 启动时固定注册的描述文件地址
	Pinned []string `json:"pinned,omitempty" yaml:"pinned,omitempty"`
}

// DefaultDiscoveryConfig 返回默认发现配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		ScanInterval: Duration(time.Second),
		EmbargoSize:  128,
		EmbargoTTL:   Duration(30 * time.Second),
	}
}

// Validate 验证发现配置
func (c DiscoveryConfig) Validate() error {
	if c.ScanInterval <= 0 {
		return errors.New("discovery scan interval must be positive")
	}
	if c.EmbargoSize <= 0 {
		return errors.New("discovery embargo size must be positive")
	}
	if c.EmbargoTTL < 0 {
		return errors.New("discovery embargo ttl must not be negative")
	}
	return nil
}
