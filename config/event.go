package config

import (
	"errors"
	"time"
)

// EventConfig 事件接收服务器配置
type EventConfig struct {
	// Port 监听端口，0 表示随机端口
	Port int `json:"port" yaml:"port"`

	// ReadTimeout 读取 NOTIFY 请求的超时
	ReadTimeout Duration `json:"read_timeout" yaml:"read_timeout"`
}

// DefaultEventConfig 返回默认事件配置
func DefaultEventConfig() EventConfig {
	return EventConfig{
		Port:        0,
		ReadTimeout: Duration(10 * time.Second),
	}
}

// Validate 验证事件配置
func (c EventConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.New("event port must be in [0, 65535]")
	}
	if c.ReadTimeout <= 0 {
		return errors.New("event read timeout must be positive")
	}
	return nil
}
