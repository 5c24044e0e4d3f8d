package config

import (
	"errors"
	"time"
)

// ExecutorConfig 任务执行器配置
type ExecutorConfig struct {
	// IOGraceTimeout I/O 执行器终止时等待在途任务的时间
	IOGraceTimeout Duration `json:"io_grace_timeout" yaml:"io_grace_timeout"`
}

// DefaultExecutorConfig 返回默认执行器配置
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{IOGraceTimeout: Duration(time.Second)}
}

// Validate 验证执行器配置
func (c ExecutorConfig) Validate() error {
	if c.IOGraceTimeout <= 0 {
		return errors.New("executor io grace timeout must be positive")
	}
	return nil
}
