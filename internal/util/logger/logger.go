// Package logger 提供 upnpcp 的统一日志系统
//
// 基于标准库 log/slog，支持：
//   - 按子系统配置日志级别
//   - 环境变量配置（UPNPCP_LOG_LEVEL, UPNPCP_LOG_FORMAT）
//   - 结构化日志
//
// 使用示例:
//
//	package ssdp
//
//	import "github.com/dep2p/go-upnpcp/internal/util/logger"
//
//	var log = logger.Logger("upnp/ssdp")
//
//	func foo() {
//	    log.Info("收到 NOTIFY", "uuid", uuid, "nts", nts)
//	    log.Debug("丢弃数据报", "from", src, "reason", reason)
//	}
//
// 环境变量配置:
//
//	# 所有子系统为 info，ssdp 为 debug
//	UPNPCP_LOG_LEVEL=upnp/ssdp=debug,info
//
//	# 使用 JSON 格式输出
//	UPNPCP_LOG_FORMAT=json
package logger

import (
	"io"
	"log/slog"
	"sync"
)

var (
	// loggers 缓存各子系统的 Logger
	loggers sync.Map // map[string]*slog.Logger

	// handlers 缓存各子系统的 Handler（用于动态调整级别）
	handlers sync.Map // map[string]*subsystemHandler

	globalLogger     *slog.Logger
	globalLoggerOnce sync.Once
)

// Logger 获取指定子系统的 Logger
//
// 同一子系统多次调用返回相同实例，级别由 UPNPCP_LOG_LEVEL 决定。
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	cfg := ConfigFromEnv()
	h := newHandler(subsystem, cfg.LevelForSubsystem(subsystem), cfg.Format)

	actual, loaded := loggers.LoadOrStore(subsystem, slog.New(h))
	if !loaded {
		handlers.Store(subsystem, h)
	}
	return actual.(*slog.Logger)
}

// GlobalLogger 返回全局 Logger，用于不属于特定子系统的日志
func GlobalLogger() *slog.Logger {
	globalLoggerOnce.Do(func() {
		globalLogger = Logger("upnpcp")
	})
	return globalLogger
}

// SetLevel 动态设置子系统的日志级别
func SetLevel(subsystem string, level slog.Level) {
	if h, ok := handlers.Load(subsystem); ok {
		h.(*subsystemHandler).SetLevel(level)
	}
}

// SetGlobalLevel 设置所有已创建子系统的日志级别
//
// 命令行的 -v 参数通过它在运行时统一调整级别。
func SetGlobalLevel(level slog.Level) {
	handlers.Range(func(_, value any) bool {
		value.(*subsystemHandler).SetLevel(level)
		return true
	})
}

// Discard 返回一个丢弃所有日志的 Logger（测试用）
func Discard() *slog.Logger {
	return slog.New(DiscardHandler())
}

// With 创建带有预设属性的子系统 Logger
func With(subsystem string, args ...any) *slog.Logger {
	return Logger(subsystem).With(args...)
}

// SetOutput 设置全局日志输出目标
//
// 已创建的 Logger 通过 dynamicWriter 自动重定向。
func SetOutput(w io.Writer) {
	globalOutputMu.Lock()
	globalOutput = w
	globalOutputMu.Unlock()
}
