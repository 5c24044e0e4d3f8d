package main

import (
	"os"
	"strings"

	"github.com/dep2p/go-upnpcp/config"
)

// ============================================================================
//                              环境变量（CLI 专用）
// ============================================================================

const (
	envProtocol    = "UPNPCP_PROTOCOL"
	envInterfaces  = "UPNPCP_INTERFACES"
	envPinned      = "UPNPCP_PINNED"
	envDebugListen = "UPNPCP_DEBUG_LISTEN"
)

// applyEnvOverrides 应用环境变量覆盖配置
//
// 环境变量优先级高于配置文件，但低于命令行参数。
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv(envProtocol); v != "" {
		cfg.SSDP.Protocol = v
	}
	if v := os.Getenv(envInterfaces); v != "" {
		cfg.SSDP.Interfaces = splitAndTrim(v, ",")
	}
	if v := os.Getenv(envPinned); v != "" {
		cfg.Discovery.Pinned = append(cfg.Discovery.Pinned, splitAndTrim(v, ",")...)
	}
	if v := os.Getenv(envDebugListen); v != "" {
		cfg.Debug.Listen = v
	}
}

// splitAndTrim 分割字符串并去除空白
func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
