package config

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-upnpcp/pkg/types"
)

// DefaultSearchTarget 默认的 M-SEARCH 搜索目标
const DefaultSearchTarget = "ssdp:all"

// SSDPConfig SSDP 发现传输配置
type SSDPConfig struct {
	// Protocol 协议栈模式：ipv4 / ipv6 / dual
	Protocol string `json:"protocol" yaml:"protocol"`

	// Interfaces 使用的网卡名称，为空时使用所有可用网卡
	Interfaces []string `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`

	// SegmentCheck 是否只接受同网段的 NOTIFY
	SegmentCheck bool `json:"segment_check" yaml:"segment_check"`

	// SearchTarget 默认搜索目标
	SearchTarget string `json:"search_target" yaml:"search_target"`

	// MulticastTTL 发送组播时的 TTL / Hop Limit
	MulticastTTL int `json:"multicast_ttl" yaml:"multicast_ttl"`
}

// DefaultSSDPConfig 返回默认 SSDP 配置
func DefaultSSDPConfig() SSDPConfig {
	return SSDPConfig{
		Protocol:     types.DefaultProtocol.String(),
		SegmentCheck: true,
		SearchTarget: DefaultSearchTarget,
		MulticastTTL: 4,
	}
}

// ProtocolMode 返回解析后的协议栈模式
func (c SSDPConfig) ProtocolMode() (types.Protocol, error) {
	return types.ParseProtocol(c.Protocol)
}

// Validate 验证 SSDP 配置
func (c SSDPConfig) Validate() error {
	if _, err := c.ProtocolMode(); err != nil {
		return fmt.Errorf("ssdp: %w", err)
	}
	if c.SearchTarget == "" {
		return errors.New("ssdp search target must not be empty")
	}
	if c.MulticastTTL < 1 || c.MulticastTTL > 255 {
		return errors.New("ssdp multicast ttl must be in [1, 255]")
	}
	return nil
}
