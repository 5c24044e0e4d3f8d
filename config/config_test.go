package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-upnpcp/pkg/types"
)

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())

	mode, err := cfg.SSDP.ProtocolMode()
	require.NoError(t, err)
	assert.Equal(t, types.ProtocolDualStack, mode)
	assert.Equal(t, 300*time.Second, cfg.Subscribe.Timeout.Duration())
	assert.Equal(t, 5, cfg.HTTP.MaxRedirects)
	assert.False(t, cfg.Debug.Enabled())
}

// TestConfig_Validate 测试配置验证
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"未知协议", func(c *Config) { c.SSDP.Protocol = "ipx" }},
		{"空搜索目标", func(c *Config) { c.SSDP.SearchTarget = "" }},
		{"TTL 越界", func(c *Config) { c.SSDP.MulticastTTL = 0 }},
		{"HTTP 超时", func(c *Config) { c.HTTP.Timeout = 0 }},
		{"重定向次数", func(c *Config) { c.HTTP.MaxRedirects = 0 }},
		{"事件端口", func(c *Config) { c.Event.Port = 70000 }},
		{"续期余量过大", func(c *Config) { c.Subscribe.RenewMargin = c.Subscribe.Timeout }},
		{"扫描间隔", func(c *Config) { c.Discovery.ScanInterval = 0 }},
		{"执行器", func(c *Config) { c.Executor.IOGraceTimeout = 0 }},
		{"调试地址", func(c *Config) { c.Debug.Listen = "no-port" }},
		{"产品名", func(c *Config) { c.Product.Name = "a b" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAndFix(t *testing.T) {
	cfg := NewConfig()
	cfg.HTTP.Timeout = 0
	cfg.Subscribe.RenewMargin = Duration(time.Hour)

	fixed, err := ValidateAndFix(cfg)
	require.NoError(t, err)
	assert.Equal(t, DefaultHTTPConfig().Timeout, fixed.HTTP.Timeout)
	assert.Equal(t, DefaultSubscribeConfig().RenewMargin, fixed.Subscribe.RenewMargin)

	fixed, err = ValidateAndFix(nil)
	require.NoError(t, err)
	assert.NotNil(t, fixed)

	assert.Error(t, ValidateAll(nil))
}

func TestDuration(t *testing.T) {
	t.Run("JSON 字符串", func(t *testing.T) {
		var d Duration
		require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
		assert.Equal(t, 90*time.Second, d.Duration())

		out, err := json.Marshal(d)
		require.NoError(t, err)
		assert.Equal(t, `"1m30s"`, string(out))
	})

	t.Run("JSON 数字", func(t *testing.T) {
		var d Duration
		require.NoError(t, json.Unmarshal([]byte(`1000`), &d))
		assert.Equal(t, time.Microsecond, d.Duration())
	})

	t.Run("JSON 错误", func(t *testing.T) {
		var d Duration
		assert.Error(t, json.Unmarshal([]byte(`"abc"`), &d))
		assert.Error(t, json.Unmarshal([]byte(`true`), &d))
	})
}

func TestFromYAML(t *testing.T) {
	data := `
ssdp:
  protocol: ipv4
  interfaces: [eth0, wlan0]
  segment_check: false
subscribe:
  timeout: 10m
  renew_margin: 30s
http:
  timeout: 5000000000
product:
  name: myapp
  version: "2.1"
`
	cfg, err := FromYAML([]byte(data))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ipv4", cfg.SSDP.Protocol)
	assert.Equal(t, []string{"eth0", "wlan0"}, cfg.SSDP.Interfaces)
	assert.False(t, cfg.SSDP.SegmentCheck)
	assert.Equal(t, 10*time.Minute, cfg.Subscribe.Timeout.Duration())
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout.Duration())
	// 未出现的字段保持默认值
	assert.Equal(t, DefaultSearchTarget, cfg.SSDP.SearchTarget)
	assert.True(t, strings.HasSuffix(cfg.Product.UserAgent(), " UPnP/1.0 myapp/2.1"))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "upnpcp.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"event":{"port":8058}}`), 0o600))
	cfg, err := LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 8058, cfg.Event.Port)

	yamlPath := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("ssdp:\n  protocol: ipx\n"), 0o600))
	_, err = LoadFile(yamlPath)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestProduct(t *testing.T) {
	ua := DefaultProduct().UserAgent()
	parts := strings.Split(ua, " ")
	require.Len(t, parts, 3)
	assert.Equal(t, "UPnP/1.0", parts[1])
	assert.Equal(t, "upnpcp/1.0.0", parts[2])
}
