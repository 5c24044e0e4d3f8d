package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-upnpcp/config"
)

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(envProtocol, "ipv4")
	t.Setenv(envInterfaces, "eth0, wlan0,")
	t.Setenv(envPinned, "http://10.0.0.2/desc.xml")
	t.Setenv(envDebugListen, "127.0.0.1:8090")

	cfg := config.NewConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "ipv4", cfg.SSDP.Protocol)
	assert.Equal(t, []string{"eth0", "wlan0"}, cfg.SSDP.Interfaces)
	assert.Equal(t, []string{"http://10.0.0.2/desc.xml"}, cfg.Discovery.Pinned)
	assert.True(t, cfg.Debug.Enabled())
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a ,, b ", ","))
	assert.Empty(t, splitAndTrim("", ","))
}
