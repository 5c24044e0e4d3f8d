package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-upnpcp/internal/core/ssdp"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	t.Run("SSDP 收发", func(t *testing.T) {
		m.Received(ssdp.AddressIPv4)
		m.Received(ssdp.AddressIPv4)
		m.Dropped(ssdp.AddressIPv4, ssdp.DropSegment)

		assert.Equal(t, 2.0, testutil.ToFloat64(m.ssdpReceived.WithLabelValues(ssdp.AddressIPv4.String())))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ssdpDropped.WithLabelValues(ssdp.AddressIPv4.String(), ssdp.DropSegment)))
	})

	t.Run("事件状态", func(t *testing.T) {
		m.EventStatus(http.StatusOK)
		m.EventStatus(http.StatusPreconditionFailed)
		m.EventStatus(http.StatusPreconditionFailed)

		assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("200")))
		assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("412")))
	})

	t.Run("HTTP 请求", func(t *testing.T) {
		m.HTTPRequest("SUBSCRIBE", nil)
		m.HTTPRequest("SUBSCRIBE", errors.New("boom"))

		assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("SUBSCRIBE", ResultOK)))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("SUBSCRIBE", ResultError)))
	})
}

func TestMetrics_Gauges(t *testing.T) {
	m := New()
	n := 3
	m.TrackDevices(func() int { return n })
	m.TrackSubscriptions(func() int { return 7 })

	assert.Equal(t, 3.0, testutil.ToFloat64(m.gauges["devices"]))
	n = 5
	assert.Equal(t, 5.0, testutil.ToFloat64(m.gauges["devices"]))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.gauges["subscriptions"]))

	t.Run("重复注册替换旧值", func(t *testing.T) {
		m.TrackDevices(func() int { return 1 })
		assert.Equal(t, 1.0, testutil.ToFloat64(m.gauges["devices"]))
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Received(ssdp.AddressIPv6LinkLocal)
	m.TrackDevices(func() int { return 2 })

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, "upnpcp_ssdp_received_total"))
	assert.True(t, strings.Contains(text, "upnpcp_devices 2"))
}

func TestModule(t *testing.T) {
	var m *Metrics
	app := fxtest.New(t, Module(), fx.Populate(&m))
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, m)
	assert.NotNil(t, m.Registry())
}
