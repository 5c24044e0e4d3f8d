package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-upnpcp/internal/core/ssdp"
)

const namespace = "upnpcp"

// HTTP 请求结果标签
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics 控制点指标集合
type Metrics struct {
	registry *prometheus.Registry

	ssdpReceived *prometheus.CounterVec
	ssdpDropped  *prometheus.CounterVec
	events       *prometheus.CounterVec
	httpRequests *prometheus.CounterVec

	mu     sync.Mutex
	gauges map[string]prometheus.Collector
}

var _ ssdp.Observer = (*Metrics)(nil)

// New 创建指标集合并注册到私有 Registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ssdpReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ssdp",
			Name:      "received_total",
			Help:      "SSDP datagrams received.",
		}, []string{"address"}),
		ssdpDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ssdp",
			Name:      "dropped_total",
			Help:      "SSDP datagrams dropped by reason.",
		}, []string{"address", "reason"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "GENA NOTIFY requests by response status.",
		}, []string{"status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP client requests by method and result.",
		}, []string{"method", "result"}),
		gauges: make(map[string]prometheus.Collector),
	}
	m.registry.MustRegister(
		m.ssdpReceived,
		m.ssdpDropped,
		m.events,
		m.httpRequests,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry 返回私有 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ============================================================================
//                              观察者
// ============================================================================

// Received 实现 ssdp.Observer
func (m *Metrics) Received(addr ssdp.Address) {
	m.ssdpReceived.WithLabelValues(addr.String()).Inc()
}

// Dropped 实现 ssdp.Observer
func (m *Metrics) Dropped(addr ssdp.Address, reason string) {
	m.ssdpDropped.WithLabelValues(addr.String(), reason).Inc()
}

// EventStatus 记录事件接收服务器的响应状态，签名匹配 event.Observer
func (m *Metrics) EventStatus(status int) {
	m.events.WithLabelValues(strconv.Itoa(status)).Inc()
}

// HTTPRequest 记录 HTTP 客户端请求结果，签名匹配 httpclient.Observer
func (m *Metrics) HTTPRequest(method string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.httpRequests.WithLabelValues(method, result).Inc()
}

// ============================================================================
//                              状态量
// ============================================================================

// TrackSubscriptions 以 fn 的返回值作为当前订阅数
func (m *Metrics) TrackSubscriptions(fn func() int) {
	m.track("subscriptions", "Active event subscriptions.", fn)
}

// TrackDevices 以 fn 的返回值作为当前已发现设备数
func (m *Metrics) TrackDevices(fn func() int) {
	m.track("devices", "Discovered root devices.", fn)
}

// track 注册 GaugeFunc，同名重复注册时替换旧的
func (m *Metrics) track(name, help string, fn func() int) {
	g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(fn()) })

	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.gauges[name]; ok {
		m.registry.Unregister(old)
	}
	m.registry.MustRegister(g)
	m.gauges[name] = g
}
