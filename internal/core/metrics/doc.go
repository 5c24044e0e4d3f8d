// Package metrics 提供控制点的 Prometheus 监控指标
//
// 所有指标注册在私有 Registry 上，不污染全局 DefaultRegisterer：
//   - upnpcp_ssdp_received_total{address}
//   - upnpcp_ssdp_dropped_total{address,reason}
//   - upnpcp_events_total{status}
//   - upnpcp_http_requests_total{method,result}
//   - upnpcp_subscriptions
//   - upnpcp_devices
//
// # 使用
//
//	m := metrics.New()
//	opts.Observer = m                   // ssdp.Observer
//	receiver.SetObserver(m.EventStatus) // event.Observer
//	m.TrackDevices(registry.Len)
//	http.Handle("/metrics", m.Handler())
package metrics
