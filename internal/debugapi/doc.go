// Package debugapi 提供本地调试 HTTP 接口
//
// 端点：
//
//	GET  /health           健康检查
//	GET  /devices          已发现设备（JSON）
//	GET  /devices/{udn}    单个设备（JSON）
//	GET  /subscriptions    当前订阅（JSON）
//	GET  /metrics          Prometheus 指标
//	POST /search?st=...    发送 M-SEARCH
//	GET  /debug/pprof/*    pprof
//
// 仅在 debug.listen 配置时启动，默认只应监听回环地址。
package debugapi
