// Package interfaces 定义 upnpcp 的公共接口
//
//   - loader.go    - 描述文件与图标加载
//   - listener.go  - 发现、事件与原始 SSDP 回调
//
// 回调均在回调执行器上串行调用，实现不应长时间阻塞。
package interfaces
