// Package event 实现 GENA 事件接收服务器
//
// Receiver 在 TCP 端口上接受设备发来的 NOTIFY 请求，依次校验：
//
//  1. 方法必须是 NOTIFY，否则 400
//  2. NT / NTS 必须是 upnp:event / upnp:propchange，否则 412
//  3. 必须携带 SID，否则 412
//
// 通过校验后解析 SEQ 与 propertyset 主体，交给 Listener；
// Listener 返回 false 时响应 412，否则 200。
//
// 接受循环运行在独立 goroutine 中，每个连接作为一个任务交给 IO 执行器。
package event
