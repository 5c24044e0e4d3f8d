// Package subscribe 管理 GENA 事件订阅的完整生命周期
//
// Manager 发送 SUBSCRIBE / UNSUBSCRIBE 请求，并把成功的订阅登记到 Holder。
// Holder 按固定间隔在管理执行器上扫描订阅表：剩余时间低于续期余量
// 且需要保持的订阅被自动续期，已过期的订阅被移除并报告。
//
// 收到的事件按 SID 在 Holder 中找到所属服务，再经回调执行器分发给
// 全部 NotifyEventListener。
package subscribe
