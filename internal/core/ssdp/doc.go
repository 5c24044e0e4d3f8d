// Package ssdp 实现控制点一侧的 SSDP 传输与消息模型
//
// # 组成
//
//   - Message: NOTIFY / M-SEARCH 请求或搜索响应，过期时间由 max-age 推导
//   - NotifyReceiver: 绑定 1900 端口并加入组播组，接收 NOTIFY
//   - SearchServer: 从临时端口发送 M-SEARCH，接收单播响应
//   - NotifyReceiverList / SearchServerList: 按网卡与地址族批量管理
//
// # 过滤
//
// NotifyReceiver 只接受 NOTIFY；可选的网段检查要求 IPv4 源地址与接收网卡
// 处于同一子网，IPv6 接收器只接受链路本地源地址。NOTIFY 与搜索响应的
// Location 主机必须与数据报源地址一致，否则丢弃。
//
// # 组播地址
//
//   - IPv4: 239.255.255.250:1900
//   - IPv6 链路本地: [FF02::C]:1900
package ssdp
