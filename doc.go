// Package upnpcp 提供 UPnP 控制点
//
// 控制点通过 SSDP 发现局域网设备，下载设备描述构造设备树，
// 并通过 GENA 订阅服务的状态变量事件。
//
// # 快速开始
//
//	cp, err := upnpcp.New(
//	    upnpcp.WithProtocol(upnpcp.ProtocolIPv4Only),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cp.AddDiscoveryListener(myListener)
//	if err := cp.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer cp.Stop()
//
//	cp.Search("upnp:rootdevice")
//
// # 组件
//
//	┌──────────────────────────────────────────────────────────┐
//	│  ControlPoint                                            │
//	├──────────────┬──────────────┬──────────────┬─────────────┤
//	│ SSDP lists   │ Registry     │ Subscribe    │ Event       │
//	│ NOTIFY /     │ 设备表 / 过期 │ Manager /    │ Receiver    │
//	│ M-SEARCH     │ / 加载去重    │ Holder       │ GENA NOTIFY │
//	├──────────────┴──────────────┴──────────────┴─────────────┤
//	│  Executors: io / manager / callback                      │
//	└──────────────────────────────────────────────────────────┘
//
// 各组件由 go.uber.org/fx 组装。启动顺序为事件接收服务器、订阅续期、
// 设备表、SSDP 传输；停止时逆序，最后终止执行器。
//
// # 回调线程
//
// 发现、事件与 SSDP 回调都在 callback 执行器上串行调用，
// 回调中不应长时间阻塞。
package upnpcp
