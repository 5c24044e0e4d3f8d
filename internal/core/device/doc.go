// Package device 定义控制点使用的设备与服务对象模型
//
// Device 由描述文件解析结果通过 NewDevice 构造，缺少必填字段时返回
// *MissingFieldsError。嵌入设备与服务随根设备一同构造，共享根设备的
// SSDP 消息与 Location。
//
// Service 的订阅操作委托给 SubscribeManager；Service 自身只缓存 SID。
package device
