// Package description 下载并解析设备描述文件
//
// 描述文档按 github.com/huin/goupnp 的 RootDevice 模型解码，
// 非 UTF-8 编码由 golang.org/x/net/html/charset 转换，
// 结果映射为 device.Device 设备树。
package description
