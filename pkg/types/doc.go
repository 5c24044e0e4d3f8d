// Package types 定义 upnpcp 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - enums.go    - Protocol（SSDP 使用的地址族模式）
//   - property.go - Property（GENA 事件的 name/value 对）
package types
