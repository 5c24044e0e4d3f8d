// Package registry 维护已发现设备表
//
// Registry 以 UDN 为键保存设备，在管理执行器上按固定间隔移除过期设备
// （固定注册设备永不过期）。Embargo 记录最近加载失败的 Location，
// 在禁入期内不再重复加载。
package registry
