package httpmsg

import "strings"

// Header HTTP 头部集合
//
// 名称不区分大小写，保持插入顺序，同名头部后写覆盖先写
// （覆盖时保留原位置，名称更新为最后一次写入的写法）。
type Header struct {
	entries []headerEntry
}

type headerEntry struct {
	name  string
	value string
}

func (h *Header) index(name string) int {
	for i := range h.entries {
		if strings.EqualFold(h.entries[i].name, name) {
			return i
		}
	}
	return -1
}

// Set 设置头部
func (h *Header) Set(name, value string) {
	if i := h.index(name); i >= 0 {
		h.entries[i] = headerEntry{name: name, value: value}
		return
	}
	h.entries = append(h.entries, headerEntry{name: name, value: value})
}

// Get 获取头部值，不存在时返回空字符串
func (h *Header) Get(name string) string {
	v, _ := h.Lookup(name)
	return v
}

// Lookup 获取头部值
func (h *Header) Lookup(name string) (string, bool) {
	if i := h.index(name); i >= 0 {
		return h.entries[i].value, true
	}
	return "", false
}

// Del 删除头部
func (h *Header) Del(name string) {
	if i := h.index(name); i >= 0 {
		h.entries = append(h.entries[:i], h.entries[i+1:]...)
	}
}

// ContainsValue 头部值是否包含指定内容（不区分大小写）
func (h *Header) ContainsValue(name, value string) bool {
	v, ok := h.Lookup(name)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(v), strings.ToLower(value))
}

// Len 头部数量
func (h *Header) Len() int {
	return len(h.entries)
}

// Each 按插入顺序遍历头部，fn 返回 false 时停止
func (h *Header) Each(fn func(name, value string) bool) {
	for _, e := range h.entries {
		if !fn(e.name, e.value) {
			return
		}
	}
}

// Clone 返回副本
func (h *Header) Clone() Header {
	return Header{entries: append([]headerEntry(nil), h.entries...)}
}

// Map 返回头部的映射视图，键为小写名称
func (h *Header) Map() map[string]string {
	m := make(map[string]string, len(h.entries))
	for _, e := range h.entries {
		m[strings.ToLower(e.name)] = e.value
	}
	return m
}
