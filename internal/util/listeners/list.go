// Package listeners 提供并发安全的回调列表
package listeners

import "sync"

// List 写时复制的回调列表
//
// Add / Remove 在锁内替换底层切片，Snapshot 返回的切片不会再被修改，
// 遍历时无需持锁。
type List[T comparable] struct {
	mu    sync.Mutex
	items []T
}

// Add 追加回调，已存在时忽略
func (l *List[T]) Add(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, x := range l.items {
		if x == item {
			return
		}
	}
	next := make([]T, len(l.items), len(l.items)+1)
	copy(next, l.items)
	l.items = append(next, item)
}

// Remove 移除回调
func (l *List[T]) Remove(item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, x := range l.items {
		if x == item {
			next := make([]T, 0, len(l.items)-1)
			next = append(next, l.items[:i]...)
			l.items = append(next, l.items[i+1:]...)
			return
		}
	}
}

// Snapshot 返回当前回调的只读快照
func (l *List[T]) Snapshot() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items
}

// Len 回调数量
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Each 对快照中的每个回调调用 fn
func (l *List[T]) Each(fn func(T)) {
	for _, x := range l.Snapshot() {
		fn(x)
	}
}
