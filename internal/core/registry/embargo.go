package registry

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Embargo 最近加载失败的 Location 集合
//
// 容量满时淘汰最久未使用的条目，条目在 ttl 后自动失效。
type Embargo struct {
	cache *expirable.LRU[string, time.Time]
}

// NewEmbargo 创建禁入表，size <= 0 时不启用
func NewEmbargo(size int, ttl time.Duration) *Embargo {
	if size <= 0 {
		return &Embargo{}
	}
	return &Embargo{cache: expirable.NewLRU[string, time.Time](size, nil, ttl)}
}

// Add 记录加载失败的 Location
func (e *Embargo) Add(location string) {
	if e.cache == nil {
		return
	}
	e.cache.Add(location, time.Now())
}

// Contains 是否仍处于禁入期
func (e *Embargo) Contains(location string) bool {
	if e.cache == nil {
		return false
	}
	_, ok := e.cache.Peek(location)
	return ok
}

// Remove 解除禁入
func (e *Embargo) Remove(location string) {
	if e.cache == nil {
		return
	}
	e.cache.Remove(location)
}

// Len 禁入条目数量
func (e *Embargo) Len() int {
	if e.cache == nil {
		return 0
	}
	return e.cache.Len()
}
