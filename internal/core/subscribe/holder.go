package subscribe

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-upnpcp/internal/core/device"
	"github.com/dep2p/go-upnpcp/internal/core/executor"
)

// Subscription 订阅记录快照
type Subscription struct {
	Service   *device.Service `json:"-"`
	SID       string          `json:"sid"`
	Timeout   time.Duration   `json:"timeout"`
	Expiry    time.Time       `json:"expiry"`
	KeepRenew bool            `json:"keep_renew"`
}

type entry struct {
	service   *device.Service
	timeout   time.Duration
	expiry    time.Time
	keepRenew bool
}

// HolderConfig Holder 配置
type HolderConfig struct {
	// ScanInterval 扫描间隔
	ScanInterval time.Duration

	// RenewMargin 续期余量上限，实际余量为 min(RenewMargin, timeout/2)
	RenewMargin time.Duration
}

// DefaultHolderConfig 返回默认配置
func DefaultHolderConfig() HolderConfig {
	return HolderConfig{ScanInterval: time.Second, RenewMargin: 10 * time.Second}
}

// Holder 以 SID 为键的订阅表
//
// 订阅表允许事件查找与登记 / 续期 / 移除并发进行；扫描与自动续期
// 在管理执行器上串行执行。
type Holder struct {
	cfg      HolderConfig
	clock    clock.Clock
	executor executor.TaskExecutor

	// renew 自动续期，成功时应调用 Renew 更新过期时间
	renew func(ctx context.Context, s *device.Service) bool

	// expired 订阅过期回调
	expired func(s *device.Service)

	mu      sync.RWMutex
	entries map[string]*entry

	scanning atomic.Bool

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHolder 创建 Holder
//
// ex 为空时扫描在计时 goroutine 中直接执行。
func NewHolder(cfg HolderConfig, clk clock.Clock, ex executor.TaskExecutor) *Holder {
	def := DefaultHolderConfig()
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = def.ScanInterval
	}
	if cfg.RenewMargin <= 0 {
		cfg.RenewMargin = def.RenewMargin
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Holder{
		cfg:      cfg,
		clock:    clk,
		executor: ex,
		entries:  make(map[string]*entry),
	}
}

// SetRenewFunc 设置自动续期函数，须在 Start 之前调用
func (h *Holder) SetRenewFunc(fn func(ctx context.Context, s *device.Service) bool) {
	h.renew = fn
}

// SetExpiredFunc 设置过期回调，须在 Start 之前调用
func (h *Holder) SetExpiredFunc(fn func(s *device.Service)) {
	h.expired = fn
}

// Start 启动扫描循环，重复调用无效果
func (h *Holder) Start() {
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()
	if h.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.loop(ctx, h.done)
}

// Stop 停止扫描循环并等待其退出
func (h *Holder) Stop() {
	h.lifeMu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.lifeMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (h *Holder) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := h.clock.Ticker(h.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.schedule(ctx)
		}
	}
}

// schedule 提交一次扫描；上一次扫描尚未结束时跳过
func (h *Holder) schedule(ctx context.Context) {
	if !h.scanning.CompareAndSwap(false, true) {
		return
	}
	if h.executor == nil {
		h.scan(ctx)
		h.scanning.Store(false)
		return
	}
	ok := h.executor.Execute(func(execCtx context.Context) {
		defer h.scanning.Store(false)
		if ctx.Err() != nil {
			return
		}
		h.scan(execCtx)
	})
	if !ok {
		h.scanning.Store(false)
	}
}

// scan 移除过期订阅并续期即将到期的订阅
func (h *Holder) scan(ctx context.Context) {
	now := h.clock.Now()

	var expired, renew []*device.Service
	h.mu.Lock()
	for sid, e := range h.entries {
		switch {
		case !now.Before(e.expiry):
			delete(h.entries, sid)
			expired = append(expired, e.service)
		case e.keepRenew && e.expiry.Sub(now) < renewMargin(h.cfg.RenewMargin, e.timeout):
			renew = append(renew, e.service)
		}
	}
	h.mu.Unlock()

	for _, s := range expired {
		log.Info("订阅已过期", "sid", s.SubscriptionID(), "service", s.ServiceID())
		s.SetSubscriptionID("")
		if h.expired != nil {
			h.expired(s)
		}
	}
	for _, s := range renew {
		if ctx.Err() != nil {
			return
		}
		if h.renew == nil || !h.renew(ctx, s) {
			log.Warn("自动续期失败", "sid", s.SubscriptionID(), "service", s.ServiceID())
		}
	}
}

func renewMargin(limit, timeout time.Duration) time.Duration {
	return min(limit, timeout/2)
}

// ============================================================================
//                              订阅表
// ============================================================================

// Add 登记订阅，服务须已设置 SID
func (h *Holder) Add(s *device.Service, timeout time.Duration, keepRenew bool) {
	sid := s.SubscriptionID()
	if sid == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[sid] = &entry{
		service:   s,
		timeout:   timeout,
		expiry:    h.clock.Now().Add(timeout),
		keepRenew: keepRenew,
	}
}

// Renew 续期成功后更新超时与过期时间
func (h *Holder) Renew(s *device.Service, timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.entries[s.SubscriptionID()]; ok {
		e.timeout = timeout
		e.expiry = h.clock.Now().Add(timeout)
	}
}

// SetKeepRenew 修改是否自动续期
func (h *Holder) SetKeepRenew(s *device.Service, keep bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.entries[s.SubscriptionID()]; ok {
		e.keepRenew = keep
	}
}

// Remove 移除服务的订阅
func (h *Holder) Remove(s *device.Service) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, s.SubscriptionID())
}

// Service 按 SID 查找服务
func (h *Holder) Service(sid string) *device.Service {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if e, ok := h.entries[sid]; ok {
		return e.service
	}
	return nil
}

// Len 订阅数量
func (h *Holder) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Subscriptions 返回按 SID 排序的订阅快照
func (h *Holder) Subscriptions() []Subscription {
	h.mu.RLock()
	out := make([]Subscription, 0, len(h.entries))
	for sid, e := range h.entries {
		out = append(out, Subscription{
			Service:   e.service,
			SID:       sid,
			Timeout:   e.timeout,
			Expiry:    e.expiry,
			KeepRenew: e.keepRenew,
		})
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SID < out[j].SID })
	return out
}

// Clear 清空订阅表
func (h *Holder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.entries {
		e.service.SetSubscriptionID("")
	}
	h.entries = make(map[string]*entry)
}
