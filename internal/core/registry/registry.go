package registry

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-upnpcp/internal/core/device"
	"github.com/dep2p/go-upnpcp/internal/core/executor"
	"github.com/dep2p/go-upnpcp/internal/core/ssdp"
	"github.com/dep2p/go-upnpcp/internal/util/logger"
)

var log = logger.Logger("upnp/registry")

// DefaultScanInterval 过期扫描间隔
const DefaultScanInterval = time.Second

// Registry 已发现设备表
type Registry struct {
	clock    clock.Clock
	interval time.Duration
	executor executor.TaskExecutor
	expired  func(d *device.Device)

	mu      sync.RWMutex
	devices map[string]*device.Device
	index   map[string]string // 设备树内任意 UDN → 根设备 UDN
	loading map[string]struct{}

	scanning atomic.Bool

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New 创建设备表
//
// ex 为空时扫描在计时 goroutine 中直接执行；clk 为空时使用系统时钟。
func New(interval time.Duration, clk clock.Clock, ex executor.TaskExecutor) *Registry {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{
		clock:    clk,
		interval: interval,
		executor: ex,
		devices:  make(map[string]*device.Device),
		index:    make(map[string]string),
		loading:  make(map[string]struct{}),
	}
}

// SetExpiredFunc 设置过期回调，须在 Start 之前调用
func (r *Registry) SetExpiredFunc(fn func(d *device.Device)) {
	r.expired = fn
}

// Start 启动过期扫描，重复调用无效果
func (r *Registry) Start() {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
}

// Stop 停止过期扫描
func (r *Registry) Stop() {
	r.lifeMu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.lifeMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *Registry) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := r.clock.Ticker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.schedule()
		}
	}
}

func (r *Registry) schedule() {
	if !r.scanning.CompareAndSwap(false, true) {
		return
	}
	if r.executor == nil {
		r.Expire()
		r.scanning.Store(false)
		return
	}
	if !r.executor.Execute(func(context.Context) {
		defer r.scanning.Store(false)
		r.Expire()
	}) {
		r.scanning.Store(false)
	}
}

// Expire 移除当前已过期的设备并逐个回调，返回被移除的设备
func (r *Registry) Expire() []*device.Device {
	now := r.clock.Now()

	var expired []*device.Device
	r.mu.Lock()
	for udn, d := range r.devices {
		if d.SSDPMessage().Expired(now) {
			r.removeLocked(udn)
			expired = append(expired, d)
		}
	}
	r.mu.Unlock()

	for _, d := range expired {
		log.Info("设备已过期", "udn", d.UDN(), "name", d.FriendlyName())
		if r.expired != nil {
			r.expired(d)
		}
	}
	return expired
}

// ============================================================================
//                              设备表
// ============================================================================

// Add 添加或替换设备，返回被替换的旧设备
func (r *Registry) Add(d *device.Device) *device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.removeLocked(d.UDN())
	r.devices[d.UDN()] = d
	d.Walk(func(x *device.Device) bool {
		r.index[x.UDN()] = d.UDN()
		return true
	})
	return old
}

func (r *Registry) removeLocked(udn string) *device.Device {
	d, ok := r.devices[udn]
	if !ok {
		return nil
	}
	delete(r.devices, udn)
	d.Walk(func(x *device.Device) bool {
		if r.index[x.UDN()] == udn {
			delete(r.index, x.UDN())
		}
		return true
	})
	return d
}

// Get 按 UDN 查找设备
func (r *Registry) Get(udn string) *device.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.devices[udn]
}

// Find 按设备树内任意 UDN（含嵌入设备）查找根设备
func (r *Registry) Find(uuid string) *device.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.devices[r.index[uuid]]
}

// Remove 移除设备，返回被移除的设备
func (r *Registry) Remove(udn string) *device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(udn)
}

// FindByLocation 按 Location 查找设备
func (r *Registry) FindByLocation(location string) *device.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.devices {
		if d.Location() == location {
			return d
		}
	}
	return nil
}

// Devices 返回按 UDN 排序的设备列表
func (r *Registry) Devices() []*device.Device {
	r.mu.RLock()
	out := make([]*device.Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UDN() < out[j].UDN() })
	return out
}

// Len 设备数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// UpdateSSDP 用消息刷新已知设备的过期时间，设备未知时返回 false
//
// 嵌入设备的消息刷新其根设备。
func (r *Registry) UpdateSSDP(m *ssdp.Message) bool {
	d := r.Find(m.UUID())
	if d == nil {
		return false
	}
	d.UpdateSSDPMessage(m)
	return true
}

// BeginLoad 标记 key（通常为 Location）正在加载，已在加载中时返回 false
func (r *Registry) BeginLoad(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.loading[key]; ok {
		return false
	}
	r.loading[key] = struct{}{}
	return true
}

// EndLoad 清除加载标记
func (r *Registry) EndLoad(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.loading, key)
}

// Clear 清空设备表
func (r *Registry) Clear() []*device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*device.Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	r.devices = make(map[string]*device.Device)
	r.index = make(map[string]string)
	r.loading = make(map[string]struct{})
	return out
}
