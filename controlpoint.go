package upnpcp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-upnpcp/config"
	"github.com/dep2p/go-upnpcp/internal/core/device"
	"github.com/dep2p/go-upnpcp/internal/core/executor"
	"github.com/dep2p/go-upnpcp/internal/core/metrics"
	"github.com/dep2p/go-upnpcp/internal/core/registry"
	"github.com/dep2p/go-upnpcp/internal/core/ssdp"
	"github.com/dep2p/go-upnpcp/internal/core/subscribe"
	"github.com/dep2p/go-upnpcp/internal/debugapi"
	"github.com/dep2p/go-upnpcp/internal/util/listeners"
	"github.com/dep2p/go-upnpcp/internal/util/logger"
	"github.com/dep2p/go-upnpcp/pkg/interfaces"
)

var log = logger.Logger("upnpcp")

// stopTimeout Stop 等待各组件关闭的上限
const stopTimeout = 10 * time.Second

// ControlPoint UPnP 控制点
//
// 用户交互的主入口。New 创建后需调用 Start；Stop 之后执行器被终止，
// 控制点不可再次启动。
type ControlPoint struct {
	// ────────────────────────────────────────────────────────────────────────
	// 配置和状态
	// ────────────────────────────────────────────────────────────────────────

	cfg *config.Config
	app *fx.App

	lifeMu sync.Mutex
	state  atomic.Int32

	// ────────────────────────────────────────────────────────────────────────
	// 核心组件（由 Fx 注入）
	// ────────────────────────────────────────────────────────────────────────

	executors *executor.Executors
	metrics   *metrics.Metrics
	clock     clock.Clock

	// manager 关闭事件订阅时为 nil，此时 subscriber 为 subscribe.Empty
	manager    *subscribe.Manager
	subscriber device.SubscribeManager

	registry *registry.Registry
	embargo  *registry.Embargo
	loader   interfaces.DescriptionLoader
	debug    *debugapi.Server

	// SSDP 传输，在 Start 时按当前网卡创建；没有可用网卡时为 nil
	notify *ssdp.NotifyReceiverList
	search *ssdp.SearchServerList

	// ────────────────────────────────────────────────────────────────────────
	// 回调
	// ────────────────────────────────────────────────────────────────────────

	discoveryListeners listeners.List[interfaces.DiscoveryListener]
	ssdpListeners      listeners.List[interfaces.SSDPListener]
}

var _ debugapi.Backend = (*ControlPoint)(nil)

// ════════════════════════════════════════════════════════════════════════════
//                              构造函数
// ════════════════════════════════════════════════════════════════════════════

// New 创建控制点
//
// 创建控制点但不启动，需要调用 Start() 启动。
//
//	cp, err := upnpcp.New(
//	    upnpcp.WithProtocol(upnpcp.ProtocolIPv4Only),
//	    upnpcp.WithInterfaces("eth0"),
//	)
func New(opts ...Option) (*ControlPoint, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	cfg, err := o.resolve()
	if err != nil {
		return nil, err
	}

	cp := &ControlPoint{cfg: cfg}
	cp.app = buildFxApp(cp, o)
	if err := cp.app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	return cp, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// State 返回当前状态
func (cp *ControlPoint) State() State {
	return State(cp.state.Load())
}

// IsRunning 是否运行中
func (cp *ControlPoint) IsRunning() bool {
	return cp.State() == StateRunning
}

// Start 启动控制点
//
// 依次启动事件接收服务器、订阅续期、设备表与 SSDP 传输，
// 然后加载配置中的固定设备。任一步失败时已启动的组件会被回滚。
func (cp *ControlPoint) Start(ctx context.Context) error {
	cp.lifeMu.Lock()
	defer cp.lifeMu.Unlock()

	switch cp.State() {
	case StateRunning:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrStopped
	}

	log.Info("正在启动控制点")
	if err := cp.app.Start(ctx); err != nil {
		// fx 已回滚，执行器随之终止
		cp.state.Store(int32(StateStopped))
		log.Error("启动控制点失败", "err", err)
		return fmt.Errorf("start fx app: %w", err)
	}
	cp.state.Store(int32(StateRunning))

	for _, location := range cp.cfg.Discovery.Pinned {
		if err := cp.AddPinnedDevice(location); err != nil {
			log.Warn("固定设备地址无效", "location", location, "err", err)
		}
	}

	log.Info("控制点已启动", "event_port", cp.EventPort())
	return nil
}

// Stop 停止控制点
//
// 逆序停止各组件并终止执行器。已登记的订阅不会被取消。
// 重复调用返回 nil。
func (cp *ControlPoint) Stop() error {
	cp.lifeMu.Lock()
	defer cp.lifeMu.Unlock()

	switch cp.State() {
	case StateIdle:
		return ErrNotStarted
	case StateStopped:
		return nil
	}

	cp.state.Store(int32(StateStopped))
	log.Info("正在停止控制点")

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := cp.app.Stop(ctx); err != nil {
		log.Error("停止控制点失败", "err", err)
		return fmt.Errorf("stop fx app: %w", err)
	}
	log.Info("控制点已停止")
	return nil
}

func (cp *ControlPoint) startSSDP(ctx context.Context) error {
	protocol, err := cp.cfg.SSDP.ProtocolMode()
	if err != nil {
		return err
	}
	bindings, err := ssdp.Bindings(protocol, cp.cfg.SSDP.Interfaces)
	if errors.Is(err, ssdp.ErrNoInterface) {
		log.Warn("没有可用网卡，仅支持固定设备", "protocol", protocol.String(), "interfaces", cp.cfg.SSDP.Interfaces)
		return nil
	}
	if err != nil {
		return err
	}

	opts := ssdp.Options{
		Executors:    cp.executors,
		SegmentCheck: cp.cfg.SSDP.SegmentCheck,
		TTL:          cp.cfg.SSDP.MulticastTTL,
		Observer:     cp.metrics,
		Now:          cp.clock.Now,
	}
	notify := ssdp.NewNotifyReceiverList(bindings, opts, cp.onSSDP)
	search := ssdp.NewSearchServerList(bindings, opts, cp.onSSDP)

	if err := notify.Start(ctx); err != nil {
		return fmt.Errorf("start notify receivers: %w", err)
	}
	if err := search.Start(ctx); err != nil {
		notify.Stop()
		return fmt.Errorf("start search servers: %w", err)
	}
	cp.notify, cp.search = notify, search
	return nil
}

func (cp *ControlPoint) stopSSDP() error {
	var errs []error
	if cp.search != nil {
		errs = append(errs, cp.search.Stop())
	}
	if cp.notify != nil {
		errs = append(errs, cp.notify.Stop())
	}
	return errors.Join(errs...)
}

// ════════════════════════════════════════════════════════════════════════════
//                              操作
// ════════════════════════════════════════════════════════════════════════════

// Search 发送 M-SEARCH，st 为空时使用配置的默认搜索目标
func (cp *ControlPoint) Search(st string) error {
	if !cp.IsRunning() {
		return ErrNotStarted
	}
	if cp.search == nil {
		return ssdp.ErrNoInterface
	}
	if st == "" {
		st = cp.cfg.SSDP.SearchTarget
	}
	return cp.search.Search(st)
}

// Devices 返回按 UDN 排序的已发现根设备
func (cp *ControlPoint) Devices() []*Device {
	return cp.registry.Devices()
}

// Device 按 UDN 查找根设备
func (cp *ControlPoint) Device(udn string) *Device {
	return cp.registry.Get(udn)
}

// Subscriptions 返回当前订阅快照
func (cp *ControlPoint) Subscriptions() []Subscription {
	if cp.manager == nil {
		return nil
	}
	return cp.manager.Holder().Subscriptions()
}

// EventPort 事件接收服务器端口，未启动或关闭订阅时为 0
func (cp *ControlPoint) EventPort() int {
	if cp.manager == nil {
		return 0
	}
	return cp.manager.EventPort()
}

// Metrics 返回指标集合
func (cp *ControlPoint) Metrics() *metrics.Metrics {
	return cp.metrics
}

// DebugAddr 调试接口实际监听地址，未启用时为空
func (cp *ControlPoint) DebugAddr() string {
	if cp.debug == nil {
		return ""
	}
	return cp.debug.Addr()
}

// ════════════════════════════════════════════════════════════════════════════
//                              回调管理
// ════════════════════════════════════════════════════════════════════════════

// AddDiscoveryListener 添加发现回调
func (cp *ControlPoint) AddDiscoveryListener(l DiscoveryListener) {
	cp.discoveryListeners.Add(l)
}

// RemoveDiscoveryListener 移除发现回调
func (cp *ControlPoint) RemoveDiscoveryListener(l DiscoveryListener) {
	cp.discoveryListeners.Remove(l)
}

// AddNotifyEventListener 添加事件回调，关闭事件订阅时无效果
func (cp *ControlPoint) AddNotifyEventListener(l NotifyEventListener) {
	if cp.manager == nil {
		log.Debug("事件订阅已关闭，忽略事件回调")
		return
	}
	cp.manager.AddListener(l)
}

// RemoveNotifyEventListener 移除事件回调
func (cp *ControlPoint) RemoveNotifyEventListener(l NotifyEventListener) {
	if cp.manager != nil {
		cp.manager.RemoveListener(l)
	}
}

// AddSSDPListener 添加原始 SSDP 消息回调
func (cp *ControlPoint) AddSSDPListener(l SSDPListener) {
	cp.ssdpListeners.Add(l)
}

// RemoveSSDPListener 移除原始 SSDP 消息回调
func (cp *ControlPoint) RemoveSSDPListener(l SSDPListener) {
	cp.ssdpListeners.Remove(l)
}
