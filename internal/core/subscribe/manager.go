package subscribe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-upnpcp/internal/core/device"
	"github.com/dep2p/go-upnpcp/internal/core/executor"
	"github.com/dep2p/go-upnpcp/internal/core/httpclient"
	"github.com/dep2p/go-upnpcp/internal/core/httpmsg"
	"github.com/dep2p/go-upnpcp/internal/util/listeners"
	"github.com/dep2p/go-upnpcp/internal/util/logger"
	"github.com/dep2p/go-upnpcp/pkg/interfaces"
	"github.com/dep2p/go-upnpcp/pkg/types"
)

var log = logger.Logger("upnp/subscribe")

// Config 订阅管理器配置
type Config struct {
	// Timeout 请求的订阅时长
	Timeout time.Duration

	// Holder 扫描与续期配置
	Holder HolderConfig

	// HTTPTimeout 单次请求超时，<= 0 时使用客户端默认值
	HTTPTimeout time.Duration

	// UserAgent User-Agent 头
	UserAgent string

	// Observer HTTP 请求结果观察者，可为空
	Observer httpclient.Observer
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{Timeout: DefaultTimeout, Holder: DefaultHolderConfig()}
}

func (c Config) clientOptions() []httpclient.Option {
	opts := []httpclient.Option{httpclient.WithKeepAlive(true)}
	if c.HTTPTimeout > 0 {
		opts = append(opts, httpclient.WithTimeout(c.HTTPTimeout))
	}
	if c.UserAgent != "" {
		opts = append(opts, httpclient.WithUserAgent(c.UserAgent))
	}
	if c.Observer != nil {
		opts = append(opts, httpclient.WithObserver(c.Observer))
	}
	return opts
}

// Manager 订阅管理器
//
// HTTP 客户端不是并发安全的，所有请求在 clientMu 下串行发送。
type Manager struct {
	cfg       Config
	executors *executor.Executors
	port      func() int
	holder    *Holder
	listeners listeners.List[interfaces.NotifyEventListener]

	clientMu sync.Mutex
	client   *httpclient.Client
}

var _ device.SubscribeManager = (*Manager)(nil)

// NewManager 创建订阅管理器
//
// port 返回事件接收服务器端口，用于构造 CALLBACK；clk 为空时使用系统时钟。
func NewManager(cfg Config, ex *executor.Executors, port func() int, clk clock.Clock, opts ...httpclient.Option) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	var holderExec executor.TaskExecutor
	if ex != nil {
		holderExec = ex.Manager()
	}
	m := &Manager{
		cfg:       cfg,
		executors: ex,
		port:      port,
		holder:    NewHolder(cfg.Holder, clk, holderExec),
		client:    httpclient.New(append(cfg.clientOptions(), opts...)...),
	}
	m.holder.SetRenewFunc(m.autoRenew)
	return m
}

// Start 启动续期扫描
func (m *Manager) Start() {
	m.holder.Start()
}

// Stop 停止续期扫描并关闭 HTTP 连接
//
// 已登记的订阅不会被取消，设备端订阅随超时自然失效。
func (m *Manager) Stop() error {
	m.holder.Stop()
	m.clientMu.Lock()
	defer m.clientMu.Unlock()
	return m.client.Close()
}

// Holder 返回订阅表
func (m *Manager) Holder() *Holder { return m.holder }

// Len 当前订阅数量
func (m *Manager) Len() int { return m.holder.Len() }

// EventPort 事件接收服务器端口
func (m *Manager) EventPort() int {
	if m.port == nil {
		return 0
	}
	return m.port()
}

// AddListener 添加事件回调
func (m *Manager) AddListener(l interfaces.NotifyEventListener) { m.listeners.Add(l) }

// RemoveListener 移除事件回调
func (m *Manager) RemoveListener(l interfaces.NotifyEventListener) { m.listeners.Remove(l) }

// ForgetDevice 在本地移除设备树中全部服务的订阅，不发送请求
func (m *Manager) ForgetDevice(d *device.Device) {
	for _, s := range d.AllServices() {
		if s.SubscriptionID() == "" {
			continue
		}
		m.holder.Remove(s)
		s.SetSubscriptionID("")
	}
}

// OnEvent 事件接收服务器回调
//
// SID 未知时返回 false，服务器据此响应 412。
func (m *Manager) OnEvent(sid string, seq int64, properties []types.Property) bool {
	s := m.holder.Service(sid)
	if s == nil {
		log.Debug("收到未知 SID 的事件", "sid", sid)
		return false
	}
	m.callback(func() {
		m.listeners.Each(func(l interfaces.NotifyEventListener) {
			for _, p := range properties {
				l.OnNotifyEvent(s, seq, p.Name, p.Value)
			}
		})
	})
	return true
}

// ============================================================================
//                              同步操作
// ============================================================================

// Subscribe 订阅；已持有 SID 时改为续期并更新 keepRenew
func (m *Manager) Subscribe(ctx context.Context, s *device.Service, keepRenew bool) bool {
	if s.SubscriptionID() != "" {
		if err := m.renew(ctx, s); err != nil {
			log.Warn("续期失败", "service", s.ServiceID(), "err", err)
			return false
		}
		m.holder.SetKeepRenew(s, keepRenew)
		return true
	}
	if err := m.subscribe(ctx, s, keepRenew); err != nil {
		log.Warn("订阅失败", "service", s.ServiceID(), "err", err)
		return false
	}
	return true
}

// RenewSubscribe 续期；未持有 SID 时改为订阅
func (m *Manager) RenewSubscribe(ctx context.Context, s *device.Service) bool {
	var err error
	if s.SubscriptionID() == "" {
		err = m.subscribe(ctx, s, false)
	} else {
		err = m.renew(ctx, s)
	}
	if err != nil {
		log.Warn("续期失败", "service", s.ServiceID(), "err", err)
		return false
	}
	return true
}

// Unsubscribe 取消订阅
//
// 无论请求是否成功，本地订阅都会被移除；未持有 SID 时返回 false。
func (m *Manager) Unsubscribe(ctx context.Context, s *device.Service) bool {
	sid := s.SubscriptionID()
	if sid == "" {
		return false
	}
	err := m.unsubscribe(ctx, s, sid)
	m.holder.Remove(s)
	s.SetSubscriptionID("")
	if err != nil {
		log.Warn("取消订阅请求失败，已在本地移除", "service", s.ServiceID(), "sid", sid, "err", err)
	}
	return true
}

func (m *Manager) autoRenew(ctx context.Context, s *device.Service) bool {
	if s.SubscriptionID() == "" {
		return false
	}
	if err := m.renew(ctx, s); err != nil {
		log.Debug("自动续期失败", "service", s.ServiceID(), "err", err)
		return false
	}
	return true
}

// ============================================================================
//                              异步操作
// ============================================================================

// SubscribeAsync 在 IO 执行器上订阅
func (m *Manager) SubscribeAsync(s *device.Service, keepRenew bool, callback func(bool)) {
	m.async(callback, func(ctx context.Context) bool { return m.Subscribe(ctx, s, keepRenew) })
}

// RenewSubscribeAsync 在 IO 执行器上续期
func (m *Manager) RenewSubscribeAsync(s *device.Service, callback func(bool)) {
	m.async(callback, func(ctx context.Context) bool { return m.RenewSubscribe(ctx, s) })
}

// UnsubscribeAsync 在 IO 执行器上取消订阅
func (m *Manager) UnsubscribeAsync(s *device.Service, callback func(bool)) {
	m.async(callback, func(ctx context.Context) bool { return m.Unsubscribe(ctx, s) })
}

func (m *Manager) async(callback func(bool), op func(ctx context.Context) bool) {
	task := func(ctx context.Context) {
		result := op(ctx)
		if callback != nil {
			m.callback(func() { callback(result) })
		}
	}
	if m.executors == nil {
		go task(context.Background())
		return
	}
	if !m.executors.IO().Execute(task) {
		log.Debug("IO 执行器已终止，丢弃订阅任务")
	}
}

func (m *Manager) callback(fn func()) {
	if m.executors == nil {
		fn()
		return
	}
	m.executors.Callback().Execute(func(context.Context) { fn() })
}

// ============================================================================
//                              HTTP 交换
// ============================================================================

func (m *Manager) subscribe(ctx context.Context, s *device.Service, keepRenew bool) error {
	req, err := m.newRequest(s, httpmsg.MethodSubscribe)
	if err != nil {
		return err
	}
	callback, err := m.callbackURL(s)
	if err != nil {
		return err
	}
	req.Header.Set(httpmsg.HeaderNT, httpmsg.ValueUPnPEvent)
	req.Header.Set(httpmsg.HeaderCallback, callback)
	req.Header.Set(httpmsg.HeaderTimeout, FormatTimeout(m.cfg.Timeout))
	req.Header.Set(httpmsg.HeaderContentLength, "0")

	resp, err := m.post(ctx, req)
	if err != nil {
		return err
	}
	sid := resp.Header.Get(httpmsg.HeaderSID)
	timeout := ParseTimeout(resp.Header.Get(httpmsg.HeaderTimeout))
	if sid == "" || timeout <= 0 {
		return fmt.Errorf("%w: sid=%q timeout=%s", ErrRejected, sid, timeout)
	}

	s.SetSubscriptionID(sid)
	m.holder.Add(s, timeout, keepRenew)
	log.Debug("订阅成功", "service", s.ServiceID(), "sid", sid, "timeout", timeout)
	return nil
}

func (m *Manager) renew(ctx context.Context, s *device.Service) error {
	sid := s.SubscriptionID()
	if sid == "" {
		return ErrNoSubscription
	}
	req, err := m.newRequest(s, httpmsg.MethodSubscribe)
	if err != nil {
		return err
	}
	req.Header.Set(httpmsg.HeaderSID, sid)
	req.Header.Set(httpmsg.HeaderTimeout, FormatTimeout(m.cfg.Timeout))
	req.Header.Set(httpmsg.HeaderContentLength, "0")

	resp, err := m.post(ctx, req)
	if err != nil {
		return err
	}
	timeout := ParseTimeout(resp.Header.Get(httpmsg.HeaderTimeout))
	if got := resp.Header.Get(httpmsg.HeaderSID); got != sid || timeout <= 0 {
		return fmt.Errorf("%w: sid=%q timeout=%s", ErrRejected, got, timeout)
	}

	m.holder.Renew(s, timeout)
	log.Debug("续期成功", "service", s.ServiceID(), "sid", sid, "timeout", timeout)
	return nil
}

func (m *Manager) unsubscribe(ctx context.Context, s *device.Service, sid string) error {
	req, err := m.newRequest(s, httpmsg.MethodUnsubscribe)
	if err != nil {
		return err
	}
	req.Header.Set(httpmsg.HeaderSID, sid)
	req.Header.Set(httpmsg.HeaderContentLength, "0")
	_, err = m.post(ctx, req)
	return err
}

func (m *Manager) newRequest(s *device.Service, method string) (*httpmsg.Request, error) {
	u, err := s.AbsoluteURL(s.EventSubURL())
	if err != nil {
		return nil, err
	}
	req := httpmsg.NewRequest(method)
	if err := req.SetURL(u, true); err != nil {
		return nil, err
	}
	return req, nil
}

// post 发送请求，非 200 响应转为 StatusError
func (m *Manager) post(ctx context.Context, req *httpmsg.Request) (*httpmsg.Response, error) {
	m.clientMu.Lock()
	resp, err := m.client.Post(ctx, req)
	m.clientMu.Unlock()
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %w", ErrRejected, &httpclient.StatusError{Code: resp.StatusCode, Reason: resp.Reason})
	}
	return resp, nil
}

// callbackURL 生成 CALLBACK 头：<http://本地地址:端口/>
func (m *Manager) callbackURL(s *device.Service) (string, error) {
	local := s.Device().LocalAddr()
	if !local.IsValid() {
		return "", ErrNoLocalAddr
	}
	port := m.EventPort()
	if port == 0 {
		return "", ErrNoEventPort
	}
	host := net.JoinHostPort(local.WithZone("").String(), strconv.Itoa(port))
	return "<http://" + host + "/>", nil
}
