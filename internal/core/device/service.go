package device

import (
	"context"
	"net/url"
	"sync"
)

// SubscribeManager 执行服务的事件订阅
//
// 同步方法阻塞直到 HTTP 交换完成；Async 方法在 IO 执行器上运行，
// 结果经回调执行器交给 callback（可为空）。
type SubscribeManager interface {
	Subscribe(ctx context.Context, s *Service, keepRenew bool) bool
	RenewSubscribe(ctx context.Context, s *Service) bool
	Unsubscribe(ctx context.Context, s *Service) bool

	SubscribeAsync(s *Service, keepRenew bool, callback func(bool))
	RenewSubscribeAsync(s *Service, callback func(bool))
	UnsubscribeAsync(s *Service, callback func(bool))
}

// ServiceParams 构造 Service 的参数，全部字段必填
type ServiceParams struct {
	ServiceType string
	ServiceID   string
	SCPDURL     string
	ControlURL  string
	EventSubURL string
}

// Service UPnP 服务
type Service struct {
	device      *Device
	manager     SubscribeManager
	serviceType string
	serviceID   string
	scpdURL     string
	controlURL  string
	eventSubURL string

	mu  sync.RWMutex
	sid string
}

func newService(p ServiceParams, d *Device, m SubscribeManager) (*Service, error) {
	if err := requireFields("service",
		"ServiceType", p.ServiceType,
		"ServiceID", p.ServiceID,
		"SCPDURL", p.SCPDURL,
		"ControlURL", p.ControlURL,
		"EventSubURL", p.EventSubURL,
	); err != nil {
		return nil, err
	}
	return &Service{
		device:      d,
		manager:     m,
		serviceType: p.ServiceType,
		serviceID:   p.ServiceID,
		scpdURL:     p.SCPDURL,
		controlURL:  p.ControlURL,
		eventSubURL: p.EventSubURL,
	}, nil
}

// Device 所属设备
func (s *Service) Device() *Device { return s.device }

// ServiceType 服务类型
func (s *Service) ServiceType() string { return s.serviceType }

// ServiceID 服务 ID
func (s *Service) ServiceID() string { return s.serviceID }

// SCPDURL 服务描述地址（相对）
func (s *Service) SCPDURL() string { return s.scpdURL }

// ControlURL 控制地址（相对）
func (s *Service) ControlURL() string { return s.controlURL }

// EventSubURL 事件订阅地址（相对）
func (s *Service) EventSubURL() string { return s.eventSubURL }

// AbsoluteURL 以设备 Location 为基准解析相对地址，附加 scope id
func (s *Service) AbsoluteURL(ref string) (*url.URL, error) {
	return s.device.AbsoluteURL(ref)
}

// SubscriptionID 当前订阅 ID，未订阅时为空
func (s *Service) SubscriptionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sid
}

// SetSubscriptionID 由订阅管理器设置或清除订阅 ID
func (s *Service) SetSubscriptionID(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sid = sid
}

// ============================================================================
//                              订阅
// ============================================================================

// Subscribe 订阅事件；已订阅时改为续期并更新 keepRenew
func (s *Service) Subscribe(ctx context.Context, keepRenew bool) bool {
	if s.manager == nil {
		return false
	}
	return s.manager.Subscribe(ctx, s, keepRenew)
}

// RenewSubscribe 续期；未订阅时改为订阅
func (s *Service) RenewSubscribe(ctx context.Context) bool {
	if s.manager == nil {
		return false
	}
	return s.manager.RenewSubscribe(ctx, s)
}

// Unsubscribe 取消订阅
func (s *Service) Unsubscribe(ctx context.Context) bool {
	if s.manager == nil {
		return false
	}
	return s.manager.Unsubscribe(ctx, s)
}

// SubscribeAsync 异步订阅
func (s *Service) SubscribeAsync(keepRenew bool, callback func(bool)) {
	if s.manager == nil {
		notifyFailure(callback)
		return
	}
	s.manager.SubscribeAsync(s, keepRenew, callback)
}

// RenewSubscribeAsync 异步续期
func (s *Service) RenewSubscribeAsync(callback func(bool)) {
	if s.manager == nil {
		notifyFailure(callback)
		return
	}
	s.manager.RenewSubscribeAsync(s, callback)
}

// UnsubscribeAsync 异步取消订阅
func (s *Service) UnsubscribeAsync(callback func(bool)) {
	if s.manager == nil {
		notifyFailure(callback)
		return
	}
	s.manager.UnsubscribeAsync(s, callback)
}

func notifyFailure(callback func(bool)) {
	if callback != nil {
		callback(false)
	}
}
