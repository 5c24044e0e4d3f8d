package ssdp

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// member 列表成员的公共行为
type member interface {
	Start(ctx context.Context) error
	Stop() error
	Binding() Binding
}

// startAll 并发启动全部成员
//
// 启动失败的成员被记录并剔除；仅当全部失败时返回合并后的错误。
func startAll[T member](ctx context.Context, members []T) ([]T, error) {
	if len(members) == 0 {
		return nil, ErrNoInterface
	}

	errs := make([]error, len(members))
	var g errgroup.Group
	for i, m := range members {
		g.Go(func() error {
			errs[i] = m.Start(ctx)
			return nil
		})
	}
	_ = g.Wait()

	started := make([]T, 0, len(members))
	for i, m := range members {
		if errs[i] != nil {
			log.Warn("SSDP 传输启动失败，已跳过", "binding", m.Binding().String(), "err", errs[i])
			continue
		}
		started = append(started, m)
	}
	if len(started) == 0 {
		return nil, errors.Join(errs...)
	}
	return started, nil
}

func stopAll[T member](members []T) error {
	var err error
	for _, m := range members {
		err = multierr.Append(err, m.Stop())
	}
	return err
}

// ============================================================================
//                              NotifyReceiverList
// ============================================================================

// NotifyReceiverList 按绑定管理一组 NotifyReceiver
type NotifyReceiverList struct {
	mu      sync.Mutex
	pending []*NotifyReceiver
	active  []*NotifyReceiver
}

// NewNotifyReceiverList 为每个绑定创建一个 NotifyReceiver
func NewNotifyReceiverList(bindings []Binding, opts Options, listener Listener) *NotifyReceiverList {
	l := &NotifyReceiverList{}
	for _, b := range bindings {
		l.pending = append(l.pending, NewNotifyReceiver(b, opts, listener))
	}
	return l
}

// Start 并发启动全部接收器
func (l *NotifyReceiverList) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	started, err := startAll(ctx, l.pending)
	if err != nil {
		return err
	}
	l.active = started
	return nil
}

// Stop 停止全部已启动的接收器
func (l *NotifyReceiverList) Stop() error {
	l.mu.Lock()
	active := l.active
	l.active = nil
	l.mu.Unlock()
	return stopAll(active)
}

// Receivers 返回已启动的接收器
func (l *NotifyReceiverList) Receivers() []*NotifyReceiver {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*NotifyReceiver(nil), l.active...)
}

// ============================================================================
//                              SearchServerList
// ============================================================================

// SearchServerList 按绑定管理一组 SearchServer
type SearchServerList struct {
	mu      sync.Mutex
	pending []*SearchServer
	active  []*SearchServer
}

// NewSearchServerList 为每个绑定创建一个 SearchServer
func NewSearchServerList(bindings []Binding, opts Options, listener Listener) *SearchServerList {
	l := &SearchServerList{}
	for _, b := range bindings {
		l.pending = append(l.pending, NewSearchServer(b, opts, listener))
	}
	return l
}

// Start 并发启动全部搜索服务
func (l *SearchServerList) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	started, err := startAll(ctx, l.pending)
	if err != nil {
		return err
	}
	l.active = started
	return nil
}

// Stop 停止全部已启动的搜索服务
func (l *SearchServerList) Stop() error {
	l.mu.Lock()
	active := l.active
	l.active = nil
	l.mu.Unlock()
	return stopAll(active)
}

// Servers 返回已启动的搜索服务
func (l *SearchServerList) Servers() []*SearchServer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*SearchServer(nil), l.active...)
}

// Search 在全部搜索服务上发送 M-SEARCH
func (l *SearchServerList) Search(st string) error {
	var err error
	for _, s := range l.Servers() {
		err = multierr.Append(err, s.Search(st))
	}
	return err
}
