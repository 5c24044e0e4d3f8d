package subscribe

import (
	"context"

	"github.com/dep2p/go-upnpcp/internal/core/device"
)

// Empty 不执行任何订阅的管理器，关闭事件订阅时使用
type Empty struct{}

var _ device.SubscribeManager = Empty{}

func (Empty) Subscribe(context.Context, *device.Service, bool) bool { return false }
func (Empty) RenewSubscribe(context.Context, *device.Service) bool  { return false }
func (Empty) Unsubscribe(context.Context, *device.Service) bool     { return false }

func (Empty) SubscribeAsync(_ *device.Service, _ bool, callback func(bool)) { fail(callback) }
func (Empty) RenewSubscribeAsync(_ *device.Service, callback func(bool))    { fail(callback) }
func (Empty) UnsubscribeAsync(_ *device.Service, callback func(bool))       { fail(callback) }

func fail(callback func(bool)) {
	if callback != nil {
		callback(false)
	}
}
