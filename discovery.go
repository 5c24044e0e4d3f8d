package upnpcp

import (
	"context"
	"fmt"

	"github.com/dep2p/go-upnpcp/internal/core/device"
	"github.com/dep2p/go-upnpcp/internal/core/executor"
	"github.com/dep2p/go-upnpcp/internal/core/httpmsg"
	"github.com/dep2p/go-upnpcp/internal/core/ssdp"
	"github.com/dep2p/go-upnpcp/pkg/interfaces"
)

// ════════════════════════════════════════════════════════════════════════════
//                              SSDP 处理
// ════════════════════════════════════════════════════════════════════════════

// onSSDP 在传输的接收 goroutine 中调用，只做表操作，加载交给 I/O 执行器
func (cp *ControlPoint) onSSDP(m *ssdp.Message) {
	if cp.ssdpListeners.Len() > 0 {
		cp.callback(func() {
			cp.ssdpListeners.Each(func(l interfaces.SSDPListener) { l.OnSSDP(m) })
		})
	}
	if m.UUID() == "" {
		return
	}

	if m.NTS() == ssdp.NTSByebye {
		if d := cp.registry.Find(m.UUID()); d != nil && !d.IsPinned() {
			cp.registry.Remove(d.UDN())
			log.Info("设备已离开", "udn", d.UDN(), "name", d.FriendlyName())
			cp.lose(d)
		}
		return
	}

	if cp.registry.UpdateSSDP(m) {
		return
	}
	cp.load(m)
}

// load 异步加载未知设备的描述
//
// 同一位置同时只加载一次，根设备与嵌入设备的通告共用一次加载；
// 加载失败的位置在禁用期内不再重试。
func (cp *ControlPoint) load(m *ssdp.Message) {
	uuid, location := m.UUID(), m.Location()
	if cp.embargo.Contains(location) {
		log.Debug("位置在禁用期内，跳过加载", "location", location)
		return
	}
	if !cp.registry.BeginLoad(location) {
		return
	}

	ok := cp.executors.IO().Execute(func(ctx context.Context) {
		defer cp.registry.EndLoad(location)
		d, err := cp.loader.Load(ctx, m, cp.subscriber)
		if err != nil {
			if ctx.Err() == nil {
				cp.embargo.Add(location)
			}
			log.Warn("加载设备描述失败", "uuid", uuid, "location", location, "err", err)
			return
		}
		cp.discover(d)
	})
	if !ok {
		cp.registry.EndLoad(location)
	}
}

// discover 登记新设备并通知；同 UDN 的旧设备先按丢失处理
func (cp *ControlPoint) discover(d *device.Device) {
	if !cp.IsRunning() {
		return
	}
	if old := cp.registry.Add(d); old != nil && old != d {
		cp.lose(old)
	}
	log.Info("发现设备", "udn", d.UDN(), "name", d.FriendlyName(), "location", d.Location())
	cp.callback(func() {
		cp.discoveryListeners.Each(func(l interfaces.DiscoveryListener) { l.OnDiscover(d) })
	})
}

// lose 移除设备的订阅并通知丢失，设备表由调用方处理
func (cp *ControlPoint) lose(d *device.Device) {
	if d == nil {
		return
	}
	if cp.manager != nil {
		cp.manager.ForgetDevice(d)
	}
	cp.callback(func() {
		cp.discoveryListeners.Each(func(l interfaces.DiscoveryListener) { l.OnLost(d) })
	})
}

// callback 在回调执行器上执行 fn
func (cp *ControlPoint) callback(fn func()) {
	if !cp.executors.Callback().Execute(func(context.Context) { fn() }) {
		log.Debug("回调执行器已终止，丢弃回调")
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              固定设备
// ════════════════════════════════════════════════════════════════════════════

// AddPinnedDevice 按描述文件地址注册设备
//
// 固定设备不会过期，也不受 byebye 影响，只能通过 RemovePinnedDevice 移除。
// 加载在 I/O 执行器上异步进行，完成后通过 DiscoveryListener 通知。
func (cp *ControlPoint) AddPinnedDevice(location string) error {
	if !httpmsg.IsHTTPURL(location) {
		return fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}
	if !cp.IsRunning() {
		return ErrNotStarted
	}

	m := ssdp.NewPinnedMessage(location)
	if !cp.executors.IO().Execute(func(ctx context.Context) {
		d, err := cp.loader.Load(ctx, m, cp.subscriber)
		if err != nil {
			log.Warn("加载固定设备失败", "location", location, "err", err)
			return
		}
		cp.discover(d)
	}) {
		return executor.ErrTerminated
	}
	return nil
}

// RemovePinnedDevice 移除固定设备，地址未注册时无效果
func (cp *ControlPoint) RemovePinnedDevice(location string) {
	d := cp.registry.FindByLocation(location)
	if d == nil || !d.IsPinned() {
		return
	}
	cp.registry.Remove(d.UDN())
	log.Info("固定设备已移除", "udn", d.UDN(), "location", location)
	cp.lose(d)
}
