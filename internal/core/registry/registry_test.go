package registry

import (
	"net/netip"
	"strconv"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-upnpcp/internal/core/device"
	"github.com/dep2p/go-upnpcp/internal/core/executor"
	"github.com/dep2p/go-upnpcp/internal/core/ssdp"
)

func notify(udn string, maxAge int, now time.Time) *ssdp.Message {
	data := "NOTIFY * HTTP/1.1\r\n" +
		"CACHE-CONTROL: max-age=" + strconv.Itoa(maxAge) + "\r\n" +
		"LOCATION: http://192.168.0.1:8080/device.xml\r\n" +
		"NTS: ssdp:alive\r\n" +
		"USN: " + udn + "::upnp:rootdevice\r\n\r\n"
	m, err := ssdp.Parse([]byte(data), netip.MustParseAddr("192.168.0.10"), 0, now)
	if err != nil {
		panic(err)
	}
	return m
}

func newDevice(t *testing.T, m *ssdp.Message) *device.Device {
	t.Helper()
	udn := m.UUID()
	if udn == "" {
		udn = "uuid:" + uuid.NewString()
		m.SetUUID(udn)
	}
	d, err := device.NewDevice(device.DeviceParams{
		SSDP:         m,
		Location:     m.Location(),
		UDN:          udn,
		DeviceType:   "urn:schemas-upnp-org:device:MediaServer:1",
		FriendlyName: "test",
	})
	require.NoError(t, err)
	return d
}

// ============================================================================
//                              设备表测试
// ============================================================================

func TestRegistry_Table(t *testing.T) {
	mock := clock.NewMock()
	r := New(time.Second, mock, nil)

	udn := "uuid:" + uuid.NewString()
	d := newDevice(t, notify(udn, 300, mock.Now()))

	assert.Nil(t, r.Add(d))
	assert.Same(t, d, r.Get(udn))
	assert.Same(t, d, r.FindByLocation("http://192.168.0.1:8080/device.xml"))
	assert.Equal(t, 1, r.Len())
	assert.Same(t, d, r.Add(d), "替换返回旧设备")

	t.Run("UpdateSSDP 刷新过期时间", func(t *testing.T) {
		fresh := notify(udn, 600, mock.Now())
		assert.True(t, r.UpdateSSDP(fresh))
		assert.Equal(t, fresh.ExpireTime(), d.ExpireTime())
		assert.False(t, r.UpdateSSDP(notify("uuid:unknown", 300, mock.Now())))
	})

	t.Run("加载标记", func(t *testing.T) {
		assert.True(t, r.BeginLoad(udn))
		assert.False(t, r.BeginLoad(udn))
		r.EndLoad(udn)
		assert.True(t, r.BeginLoad(udn))
		r.EndLoad(udn)
	})

	assert.Same(t, d, r.Remove(udn))
	assert.Nil(t, r.Remove(udn))
	assert.Zero(t, r.Len())
}

func TestRegistry_EmbeddedIndex(t *testing.T) {
	r := New(0, nil, nil)
	root := "uuid:" + uuid.NewString()
	embedded := "uuid:" + uuid.NewString()
	m := notify(root, 300, time.Now())
	d, err := device.NewDevice(device.DeviceParams{
		SSDP:         m,
		Location:     m.Location(),
		UDN:          root,
		DeviceType:   "urn:schemas-upnp-org:device:MediaServer:1",
		FriendlyName: "root",
		Devices: []device.DeviceParams{{
			UDN:          embedded,
			DeviceType:   "urn:schemas-upnp-org:device:Printer:1",
			FriendlyName: "embedded",
		}},
	})
	require.NoError(t, err)
	r.Add(d)

	t.Run("嵌入设备 UDN 查找根设备", func(t *testing.T) {
		assert.Same(t, d, r.Find(embedded))
		assert.Same(t, d, r.Find(root))
		assert.Nil(t, r.Get(embedded), "Get 只查根设备")
	})

	t.Run("嵌入设备消息刷新根设备", func(t *testing.T) {
		fresh := notify(embedded, 900, time.Now())
		assert.True(t, r.UpdateSSDP(fresh))
		assert.Same(t, fresh, d.SSDPMessage())
	})

	t.Run("移除后清理索引", func(t *testing.T) {
		r.Remove(root)
		assert.Nil(t, r.Find(embedded))
	})
}

func TestRegistry_Devices_Sorted(t *testing.T) {
	r := New(0, nil, nil)
	for _, id := range []string{"uuid:c", "uuid:a", "uuid:b"} {
		r.Add(newDevice(t, notify(id, 300, time.Now())))
	}
	var udns []string
	for _, d := range r.Devices() {
		udns = append(udns, d.UDN())
	}
	assert.Equal(t, []string{"uuid:a", "uuid:b", "uuid:c"}, udns)
	assert.Len(t, r.Clear(), 3)
	assert.Zero(t, r.Len())
}

// ============================================================================
//                              过期测试
// ============================================================================

func TestRegistry_Expire(t *testing.T) {
	mock := clock.NewMock()
	r := New(time.Second, mock, nil)

	short := newDevice(t, notify("uuid:short", 10, mock.Now()))
	long := newDevice(t, notify("uuid:long", 100, mock.Now()))
	pinned := newDevice(t, ssdp.NewPinnedMessage("http://192.168.0.2/device.xml"))
	r.Add(short)
	r.Add(long)
	r.Add(pinned)

	var lost []*device.Device
	r.SetExpiredFunc(func(d *device.Device) { lost = append(lost, d) })

	mock.Add(11 * time.Second)
	assert.Equal(t, []*device.Device{short}, r.Expire())
	assert.Equal(t, []*device.Device{short}, lost)

	mock.Add(1000 * time.Hour)
	assert.Equal(t, []*device.Device{long}, r.Expire())
	assert.Same(t, pinned, r.Get(pinned.UDN()), "固定注册设备永不过期")
}

func TestRegistry_ScanLoop(t *testing.T) {
	mock := clock.NewMock()
	ex := executor.New(executor.DefaultConfig())
	defer ex.Terminate()

	r := New(time.Second, mock, ex.Manager())
	r.Add(newDevice(t, notify("uuid:x", 5, mock.Now())))

	lost := make(chan *device.Device, 1)
	r.SetExpiredFunc(func(d *device.Device) { lost <- d })
	r.Start()
	defer r.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mock.Add(time.Second)
		select {
		case d := <-lost:
			assert.Equal(t, "uuid:x", d.UDN())
			return
		case <-time.After(10 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatal("未报告过期")
		}
	}
}

// ============================================================================
//                              禁入表测试
// ============================================================================

func TestEmbargo(t *testing.T) {
	t.Run("容量与淘汰", func(t *testing.T) {
		e := NewEmbargo(2, time.Minute)
		e.Add("a")
		e.Add("b")
		e.Add("c")
		assert.False(t, e.Contains("a"))
		assert.True(t, e.Contains("c"))
		assert.Equal(t, 2, e.Len())
		e.Remove("c")
		assert.False(t, e.Contains("c"))
	})

	t.Run("过期", func(t *testing.T) {
		e := NewEmbargo(4, 20*time.Millisecond)
		e.Add("a")
		assert.True(t, e.Contains("a"))
		assert.Eventually(t, func() bool { return !e.Contains("a") }, time.Second, 5*time.Millisecond)
	})

	t.Run("未启用", func(t *testing.T) {
		e := NewEmbargo(0, time.Minute)
		e.Add("a")
		assert.False(t, e.Contains("a"))
		assert.Zero(t, e.Len())
	})
}
