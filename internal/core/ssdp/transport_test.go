package ssdp

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-upnpcp/internal/core/executor"
	"github.com/dep2p/go-upnpcp/pkg/types"
)

// ============================================================================
//                              测试套接字
// ============================================================================

type datagram struct {
	data    []byte
	src     netip.Addr
	ifIndex int
}

type fakeConn struct {
	in     chan datagram
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	sent    [][]byte
	dsts    []netip.AddrPort
	readErr int
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan datagram, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadFrom(b []byte) (int, int, netip.Addr, error) {
	c.mu.Lock()
	if c.readErr > 0 {
		c.readErr--
		c.mu.Unlock()
		return 0, 0, netip.Addr{}, errors.New("recvmsg: connection refused")
	}
	c.mu.Unlock()

	select {
	case d := <-c.in:
		return copy(b, d.data), d.ifIndex, d.src, nil
	case <-c.closed:
		return 0, 0, netip.Addr{}, net.ErrClosed
	}
}

func (c *fakeConn) WriteTo(b []byte, dst netip.AddrPort) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, append([]byte(nil), b...))
	c.dsts = append(c.dsts, dst)
	return len(b), nil
}

func (c *fakeConn) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(192, 168, 0, 10), Port: 1900}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) deliver(src string, data string) {
	c.in <- datagram{data: []byte(data), src: netip.MustParseAddr(src)}
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// recorder 收集回调消息
type recorder struct {
	ch chan *Message
}

func newRecorder() *recorder { return &recorder{ch: make(chan *Message, 16)} }

func (r *recorder) listen(m *Message) { r.ch <- m }

func (r *recorder) expect(t *testing.T) *Message {
	t.Helper()
	select {
	case m := <-r.ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("未收到消息")
		return nil
	}
}

func (r *recorder) expectNone(t *testing.T) {
	t.Helper()
	select {
	case m := <-r.ch:
		t.Fatalf("不应收到消息: %s", m.StartLine())
	case <-time.After(50 * time.Millisecond):
	}
}

// countingObserver 记录丢弃原因
type countingObserver struct {
	mu       sync.Mutex
	received int
	dropped  []string
}

func (o *countingObserver) Received(Address) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.received++
}

func (o *countingObserver) Dropped(_ Address, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped = append(o.dropped, reason)
}

func (o *countingObserver) reasons() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.dropped...)
}

var (
	ipv4Binding = Binding{
		Address: AddressIPv4,
		Iface:   &net.Interface{Index: 2, Name: "eth0"},
		Prefix:  netip.MustParsePrefix("192.168.0.10/24"),
	}
	ipv6Binding = Binding{
		Address: AddressIPv6LinkLocal,
		Iface:   &net.Interface{Index: 2, Name: "eth0"},
		Prefix:  netip.MustParsePrefix("fe80::10/64"),
	}
)

func fakeOptions(conn *fakeConn, obs Observer) Options {
	opts := DefaultOptions()
	opts.Observer = obs
	opts.open = func(context.Context, Binding, int, int, bool) (packetConn, error) {
		return conn, nil
	}
	return opts
}

func startNotify(t *testing.T, b Binding, opts Options, rec *recorder) *NotifyReceiver {
	t.Helper()
	r := NewNotifyReceiver(b, opts, rec.listen)
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() { _ = r.Stop() })
	return r
}

// ============================================================================
//                              网段过滤测试
// ============================================================================

func TestSameSegment(t *testing.T) {
	tests := []struct {
		iface string
		addr  string
		want  bool
	}{
		{"192.168.0.1/24", "192.168.0.255", true},
		{"192.168.0.1/25", "192.168.0.255", false},
		{"192.168.0.1/23", "192.168.1.255", true},
		{"192.168.0.1/24", "192.168.1.1", false},
		{"192.168.0.1/24", "fe80::1", false},
		{"fe80::1/64", "fe80::2", true},
	}
	for _, tt := range tests {
		got := sameSegment(netip.MustParsePrefix(tt.iface), netip.MustParseAddr(tt.addr))
		assert.Equal(t, tt.want, got, "%s vs %s", tt.iface, tt.addr)
	}
}

func TestNotifyReceiver_InvalidSource(t *testing.T) {
	t.Run("IPv4 开启网段检查", func(t *testing.T) {
		r := NewNotifyReceiver(ipv4Binding, DefaultOptions(), nil)
		assert.False(t, r.invalidSource(netip.MustParseAddr("192.168.0.1")))
		assert.True(t, r.invalidSource(netip.MustParseAddr("192.168.1.1")))
		assert.True(t, r.invalidSource(netip.MustParseAddr("fe80::1")))
	})

	t.Run("IPv4 关闭网段检查", func(t *testing.T) {
		opts := DefaultOptions()
		opts.SegmentCheck = false
		r := NewNotifyReceiver(ipv4Binding, opts, nil)
		assert.False(t, r.invalidSource(netip.MustParseAddr("10.0.0.1")))
		assert.True(t, r.invalidSource(netip.MustParseAddr("2001:db8::1")))
	})

	t.Run("IPv6 只接受链路本地", func(t *testing.T) {
		opts := DefaultOptions()
		opts.SegmentCheck = false
		r := NewNotifyReceiver(ipv6Binding, opts, nil)
		assert.False(t, r.invalidSource(netip.MustParseAddr("fe80::abcd")))
		assert.True(t, r.invalidSource(netip.MustParseAddr("2001:db8::1")))
		assert.True(t, r.invalidSource(netip.MustParseAddr("192.168.0.1")))
	})
}

// ============================================================================
//                              NotifyReceiver 测试
// ============================================================================

func TestNotifyReceiver_Deliver(t *testing.T) {
	conn := newFakeConn()
	obs := &countingObserver{}
	rec := newRecorder()
	startNotify(t, ipv4Binding, fakeOptions(conn, obs), rec)

	conn.deliver("192.168.0.1", sampleNotify)
	m := rec.expect(t)
	assert.Equal(t, "uuid:01234567-89ab-cdef-0123-456789abcdef", m.UUID())
	assert.Equal(t, ipv4Binding.Prefix.Addr(), m.LocalAddr())
}

func TestNotifyReceiver_Filters(t *testing.T) {
	byebye := "NOTIFY * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"NT: upnp:rootdevice\r\n" +
		"NTS: ssdp:byebye\r\n" +
		"USN: uuid:01234567-89ab-cdef-0123-456789abcdef::upnp:rootdevice\r\n" +
		"\r\n"
	msearch := NewSearchRequest(AddressIPv4, "").String()

	tests := []struct {
		name   string
		src    string
		data   string
		accept bool
		reason string
	}{
		{"Location 与源地址不一致", "192.168.0.2", sampleNotify, false, DropLocation},
		{"M-SEARCH 被忽略", "192.168.0.1", msearch, false, DropMethod},
		{"搜索响应被忽略", "192.168.0.1", sampleResponse, false, DropMethod},
		{"无法解析", "192.168.0.1", "garbage", false, DropMalformed},
		{"其他网段", "10.0.0.1", sampleNotify, false, DropSegment},
		{"byebye 不检查 Location", "192.168.0.7", byebye, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn()
			obs := &countingObserver{}
			rec := newRecorder()
			startNotify(t, ipv4Binding, fakeOptions(conn, obs), rec)

			conn.deliver(tt.src, tt.data)
			if tt.accept {
				m := rec.expect(t)
				assert.Equal(t, NTSByebye, m.NTS())
				return
			}
			rec.expectNone(t)
			assert.Equal(t, []string{tt.reason}, obs.reasons())
		})
	}
}

func TestNotifyReceiver_IfIndexFilter(t *testing.T) {
	conn := newFakeConn()
	rec := newRecorder()
	startNotify(t, ipv4Binding, fakeOptions(conn, nil), rec)

	conn.in <- datagram{data: []byte(sampleNotify), src: netip.MustParseAddr("192.168.0.1"), ifIndex: 7}
	rec.expectNone(t)

	conn.in <- datagram{data: []byte(sampleNotify), src: netip.MustParseAddr("192.168.0.1"), ifIndex: 2}
	rec.expect(t)
}

func TestNotifyReceiver_IPv6(t *testing.T) {
	conn := newFakeConn()
	rec := newRecorder()
	startNotify(t, ipv6Binding, fakeOptions(conn, nil), rec)

	data := strings.Replace(sampleNotify, "http://192.168.0.1:8080", "http://[fe80::1]:8080", 1)
	conn.deliver("fe80::1", data)
	m := rec.expect(t)
	assert.Equal(t, 2, m.ScopeID())

	u, err := m.LocationURL()
	require.NoError(t, err)
	assert.Equal(t, "fe80::1%2", u.Hostname())
}

func TestNotifyReceiver_Order(t *testing.T) {
	conn := newFakeConn()
	rec := newRecorder()
	startNotify(t, ipv4Binding, fakeOptions(conn, nil), rec)

	for i := 0; i < 5; i++ {
		data := strings.Replace(sampleNotify, "max-age=300", "max-age="+string(rune('1'+i)), 1)
		conn.deliver("192.168.0.1", data)
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, i+1, rec.expect(t).MaxAge())
	}
}

func TestNotifyReceiver_StopUnblocks(t *testing.T) {
	conn := newFakeConn()
	r := NewNotifyReceiver(ipv4Binding, fakeOptions(conn, nil), nil)
	require.NoError(t, r.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		_ = r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop 未返回")
	}
	assert.Nil(t, r.LocalAddr())

	// 重复停止无效果
	assert.NoError(t, r.Stop())
}

func TestNotifyReceiver_ReadErrorsRecover(t *testing.T) {
	conn := newFakeConn()
	conn.readErr = 12
	rec := newRecorder()
	startNotify(t, ipv4Binding, fakeOptions(conn, nil), rec)

	// 连续读错误只退避，不退出接收循环
	conn.deliver("192.168.0.1", sampleNotify)
	m := rec.expect(t)
	assert.Equal(t, NTSAlive, m.NTS())

	t.Run("退避期间停止", func(t *testing.T) {
		conn := newFakeConn()
		conn.readErr = 1000
		r := NewNotifyReceiver(ipv4Binding, fakeOptions(conn, nil), nil)
		require.NoError(t, r.Start(context.Background()))
		time.Sleep(50 * time.Millisecond)

		done := make(chan struct{})
		go func() {
			_ = r.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Stop 未返回")
		}
	})
}

// ============================================================================
//                              SearchServer 测试
// ============================================================================

func TestSearchServer_Search(t *testing.T) {
	conn := newFakeConn()
	opts := fakeOptions(conn, nil)
	opts.Executors = executor.NewDirectExecutors()
	s := NewSearchServer(ipv4Binding, opts, nil)

	assert.ErrorIs(t, s.Search(""), ErrNotStarted)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.NoError(t, s.Search(STRootDevice))
	require.Equal(t, 1, conn.sentCount())
	assert.Contains(t, string(conn.sent[0]), "ST: upnp:rootdevice\r\n")
	assert.Equal(t, AddressIPv4.Group(), conn.dsts[0])
}

func TestSearchServer_Responses(t *testing.T) {
	conn := newFakeConn()
	obs := &countingObserver{}
	rec := newRecorder()
	s := NewSearchServer(ipv4Binding, fakeOptions(conn, obs), rec.listen)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	t.Run("其他网段的响应也接受", func(t *testing.T) {
		data := strings.Replace(sampleResponse, "192.168.0.1", "10.0.0.1", 1)
		conn.deliver("10.0.0.1", data)
		m := rec.expect(t)
		assert.Equal(t, KindResponse, m.Kind)
	})

	t.Run("Location 与源地址不一致", func(t *testing.T) {
		conn.deliver("192.168.0.99", sampleResponse)
		rec.expectNone(t)
	})

	t.Run("NOTIFY 被忽略", func(t *testing.T) {
		conn.deliver("192.168.0.1", sampleNotify)
		rec.expectNone(t)
	})

	assert.Equal(t, []string{DropLocation, DropMethod}, obs.reasons())
}

func TestSearchServer_TerminatedExecutor(t *testing.T) {
	conn := newFakeConn()
	opts := fakeOptions(conn, nil)
	opts.Executors = executor.New(executor.DefaultConfig())
	opts.Executors.Terminate()

	s := NewSearchServer(ipv4Binding, opts, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.ErrorIs(t, s.Search(""), executor.ErrTerminated)
}

// ============================================================================
//                              列表测试
// ============================================================================

func TestSearchServerList(t *testing.T) {
	conns := map[Address]*fakeConn{
		AddressIPv4:          newFakeConn(),
		AddressIPv6LinkLocal: newFakeConn(),
	}
	opts := DefaultOptions()
	opts.open = func(_ context.Context, b Binding, _, _ int, _ bool) (packetConn, error) {
		return conns[b.Address], nil
	}

	l := NewSearchServerList([]Binding{ipv4Binding, ipv6Binding}, opts, nil)
	require.NoError(t, l.Start(context.Background()))
	assert.Len(t, l.Servers(), 2)

	require.NoError(t, l.Search(""))
	assert.Equal(t, 1, conns[AddressIPv4].sentCount())
	assert.Equal(t, 1, conns[AddressIPv6LinkLocal].sentCount())
	assert.Equal(t, AddressIPv6LinkLocal.Group(), conns[AddressIPv6LinkLocal].dsts[0])

	assert.NoError(t, l.Stop())
	assert.Empty(t, l.Servers())
}

func TestNotifyReceiverList_PartialFailure(t *testing.T) {
	conn := newFakeConn()
	opts := DefaultOptions()
	opts.open = func(_ context.Context, b Binding, _, _ int, _ bool) (packetConn, error) {
		if b.Address == AddressIPv6LinkLocal {
			return nil, assert.AnError
		}
		return conn, nil
	}

	l := NewNotifyReceiverList([]Binding{ipv4Binding, ipv6Binding}, opts, nil)
	require.NoError(t, l.Start(context.Background()))
	require.Len(t, l.Receivers(), 1)
	assert.Equal(t, AddressIPv4, l.Receivers()[0].Binding().Address)
	assert.NoError(t, l.Stop())
}

func TestNotifyReceiverList_AllFail(t *testing.T) {
	opts := DefaultOptions()
	opts.open = func(context.Context, Binding, int, int, bool) (packetConn, error) {
		return nil, assert.AnError
	}

	l := NewNotifyReceiverList([]Binding{ipv4Binding, ipv6Binding}, opts, nil)
	assert.ErrorIs(t, l.Start(context.Background()), assert.AnError)
	assert.Empty(t, l.Receivers())

	empty := NewNotifyReceiverList(nil, opts, nil)
	assert.ErrorIs(t, empty.Start(context.Background()), ErrNoInterface)
}

// ============================================================================
//                              绑定测试
// ============================================================================

func TestBindingsForInterface(t *testing.T) {
	ifi := &net.Interface{Index: 3, Name: "wlan0", Flags: net.FlagUp | net.FlagMulticast}
	addrs := []net.Addr{
		&net.IPNet{IP: net.ParseIP("2001:db8::5"), Mask: net.CIDRMask(64, 128)},
		&net.IPNet{IP: net.ParseIP("fe80::5"), Mask: net.CIDRMask(64, 128)},
		&net.IPNet{IP: net.ParseIP("192.168.1.5").To4(), Mask: net.CIDRMask(24, 32)},
	}

	t.Run("双栈", func(t *testing.T) {
		got := bindingsForInterface(types.ProtocolDualStack, ifi, addrs)
		require.Len(t, got, 2)
		assert.Equal(t, netip.MustParsePrefix("192.168.1.5/24"), got[0].Prefix)
		assert.Equal(t, netip.MustParsePrefix("fe80::5/64"), got[1].Prefix)
		assert.Equal(t, 3, got[1].ScopeID())
		assert.Equal(t, 0, got[0].ScopeID())
	})

	t.Run("绑定地址", func(t *testing.T) {
		got := bindingsForInterface(types.ProtocolDualStack, ifi, addrs)
		assert.Equal(t, ":1900", got[0].bindAddr(Port))
		assert.Equal(t, "192.168.1.5:0", got[0].bindAddr(0))
		assert.Equal(t, "[fe80::5%wlan0]:0", got[1].bindAddr(0))
	})

	t.Run("回环网卡不可用", func(t *testing.T) {
		lo := &net.Interface{Flags: net.FlagUp | net.FlagMulticast | net.FlagLoopback}
		assert.False(t, usableInterface(lo))
		assert.True(t, usableInterface(ifi))
	})
}
