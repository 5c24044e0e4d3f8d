package ssdp

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-upnpcp/internal/core/executor"
	"github.com/dep2p/go-upnpcp/internal/util/logger"
)

var log = logger.Logger("upnp/ssdp")

const (
	// maxDatagramSize 接收缓冲区大小
	maxDatagramSize = 1500

	// 读取失败后的退避区间，接收循环只在套接字关闭后退出
	minReadBackoff = 5 * time.Millisecond
	maxReadBackoff = 100 * time.Millisecond
)

// transport NotifyReceiver 与 SearchServer 共用的套接字与接收循环
type transport struct {
	binding Binding
	port    int
	join    bool
	opts    Options
	handle  func(src netip.Addr, data []byte)

	// malformed 日志限流
	limiter *rate.Limiter

	mu   sync.Mutex
	conn packetConn
	done chan struct{}
	wg   sync.WaitGroup
}

func newTransport(b Binding, port int, join bool, opts Options) *transport {
	return &transport{
		binding: b,
		port:    port,
		join:    join,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// start 打开套接字并启动接收 goroutine，重复调用无效果
func (t *transport) start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return nil
	}

	conn, err := t.opts.factory()(ctx, t.binding, t.port, t.opts.ttl(), t.join)
	if err != nil {
		return err
	}
	t.conn = conn
	t.done = make(chan struct{})

	t.wg.Add(1)
	go t.receiveLoop(conn, t.done)

	log.Debug("SSDP 传输已启动", "binding", t.binding.String(), "local", conn.LocalAddr().String())
	return nil
}

// stop 关闭套接字，阻塞中的读取随之返回，然后等待接收 goroutine 退出
func (t *transport) stop() error {
	t.mu.Lock()
	conn, done := t.conn, t.done
	t.conn, t.done = nil, nil
	t.mu.Unlock()
	if conn == nil {
		return nil
	}

	close(done)
	err := conn.Close()
	t.wg.Wait()
	log.Debug("SSDP 传输已停止", "binding", t.binding.String())
	return err
}

// localAddr 返回套接字本地地址，未启动时为 nil
func (t *transport) localAddr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

// send 经 IO 执行器向组播组发送数据
func (t *transport) send(data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotStarted
	}

	dst := t.binding.Address.Group()
	task := func(context.Context) {
		if _, err := conn.WriteTo(data, dst); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Warn("发送 SSDP 数据报失败", "binding", t.binding.String(), "err", err)
		}
	}

	if t.opts.Executors == nil {
		task(context.Background())
		return nil
	}
	if !t.opts.Executors.IO().Execute(task) {
		return executor.ErrTerminated
	}
	return nil
}

func (t *transport) receiveLoop(conn packetConn, done <-chan struct{}) {
	defer t.wg.Done()

	buf := make([]byte, maxDatagramSize)
	var backoff time.Duration
	for {
		n, ifIndex, src, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if backoff == 0 {
				backoff = minReadBackoff
			} else {
				backoff = min(backoff*2, maxReadBackoff)
			}
			if t.limiter.Allow() {
				log.Warn("SSDP 读取失败，稍后重试", "binding", t.binding.String(), "err", err, "retry_in", backoff)
			}

			timer := time.NewTimer(backoff)
			select {
			case <-done:
				timer.Stop()
				return
			case <-timer.C:
			}
			continue
		}
		backoff = 0

		if ifIndex != 0 && t.binding.Iface != nil && ifIndex != t.binding.Iface.Index {
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		t.opts.received(t.binding.Address)
		t.handle(src, data)
	}
}

// parse 解析数据报，失败时记录（限流）并计入 malformed
func (t *transport) parse(src netip.Addr, data []byte) (*Message, bool) {
	m, err := Parse(data, t.binding.Prefix.Addr(), t.binding.ScopeID(), t.opts.now())
	if err != nil {
		t.opts.dropped(t.binding.Address, DropMalformed)
		if t.limiter.Allow() {
			log.Debug("丢弃无法解析的 SSDP 数据报", "src", src.String(), "err", err)
		}
		return nil, false
	}
	return m, true
}
