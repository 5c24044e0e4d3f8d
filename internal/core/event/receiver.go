package event

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-upnpcp/internal/core/executor"
	"github.com/dep2p/go-upnpcp/internal/core/httpmsg"
	"github.com/dep2p/go-upnpcp/internal/util/logger"
	"github.com/dep2p/go-upnpcp/pkg/types"
)

var log = logger.Logger("upnp/event")

// Listener 事件回调
//
// 返回 false 表示不再关心该订阅（例如 SID 未知），服务器响应 412。
type Listener func(sid string, seq int64, properties []types.Property) bool

// Observer 记录每个请求的响应状态码
type Observer func(status int)

// Config 接收服务器配置
type Config struct {
	// Port 监听端口，0 表示随机端口
	Port int

	// ReadTimeout 读取请求的超时
	ReadTimeout time.Duration

	// ServerName Server 响应头
	ServerName string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{ReadTimeout: 10 * time.Second}
}

// Receiver GENA 事件接收服务器
type Receiver struct {
	cfg       Config
	executors *executor.Executors
	listener  atomic.Pointer[Listener]
	observer  Observer

	mu   sync.Mutex
	ln   net.Listener
	done chan struct{}
	wg   sync.WaitGroup
}

const (
	// 接受连接失败后的退避区间
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// NewReceiver 创建接收服务器，listener 可为空并在之后通过 SetListener 设置
func NewReceiver(cfg Config, executors *executor.Executors, listener Listener) *Receiver {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultConfig().ReadTimeout
	}
	r := &Receiver{cfg: cfg, executors: executors}
	r.SetListener(listener)
	return r
}

// SetListener 设置事件回调
func (r *Receiver) SetListener(l Listener) {
	if l == nil {
		r.listener.Store(nil)
		return
	}
	r.listener.Store(&l)
}

// SetObserver 设置状态码观察者，须在 Start 之前调用
func (r *Receiver) SetObserver(o Observer) {
	r.observer = o
}

// Start 绑定端口并启动接受循环
func (r *Receiver) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ln != nil {
		return ErrAlreadyStarted
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", r.cfg.Port))
	if err != nil {
		return fmt.Errorf("event: listen: %w", err)
	}
	r.serveLocked(ln)

	log.Info("事件接收服务器已启动", "addr", ln.Addr().String())
	return nil
}

// serveLocked 在 ln 上启动接受循环，调用方持有 mu
func (r *Receiver) serveLocked(ln net.Listener) {
	r.ln = ln
	r.done = make(chan struct{})
	r.wg.Add(1)
	go r.acceptLoop(ln, r.done)
}

// Stop 关闭监听套接字并等待接受循环退出，进行中的 Accept 随之返回
func (r *Receiver) Stop() error {
	r.mu.Lock()
	ln, done := r.ln, r.done
	r.ln, r.done = nil, nil
	r.mu.Unlock()
	if ln == nil {
		return nil
	}

	close(done)
	err := ln.Close()
	r.wg.Wait()
	log.Info("事件接收服务器已停止")
	return err
}

// LocalPort 返回监听端口，未启动时为 0
func (r *Receiver) LocalPort() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ln == nil {
		return 0
	}
	if addr, ok := r.ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// acceptLoop 只在监听套接字关闭后退出，其余 Accept 错误退避后重试
func (r *Receiver) acceptLoop(ln net.Listener, done <-chan struct{}) {
	defer r.wg.Done()
	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if backoff == 0 {
				backoff = minAcceptBackoff
			} else {
				backoff = min(backoff*2, maxAcceptBackoff)
			}
			log.Warn("接受连接失败，稍后重试", "err", err, "retry_in", backoff)

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
		if !r.dispatch(conn) {
			_ = conn.Close()
		}
	}
}

func (r *Receiver) dispatch(conn net.Conn) bool {
	task := func(ctx context.Context) { r.serve(ctx, conn) }
	if r.executors == nil {
		go task(context.Background())
		return true
	}
	return r.executors.IO().Execute(task)
}

// serve 处理一个连接：读取请求、校验、响应、关闭
func (r *Receiver) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	_ = conn.SetDeadline(time.Now().Add(r.cfg.ReadTimeout))
	req, err := httpmsg.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		log.Debug("读取 NOTIFY 请求失败", "remote", conn.RemoteAddr().String(), "err", err)
		return
	}

	status := r.handle(req)
	if r.observer != nil {
		r.observer(status)
	}

	resp := httpmsg.NewResponse(status)
	resp.Version = httpmsg.HTTP11
	if r.cfg.ServerName != "" {
		resp.Header.Set(httpmsg.HeaderServer, r.cfg.ServerName)
	}
	resp.Header.Set(httpmsg.HeaderDate, httpmsg.FormatDate(time.Now()))
	resp.Header.Set(httpmsg.HeaderConnection, httpmsg.ValueClose)
	resp.Header.Set(httpmsg.HeaderContentLength, "0")
	if err := resp.Write(conn); err != nil {
		log.Debug("写出响应失败", "remote", conn.RemoteAddr().String(), "err", err)
	}
}

// handle 校验请求并调用回调，返回响应状态码
func (r *Receiver) handle(req *httpmsg.Request) int {
	if req.Method != httpmsg.MethodNotify {
		return http.StatusBadRequest
	}
	if req.Header.Get(httpmsg.HeaderNT) != httpmsg.ValueUPnPEvent ||
		req.Header.Get(httpmsg.HeaderNTS) != httpmsg.ValueUPnPPropChange {
		return http.StatusPreconditionFailed
	}
	sid := req.Header.Get(httpmsg.HeaderSID)
	if sid == "" {
		return http.StatusPreconditionFailed
	}

	seq := parseSeq(req.Header.Get(httpmsg.HeaderSEQ))
	props := ParseProperties(req.Body())

	l := r.listener.Load()
	if l == nil || !(*l)(sid, seq, props) {
		return http.StatusPreconditionFailed
	}
	return http.StatusOK
}

func parseSeq(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
