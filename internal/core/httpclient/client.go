// Package httpclient 实现带连接复用与有限重定向的 HTTP/1.x 客户端
//
// 客户端最多持有一个连接，不是并发安全的；需要在多个 goroutine
// 间共享时由调用方加锁。
package httpclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"time"

	"github.com/dep2p/go-upnpcp/internal/core/httpmsg"
	"github.com/dep2p/go-upnpcp/internal/util/logger"
)

var log = logger.Logger("upnp/http")

const (
	// DefaultTimeout 默认读写超时
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRedirects 默认最多跟随的重定向次数
	DefaultMaxRedirects = 5
)

// DialFunc 建立 TCP 连接
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Observer 请求结果观察者，用于统计
type Observer func(method string, err error)

// Client HTTP 客户端
type Client struct {
	keepAlive    bool
	timeout      time.Duration
	maxRedirects int
	userAgent    string
	dial         DialFunc
	observer     Observer

	conn   net.Conn
	reader *bufio.Reader
}

// Option 客户端选项
type Option func(*Client)

// WithKeepAlive 设置是否复用连接
func WithKeepAlive(keepAlive bool) Option {
	return func(c *Client) { c.keepAlive = keepAlive }
}

// WithTimeout 设置单次交换的读写超时
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRedirects 设置最多跟随的重定向次数
func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRedirects = n
		}
	}
}

// WithUserAgent 设置 User-Agent
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithDialer 设置拨号函数
func WithDialer(dial DialFunc) Option {
	return func(c *Client) {
		if dial != nil {
			c.dial = dial
		}
	}
}

// WithObserver 设置请求结果观察者
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New 创建客户端，默认复用连接
func New(opts ...Option) *Client {
	d := &net.Dialer{Timeout: DefaultTimeout}
	c := &Client{
		keepAlive:    true,
		timeout:      DefaultTimeout,
		maxRedirects: DefaultMaxRedirects,
		dial:         d.DialContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// KeepAlive 是否复用连接
func (c *Client) KeepAlive() bool {
	return c.keepAlive
}

// LocalAddr 当前连接的本地地址，无连接时返回 nil
func (c *Client) LocalAddr() net.Addr {
	if c.conn == nil {
		return nil
	}
	return c.conn.LocalAddr()
}

// Close 关闭当前连接
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn, c.reader = nil, nil
	return err
}

// ============================================================================
//                              请求
// ============================================================================

// Post 发送请求并返回响应
//
// 重定向响应会以 GET 跟随 Location，超过上限返回 ErrTooManyRedirects；
// 重定向缺少 Location 时原样返回该响应。
func (c *Client) Post(ctx context.Context, req *httpmsg.Request) (*httpmsg.Response, error) {
	resp, err := c.post(ctx, req, 0)
	if c.observer != nil {
		c.observer(req.Method, err)
	}
	return resp, err
}

func (c *Client) post(ctx context.Context, req *httpmsg.Request, depth int) (*httpmsg.Response, error) {
	resp, err := c.exchange(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.IsRedirect() {
		return resp, nil
	}

	location := resp.Header.Get(httpmsg.HeaderLocation)
	if location == "" {
		return resp, nil
	}
	if depth >= c.maxRedirects {
		return nil, fmt.Errorf("%w: %d hops, last %s", ErrTooManyRedirects, depth, location)
	}

	base := "http://" + req.Address() + req.URI
	u, err := httpmsg.AbsoluteURL(base, location, 0)
	if err != nil {
		return nil, fmt.Errorf("redirect location %q: %w", location, err)
	}
	next := httpmsg.NewRequest(httpmsg.MethodGet)
	if err := next.SetURL(u, true); err != nil {
		return nil, err
	}
	log.Debug("跟随重定向", "status", resp.StatusCode, "location", u.String(), "depth", depth+1)
	return c.post(ctx, next, depth+1)
}

// Download 以 GET 获取资源，状态必须为 200，主体可以为空
func (c *Client) Download(ctx context.Context, u *url.URL) (*httpmsg.Response, error) {
	req := httpmsg.NewRequest(httpmsg.MethodGet)
	if err := req.SetURL(u, true); err != nil {
		return nil, err
	}
	resp, err := c.Post(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Reason: resp.Reason}
	}
	return resp, nil
}

// DownloadString 以文本形式下载
func (c *Client) DownloadString(ctx context.Context, u *url.URL) (string, error) {
	resp, err := c.Download(ctx, u)
	if err != nil {
		return "", err
	}
	text, ok := resp.BodyString()
	if !ok {
		return "", ErrNotText
	}
	return text, nil
}

// DownloadBytes 以字节形式下载
func (c *Client) DownloadBytes(ctx context.Context, u *url.URL) ([]byte, error) {
	resp, err := c.Download(ctx, u)
	if err != nil {
		return nil, err
	}
	if body := resp.Body(); body != nil {
		return body, nil
	}
	return []byte{}, nil
}

// ============================================================================
//                              连接管理
// ============================================================================

// CanReuse 当前连接是否可用于该请求
//
// 连接存在且远端地址与端口和请求目标完全一致时才可复用。
func (c *Client) CanReuse(req *httpmsg.Request) bool {
	if c.conn == nil {
		return false
	}
	remote, ok := c.conn.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return false
	}
	target, err := netip.ParseAddrPort(req.Address())
	if err != nil {
		return c.matchesHostname(remote, req.Address())
	}
	return addrPortEqual(remote.AddrPort(), target)
}

// matchesHostname 目标为主机名时，比较解析结果
func (c *Client) matchesHostname(remote *net.TCPAddr, hostport string) bool {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return false
	}
	tcp, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return false
	}
	return addrPortEqual(remote.AddrPort(), tcp.AddrPort())
}

func addrPortEqual(a, b netip.AddrPort) bool {
	return a.Port() == b.Port() && a.Addr().Unmap() == b.Addr().Unmap()
}

func (c *Client) exchange(ctx context.Context, req *httpmsg.Request) (*httpmsg.Response, error) {
	if req.Address() == "" {
		return nil, httpmsg.ErrInvalidURL
	}

	reused := c.CanReuse(req)
	if !reused {
		c.Close()
		if err := c.connect(ctx, req.Address()); err != nil {
			return nil, err
		}
	}

	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		c.Close()
		if !reused || ctx.Err() != nil {
			return nil, err
		}
		// 服务端可能已关闭保持的连接，换新连接重试一次
		log.Debug("复用连接失败，重新连接", "addr", req.Address(), "err", err)
		if err := c.connect(ctx, req.Address()); err != nil {
			return nil, err
		}
		if resp, err = c.roundTrip(ctx, req); err != nil {
			c.Close()
			return nil, err
		}
	}

	if !c.keepAlive || !resp.IsKeepAlive() {
		c.Close()
	}
	return resp, nil
}

func (c *Client) connect(ctx context.Context, address string) error {
	conn, err := c.dial(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("connect %s: %w", address, err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

func (c *Client) roundTrip(ctx context.Context, req *httpmsg.Request) (*httpmsg.Response, error) {
	conn := c.conn
	if conn == nil {
		return nil, ErrClosed
	}

	if c.userAgent != "" {
		if _, ok := req.Header.Lookup(httpmsg.HeaderUserAgent); !ok {
			req.Header.Set(httpmsg.HeaderUserAgent, c.userAgent)
		}
	}
	if c.keepAlive {
		req.Header.Set(httpmsg.HeaderConnection, httpmsg.ValueKeepAlive)
	} else {
		req.Header.Set(httpmsg.HeaderConnection, httpmsg.ValueClose)
	}

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}
	// ctx 取消时让阻塞中的读写立即返回
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := req.Write(conn); err != nil {
		return nil, ctxErr(ctx, fmt.Errorf("write request: %w", err))
	}
	resp, err := httpmsg.ReadResponse(c.reader)
	if err != nil {
		return nil, ctxErr(ctx, fmt.Errorf("read response: %w", err))
	}
	return resp, nil
}

func ctxErr(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return errors.Join(cerr, err)
	}
	return err
}
