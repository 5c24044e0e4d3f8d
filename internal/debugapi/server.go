package debugapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dep2p/go-upnpcp/internal/core/device"
	"github.com/dep2p/go-upnpcp/internal/core/subscribe"
	"github.com/dep2p/go-upnpcp/internal/util/logger"
)

var log = logger.Logger("upnpcp/debugapi")

// Backend 调试接口读取的控制点状态
type Backend interface {
	Devices() []*device.Device
	Device(udn string) *device.Device
	Subscriptions() []subscribe.Subscription
	Search(st string) error
}

// Config 服务配置
type Config struct {
	// Addr 监听地址
	Addr string

	// Metrics /metrics 处理器，为空时不注册
	Metrics http.Handler
}

// Server 调试 HTTP 服务
type Server struct {
	config  Config
	backend Backend

	server   *http.Server
	listener net.Listener

	running   bool
	startTime time.Time

	mu sync.Mutex
}

// New 创建调试服务
func New(cfg Config, backend Backend) *Server {
	return &Server{config: cfg, backend: backend}
}

// Router 构造路由
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)
	r.Use(accessLog)

	r.Get("/health", s.handleHealth)
	r.Get("/devices", s.handleDevices)
	r.Get("/devices/{udn}", s.handleDevice)
	r.Get("/subscriptions", s.handleSubscriptions)
	r.Post("/search", s.handleSearch)
	if s.config.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.config.Metrics)
	}
	r.Mount("/debug", middleware.Profiler())
	return r
}

// Start 启动服务
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("调试服务异常退出", "err", err)
		}
	}()

	s.running = true
	s.startTime = time.Now()
	log.Info("调试服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 停止服务
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.running = false
	if err := s.server.Shutdown(ctx); err != nil {
		log.Error("关闭调试服务失败", "err", err)
		return err
	}
	log.Info("调试服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// ============================================================================
//                              响应结构
// ============================================================================

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Devices int    `json:"devices"`
}

// SubscriptionInfo 订阅快照
type SubscriptionInfo struct {
	SID       string    `json:"sid"`
	DeviceUDN string    `json:"device_udn"`
	ServiceID string    `json:"service_id"`
	Timeout   string    `json:"timeout"`
	Expiry    time.Time `json:"expiry"`
	KeepRenew bool      `json:"keep_renew"`
}

// SearchResponse 搜索响应
type SearchResponse struct {
	ST string `json:"st"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

// ============================================================================
//                              处理器
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	uptime := time.Since(s.startTime)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Uptime:  uptime.Round(time.Second).String(),
		Devices: len(s.backend.Devices()),
	})
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.backend.Devices()
	out := make([]device.Info, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.Info())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	d := s.backend.Device(chi.URLParam(r, "udn"))
	if d == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "device not found"})
		return
	}
	writeJSON(w, http.StatusOK, d.Info())
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, _ *http.Request) {
	subs := s.backend.Subscriptions()
	out := make([]SubscriptionInfo, 0, len(subs))
	for _, sub := range subs {
		info := SubscriptionInfo{
			SID:       sub.SID,
			Timeout:   sub.Timeout.String(),
			Expiry:    sub.Expiry,
			KeepRenew: sub.KeepRenew,
		}
		if sub.Service != nil {
			info.ServiceID = sub.Service.ServiceID()
			info.DeviceUDN = sub.Service.Device().UDN()
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	st := r.URL.Query().Get("st")
	if err := s.backend.Search(st); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, SearchResponse{ST: st})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Debug("写出响应失败", "err", err)
	}
}

// accessLog 每个请求一行调试日志
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}
