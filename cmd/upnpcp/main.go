// Package main 提供 upnpcp 命令行入口
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dep2p/go-upnpcp"
	"github.com/dep2p/go-upnpcp/config"
	"github.com/dep2p/go-upnpcp/internal/util/logger"
)

var log = logger.Logger("upnpcp/cmd")

// 构建时通过 -ldflags "-X main.version=..." 注入
var version = "dev"

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
//   命令行参数：这次运行的覆盖项（协议栈、网卡、搜索目标）
//   配置文件：长期使用的配置（超时、订阅、固定设备、调试接口）
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	// ─────────────────────────────────────────────────────────────────────
	// 运行参数
	// ─────────────────────────────────────────────────────────────────────
	configFile = flag.String("config", "", "配置文件路径（.json / .yaml）")
	protocol   = flag.String("protocol", "", "协议栈模式 (ipv4/ipv6/dual)")
	ifaces     = flag.String("iface", "", "使用的网卡，逗号分隔")
	target     = flag.String("st", "", "M-SEARCH 搜索目标（默认 ssdp:all）")
	duration   = flag.Duration("duration", 0, "运行时长，0 表示直到 Ctrl+C")
	interval   = flag.Duration("interval", 0, "重复搜索间隔，0 表示只搜索一次")
	subscribe  = flag.Bool("subscribe", false, "订阅发现设备的全部服务")
	pin        = flag.String("pin", "", "固定设备描述地址，逗号分隔")
	debugAddr  = flag.String("debug-addr", "", "调试接口监听地址，如 127.0.0.1:8090")

	// ─────────────────────────────────────────────────────────────────────
	// 信息显示
	// ─────────────────────────────────────────────────────────────────────
	showVersion = flag.Bool("version", false, "显示版本信息")
	showHelp    = flag.Bool("help", false, "显示帮助信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Printf("upnpcp %s\n", version)
		return nil
	}
	if *showHelp {
		printHelp()
		return nil
	}

	opts, err := buildOptions()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	cp, err := upnpcp.New(opts...)
	if err != nil {
		return fmt.Errorf("创建控制点失败: %w", err)
	}

	p := &printer{subscribe: *subscribe}
	cp.AddDiscoveryListener(p)
	cp.AddNotifyEventListener(p)

	ctx, cancel := signalContext(*duration)
	defer cancel()

	log.Info("启动 upnpcp", "version", version)
	if err := cp.Start(ctx); err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = cp.Stop() }()

	printInfo(cp)
	search(ctx, cp)

	<-ctx.Done()
	fmt.Println("\n正在关闭控制点...")
	return nil
}

// buildOptions 构建控制点选项
//
// 优先级从高到低：命令行参数、环境变量（UPNPCP_* 前缀）、配置文件、默认值。
func buildOptions() ([]upnpcp.Option, error) {
	cfg := config.NewConfig()
	if *configFile != "" {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
		cfg = loaded
	}
	applyEnvOverrides(cfg)

	if *protocol != "" {
		cfg.SSDP.Protocol = *protocol
	}
	if *ifaces != "" {
		cfg.SSDP.Interfaces = splitAndTrim(*ifaces, ",")
	}
	if *target != "" {
		cfg.SSDP.SearchTarget = *target
	}
	if *pin != "" {
		cfg.Discovery.Pinned = append(cfg.Discovery.Pinned, splitAndTrim(*pin, ",")...)
	}
	if *debugAddr != "" {
		cfg.Debug.Listen = *debugAddr
	}
	if *subscribe {
		cfg.Subscribe.Enable = true
	}

	return []upnpcp.Option{upnpcp.WithConfig(cfg)}, nil
}

// signalContext 在收到 SIGINT / SIGTERM 或运行时长到期时取消
func signalContext(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, func() {
		cancel()
		stop()
	}
}

// search 发送首次搜索，设置了间隔时按间隔重复
func search(ctx context.Context, cp *upnpcp.ControlPoint) {
	if err := cp.Search(""); err != nil {
		log.Warn("搜索失败", "err", err)
		return
	}
	if *interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cp.Search(""); err != nil {
					log.Warn("搜索失败", "err", err)
				}
			}
		}
	}()
}

// ============================================================================
//                              输出
// ============================================================================

// printer 把发现与事件输出到终端
type printer struct {
	subscribe bool
	mu        sync.Mutex
}

func (p *printer) OnDiscover(d *upnpcp.Device) {
	p.mu.Lock()
	fmt.Printf("+ %s  %s\n", d.FriendlyName(), d.UDN())
	fmt.Printf("    type:     %s\n", d.DeviceType())
	fmt.Printf("    location: %s\n", d.Location())
	for _, s := range d.AllServices() {
		fmt.Printf("    service:  %s\n", s.ServiceType())
	}
	p.mu.Unlock()

	if !p.subscribe {
		return
	}
	for _, s := range d.AllServices() {
		s := s
		s.SubscribeAsync(true, func(ok bool) {
			if !ok {
				log.Warn("订阅失败", "udn", s.Device().UDN(), "service", s.ServiceID())
			}
		})
	}
}

func (p *printer) OnLost(d *upnpcp.Device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Printf("- %s  %s\n", d.FriendlyName(), d.UDN())
}

func (p *printer) OnNotifyEvent(s *upnpcp.Service, seq int64, variable, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Printf("* %s %s #%d  %s = %s\n", s.Device().FriendlyName(), s.ServiceID(), seq, variable, value)
}

// printInfo 输出启动信息
func printInfo(cp *upnpcp.ControlPoint) {
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("  upnpcp %s\n", version)
	if port := cp.EventPort(); port > 0 {
		fmt.Printf("  事件端口: %d\n", port)
	}
	if addr := cp.DebugAddr(); addr != "" {
		fmt.Printf("  调试接口: http://%s/\n", addr)
	}
	fmt.Println("═══════════════════════════════════════════════════════════════")
}

func printHelp() {
	fmt.Println(`upnpcp - UPnP 控制点

用法:
  upnpcp [选项]

示例:
  upnpcp -st urn:schemas-upnp-org:device:MediaServer:1 -duration 30s
  upnpcp -protocol ipv4 -iface eth0 -subscribe
  upnpcp -pin http://192.168.1.10:8200/rootDesc.xml -debug-addr 127.0.0.1:8090

环境变量:
  UPNPCP_PROTOCOL      协议栈模式
  UPNPCP_INTERFACES    网卡，逗号分隔
  UPNPCP_PINNED        固定设备地址，逗号分隔
  UPNPCP_DEBUG_LISTEN  调试接口监听地址
  UPNPCP_LOG_LEVEL     日志级别，如 info 或 upnp/ssdp=debug,info
  UPNPCP_LOG_FORMAT    日志格式 (text/json)

选项:`)
	flag.PrintDefaults()
	fmt.Println(strings.Repeat("─", 63))
}
