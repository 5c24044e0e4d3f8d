// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 或 YAML 加载配置
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.SSDP.Protocol = "ipv4"
//	cfg.Subscribe.Timeout = config.Duration(10 * time.Minute)
//
//	// 从文件加载（按扩展名选择 JSON 或 YAML）
//	cfg, err := config.LoadFile("upnpcp.yaml")
package config

// Config 是 upnpcp 的完整配置结构
//
//   - SSDP: 发现传输（协议栈、网卡、网段检查）
//   - HTTP: HTTP 客户端
//   - Event: 事件接收服务器
//   - Subscribe: 订阅与续期
//   - Discovery: 已发现设备的过期与加载
//   - Executor: 任务执行器
//   - Debug: 调试 HTTP 接口
//   - Product: User-Agent / Server 头使用的产品信息
type Config struct {
	// SSDP 发现传输配置
	SSDP SSDPConfig `json:"ssdp" yaml:"ssdp"`

	// HTTP HTTP 客户端配置
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Event 事件接收配置
	Event EventConfig `json:"event" yaml:"event"`

	// Subscribe 订阅配置
	Subscribe SubscribeConfig `json:"subscribe" yaml:"subscribe"`

	// Discovery 设备发现配置
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery"`

	// Executor 任务执行器配置
	Executor ExecutorConfig `json:"executor" yaml:"executor"`

	// Debug 调试接口配置
	Debug DebugConfig `json:"debug" yaml:"debug"`

	// Product 产品信息
	Product Product `json:"product" yaml:"product"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		SSDP:      DefaultSSDPConfig(),
		HTTP:      DefaultHTTPConfig(),
		Event:     DefaultEventConfig(),
		Subscribe: DefaultSubscribeConfig(),
		Discovery: DefaultDiscoveryConfig(),
		Executor:  DefaultExecutorConfig(),
		Debug:     DefaultDebugConfig(),
		Product:   DefaultProduct(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if err := c.SSDP.Validate(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.Event.Validate(); err != nil {
		return err
	}
	if err := c.Subscribe.Validate(); err != nil {
		return err
	}
	if err := c.Discovery.Validate(); err != nil {
		return err
	}
	if err := c.Executor.Validate(); err != nil {
		return err
	}
	if err := c.Debug.Validate(); err != nil {
		return err
	}
	return c.Product.Validate()
}
