package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/coachtinho/led/internal/protocol/magichome"
)

// DeviceConfig 控制器连接配置
type DeviceConfig struct {
	Address       string        `mapstructure:"address"`
	Port          int           `mapstructure:"port"`
	DialTimeout   time.Duration `mapstructure:"dialTimeout"`
	IOTimeout     time.Duration `mapstructure:"ioTimeout"`
	ChannelOrder  string        `mapstructure:"channelOrder"`
	EffectPowerOn bool          `mapstructure:"effectPowerOn"`
}

// PresetsConfig 预设文件配置
type PresetsConfig struct {
	File string `mapstructure:"file"`
}

// RateLimitConfig HTTP 桥接按客户端限流
type RateLimitConfig struct {
	PerSecond int `mapstructure:"perSecond"`
	Burst     int `mapstructure:"burst"`
}

// BreakerConfig 控制器熔断配置，Threshold 为 0 时关闭
type BreakerConfig struct {
	Threshold int           `mapstructure:"threshold"`
	Cooldown  time.Duration `mapstructure:"cooldown"`
}

// HTTPConfig HTTP 桥接服务配置
type HTTPConfig struct {
	Addr         string          `mapstructure:"addr"`
	ReadTimeout  time.Duration   `mapstructure:"readTimeout"`
	WriteTimeout time.Duration   `mapstructure:"writeTimeout"`
	RateLimit    RateLimitConfig `mapstructure:"rateLimit"`
	MaxSessions  int             `mapstructure:"maxSessions"` // 同时打开的控制器会话上限
	SessionWait  time.Duration   `mapstructure:"sessionWait"` // 等待会话许可的超时
	Breaker      BreakerConfig   `mapstructure:"breaker"`
}

// LumberjackConfig 日志滚动（lumberjack）配置，Filename 为空时不写文件
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// Config 顶层配置结构
type Config struct {
	Device  DeviceConfig  `mapstructure:"device"`
	Presets PresetsConfig `mapstructure:"presets"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// flagKeys 命令行参数 -> 配置键
var flagKeys = map[string]string{
	"address":       "device.address",
	"port":          "device.port",
	"channel-order": "device.channelOrder",
	"presets":       "presets.file",
	"log-level":     "logging.level",
	"http-addr":     "http.addr",
}

// Load 从 YAML/TOML/JSON 文件、环境变量与命令行参数加载配置。
// 若 path 为空，则尝试环境变量 LED_CONFIG；否则查找 ./led.yaml 或 ./configs/led.yaml。
// flags 可为 nil；已设置的参数优先级最高。
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv("LED_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("led")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	// 环境变量覆盖：前缀 LED_，并将点号替换为下划线
	v.SetEnvPrefix("LED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// 允许缺少配置文件，依赖默认值、环境变量与参数
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验取值范围
func (c *Config) Validate() error {
	if c.Device.Port < 0 || c.Device.Port > 65535 {
		return fmt.Errorf("device.port out of range: %d", c.Device.Port)
	}
	if _, err := magichome.ParseChannelOrder(c.Device.ChannelOrder); err != nil {
		return fmt.Errorf("device.channelOrder: %w", err)
	}
	if c.HTTP.MaxSessions < 0 {
		return errors.New("http.maxSessions must not be negative")
	}
	if c.HTTP.RateLimit.PerSecond < 0 || c.HTTP.RateLimit.Burst < 0 {
		return errors.New("http.rateLimit values must not be negative")
	}
	if c.HTTP.Breaker.Threshold < 0 {
		return errors.New("http.breaker.threshold must not be negative")
	}
	return nil
}

// Order 解析后的通道顺序（Validate 之后调用）
func (d DeviceConfig) Order() magichome.ChannelOrder {
	o, _ := magichome.ParseChannelOrder(d.ChannelOrder)
	return o
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.address", "")
	v.SetDefault("device.port", magichome.DefaultPort)
	v.SetDefault("device.dialTimeout", "5s")
	v.SetDefault("device.ioTimeout", "5s")
	v.SetDefault("device.channelOrder", string(magichome.OrderRGB))
	v.SetDefault("device.effectPowerOn", true)

	v.SetDefault("presets.file", "")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")
	v.SetDefault("http.rateLimit.perSecond", 5)
	v.SetDefault("http.rateLimit.burst", 10)
	v.SetDefault("http.maxSessions", 1)
	v.SetDefault("http.sessionWait", "5s")
	v.SetDefault("http.breaker.threshold", 3)
	v.SetDefault("http.breaker.cooldown", "10s")

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 10)
	v.SetDefault("logging.file.maxBackups", 3)
	v.SetDefault("logging.file.maxAge", 7)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")
}
