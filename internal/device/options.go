package device

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/coachtinho/led/internal/metrics"
	"github.com/coachtinho/led/internal/protocol/magichome"
)

// Dialer 建立到控制器的字节流连接，*net.Dialer 满足该接口
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type options struct {
	logger        *zap.Logger
	metrics       *metrics.DeviceMetrics
	dialer        Dialer
	dialTimeout   time.Duration
	ioTimeout     time.Duration
	order         magichome.ChannelOrder
	effectPowerOn bool
}

func defaultOptions() options {
	return options{
		logger:        zap.NewNop(),
		order:         magichome.OrderRGB,
		effectPowerOn: true,
	}
}

// Option 会话选项
type Option func(*options)

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.DeviceMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithDialer 替换默认的 net.Dialer
func WithDialer(d Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithDialTimeout 连接超时，0 表示不限
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

// WithIOTimeout 每次读写的截止时间，0 表示不设置
func WithIOTimeout(d time.Duration) Option {
	return func(o *options) { o.ioTimeout = d }
}

// WithChannelOrder 灯带线序
func WithChannelOrder(order magichome.ChannelOrder) Option {
	return func(o *options) { o.order = order }
}

// WithEffectPowerOn 切换效果前是否先发送开灯指令（内置效果不会自动开灯）
func WithEffectPowerOn(enable bool) Option {
	return func(o *options) { o.effectPowerOn = enable }
}
