package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// DeviceMetrics 控制器会话指标
type DeviceMetrics struct {
	FramesSent      *prometheus.CounterVec // labels: command
	BytesSent       prometheus.Counter
	StatusDecode    *prometheus.CounterVec // labels: result=ok|malformed|checksum|opcode
	TransportErrors *prometheus.CounterVec // labels: op=dial|write|read
	DialDuration    prometheus.Histogram
}

// NewDeviceMetrics 注册并返回会话指标
func NewDeviceMetrics(reg prometheus.Registerer) *DeviceMetrics {
	m := &DeviceMetrics{
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "led_frames_sent_total",
			Help: "Frames written to controllers by command.",
		}, []string{"command"}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "led_bytes_sent_total",
			Help: "Total bytes written to controllers.",
		}),
		StatusDecode: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "led_status_decode_total",
			Help: "Status reply decode attempts by result.",
		}, []string{"result"}),
		TransportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "led_transport_errors_total",
			Help: "Transport failures by operation.",
		}, []string{"op"}),
		DialDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "led_dial_duration_seconds",
			Help:    "Time to establish a controller connection.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
	}
	reg.MustRegister(m.FramesSent, m.BytesSent, m.StatusDecode, m.TransportErrors, m.DialDuration)
	return m
}

// HTTPMetrics HTTP 桥接层指标
type HTTPMetrics struct {
	Requests     *prometheus.CounterVec // labels: route, code
	RateLimited  prometheus.Counter
	BreakerState prometheus.Gauge // 0=closed 1=open 2=half_open
}

// NewHTTPMetrics 注册并返回 HTTP 指标
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "led_http_requests_total",
			Help: "HTTP bridge requests by route and status code.",
		}, []string{"route", "code"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "led_http_rate_limited_total",
			Help: "HTTP bridge requests rejected by the rate limiter.",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "led_http_breaker_state",
			Help: "Controller circuit breaker state (0=closed, 1=open, 2=half_open).",
		}),
	}
	reg.MustRegister(m.Requests, m.RateLimited, m.BreakerState)
	return m
}
