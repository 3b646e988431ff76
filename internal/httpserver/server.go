package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	cfgpkg "github.com/coachtinho/led/internal/config"
	"github.com/coachtinho/led/internal/health"
	"github.com/coachtinho/led/internal/metrics"
	"github.com/coachtinho/led/internal/presets"
	"github.com/coachtinho/led/internal/protocol/magichome"
)

// Controller 桥接层需要的会话能力，*device.Session 满足该接口
type Controller interface {
	PowerOn() error
	PowerOff() error
	SetColor(magichome.Color) error
	SetEffect(magichome.Effect, int) error
	QueryStatus() (*magichome.Status, error)
	Close() error
}

// Connector 为每个请求打开一条新会话
type Connector func(ctx context.Context) (Controller, error)

// Deps 桥接服务依赖
type Deps struct {
	Connect        Connector
	Presets        *presets.Table
	Logger         *zap.Logger
	Metrics        *metrics.HTTPMetrics // 可为 nil
	MetricsPath    string
	MetricsHandler http.Handler       // 可为 nil
	Health         *health.Aggregator // 可为 nil，此时 /readyz 恒为就绪
	Sessions       *SessionLimiter    // 可为 nil，按配置创建；健康检查需与请求共用时传入
}

// Server HTTP 服务封装
type Server struct {
	srv      *http.Server
	deps     Deps
	sessions *SessionLimiter
	limiter  *ClientRateLimiter
	breaker  *Breaker
}

// New 创建并配置 Gin + HTTP Server，注册健康检查、指标与控制路由
func New(cfg cfgpkg.HTTPConfig, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Presets == nil {
		deps.Presets = presets.Defaults()
	}
	if deps.Sessions == nil {
		deps.Sessions = NewSessionLimiter(cfg.MaxSessions, cfg.SessionWait)
	}
	s := &Server{
		deps:     deps,
		sessions: deps.Sessions,
		limiter:  NewClientRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
		breaker:  NewBreaker(cfg.Breaker.Threshold, cfg.Breaker.Cooldown),
	}
	s.breaker.OnStateChange(func(from, to BreakerState) {
		deps.Logger.Warn("controller breaker state changed",
			zap.Stringer("from", from), zap.Stringer("to", to))
		if deps.Metrics != nil {
			deps.Metrics.BreakerState.Set(float64(to))
		}
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.accessLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if deps.Health == nil || deps.Health.Ready(c.Request.Context()) {
			c.String(http.StatusOK, "ready")
			return
		}
		c.String(http.StatusServiceUnavailable, "not-ready")
	})
	if deps.Health != nil {
		health.RegisterHTTPRoutes(r, deps.Health)
	}
	metricsPath := deps.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	if deps.MetricsHandler != nil {
		r.GET(metricsPath, gin.WrapH(deps.MetricsHandler))
	}

	api := r.Group("/api/v1", s.rateLimit())
	s.registerRoutes(api)

	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Breaker 控制器熔断器
func (s *Server) Breaker() *Breaker { return s.breaker }

// Handler 返回路由（测试与嵌入使用）
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start 启动 HTTP 服务（阻塞）
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

const requestIDHeader = "X-Request-ID"

// requestID 透传或生成请求 ID
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		if s.deps.Metrics != nil {
			s.deps.Metrics.Requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		}
		s.deps.Logger.Debug("http request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("code", code))
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter.Allow(c.ClientIP()) {
			c.Next()
			return
		}
		if s.deps.Metrics != nil {
			s.deps.Metrics.RateLimited.Inc()
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limited"})
	}
}
