package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/coachtinho/led/internal/config"
	"github.com/coachtinho/led/internal/device"
	"github.com/coachtinho/led/internal/health"
	"github.com/coachtinho/led/internal/httpserver"
	"github.com/coachtinho/led/internal/metrics"
	"github.com/coachtinho/led/internal/presets"
)

// healthGateWait 健康检查等待会话许可的上限，超过即报告设备正忙
const healthGateWait = 250 * time.Millisecond

// newBridge 装配 HTTP 桥接服务：指标、健康检查与控制器连接
func newBridge(cfg *cfgpkg.Config, table *presets.Table, logger *zap.Logger) *httpserver.Server {
	// 指标注册与处理器
	reg := metrics.NewRegistry()
	deviceMetrics := metrics.NewDeviceMetrics(reg)
	var metricsHandler http.Handler
	if cfg.Metrics.Enable {
		metricsHandler = metrics.Handler(reg)
	}

	// 健康检查与控制请求共用会话许可，探测不会和命令同时占用设备连接
	sessions := httpserver.NewSessionLimiter(cfg.HTTP.MaxSessions, cfg.HTTP.SessionWait)
	checker := health.NewDeviceChecker(cfg.Device.Address, cfg.Device.Port, cfg.Device.DialTimeout, 0).
		WithGate(sessions, healthGateWait)

	return httpserver.New(cfg.HTTP, httpserver.Deps{
		Connect:        httpserver.DeviceConnector(cfg.Device, device.WithLogger(logger), device.WithMetrics(deviceMetrics)),
		Presets:        table,
		Logger:         logger,
		Metrics:        metrics.NewHTTPMetrics(reg),
		MetricsPath:    cfg.Metrics.Path,
		MetricsHandler: metricsHandler,
		Health:         health.NewAggregator(checker),
		Sessions:       sessions,
	})
}

// serve 启动 HTTP 桥接服务，收到 SIGINT/SIGTERM 后优雅关闭
func serve(cfg *cfgpkg.Config, table *presets.Table, logger *zap.Logger) error {
	srv := newBridge(cfg, table, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http bridge listening", zap.String("addr", cfg.HTTP.Addr), zap.String("device", cfg.Device.Address))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("http bridge shutting down")
	return srv.Shutdown(shutdownCtx)
}
