package health

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/coachtinho/led/internal/protocol/magichome"
)

// Gate 控制器访问许可，与业务请求共用同一个上限
type Gate interface {
	Acquire(ctx context.Context) error
	Release()
}

// DeviceChecker 控制器可达性检查：只建立 TCP 连接，不发送任何指令
type DeviceChecker struct {
	name     string
	addr     string
	timeout  time.Duration
	slow     time.Duration
	dialer   net.Dialer
	gate     Gate
	gateWait time.Duration
}

// NewDeviceChecker 创建检查器；port 为 0 使用默认端口，连接耗时超过 slow 记为降级
func NewDeviceChecker(address string, port int, timeout, slow time.Duration) *DeviceChecker {
	if port == 0 {
		port = magichome.DefaultPort
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if slow <= 0 {
		slow = timeout / 2
	}
	return &DeviceChecker{
		name:    "controller",
		addr:    net.JoinHostPort(address, strconv.Itoa(port)),
		timeout: timeout,
		slow:    slow,
	}
}

// WithGate 拨号前先获取许可；wait 内拿不到许可时报告降级（设备正忙），不拨号
func (c *DeviceChecker) WithGate(g Gate, wait time.Duration) *DeviceChecker {
	if wait <= 0 {
		wait = 250 * time.Millisecond
	}
	c.gate = g
	c.gateWait = wait
	return c
}

// Name 返回检查器名称
func (c *DeviceChecker) Name() string { return c.name }

// Check 执行连接检查
func (c *DeviceChecker) Check(ctx context.Context) CheckResult {
	details := map[string]any{"addr": c.addr}
	if c.gate != nil {
		wctx, wcancel := context.WithTimeout(ctx, c.gateWait)
		err := c.gate.Acquire(wctx)
		wcancel()
		if err != nil {
			return CheckResult{Status: StatusDegraded, Message: "busy", Details: details}
		}
		defer c.gate.Release()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	latency := time.Since(start)
	if err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: err.Error(),
			Details: details,
			Latency: latency,
		}
	}
	_ = conn.Close()

	if latency > c.slow {
		return CheckResult{Status: StatusDegraded, Message: "slow connect", Details: details, Latency: latency}
	}
	return CheckResult{Status: StatusHealthy, Message: "ok", Details: details, Latency: latency}
}
