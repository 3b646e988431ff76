package httpserver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// SessionLimiter 控制器会话并发上限（基于Semaphore）。
// 控制器同时接受的 TCP 连接很少，桥接层默认串行化所有请求。
type SessionLimiter struct {
	sem           chan struct{}
	timeout       time.Duration
	limit         int
	activeCount   atomic.Int64
	rejectedCount atomic.Int64
}

// NewSessionLimiter 创建会话限流器
// limit: 最大并发会话数
// timeout: 获取许可的超时时间
func NewSessionLimiter(limit int, timeout time.Duration) *SessionLimiter {
	if limit <= 0 {
		limit = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SessionLimiter{
		sem:     make(chan struct{}, limit),
		timeout: timeout,
		limit:   limit,
	}
}

// Acquire 获取会话许可
func (l *SessionLimiter) Acquire(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	select {
	case l.sem <- struct{}{}:
		l.activeCount.Add(1)
		return nil
	case <-ctx.Done():
		l.rejectedCount.Add(1)
		return fmt.Errorf("session limit exceeded: max=%d", l.limit)
	}
}

// Release 释放会话许可
func (l *SessionLimiter) Release() {
	select {
	case <-l.sem:
		l.activeCount.Add(-1)
	default:
	}
}

// Current 当前活跃会话数
func (l *SessionLimiter) Current() int {
	return int(l.activeCount.Load())
}

// RejectedCount 被拒绝的请求数（累计）
func (l *SessionLimiter) RejectedCount() int64 {
	return l.rejectedCount.Load()
}

// ClientRateLimiter 按客户端（IP）的 Token Bucket 限流
type ClientRateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*clientEntry
	ratePerSec int
	burst      int
	idle       time.Duration
	now        func() time.Time
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// maxClients 超过该数量时清理长时间未访问的客户端
const maxClients = 1024

// NewClientRateLimiter 创建限流器
// ratePerSec: 每个客户端每秒允许的请求数，<=0 表示不限流
// burst: 突发容量，<=0 时为 ratePerSec 的 2 倍
func NewClientRateLimiter(ratePerSec, burst int) *ClientRateLimiter {
	if burst <= 0 {
		burst = ratePerSec * 2
	}
	return &ClientRateLimiter{
		limiters:   make(map[string]*clientEntry),
		ratePerSec: ratePerSec,
		burst:      burst,
		idle:       10 * time.Minute,
		now:        time.Now,
	}
}

// Enabled 是否启用
func (l *ClientRateLimiter) Enabled() bool {
	return l != nil && l.ratePerSec > 0
}

// Allow 检查 key 是否允许请求（非阻塞）
func (l *ClientRateLimiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxClients {
			l.evictLocked(now)
		}
		e = &clientEntry{limiter: rate.NewLimiter(rate.Limit(l.ratePerSec), l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (l *ClientRateLimiter) evictLocked(now time.Time) {
	for k, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.idle {
			delete(l.limiters, k)
		}
	}
}

// Clients 当前跟踪的客户端数
func (l *ClientRateLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
