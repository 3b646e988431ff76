package httpserver

import (
	"errors"
	"sync"
	"time"

	"github.com/coachtinho/led/internal/device"
)

// BreakerState 熔断器状态
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // 正常，允许请求
	BreakerOpen                         // 熔断，直接拒绝
	BreakerHalfOpen                     // 半开，放行一个试探请求
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen 控制器连续不可达，熔断期内拒绝请求
var ErrBreakerOpen = errors.New("controller circuit open")

// Breaker 控制器熔断器。
// 只有传输错误（拨号、读写失败）计入失败；协议错误说明设备可达，按成功处理。
type Breaker struct {
	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
	trips    int64

	threshold int           // 连续失败次数阈值，<=0 表示不启用
	cooldown  time.Duration // Open → HalfOpen 的等待时间
	now       func() time.Time
	onChange  func(from, to BreakerState)
}

// NewBreaker 创建熔断器
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if cooldown <= 0 {
		cooldown = 10 * time.Second
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// OnStateChange 设置状态变化回调（在锁外同步调用）
func (b *Breaker) OnStateChange(fn func(from, to BreakerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

func (b *Breaker) enabled() bool { return b != nil && b.threshold > 0 }

// Allow 请求前检查；返回 nil 时调用方必须随后调用 Record 或 Abort
func (b *Breaker) Allow() error {
	if !b.enabled() {
		return nil
	}
	b.mu.Lock()
	var from, to BreakerState
	changed := false
	defer func() {
		cb := b.onChange
		b.mu.Unlock()
		if changed && cb != nil {
			cb(from, to)
		}
	}()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrBreakerOpen
		}
		from, to, changed = b.state, BreakerHalfOpen, true
		b.state = BreakerHalfOpen
		b.probing = true
		return nil
	default:
		if b.probing {
			return ErrBreakerOpen
		}
		b.probing = true
		return nil
	}
}

// Record 记录一次请求结果
func (b *Breaker) Record(err error) {
	if !b.enabled() {
		return
	}
	b.mu.Lock()
	from := b.state
	if device.IsTransport(err) {
		b.failures++
		if b.state == BreakerHalfOpen || b.failures >= b.threshold {
			if b.state != BreakerOpen {
				b.trips++
			}
			b.state = BreakerOpen
			b.openedAt = b.now()
		}
	} else {
		b.failures = 0
		b.state = BreakerClosed
	}
	b.probing = false
	to, cb := b.state, b.onChange
	b.mu.Unlock()

	if from != to && cb != nil {
		cb(from, to)
	}
}

// Abort 放弃一次已放行但未得出结果的请求（如处理中 panic），不改变状态
func (b *Breaker) Abort() {
	if !b.enabled() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

// State 当前状态
func (b *Breaker) State() BreakerState {
	if b == nil {
		return BreakerClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Trips 累计熔断次数
func (b *Breaker) Trips() int64 {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.trips
}
