package httpserver

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/coachtinho/led/internal/config"
	"github.com/coachtinho/led/internal/device"
	appmetrics "github.com/coachtinho/led/internal/metrics"
	"github.com/coachtinho/led/internal/protocol/magichome"
)

var errDial = &device.TransportError{Op: "dial", Addr: "10.0.0.7:5577", Err: errors.New("connection refused")}

func TestBreaker(t *testing.T) {
	t.Run("连续传输失败后熔断", func(t *testing.T) {
		now := time.Unix(1000, 0)
		b := NewBreaker(3, time.Second)
		b.now = func() time.Time { return now }

		for i := 0; i < 3; i++ {
			require.NoError(t, b.Allow())
			b.Record(errDial)
		}
		assert.Equal(t, BreakerOpen, b.State())
		assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)
		assert.EqualValues(t, 1, b.Trips())

		// 冷却后只放行一个试探请求
		now = now.Add(time.Second)
		require.NoError(t, b.Allow())
		assert.Equal(t, BreakerHalfOpen, b.State())
		assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)

		b.Record(nil)
		assert.Equal(t, BreakerClosed, b.State())
		assert.NoError(t, b.Allow())
	})

	t.Run("半开试探失败立即熔断", func(t *testing.T) {
		now := time.Unix(1000, 0)
		b := NewBreaker(1, time.Second)
		b.now = func() time.Time { return now }

		require.NoError(t, b.Allow())
		b.Record(errDial)
		now = now.Add(2 * time.Second)
		require.NoError(t, b.Allow())
		b.Record(errDial)

		assert.Equal(t, BreakerOpen, b.State())
		assert.EqualValues(t, 2, b.Trips())
	})

	t.Run("协议错误不计入失败", func(t *testing.T) {
		b := NewBreaker(2, time.Second)
		for i := 0; i < 5; i++ {
			require.NoError(t, b.Allow())
			b.Record(magichome.ErrChecksumMismatch)
		}
		assert.Equal(t, BreakerClosed, b.State())
	})

	t.Run("成功重置计数", func(t *testing.T) {
		b := NewBreaker(2, time.Second)
		b.Record(errDial)
		b.Record(nil)
		b.Record(errDial)
		assert.Equal(t, BreakerClosed, b.State())
	})

	t.Run("阈值为0关闭", func(t *testing.T) {
		b := NewBreaker(0, 0)
		for i := 0; i < 10; i++ {
			b.Record(errDial)
		}
		assert.NoError(t, b.Allow())
		assert.Equal(t, BreakerClosed, b.State())
	})

	t.Run("状态变化回调", func(t *testing.T) {
		b := NewBreaker(1, time.Second)
		var got []BreakerState
		b.OnStateChange(func(_, to BreakerState) { got = append(got, to) })
		b.Record(errDial)
		b.Record(nil)
		assert.Equal(t, []BreakerState{BreakerOpen, BreakerClosed}, got)
	})
}

func TestServer_BreakerRejectsUnreachableController(t *testing.T) {
	cfg := testConfig()
	cfg.Breaker = cfgpkg.BreakerConfig{Threshold: 2, Cooldown: time.Hour}
	reg := appmetrics.NewRegistry()
	m := appmetrics.NewHTTPMetrics(reg)

	dials := 0
	srv := New(cfg, Deps{
		Connect: func(context.Context) (Controller, error) {
			dials++
			return nil, errDial
		},
		Metrics: m,
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, srv.Handler(), http.MethodGet, "/api/v1/status", "").Code)
	}
	assert.Equal(t, []int{http.StatusBadGateway, http.StatusBadGateway, http.StatusServiceUnavailable}, codes)
	assert.Equal(t, 2, dials)
	assert.Equal(t, BreakerOpen, srv.Breaker().State())
	assert.Equal(t, float64(BreakerOpen), testutil.ToFloat64(m.BreakerState))
}

// panicController 处理过程中 panic 的控制器
type panicController struct{ fakeController }

func (p *panicController) QueryStatus() (*magichome.Status, error) { panic("decoder bug") }

func TestServer_BreakerRecoversAfterPanickedProbe(t *testing.T) {
	cfg := testConfig()
	cfg.Breaker = cfgpkg.BreakerConfig{Threshold: 1, Cooldown: time.Second}

	calls := 0
	healthy := &fakeController{status: &magichome.Status{}}
	panicking := &panicController{}
	srv := New(cfg, Deps{
		Connect: func(context.Context) (Controller, error) {
			calls++
			switch calls {
			case 1:
				return nil, errDial
			case 2:
				return panicking, nil
			default:
				return healthy, nil
			}
		},
	})
	now := time.Unix(1000, 0)
	srv.Breaker().now = func() time.Time { return now }

	h := srv.Handler()
	assert.Equal(t, http.StatusBadGateway, do(t, h, http.MethodGet, "/api/v1/status", "").Code)
	require.Equal(t, BreakerOpen, srv.Breaker().State())

	// 冷却后的试探请求 panic，由 gin.Recovery 返回 500
	now = now.Add(2 * time.Second)
	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodGet, "/api/v1/status", "").Code)
	assert.True(t, panicking.closed, "panic 后仍关闭会话")
	assert.Equal(t, 0, srv.sessions.Current(), "panic 后释放会话许可")

	// 试探名额已归还，下一次请求可以通过
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/status", "").Code)
	assert.Equal(t, BreakerClosed, srv.Breaker().State())
}

func TestBreaker_AbortReleasesProbe(t *testing.T) {
	now := time.Unix(1000, 0)
	b := NewBreaker(1, time.Second)
	b.now = func() time.Time { return now }
	b.Record(errDial)

	now = now.Add(time.Second)
	require.NoError(t, b.Allow())
	assert.ErrorIs(t, b.Allow(), ErrBreakerOpen)

	b.Abort()
	assert.Equal(t, BreakerHalfOpen, b.State())
	assert.NoError(t, b.Allow())
}
