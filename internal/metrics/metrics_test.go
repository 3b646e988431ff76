package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceMetrics_Exposed(t *testing.T) {
	reg := NewRegistry()
	m := NewDeviceMetrics(reg)
	h := NewHTTPMetrics(reg)

	m.FramesSent.WithLabelValues("power_on").Inc()
	m.BytesSent.Add(4)
	m.StatusDecode.WithLabelValues("ok").Inc()
	m.TransportErrors.WithLabelValues("read").Inc()
	m.DialDuration.Observe(0.01)
	h.Requests.WithLabelValues("/api/v1/status", "200").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesSent.WithLabelValues("power_on")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.BytesSent))

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	for _, name := range []string{
		"led_frames_sent_total",
		"led_bytes_sent_total",
		"led_status_decode_total",
		"led_transport_errors_total",
		"led_dial_duration_seconds",
		"led_http_requests_total",
		"go_goroutines",
	} {
		assert.Contains(t, string(body), name)
	}
}

func TestNewDeviceMetrics_DuplicatePanics(t *testing.T) {
	reg := NewRegistry()
	NewDeviceMetrics(reg)
	assert.Panics(t, func() { NewDeviceMetrics(reg) })
}
