package diag

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"lifepath/internal/metrics"
	logx "lifepath/pkg/logx"
)

func get(t *testing.T, h http.Handler, path, auth string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	body, _ := io.ReadAll(rec.Body)
	return rec.Code, string(body)
}

func TestReadyzFollowsReadyFunc(t *testing.T) {
	var armed atomic.Bool
	s := New(logx.Nop(), nil, func() (bool, string) {
		if armed.Load() {
			return true, "armed"
		}
		return false, "idle"
	})
	h := s.Handler(Config{})

	code, body := get(t, h, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "idle", body)

	armed.Store(true)
	code, body = get(t, h, "/readyz", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "armed", body)

	code, _ = get(t, h, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestMetricsAndPprofRoutes(t *testing.T) {
	m := metrics.New()
	m.IncPosted(metrics.TriggerSchedule)
	s := New(logx.Nop(), m.Registry(), nil)

	code, body := get(t, s.Handler(Config{}), "/metrics", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `lifepath_posts_total{trigger="schedule"} 1`)

	code, _ = get(t, s.Handler(Config{}), "/debug/pprof/", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = get(t, s.Handler(Config{Pprof: true}), "/debug/pprof/", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestTokenGuard(t *testing.T) {
	s := New(logx.Nop(), metrics.New().Registry(), nil)
	h := s.Handler(Config{Token: "s3cret"})

	code, _ := get(t, h, "/metrics", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = get(t, h, "/metrics", "wrong")
	assert.Equal(t, http.StatusUnauthorized, code)
	// same length, different bytes
	code, _ = get(t, h, "/metrics", "s3creT")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = get(t, h, "/readyz?token=s3cre", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = get(t, h, "/metrics", "s3cret")
	assert.Equal(t, http.StatusOK, code)
	code, _ = get(t, h, "/readyz?token=s3cret", "")
	assert.Equal(t, http.StatusOK, code)

	// liveness stays open
	code, _ = get(t, h, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestReconfigureLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"), goleak.IgnoreAnyFunction("internal/poll.runtime_pollWait"))

	s := New(logx.Nop(), nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	require.ErrorIs(t, s.Reconfigure(ctx, Config{Enabled: true, Addr: "0.0.0.0:0"}), ErrInsecureBind)
	assert.Empty(t, s.Addr())

	require.NoError(t, s.Reconfigure(ctx, Config{Enabled: true, Addr: "127.0.0.1:0"}))
	addr := s.Addr()
	require.NotEmpty(t, addr)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// unchanged config keeps the listener
	require.NoError(t, s.Reconfigure(ctx, Config{Enabled: true, Addr: "127.0.0.1:0"}))
	assert.Equal(t, addr, s.Addr())

	require.NoError(t, s.Reconfigure(ctx, Config{Enabled: false}))
	assert.Empty(t, s.Addr())
	_, err = client.Get("http://" + addr + "/healthz")
	assert.Error(t, err)
}

func TestLoopback(t *testing.T) {
	assert.True(t, loopback("127.0.0.1:9090"))
	assert.True(t, loopback("localhost:9090"))
	assert.True(t, loopback("[::1]:9090"))
	assert.False(t, loopback(":9090"))
	assert.False(t, loopback("10.0.0.5:9090"))
	assert.False(t, loopback("nonsense"))
}
