package sensei_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

func (l *recordingLogger) add(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: fields})
}

func (l *recordingLogger) Debug(msg string, fields map[string]interface{}) { l.add("debug", msg, fields) }
func (l *recordingLogger) Info(msg string, fields map[string]interface{})  { l.add("info", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields map[string]interface{})  { l.add("warn", msg, fields) }
func (l *recordingLogger) Error(msg string, fields map[string]interface{}) { l.add("error", msg, fields) }

func (l *recordingLogger) last() logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.entries[len(l.entries)-1]
}

func TestInterceptorChain_Order(t *testing.T) {
	t.Parallel()

	chain := sensei.NewInterceptorChain()
	ctx := context.Background()

	var order []string

	chain.AddRequestInterceptor(func(context.Context, *sensei.Request) error {
		order = append(order, "req-first")

		return nil
	})
	chain.AddRequestInterceptor(func(context.Context, *sensei.Request) error {
		order = append(order, "req-second")

		return nil
	})
	chain.AddResponseInterceptor(func(context.Context, *sensei.Request, *sensei.Response) error {
		order = append(order, "resp-first")

		return nil
	})

	req := &sensei.Request{Method: http.MethodGet, Path: "/v1/partners/products"}

	require.NoError(t, chain.ExecuteRequestInterceptors(ctx, req))
	require.NoError(t, chain.ExecuteResponseInterceptors(ctx, req, &sensei.Response{StatusCode: 200}))

	assert.Equal(t, []string{"req-first", "req-second", "resp-first"}, order)
	assert.Equal(t, 3, chain.Len())
}

func TestInterceptorChain_ErrorStopsChain(t *testing.T) {
	t.Parallel()

	chain := sensei.NewInterceptorChain()
	boom := errors.New("boom")
	called := false

	chain.AddRequestInterceptor(func(context.Context, *sensei.Request) error { return boom })
	chain.AddRequestInterceptor(func(context.Context, *sensei.Request) error {
		called = true

		return nil
	})
	chain.AddResponseInterceptor(func(context.Context, *sensei.Request, *sensei.Response) error { return boom })

	err := chain.ExecuteRequestInterceptors(context.Background(), &sensei.Request{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "request interceptor failed")
	assert.False(t, called)

	err = chain.ExecuteResponseInterceptors(context.Background(), &sensei.Request{}, &sensei.Response{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "response interceptor failed")
}

func TestInterceptorChain_Nil(t *testing.T) {
	t.Parallel()

	var chain *sensei.InterceptorChain

	assert.Equal(t, 0, chain.Len())
	require.NoError(t, chain.ExecuteRequestInterceptors(context.Background(), &sensei.Request{}))
	require.NoError(t, chain.ExecuteResponseInterceptors(context.Background(), &sensei.Request{}, &sensei.Response{}))
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := sensei.HeaderInterceptor(map[string]string{
		"X-Request-ID": "123456",
		"X-Dojo":       "main",
	})

	req := &sensei.Request{Method: http.MethodGet, Path: "/test"}

	require.NoError(t, interceptor(context.Background(), req))
	assert.Equal(t, "123456", req.Headers.Get("X-Request-ID"))
	assert.Equal(t, "main", req.Headers.Get("X-Dojo"))
}

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	ctx := context.Background()
	req := &sensei.Request{Method: http.MethodPost, Path: "/partner/payments/intent"}

	require.NoError(t, sensei.LoggingInterceptor(logger)(ctx, req))
	assert.Equal(t, "API Request", logger.last().msg)
	assert.Equal(t, "debug", logger.last().level)

	respInterceptor := sensei.LoggingResponseInterceptor(logger)

	tests := []struct {
		resp      *sensei.Response
		wantLevel string
		wantMsg   string
	}{
		{&sensei.Response{StatusCode: 201}, "debug", "API Response"},
		{&sensei.Response{StatusCode: 429}, "warn", "API Rate Limited"},
		{&sensei.Response{Error: errors.New("reset")}, "error", "API Response Error"},
	}

	for _, tt := range tests {
		require.NoError(t, respInterceptor(ctx, req, tt.resp))

		entry := logger.last()
		assert.Equal(t, tt.wantLevel, entry.level)
		assert.Equal(t, tt.wantMsg, entry.msg)
		assert.Equal(t, "/partner/payments/intent", entry.fields["path"])
	}
}

func TestRateLimitInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := sensei.RateLimitInterceptor(20, 2)
	ctx := context.Background()

	start := time.Now()

	for range 4 {
		require.NoError(t, interceptor(ctx, &sensei.Request{}))
	}

	// Two tokens are free, the other two take 50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestRateLimitInterceptor_ContextCancelled(t *testing.T) {
	t.Parallel()

	interceptor := sensei.RateLimitInterceptor(0.01, 1)

	require.NoError(t, interceptor(context.Background(), &sensei.Request{}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := interceptor(ctx, &sensei.Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "waiting for rate limiter")
}

func TestMetricsCollector(t *testing.T) {
	t.Parallel()

	collector := sensei.NewMetricsCollector()
	reqInterceptor := sensei.MetricsRequestInterceptor()
	respInterceptor := sensei.MetricsResponseInterceptor(collector)
	ctx := context.Background()

	var changes []string

	collector.SetOnChange(func(endpoint string, _ sensei.Metrics) {
		changes = append(changes, endpoint)
	})

	for _, status := range []int{200, 429, 500} {
		req := &sensei.Request{Method: http.MethodGet, Path: "/v1/partners/users"}

		require.NoError(t, reqInterceptor(ctx, req))
		assert.Contains(t, req.Metadata, "start_time")

		time.Sleep(time.Millisecond)
		require.NoError(t, respInterceptor(ctx, req, &sensei.Response{StatusCode: status}))
	}

	metrics, ok := collector.GetMetrics("GET /v1/partners/users")
	require.True(t, ok)
	assert.Equal(t, int64(3), metrics.TotalRequests)
	assert.Equal(t, int64(2), metrics.TotalErrors)
	assert.Equal(t, int64(1), metrics.TotalRateLimited)
	assert.Positive(t, metrics.AverageLatency)
	assert.False(t, metrics.LastRequestTime.IsZero())
	assert.Len(t, changes, 3)

	_, ok = collector.GetMetrics("GET /unknown")
	assert.False(t, ok)
}

func TestCircuitBreaker(t *testing.T) {
	t.Parallel()

	breaker := sensei.NewCircuitBreaker(&sensei.CircuitBreakerConfig{
		Threshold:        2,
		Timeout:          20 * time.Millisecond,
		SuccessThreshold: 1,
	})
	before := sensei.CircuitBreakerRequestInterceptor(breaker)
	after := sensei.CircuitBreakerResponseInterceptor(breaker)
	ctx := context.Background()
	req := &sensei.Request{}

	assert.Equal(t, "closed", breaker.State())

	require.NoError(t, after(ctx, req, &sensei.Response{StatusCode: 429}))
	require.NoError(t, after(ctx, req, &sensei.Response{StatusCode: 503}))
	assert.Equal(t, "closed", breaker.State())

	require.NoError(t, after(ctx, req, &sensei.Response{Error: errors.New("refused")}))
	assert.Equal(t, "open", breaker.State())
	require.ErrorIs(t, before(ctx, req), sensei.ErrCircuitBreakerOpen)

	time.Sleep(30 * time.Millisecond)

	require.NoError(t, before(ctx, req))
	assert.Equal(t, "half-open", breaker.State())

	require.NoError(t, after(ctx, req, &sensei.Response{StatusCode: 200}))
	assert.Equal(t, "closed", breaker.State())
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	t.Parallel()

	breaker := sensei.NewCircuitBreaker(nil)
	assert.Equal(t, "closed", breaker.State())
}
