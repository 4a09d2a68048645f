package sensei

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "sensei_partner"

// PrometheusMetrics exports request counters and latencies for a client.
type PrometheusMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	rateLimit prometheus.Counter
}

// NewPrometheusMetrics registers the SDK instruments with reg. A nil reg uses
// prometheus.DefaultRegisterer. Registering twice on the same registry reuses
// the existing collectors.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "requests_total",
		Help:      "HTTP attempts sent to the partner API, by method and status code.",
	}, []string{"method", "code"})

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "request_duration_seconds",
		Help:      "Latency of HTTP attempts to the partner API.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	rateLimit := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "rate_limited_total",
		Help:      "Responses with status 429.",
	})

	m := &PrometheusMetrics{}

	var err error

	m.requests, err = register(reg, requests)
	if err != nil {
		return nil, err
	}

	m.latency, err = register(reg, latency)
	if err != nil {
		return nil, err
	}

	m.rateLimit, err = register(reg, rateLimit)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	are := prometheus.AlreadyRegisteredError{}
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}

	return c, fmt.Errorf("registering metric: %w", err)
}

// Interceptors returns the request/response pair that feeds m.
func (m *PrometheusMetrics) Interceptors() (RequestInterceptor, ResponseInterceptor) {
	return stampStartTime, func(ctx context.Context, req *Request, resp *Response) error {
		code := "error"
		if resp.Error == nil {
			code = strconv.Itoa(resp.StatusCode)
		}

		m.requests.WithLabelValues(req.Method, code).Inc()

		if latency := requestLatency(req); latency > 0 {
			m.latency.WithLabelValues(req.Method).Observe(latency.Seconds())
		}

		if resp.StatusCode == 429 {
			m.rateLimit.Inc()
		}

		return nil
	}
}

// Install adds m's interceptors to chain.
func (m *PrometheusMetrics) Install(chain *InterceptorChain) {
	reqI, respI := m.Interceptors()
	chain.AddRequestInterceptor(reqI)
	chain.AddResponseInterceptor(respI)
}
