// Package retry decides whether and how long to wait before resubmitting a
// rate limited request. It plugs into go-retryablehttp through the CheckRetry
// and Backoff hooks; the attempt counter lives in retryablehttp's per-call
// loop, so nothing here is shared between requests.
package retry

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/sensei-partner/internal/constants"
	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// maxShift keeps 2^n inside an int.
const maxShift = 30

// Policy is the rate limit retry policy of one client.
type Policy struct {
	// Enabled mirrors Config.RetryOnRateLimit.
	Enabled bool
	// MaxRetries bounds the number of resubmissions after the first attempt.
	MaxRetries int
	// Unit is the length of one backoff step. One second in production.
	Unit time.Duration
	// Ceiling caps a single wait. Zero disables the cap.
	Ceiling time.Duration
	// Logger receives a warning before each wait.
	Logger sensei.Logger
}

// NewPolicy derives the policy from cfg.
func NewPolicy(cfg *sensei.Config) *Policy {
	return &Policy{
		Enabled:    cfg.RetryOnRateLimit(),
		MaxRetries: cfg.MaxRetries(),
		Unit:       time.Second,
		Ceiling:    constants.ExtendedRetryWaitMax,
		Logger:     sensei.NoopLogger{},
	}
}

// RetryMax is the value to hand to retryablehttp.Client.RetryMax.
func (p *Policy) RetryMax() int {
	if !p.Enabled {
		return 0
	}

	return max(p.MaxRetries, 0)
}

// Wait returns min(retryAfter, 2^attempt) units, capped at Ceiling.
// attempt counts retries from 1.
func (p *Policy) Wait(attempt, retryAfter int) time.Duration {
	attempt = min(max(attempt, 0), maxShift)
	exp := 1 << attempt

	seconds := min(max(retryAfter, 0), exp)

	unit := p.Unit
	if unit <= 0 {
		unit = time.Second
	}

	wait := time.Duration(seconds) * unit
	if p.Ceiling > 0 && wait > p.Ceiling {
		wait = p.Ceiling
	}

	return wait
}

// CheckRetry implements retryablehttp.CheckRetry. Only 429 responses are
// retried, and only when the policy is enabled. Transport failures are never
// retried and context errors stop the loop.
func (p *Policy) CheckRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr //nolint:wrapcheck
	}

	if err != nil || resp == nil {
		return false, nil
	}

	return p.Enabled && resp.StatusCode == http.StatusTooManyRequests, nil
}

// Backoff implements retryablehttp.Backoff. attemptNum is zero based, so the
// first retry waits min(Retry-After, 2) units.
func (p *Policy) Backoff(_, _ time.Duration, attemptNum int, resp *http.Response) time.Duration {
	var header http.Header
	if resp != nil {
		header = resp.Header
	}

	retryAfter := sensei.ParseRetryAfter(header)
	wait := p.Wait(attemptNum+1, retryAfter)

	if p.Logger != nil {
		p.Logger.Warn("Rate limited, waiting before retry", map[string]interface{}{
			"attempt":     attemptNum + 1,
			"max_retries": p.MaxRetries,
			"retry_after": retryAfter,
			"wait":        wait.String(),
		})
	}

	return wait
}

// Apply installs the policy on client.
func (p *Policy) Apply(client *retryablehttp.Client) {
	client.RetryMax = p.RetryMax()
	client.CheckRetry = p.CheckRetry
	client.Backoff = p.Backoff
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
}
