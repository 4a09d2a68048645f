package partner

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/fivetwenty-io/sensei-partner/internal/client"
	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// Option configures a client built by New.
type Option = client.Option

// WithLogger sets the logger used by the client and its transport.
func WithLogger(logger sensei.Logger) Option {
	return client.WithLogger(logger)
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return client.WithDebug(debug)
}

// WithInterceptors runs chain around every HTTP attempt, retries included.
func WithInterceptors(chain *sensei.InterceptorChain) Option {
	return client.WithInterceptors(chain)
}

// WithCache enables the GET response cache. A zero ttl uses the default.
func WithCache(cache sensei.Cache, ttl time.Duration) Option {
	return client.WithCache(cache, ttl)
}

// WithCachingPolicy overrides which GET responses are cached.
func WithCachingPolicy(policy *sensei.CachingPolicy) Option {
	return client.WithCachingPolicy(policy)
}

// New creates a partner API client from an explicit configuration.
func New(cfg *sensei.Config, opts ...Option) (sensei.Client, error) {
	if cfg == nil {
		return nil, &sensei.ConfigurationError{Err: sensei.ErrMissingCredentials}
	}

	c, err := client.New(cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithAPIKey creates a client for baseURL authenticated with a partner API key.
func NewWithAPIKey(baseURL, apiKey string, opts ...Option) (sensei.Client, error) {
	cfg, err := sensei.NewConfig(normalizeEndpoint(baseURL), sensei.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return New(cfg, opts...)
}

// NewWithBearerToken creates a client for baseURL authenticated with a user token.
func NewWithBearerToken(baseURL, token string, opts ...Option) (sensei.Client, error) {
	cfg, err := sensei.NewConfig(normalizeEndpoint(baseURL), sensei.WithBearerToken(token))
	if err != nil {
		return nil, err
	}

	return New(cfg, opts...)
}

// NewFromMap creates a client from snake_case settings, for example a decoded
// YAML file. See sensei.ConfigFromMap for the accepted keys.
func NewFromMap(settings map[string]any, opts ...Option) (sensei.Client, error) {
	if raw, ok := settings["base_url"].(string); ok && raw != "" {
		settings = maps.Clone(settings)
		settings["base_url"] = normalizeEndpoint(raw)
	}

	cfg, err := sensei.ConfigFromMap(settings)
	if err != nil {
		return nil, err
	}

	return New(cfg, opts...)
}

// normalizeEndpoint defaults a bare host to https.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return endpoint
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}
