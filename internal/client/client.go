package client

import (
	"context"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fivetwenty-io/sensei-partner/internal/auth"
	"github.com/fivetwenty-io/sensei-partner/internal/constants"
	"github.com/fivetwenty-io/sensei-partner/internal/http"
	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// Client implements the sensei.Client interface.
type Client struct {
	config     *sensei.Config
	httpClient *http.Client
	logger     sensei.Logger
	options    options

	cache       *sensei.CacheManager
	cachePolicy *sensei.CachingPolicy
	cacheScope  string

	// Resource clients
	products *ProductsClient
	users    *UsersClient
	payments *PaymentsClient
	webhooks *WebhooksClient
	media    *MediaClient
	guilds   *GuildsClient
}

type options struct {
	logger       sensei.Logger
	debug        bool
	interceptors *sensei.InterceptorChain
	httpClient   *nethttp.Client
	backoffUnit  time.Duration
	cache        sensei.Cache
	cachePolicy  *sensei.CachingPolicy
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger used by the client and its transport.
func WithLogger(logger sensei.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(o *options) {
		o.debug = debug
	}
}

// WithInterceptors runs chain around every HTTP attempt.
func WithInterceptors(chain *sensei.InterceptorChain) Option {
	return func(o *options) {
		o.interceptors = chain
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(client *nethttp.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithBackoffUnit changes the length of one rate limit backoff step.
func WithBackoffUnit(unit time.Duration) Option {
	return func(o *options) {
		o.backoffUnit = unit
	}
}

// WithCache stores successful GET responses in cache for ttl. A zero ttl uses
// the default policy TTL.
func WithCache(cache sensei.Cache, ttl time.Duration) Option {
	return func(o *options) {
		o.cache = cache

		policy := sensei.DefaultCachingPolicy()
		if ttl > 0 {
			policy.TTL = ttl
		}

		o.cachePolicy = policy
	}
}

// WithCachingPolicy overrides which responses are cached.
func WithCachingPolicy(policy *sensei.CachingPolicy) Option {
	return func(o *options) {
		o.cachePolicy = policy
	}
}

// New creates a new partner API client.
func New(cfg *sensei.Config, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return newClient(cfg, o)
}

func newClient(cfg *sensei.Config, o options) (*Client, error) {
	if cfg == nil {
		return nil, &sensei.ConfigurationError{Err: sensei.ErrMissingCredentials}
	}

	logger := o.logger
	if logger == nil {
		logger = sensei.NoopLogger{}
	}

	httpOpts := []http.Option{
		http.WithLogger(logger),
		http.WithDebug(o.debug),
		http.WithInterceptors(o.interceptors),
	}

	if o.httpClient != nil {
		httpOpts = append(httpOpts, http.WithHTTPClient(o.httpClient))
	}

	if o.backoffUnit > 0 {
		httpOpts = append(httpOpts, http.WithBackoffUnit(o.backoffUnit))
	}

	httpClient, err := http.NewClient(cfg, httpOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating transport: %w", err)
	}

	client := &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger,
		options:    o,
	}

	if o.cache != nil {
		client.cache = sensei.NewCacheManager(o.cache, logger)
		client.cacheScope = sensei.CacheScope(cfg)

		client.cachePolicy = o.cachePolicy
		if client.cachePolicy == nil {
			client.cachePolicy = sensei.DefaultCachingPolicy()
		}
	}

	client.initializeResourceClients()

	return client, nil
}

// initializeResourceClients initializes all resource-specific clients.
func (c *Client) initializeResourceClients() {
	c.products = NewProductsClient(c)
	c.users = NewUsersClient(c)
	c.payments = NewPaymentsClient(c)
	c.webhooks = NewWebhooksClient(c)
	c.media = NewMediaClient(c)
	c.guilds = NewGuildsClient(c)
}

// Config returns the configuration the client was built from.
func (c *Client) Config() *sensei.Config {
	return c.config
}

// IsAuthenticated reports whether an API key or bearer token is configured.
func (c *Client) IsAuthenticated() bool {
	return auth.FromConfig(c.config).IsAuthenticated()
}

// CacheStats returns the response cache counters. ok is false when caching is off.
func (c *Client) CacheStats() (sensei.CacheStats, bool) {
	if c.cache == nil {
		return sensei.CacheStats{}, false
	}

	return c.cache.GetStats(), true
}

// Request performs one logical request and classifies the final response.
func (c *Client) Request(ctx context.Context, method, path string, opts sensei.RequestOptions) (sensei.Record, error) {
	return c.do(ctx, &http.Request{
		Method:  strings.ToUpper(method),
		Path:    path,
		Query:   opts.Query,
		Body:    opts.Body,
		Headers: opts.Headers,
	})
}

// Get implements sensei.Getter.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (sensei.Record, error) {
	return c.do(ctx, &http.Request{Method: nethttp.MethodGet, Path: path, Query: query})
}

// Post sends a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (sensei.Record, error) {
	return c.do(ctx, &http.Request{Method: nethttp.MethodPost, Path: path, Body: body})
}

// Put sends a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (sensei.Record, error) {
	return c.do(ctx, &http.Request{Method: nethttp.MethodPut, Path: path, Body: body})
}

// Patch sends a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (sensei.Record, error) {
	return c.do(ctx, &http.Request{Method: nethttp.MethodPatch, Path: path, Body: body})
}

// Delete sends a DELETE. body is omitted when nil.
func (c *Client) Delete(ctx context.Context, path string, body any) (sensei.Record, error) {
	return c.do(ctx, &http.Request{Method: nethttp.MethodDelete, Path: path, Body: body})
}

// Upload posts filePath as multipart form data under fieldName, defaulting to
// "file", with fields as extra parts.
func (c *Client) Upload(ctx context.Context, path, filePath, fieldName string, fields map[string]any) (sensei.Record, error) {
	if fieldName == "" {
		fieldName = constants.DefaultUploadField
	}

	return c.do(ctx, &http.Request{
		Method: nethttp.MethodPost,
		Path:   path,
		Multipart: &http.Multipart{
			FieldName: fieldName,
			FilePath:  filePath,
			Fields:    fields,
		},
	})
}

func (c *Client) do(ctx context.Context, req *http.Request) (sensei.Record, error) {
	var (
		cacheKey string
		stale    *sensei.CacheEntry
	)

	if c.cacheable(req) {
		cacheKey = c.cache.GetCacheKey(c.cacheScope, req.Method, req.Path, req.Query)

		entry, err := c.cache.Lookup(ctx, cacheKey)
		if err == nil {
			if entry.Fresh() {
				c.logger.Debug("Cache hit", map[string]interface{}{"key": cacheKey})

				return sensei.DecodeRecord(entry.Data), nil
			}

			if entry.ETag != "" && c.cachePolicy.Revalidate > 0 {
				stale = entry
				req.Headers = withHeader(req.Headers, "If-None-Match", entry.ETag)
			}
		}
	}

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if stale != nil && resp.StatusCode == nethttp.StatusNotModified {
		c.logger.Debug("Cache revalidated", map[string]interface{}{"key": cacheKey})

		err = c.cache.Revalidated(ctx, cacheKey, stale, c.cachePolicy.TTL, c.cachePolicy.Revalidate)
		if err != nil {
			c.logger.Warn("Failed to refresh cache entry", map[string]interface{}{
				"key":   cacheKey,
				"error": err.Error(),
			})
		}

		return sensei.DecodeRecord(stale.Data), nil
	}

	outcome := sensei.Classify(resp.StatusCode, resp.Headers, resp.Body)

	switch outcome.Kind {
	case sensei.OutcomeSuccess:
		c.afterSuccess(ctx, req, resp, cacheKey)

		return outcome.Data, nil
	case sensei.OutcomeRateLimited:
		c.logger.Warn("Rate limit retries exhausted", map[string]interface{}{
			"method":      req.Method,
			"path":        req.Path,
			"retry_after": outcome.RetryAfter,
		})

		return nil, outcome.Err
	default:
		return nil, outcome.Err
	}
}

// withHeader returns a copy of headers with name set to value.
func withHeader(headers map[string]string, name, value string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}

	out[name] = value

	return out
}

func (c *Client) cacheable(req *http.Request) bool {
	return c.cache != nil && req.Method == nethttp.MethodGet && c.cachePolicy.ShouldCache(req.Method, req.Path, nethttp.StatusOK)
}

func (c *Client) afterSuccess(ctx context.Context, req *http.Request, resp *http.Response, cacheKey string) {
	if c.cache == nil {
		return
	}

	if req.Method != nethttp.MethodGet {
		c.cache.InvalidatePath(ctx, c.cacheScope, req.Path)

		return
	}

	if cacheKey == "" || !c.cachePolicy.ShouldCache(req.Method, req.Path, resp.StatusCode) {
		return
	}

	err := c.cache.SetWithETag(ctx, cacheKey, resp.Body, resp.Headers.Get("ETag"), c.cachePolicy.TTL, c.cachePolicy.Revalidate)
	if err != nil {
		c.logger.Warn("Failed to cache response", map[string]interface{}{
			"key":   cacheKey,
			"error": err.Error(),
		})
	}
}

// WithAPIKey returns a new client using key. The receiver is unchanged.
func (c *Client) WithAPIKey(key string) (sensei.Client, error) {
	return c.derive(c.config.WithAPIKey(key))
}

// WithBearerToken returns a new client using token.
func (c *Client) WithBearerToken(token string) (sensei.Client, error) {
	return c.derive(c.config.WithBearerToken(token))
}

// WithTenant returns a new client scoped to tenant.
func (c *Client) WithTenant(tenant string) (sensei.Client, error) {
	return c.derive(c.config.WithTenant(tenant))
}

// WithBaseURL returns a new client pointed at baseURL.
func (c *Client) WithBaseURL(baseURL string) (sensei.Client, error) {
	return c.derive(c.config.WithBaseURL(baseURL))
}

// derive builds a sibling client. The response cache is not carried over
// because cached bodies belong to the original credentials.
func (c *Client) derive(cfg *sensei.Config, err error) (sensei.Client, error) {
	if err != nil {
		return nil, err
	}

	o := c.options
	o.cache = nil

	derived, err := newClient(cfg, o)
	if err != nil {
		return nil, err
	}

	return derived, nil
}

var _ sensei.Client = (*Client)(nil)
