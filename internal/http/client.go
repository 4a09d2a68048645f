// Package http is the transport of the partner client. It sends one logical
// request, replays it on 429 through go-retryablehttp, and hands back the raw
// status, headers and body without interpreting them.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/sensei-partner/internal/auth"
	"github.com/fivetwenty-io/sensei-partner/internal/constants"
	"github.com/fivetwenty-io/sensei-partner/internal/retry"
	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

const dialKeepAlive = 30 * time.Second

// Request is one logical API call.
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Body      any
	Headers   map[string]string
	Multipart *Multipart
}

// Response is the raw result of the final attempt.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// TransportOptions are the extra settings accepted under http_options.
type TransportOptions struct {
	Proxy              string            `mapstructure:"proxy"`
	Headers            map[string]string `mapstructure:"headers"`
	MaxIdleConns       int               `mapstructure:"max_idle_conns"`
	IdleConnTimeout    time.Duration     `mapstructure:"idle_conn_timeout"`
	DisableKeepAlives  bool              `mapstructure:"disable_keep_alives"`
	DisableCompression bool              `mapstructure:"disable_compression"`
}

// Client performs HTTP requests against the partner API.
type Client struct {
	baseURL      string
	credentials  auth.HeaderProvider
	headers      map[string]string
	httpClient   *retryablehttp.Client
	baseClient   *http.Client
	policy       *retry.Policy
	interceptors *sensei.InterceptorChain
	logger       sensei.Logger
	debug        bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger sensei.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithInterceptors runs chain around every attempt.
func WithInterceptors(chain *sensei.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithHTTPClient replaces the underlying *http.Client. Its transport is still
// wrapped by the interceptor chain.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.baseClient = client
	}
}

// WithBackoffUnit changes the length of one backoff step.
func WithBackoffUnit(unit time.Duration) Option {
	return func(c *Client) {
		c.policy.Unit = unit
	}
}

// NewClient creates a transport for cfg.
func NewClient(cfg *sensei.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, &sensei.ConfigurationError{Err: sensei.ErrMissingCredentials}
	}

	client := &Client{
		baseURL:     cfg.BaseURL(),
		credentials: auth.FromConfig(cfg),
		policy:      retry.NewPolicy(cfg),
		logger:      sensei.NoopLogger{},
	}

	for _, opt := range opts {
		opt(client)
	}

	client.policy.Logger = client.logger

	var transportOpts TransportOptions

	unused, err := sensei.DecodeSettingsReport(cfg.TransportOptions(), &transportOpts)
	if err != nil {
		return nil, &sensei.ConfigurationError{Err: fmt.Errorf("invalid http options: %w", err)}
	}

	if len(unused) > 0 {
		client.logger.Debug("Ignoring unknown http options", map[string]interface{}{
			"keys": unused,
		})
	}

	client.headers = transportOpts.Headers

	if client.baseClient == nil {
		client.baseClient, err = newHTTPClient(cfg, transportOpts)
		if err != nil {
			return nil, err
		}
	}

	client.httpClient = client.newRetryableClient()

	return client, nil
}

func newHTTPClient(cfg *sensei.Config, opts TransportOptions) (*http.Client, error) {
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout(),
		KeepAlive: dialKeepAlive,
	}

	maxIdle := opts.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = constants.DefaultMaxIdleConns
	}

	idleTimeout := opts.IdleConnTimeout
	if idleTimeout <= 0 {
		idleTimeout = constants.DefaultIdleConnTimeout
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout(),
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: !cfg.VerifyTLS(), // #nosec G402 -- opt-in via verify_ssl=false
		},
		MaxIdleConns:       maxIdle,
		IdleConnTimeout:    idleTimeout,
		DisableKeepAlives:  opts.DisableKeepAlives,
		DisableCompression: opts.DisableCompression,
		ForceAttemptHTTP2:  true,
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, &sensei.ConfigurationError{Err: fmt.Errorf("invalid proxy URL: %w", err)}
		}

		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout(),
	}, nil
}

func (c *Client) newRetryableClient() *retryablehttp.Client {
	base := *c.baseClient

	next := base.Transport
	if next == nil {
		next = http.DefaultTransport
	}

	base.Transport = &interceptTransport{next: next, chain: c.interceptors}

	client := retryablehttp.NewClient()
	client.HTTPClient = &base
	client.Logger = nil

	if c.debug {
		client.Logger = &leveledLogger{logger: c.logger}
	}

	c.policy.Apply(client)

	return client
}

// Do performs req. A non-2xx status is not an error; only failures that
// produced no response are returned, as *sensei.ConnectionError or
// *sensei.TransportError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	requestURL := c.buildURL(req.Path, req.Query)

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, &sensei.TransportError{Err: err}
	}

	var rawBody interface{}
	if body != nil {
		rawBody = body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, requestURL, rawBody)
	if err != nil {
		return nil, &sensei.TransportError{Err: fmt.Errorf("failed to create request: %w", err)}
	}

	err = c.setHeaders(ctx, httpReq.Header, req.Headers, contentType)
	if err != nil {
		return nil, &sensei.TransportError{Err: err}
	}

	if c.debug {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    requestURL,
		})
	}

	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, wrapError(ctx, err)
	}

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &sensei.TransportError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if c.debug {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status":   resp.StatusCode,
			"duration": time.Since(start).String(),
		})
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post sends a POST request.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put sends a PUT request.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch sends a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// BaseURL returns the base URL requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) buildURL(path string, query url.Values) string {
	target := c.baseURL + "/" + strings.Trim(path, "/")

	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	return target
}

func (c *Client) setHeaders(ctx context.Context, header http.Header, overrides map[string]string, contentType string) error {
	header.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	header.Set(constants.HeaderContentType, contentType)
	header.Set(constants.HeaderUserAgent, sensei.UserAgent())

	for key, value := range c.headers {
		header.Set(key, value)
	}

	if c.credentials != nil {
		authHeaders, err := c.credentials.AuthHeaders(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve credentials: %w", err)
		}

		for key, value := range authHeaders {
			header.Set(key, value)
		}
	}

	for key, value := range overrides {
		header.Set(key, value)
	}

	return nil
}

func encodeBody(req *Request) ([]byte, string, error) {
	if req.Multipart != nil {
		return req.Multipart.encode()
	}

	if req.Body == nil {
		return nil, constants.ContentTypeJSON, nil
	}

	switch body := req.Body.(type) {
	case []byte:
		return body, constants.ContentTypeJSON, nil
	case json.RawMessage:
		return body, constants.ContentTypeJSON, nil
	}

	data, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	return data, constants.ContentTypeJSON, nil
}

// wrapError sorts a failure without a response into connection or transport
// errors. Context errors of the caller always count as transport errors.
func wrapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return &sensei.TransportError{Err: err}
	}

	if isConnectionFailure(err) {
		return &sensei.ConnectionError{Err: err}
	}

	return &sensei.TransportError{Err: err}
}

func isConnectionFailure(err error) bool {
	var (
		dnsErr       *net.DNSError
		opErr        *net.OpError
		certErr      *tls.CertificateVerificationError
		recordErr    tls.RecordHeaderError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)

	switch {
	case errors.As(err, &dnsErr),
		errors.As(err, &certErr),
		errors.As(err, &recordErr),
		errors.As(err, &authorityErr),
		errors.As(err, &hostnameErr),
		errors.As(err, &invalidErr):
		return true
	case errors.As(err, &opErr):
		return opErr.Op == "dial"
	default:
		return false
	}
}

// interceptTransport runs the interceptor chain around each attempt.
type interceptTransport struct {
	next  http.RoundTripper
	chain *sensei.InterceptorChain
}

func (t *interceptTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if t.chain.Len() == 0 {
		return t.next.RoundTrip(r) //nolint:wrapcheck
	}

	ctx := r.Context()

	var body []byte

	if r.Body != nil && r.Body != http.NoBody {
		var err error

		body, err = io.ReadAll(r.Body)
		_ = r.Body.Close()

		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
	}

	intercepted := &sensei.Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		Headers:  r.Header.Clone(),
		Body:     body,
		Metadata: make(map[string]interface{}),
	}

	err := t.chain.ExecuteRequestInterceptors(ctx, intercepted)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	outgoing := r.Clone(ctx)
	outgoing.Header = intercepted.Headers
	outgoing.Body = io.NopCloser(bytes.NewReader(intercepted.Body))
	outgoing.ContentLength = int64(len(intercepted.Body))

	if len(intercepted.Body) == 0 {
		outgoing.Body = http.NoBody
	}

	resp, err := t.next.RoundTrip(outgoing)
	if err != nil {
		_ = t.chain.ExecuteResponseInterceptors(ctx, intercepted, &sensei.Response{Error: err})

		return nil, err //nolint:wrapcheck
	}

	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	err = t.chain.ExecuteResponseInterceptors(ctx, intercepted, &sensei.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	resp.Body = io.NopCloser(bytes.NewReader(respBody))

	return resp, nil
}

// leveledLogger adapts sensei.Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger sensei.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, pairs(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, pairs(keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, pairs(keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, pairs(keysAndValues))
}

func pairs(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}

var _ retryablehttp.LeveledLogger = (*leveledLogger)(nil)
