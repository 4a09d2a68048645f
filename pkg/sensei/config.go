package sensei

import (
	"maps"
	"regexp"
	"strings"
	"time"

	"github.com/fivetwenty-io/sensei-partner/internal/constants"
)

// SDKVersion is the released version of this SDK.
const SDKVersion = constants.SDKVersion

// DefaultBaseURL is the production partner API root.
const DefaultBaseURL = constants.DefaultBaseURL

var tenantURLPattern = regexp.MustCompile(`^(.+/api)/v1/([a-zA-Z0-9_-]+)$`)

// Config holds credentials, endpoint and retry policy for a client.
// A Config is immutable once built; the With* methods return new values.
type Config struct {
	apiKey           string
	bearerToken      string
	baseURL          string
	tenant           string
	timeout          time.Duration
	connectTimeout   time.Duration
	maxRetries       int
	verifyTLS        bool
	retryOnRateLimit bool
	transportOptions map[string]any
}

// ConfigOption customizes a Config during construction.
type ConfigOption func(*Config)

// WithAPIKey sets the partner API key sent as X-API-Key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.apiKey = key
	}
}

// WithBearerToken sets the user token sent as Authorization: Bearer.
func WithBearerToken(token string) ConfigOption {
	return func(c *Config) {
		c.bearerToken = token
	}
}

// WithTenant sets the tenant explicitly. An explicit tenant disables
// extraction of the tenant from the base URL.
func WithTenant(tenant string) ConfigOption {
	return func(c *Config) {
		c.tenant = tenant
	}
}

// WithTimeout sets the total request timeout.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.timeout = d
	}
}

// WithConnectTimeout sets the connection establishment timeout.
func WithConnectTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.connectTimeout = d
	}
}

// WithMaxRetries sets the number of rate limit retries. Negative values are clamped to 0.
func WithMaxRetries(n int) ConfigOption {
	return func(c *Config) {
		c.maxRetries = n
	}
}

// WithVerifyTLS toggles server certificate verification.
func WithVerifyTLS(verify bool) ConfigOption {
	return func(c *Config) {
		c.verifyTLS = verify
	}
}

// WithRetryOnRateLimit toggles automatic retry of 429 responses.
func WithRetryOnRateLimit(retry bool) ConfigOption {
	return func(c *Config) {
		c.retryOnRateLimit = retry
	}
}

// WithTransportOptions passes extra transport settings (proxy, headers, pool sizes).
func WithTransportOptions(opts map[string]any) ConfigOption {
	return func(c *Config) {
		c.transportOptions = maps.Clone(opts)
	}
}

// NewConfig validates and normalizes a configuration.
//
// Trailing slashes are stripped from baseURL. When no tenant was given and the
// URL ends in /api/v1/<tenant>, the tenant is extracted and the base URL is
// reduced to the /api root.
func NewConfig(baseURL string, opts ...ConfigOption) (*Config, error) {
	cfg := &Config{
		baseURL:          baseURL,
		timeout:          constants.DefaultHTTPTimeout,
		connectTimeout:   constants.ShortHTTPTimeout,
		maxRetries:       constants.LowRetryMax,
		verifyTLS:        true,
		retryOnRateLimit: true,
		transportOptions: map[string]any{},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) normalize() error {
	if c.apiKey == "" && c.bearerToken == "" {
		return &ConfigurationError{Err: ErrMissingCredentials}
	}

	c.baseURL = strings.TrimRight(strings.TrimSpace(c.baseURL), "/")
	if c.baseURL == "" {
		return &ConfigurationError{Err: ErrBaseURLRequired}
	}

	if c.tenant == "" {
		if m := tenantURLPattern.FindStringSubmatch(c.baseURL); m != nil {
			c.baseURL = m[1]
			c.tenant = m[2]
		}
	}

	if c.maxRetries < 0 {
		c.maxRetries = 0
	}

	if c.transportOptions == nil {
		c.transportOptions = map[string]any{}
	}

	return nil
}

// options reproduces the construction inputs of c.
func (c *Config) options() []ConfigOption {
	return []ConfigOption{
		WithAPIKey(c.apiKey),
		WithBearerToken(c.bearerToken),
		WithTenant(c.tenant),
		WithTimeout(c.timeout),
		WithConnectTimeout(c.connectTimeout),
		WithMaxRetries(c.maxRetries),
		WithVerifyTLS(c.verifyTLS),
		WithRetryOnRateLimit(c.retryOnRateLimit),
		WithTransportOptions(c.transportOptions),
	}
}

// WithAPIKey returns a copy of c using key. Construction rules are re-applied.
func (c *Config) WithAPIKey(key string) (*Config, error) {
	return NewConfig(c.baseURL, append(c.options(), WithAPIKey(key))...)
}

// WithBearerToken returns a copy of c using token.
func (c *Config) WithBearerToken(token string) (*Config, error) {
	return NewConfig(c.baseURL, append(c.options(), WithBearerToken(token))...)
}

// WithTenant returns a copy of c bound to tenant.
func (c *Config) WithTenant(tenant string) (*Config, error) {
	return NewConfig(c.baseURL, append(c.options(), WithTenant(tenant))...)
}

// WithBaseURL returns a copy of c pointing at baseURL. The current tenant is
// kept; an empty tenant lets the new URL supply one.
func (c *Config) WithBaseURL(baseURL string) (*Config, error) {
	return NewConfig(baseURL, c.options()...)
}

// APIKey returns the configured API key.
func (c *Config) APIKey() string { return c.apiKey }

// BearerToken returns the configured bearer token.
func (c *Config) BearerToken() string { return c.bearerToken }

// BaseURL returns the normalized base URL.
func (c *Config) BaseURL() string { return c.baseURL }

// Tenant returns the tenant, explicit or extracted.
func (c *Config) Tenant() string { return c.tenant }

// Timeout returns the total request timeout.
func (c *Config) Timeout() time.Duration { return c.timeout }

// ConnectTimeout returns the connection timeout.
func (c *Config) ConnectTimeout() time.Duration { return c.connectTimeout }

// MaxRetries returns the rate limit retry budget.
func (c *Config) MaxRetries() int { return c.maxRetries }

// VerifyTLS reports whether server certificates are verified.
func (c *Config) VerifyTLS() bool { return c.verifyTLS }

// RetryOnRateLimit reports whether 429 responses are retried.
func (c *Config) RetryOnRateLimit() bool { return c.retryOnRateLimit }

// TransportOptions returns a copy of the extra transport settings.
func (c *Config) TransportOptions() map[string]any { return maps.Clone(c.transportOptions) }

// HasAPIKey reports whether an API key is configured.
func (c *Config) HasAPIKey() bool { return c.apiKey != "" }

// HasBearerToken reports whether a bearer token is configured.
func (c *Config) HasBearerToken() bool { return c.bearerToken != "" }

// IsSecretKey reports whether the API key is a secret (sk_) key.
func (c *Config) IsSecretKey() bool {
	return strings.HasPrefix(c.apiKey, constants.SecretKeyPrefix)
}

// IsPublicKey reports whether the API key is a publishable (pk_) key.
func (c *Config) IsPublicKey() bool {
	return strings.HasPrefix(c.apiKey, constants.PublicKeyPrefix)
}

// IsLiveMode reports whether the API key targets live data.
func (c *Config) IsLiveMode() bool {
	return c.apiKey != "" && strings.Contains(c.apiKey, constants.LiveModeMarker)
}

// IsTestMode reports whether the API key targets test data.
func (c *Config) IsTestMode() bool {
	return c.apiKey != "" && strings.Contains(c.apiKey, constants.TestModeMarker)
}

// UserAgent returns the User-Agent header value sent with every request.
func UserAgent() string {
	return constants.UserAgentPrefix + SDKVersion
}

// configMap is the snake_case shape accepted by ConfigFromMap.
type configMap struct {
	APIKey           string         `mapstructure:"api_key"`
	BearerToken      string         `mapstructure:"bearer_token"`
	BaseURL          string         `mapstructure:"base_url"`
	Tenant           string         `mapstructure:"tenant"`
	Timeout          time.Duration  `mapstructure:"timeout"`
	ConnectTimeout   time.Duration  `mapstructure:"connect_timeout"`
	MaxRetries       *int           `mapstructure:"max_retries"`
	VerifySSL        *bool          `mapstructure:"verify_ssl"`
	RetryOnRateLimit *bool          `mapstructure:"retry_on_rate_limit"`
	HTTPOptions      map[string]any `mapstructure:"http_options"`
}

// ConfigFromMap builds a Config from loosely typed settings such as a decoded
// YAML file or viper.AllSettings(). Integer timeouts are read as seconds and
// duration strings ("15s") are parsed. A missing base_url uses DefaultBaseURL.
func ConfigFromMap(settings map[string]any) (*Config, error) {
	var raw configMap

	err := DecodeSettings(settings, &raw)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}

	baseURL := raw.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	opts := []ConfigOption{
		WithAPIKey(raw.APIKey),
		WithBearerToken(raw.BearerToken),
		WithTenant(raw.Tenant),
		WithTransportOptions(raw.HTTPOptions),
	}

	if raw.Timeout > 0 {
		opts = append(opts, WithTimeout(raw.Timeout))
	}

	if raw.ConnectTimeout > 0 {
		opts = append(opts, WithConnectTimeout(raw.ConnectTimeout))
	}

	if raw.MaxRetries != nil {
		opts = append(opts, WithMaxRetries(*raw.MaxRetries))
	}

	if raw.VerifySSL != nil {
		opts = append(opts, WithVerifyTLS(*raw.VerifySSL))
	}

	if raw.RetryOnRateLimit != nil {
		opts = append(opts, WithRetryOnRateLimit(*raw.RetryOnRateLimit))
	}

	return NewConfig(baseURL, opts...)
}

// ToMap returns the snake_case settings of c with secrets included.
func (c *Config) ToMap() map[string]any {
	return map[string]any{
		"api_key":             c.apiKey,
		"bearer_token":        c.bearerToken,
		"base_url":            c.baseURL,
		"tenant":              c.tenant,
		"timeout":             int(c.timeout / time.Second),
		"connect_timeout":     int(c.connectTimeout / time.Second),
		"max_retries":         c.maxRetries,
		"verify_ssl":          c.verifyTLS,
		"retry_on_rate_limit": c.retryOnRateLimit,
		"http_options":        maps.Clone(c.transportOptions),
	}
}
