package constants

import "time"

// SDK identity.
const (
	// SDKVersion is the version reported in the User-Agent header.
	SDKVersion = "1.0.0"

	// UserAgentPrefix is prepended to SDKVersion to build the User-Agent.
	UserAgentPrefix = "Sensei-Partner-SDK-Go/"

	// DefaultBaseURL is the production partner API root.
	DefaultBaseURL = "https://api.senseitemple.com/api"
)

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default total timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is the default connect timeout.
	ShortHTTPTimeout = 10 * time.Second

	// DefaultIdleConnTimeout bounds pooled connection reuse.
	DefaultIdleConnTimeout = 90 * time.Second

	// DefaultMaxIdleConns is the idle connection pool size.
	DefaultMaxIdleConns = 100
)

// Retry limits.
const (
	// LowRetryMax is the default number of rate limit retries.
	LowRetryMax = 3

	// DefaultRetryAfterSeconds is used when a 429 carries no usable Retry-After.
	DefaultRetryAfterSeconds = 60

	// ExponentialBackoffBase is the base for exponential backoff.
	ExponentialBackoffBase = 2

	// ExtendedRetryWaitMax caps a single rate limit wait.
	ExtendedRetryWaitMax = 30 * time.Second
)

// HTTP header names and values.
const (
	HeaderAPIKey        = "X-API-Key"
	HeaderAuthorization = "Authorization"
	HeaderAccept        = "Accept"
	HeaderContentType   = "Content-Type"
	HeaderUserAgent     = "User-Agent"
	HeaderRetryAfter    = "Retry-After"

	ContentTypeJSON = "application/json"
	BearerPrefix    = "Bearer "
)

// Credential key prefixes and mode markers.
const (
	SecretKeyPrefix = "sk_"
	PublicKeyPrefix = "pk_"
	LiveModeMarker  = "_live_"
	TestModeMarker  = "_test_"
)

// Pagination defaults.
const (
	// DefaultPage is the page number assumed when meta omits current_page.
	DefaultPage = 1

	// PageParam is the query parameter carrying the page number.
	PageParam = "page"

	// PerPageParam is the query parameter carrying the page size.
	PerPageParam = "per_page"

	// StandardPageSize is the page size used by the CLI when --all is set.
	StandardPageSize = 50
)

// Upload defaults.
const (
	// DefaultUploadField is the multipart field name used for file parts.
	DefaultUploadField = "file"
)

// Cache and circuit breaker settings.
const (
	// DefaultCacheSize is the default cache size limit.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default cache time-to-live.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheRevalidateWindow is how long entries with an ETag outlive their TTL.
	DefaultCacheRevalidateWindow = 30 * time.Minute

	// MaxCacheValueSize is the maximum size for cached values (1MB).
	MaxCacheValueSize = 1024 * 1024

	// CircuitBreakerThreshold is the failure threshold for circuit breaker.
	CircuitBreakerThreshold = 5

	// CircuitBreakerSuccessThreshold is the success threshold for circuit breaker.
	CircuitBreakerSuccessThreshold = 2

	// CircuitBreakerTimeout is the timeout for circuit breaker.
	CircuitBreakerTimeout = 30 * time.Second
)

// State constants.
const (
	StatusClosed   = "closed"
	StatusOpen     = "open"
	StatusHalfOpen = "half-open"
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// None is used when no value is present.
	None = "none"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// StringTruncationLength is the default length for truncating strings.
	StringTruncationLength = 60

	// JSONIndentSize is the number of spaces for JSON indentation.
	JSONIndentSize = 2

	// SecretVisibleChars is how many trailing characters of a key stay visible when masked.
	SecretVisibleChars = 4
)

// Format constants.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)
