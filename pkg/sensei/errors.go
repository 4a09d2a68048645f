package sensei

import (
	"errors"
	"fmt"
	"sort"
)

// ErrorKind identifies which branch of the error taxonomy an APIError belongs to.
type ErrorKind int

const (
	// KindGeneric covers any non-2xx status without a dedicated kind.
	KindGeneric ErrorKind = iota
	// KindAuthentication is returned for 401 and 403.
	KindAuthentication
	// KindNotFound is returned for 404.
	KindNotFound
	// KindValidation is returned for 422.
	KindValidation
	// KindRateLimit is returned for a 429 that was not (or no longer) retried.
	KindRateLimit
	// KindServer is returned for 500, 502, 503 and 504.
	KindServer
)

// String returns a short name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindRateLimit:
		return "rate_limit"
	case KindServer:
		return "server"
	case KindGeneric:
		return "generic"
	default:
		return "generic"
	}
}

// Sentinels matched by APIError.Is. Use errors.Is(err, sensei.ErrNotFound) and friends.
var (
	ErrAPI            = errors.New("sensei api error")
	ErrAuthentication = errors.New("authentication failed")
	ErrNotFound       = errors.New("resource not found")
	ErrValidation     = errors.New("validation failed")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrServer         = errors.New("server error")
)

// Static errors for err113 compliance.
var (
	ErrConfiguration      = errors.New("invalid configuration")
	ErrMissingCredentials = errors.New("either api key or bearer token must be provided")
	ErrBaseURLRequired    = errors.New("base url is required")
	ErrTenantRequired     = errors.New("tenant is required for this resource")
	ErrInvalidPage        = errors.New("page number must be at least 1")
	ErrUnexpectedShape    = errors.New("unexpected response shape")
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	ErrCacheMiss          = errors.New("key not found")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
)

// ConfigurationError wraps a construction failure of Config.
type ConfigurationError struct {
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("sensei configuration: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is reports ErrConfiguration as a match for every ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ConnectionError is returned when the server could not be reached:
// DNS failure, refused connection, dial timeout or TLS handshake failure.
type ConnectionError struct {
	Err error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TransportError is returned for failures other than connection problems that
// prevented a response from being received, such as a malformed URL, a body
// that could not be encoded, or a broken response stream.
type TransportError struct {
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response from the partner API.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Body       Record
	// RetryAfter is the server-advised wait in seconds. Only set for KindRateLimit.
	RetryAfter int
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status: %d)", e.Message, e.StatusCode)
}

// Unwrap returns the underlying cause, if any.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is maps the error kind onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAPI:
		return true
	case ErrAuthentication:
		return e.Kind == KindAuthentication
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrRateLimited:
		return e.Kind == KindRateLimit
	case ErrServer:
		return e.Kind == KindServer
	}

	return false
}

// ErrorCode returns the machine-readable "error" field of the body, if present.
func (e *APIError) ErrorCode() string {
	if code, ok := e.Body["error"].(string); ok {
		return code
	}

	return ""
}

// ErrorMessage returns the body "message" field, falling back to Message.
func (e *APIError) ErrorMessage() string {
	if msg, ok := e.Body["message"].(string); ok {
		return msg
	}

	return e.Message
}

// Errors returns the field-level validation messages keyed by field name.
func (e *APIError) Errors() map[string][]string {
	out := make(map[string][]string)

	raw, ok := e.Body["errors"].(map[string]any)
	if !ok {
		return out
	}

	for field, v := range raw {
		switch msgs := v.(type) {
		case []any:
			for _, m := range msgs {
				out[field] = append(out[field], fmt.Sprint(m))
			}
		case string:
			out[field] = []string{msgs}
		}
	}

	return out
}

// HasFieldError reports whether the response carried messages for field.
func (e *APIError) HasFieldError(field string) bool {
	_, ok := e.Errors()[field]

	return ok
}

// FieldErrors returns the messages for field, or nil.
func (e *APIError) FieldErrors(field string) []string {
	return e.Errors()[field]
}

// AllMessages flattens every field message, ordered by field name.
func (e *APIError) AllMessages() []string {
	errs := e.Errors()

	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}

	sort.Strings(fields)

	var out []string
	for _, field := range fields {
		out = append(out, errs[field]...)
	}

	return out
}

// FirstMessage returns the first field message, or Message when there are none.
func (e *APIError) FirstMessage() string {
	msgs := e.AllMessages()
	if len(msgs) > 0 {
		return msgs[0]
	}

	return e.Message
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	return nil, false
}

// IsAuthenticationError checks if the error is a 401/403 API error.
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// IsNotFound checks if the error is a 404 API error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if the error is a 422 API error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsRateLimited checks if the error is an exhausted or unretried 429.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsServerError checks if the error is a 5xx API error.
func IsServerError(err error) bool {
	return errors.Is(err, ErrServer)
}

// IsConnectionError checks if the request never reached the server.
func IsConnectionError(err error) bool {
	connErr := &ConnectionError{}

	return errors.As(err, &connErr)
}
