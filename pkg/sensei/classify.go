package sensei

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/sensei-partner/internal/constants"
)

// OutcomeKind tags the result of classifying a response.
type OutcomeKind int

const (
	// OutcomeSuccess means a 2xx status; Data holds the decoded body.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeRateLimited means a 429; RetryAfter is set and Err is prepared.
	OutcomeRateLimited
	// OutcomeError means any other non-2xx status; Err is set.
	OutcomeError
)

// Outcome is the classified form of a raw HTTP response.
type Outcome struct {
	Kind       OutcomeKind
	Data       Record
	RetryAfter int
	Err        *APIError
}

// Classify maps a raw status, headers and body onto an Outcome. It holds no
// state and performs no I/O. Whether a 429 is retried is decided elsewhere.
func Classify(status int, header http.Header, body []byte) Outcome {
	if status >= 200 && status < 300 {
		return Outcome{Kind: OutcomeSuccess, Data: DecodeRecord(body)}
	}

	decoded := DecodeRecord(body)
	apiErr := &APIError{
		StatusCode: status,
		Message:    errorMessage(decoded),
		Body:       decoded,
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		apiErr.Kind = KindAuthentication
	case http.StatusNotFound:
		apiErr.Kind = KindNotFound
	case http.StatusUnprocessableEntity:
		apiErr.Kind = KindValidation
	case http.StatusTooManyRequests:
		apiErr.Kind = KindRateLimit
		apiErr.RetryAfter = ParseRetryAfter(header)

		return Outcome{Kind: OutcomeRateLimited, RetryAfter: apiErr.RetryAfter, Err: apiErr}
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		apiErr.Kind = KindServer
	default:
		apiErr.Kind = KindGeneric
	}

	return Outcome{Kind: OutcomeError, Err: apiErr}
}

// DecodeRecord decodes a JSON object body. Empty or invalid input yields an
// empty Record; a bare JSON array is wrapped under "data".
func DecodeRecord(body []byte) Record {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return Record{}
	}

	var value any

	err := json.Unmarshal([]byte(trimmed), &value)
	if err != nil {
		return Record{}
	}

	switch v := value.(type) {
	case map[string]any:
		return v
	case []any:
		return Record{"data": v}
	default:
		return Record{}
	}
}

// ParseRetryAfter reads the Retry-After header as whole seconds. HTTP-date
// values are converted to the seconds remaining (0 once past). Missing,
// malformed or negative values yield the 60 second default.
func ParseRetryAfter(header http.Header) int {
	if header == nil {
		return constants.DefaultRetryAfterSeconds
	}

	raw := strings.TrimSpace(header.Get(constants.HeaderRetryAfter))
	if raw == "" {
		return constants.DefaultRetryAfterSeconds
	}

	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds < 0 {
			return constants.DefaultRetryAfterSeconds
		}

		return seconds
	}

	if at, err := http.ParseTime(raw); err == nil {
		return max(int(math.Ceil(time.Until(at).Seconds())), 0)
	}

	return constants.DefaultRetryAfterSeconds
}

func errorMessage(body Record) string {
	if msg, ok := body["message"].(string); ok && msg != "" {
		return msg
	}

	if msg, ok := body["error"].(string); ok && msg != "" {
		return msg
	}

	return "Unknown error"
}
