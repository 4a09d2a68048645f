package auth

import (
	"context"
	"strings"

	"github.com/fivetwenty-io/sensei-partner/internal/constants"
	"github.com/fivetwenty-io/sensei-partner/pkg/sensei"
)

// HeaderProvider supplies authentication headers for an outgoing request.
type HeaderProvider interface {
	AuthHeaders(ctx context.Context) (map[string]string, error)
}

// Credentials is the static partner credential pair. Either or both may be set;
// when both are set both headers are sent.
type Credentials struct {
	APIKey      string
	BearerToken string
}

// FromConfig extracts the credentials of cfg.
func FromConfig(cfg *sensei.Config) Credentials {
	return Credentials{
		APIKey:      cfg.APIKey(),
		BearerToken: cfg.BearerToken(),
	}
}

// IsAuthenticated reports whether any credential is present.
func (c Credentials) IsAuthenticated() bool {
	return c.APIKey != "" || c.BearerToken != ""
}

// AuthHeaders returns X-API-Key and/or Authorization: Bearer.
func (c Credentials) AuthHeaders(_ context.Context) (map[string]string, error) {
	headers := make(map[string]string, 2) //nolint:mnd

	if c.APIKey != "" {
		headers[constants.HeaderAPIKey] = c.APIKey
	}

	if c.BearerToken != "" {
		headers[constants.HeaderAuthorization] = constants.BearerPrefix + c.BearerToken
	}

	return headers, nil
}

// Mask hides all but the last few characters of a secret for display.
func Mask(secret string) string {
	if secret == "" {
		return constants.None
	}

	if len(secret) <= constants.SecretVisibleChars*2 {
		return constants.MaskedSecret
	}

	prefix := ""
	if i := strings.Index(secret, "_"); i > 0 && i < 3 {
		prefix = secret[:i+1]
	}

	return prefix + constants.MaskedSecret + secret[len(secret)-constants.SecretVisibleChars:]
}

// KeyKind describes an API key for display: "secret", "public" or "unknown".
func KeyKind(cfg *sensei.Config) string {
	switch {
	case !cfg.HasAPIKey():
		return constants.None
	case cfg.IsSecretKey():
		return "secret"
	case cfg.IsPublicKey():
		return "public"
	default:
		return "unknown"
	}
}

// KeyMode describes an API key mode: "live", "test" or "unknown".
func KeyMode(cfg *sensei.Config) string {
	switch {
	case cfg.IsLiveMode():
		return "live"
	case cfg.IsTestMode():
		return "test"
	default:
		return "unknown"
	}
}
