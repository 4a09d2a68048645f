package sensei

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignWebhookPayload returns the hex HMAC-SHA256 of payload keyed by secret,
// as sent by the platform alongside webhook deliveries.
func SignWebhookPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)

	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature compares signature against the expected HMAC in constant time.
func VerifyWebhookSignature(payload []byte, signature, secret string) bool {
	expected := SignWebhookPayload(payload, secret)

	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// ValidateWebhook returns ErrInvalidSignature when the signature does not match.
func ValidateWebhook(payload []byte, signature, secret string) error {
	if !VerifyWebhookSignature(payload, signature, secret) {
		return ErrInvalidSignature
	}

	return nil
}
