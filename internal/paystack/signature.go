package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
)

// ErrInvalidSignature means a webhook body did not match its signature
// header. The delivery must still be acknowledged, but no state may change.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// SignatureHeader is the header carrying the webhook body's HMAC.
const SignatureHeader = "X-Paystack-Signature"

// Sign computes the hex HMAC-SHA512 of body. Exposed for tests and tooling
// that need to forge valid webhook deliveries.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidSignature reports whether signature matches the raw, unparsed body.
// Must be called before any JSON decoding of the body.
func ValidSignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
