// internal/payment/signature.go
package payment

import (
	"errors"
	"time"

	"github.com/stripe/stripe-go/v76/webhook"

	"bookstore/pkg/apperr"
)

// DefaultTolerance is how old a signed webhook may be.
const DefaultTolerance = webhook.DefaultTolerance

var (
	ErrNoSignature      = apperr.New(apperr.ErrInvalid, "Webhook Error: missing signature header")
	ErrBadSignature     = apperr.New(apperr.ErrInvalid, "Webhook Error: no signatures found matching the expected signature for payload")
	ErrSignatureExpired = apperr.New(apperr.ErrInvalid, "Webhook Error: timestamp outside the tolerance zone")
)

// VerifySignature checks a Stripe-Signature header against payload. Any v1
// entry may match, so rolled secrets keep working.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	if header == "" {
		return ErrNoSignature
	}
	err := webhook.ValidatePayloadWithTolerance(payload, header, secret, tolerance)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, webhook.ErrNotSigned):
		return ErrNoSignature
	case errors.Is(err, webhook.ErrTooOld):
		return ErrSignatureExpired
	default:
		return ErrBadSignature
	}
}

// SignatureHeader builds the header the gateway would send for payload
// signed at t.
func SignatureHeader(payload []byte, secret string, t time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: t,
	}).Header
}
