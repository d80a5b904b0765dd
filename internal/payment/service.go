// internal/payment/service.go
package payment

import (
	"context"

	"bookstore/internal/clients"
	"bookstore/internal/sales"
)

// Service defines the interface for the payment service.
type Service interface {
	Methods() Catalogue
	CreateIntent(ctx context.Context, req IntentRequest) (*IntentResponse, error)
	// HandleWebhook verifies and applies a gateway event. A signature failure
	// is reported before anything is decoded or written.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error)
}

// Gateway creates payment intents.
type Gateway interface {
	CreateIntent(ctx context.Context, p clients.IntentParams) (*clients.Intent, error)
}

// Confirmer applies a confirmed payment.
type Confirmer interface {
	Confirm(ctx context.Context, c sales.PaymentConfirmation) (*sales.Outcome, error)
}
