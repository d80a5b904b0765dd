// internal/clients/payment_client.go
package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// IntentParams describes a payment intent to create. Amount is in minor
// units.
type IntentParams struct {
	Amount      int64
	Currency    string
	MethodTypes []string
	// FPXBank selects the bank for an fpx intent.
	FPXBank  string
	Metadata map[string]string
}

// Intent is the subset of a gateway payment intent the storefront uses.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
}

// APIError is a non-2xx gateway response.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("payment gateway returned status %d", e.Status)
	}
	return fmt.Sprintf("payment gateway returned status %d: %s", e.Status, e.Message)
}

// PaymentClient creates payment intents through the Stripe SDK. Calls go
// through a circuit breaker; client errors (4xx) do not count as failures.
type PaymentClient struct {
	intents *paymentintent.Client
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
}

// NewPaymentClient builds a client for the API at baseURL. An empty baseURL
// uses the SDK default. The SDK's own retries are off; the breaker decides.
func NewPaymentClient(baseURL, secretKey string, timeout time.Duration) *PaymentClient {
	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if baseURL = strings.TrimRight(baseURL, "/"); baseURL != "" {
		cfg.URL = stripe.String(baseURL)
	}

	return &PaymentClient{
		intents: &paymentintent.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
			Key: secretKey,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "payment-gateway",
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: isBreakerSuccess,
		}),
		tracer: otel.Tracer("bookstore/clients"),
	}
}

func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests
}

// CreateIntent creates a payment intent and returns its id and client secret.
func (c *PaymentClient) CreateIntent(ctx context.Context, p IntentParams) (*Intent, error) {
	ctx, span := c.tracer.Start(ctx, "payment.create_intent",
		trace.WithAttributes(
			attribute.Int64("payment.amount", p.Amount),
			attribute.String("payment.currency", p.Currency),
			attribute.StringSlice("payment.method_types", p.MethodTypes),
		),
	)
	defer span.End()

	res, err := c.breaker.Execute(func() (interface{}, error) {
		pi, err := c.intents.New(intentParams(ctx, p))
		if err != nil {
			return nil, gatewayError(err)
		}
		return pi, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	pi := res.(*stripe.PaymentIntent)
	span.SetAttributes(attribute.String("payment.intent_id", pi.ID))
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

func intentParams(ctx context.Context, p IntentParams) *stripe.PaymentIntentParams {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(p.Amount),
		Currency:           stripe.String(p.Currency),
		PaymentMethodTypes: stripe.StringSlice(p.MethodTypes),
	}
	params.Context = ctx
	if p.FPXBank != "" {
		params.AddExtra("payment_method_data[type]", "fpx")
		params.AddExtra("payment_method_data[fpx][bank]", p.FPXBank)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}

// gatewayError turns an SDK API error into an APIError so callers can tell
// rejected requests from outages without importing the SDK.
func gatewayError(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		return &APIError{Status: se.HTTPStatusCode, Type: string(se.Type), Message: se.Msg}
	}
	return err
}
