// internal/payment/implementation.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"bookstore/internal/clients"
	"bookstore/internal/sales"
	"bookstore/pkg/apperr"
)

// Config holds the gateway settings the service needs.
type Config struct {
	WebhookSecret   string
	DefaultCurrency string
}

// service implements the Service interface.
type service struct {
	gateway   Gateway
	confirmer Confirmer
	catalogue Catalogue
	cfg       Config
	logger    *slog.Logger
	tolerance time.Duration
	webhooks  metric.Int64Counter
}

// NewService creates a new payment service instance.
func NewService(gateway Gateway, confirmer Confirmer, cfg Config, logger *slog.Logger) Service {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "myr"
	}
	webhooks, _ := otel.Meter("bookstore/payment").Int64Counter("payment.webhooks",
		metric.WithDescription("Webhook deliveries by outcome"))

	return &service{
		gateway:   gateway,
		confirmer: confirmer,
		catalogue: DefaultCatalogue(),
		cfg:       cfg,
		logger:    logger.With("component", "payment"),
		tolerance: DefaultTolerance,
		webhooks:  webhooks,
	}
}

func (s *service) Methods() Catalogue {
	return s.catalogue
}

func (s *service) CreateIntent(ctx context.Context, req IntentRequest) (*IntentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	method, ok := s.catalogue[req.PaymentMethod]
	if !ok {
		return nil, ErrUnknownMethod
	}

	if req.PaymentMethod == MethodTouchNGo {
		s.logger.Info("simulated wallet payment", "amount", req.Amount.String())
		return &IntentResponse{
			ClientSecret:    SimulatedSecret,
			PaymentIntentID: "tng_" + uuid.NewString(),
			MemberID:        req.MemberID,
			Simulated:       true,
		}, nil
	}

	params := clients.IntentParams{
		Amount:      MinorUnits(req.Amount),
		Currency:    strings.ToLower(strings.TrimSpace(req.Currency)),
		MethodTypes: method.Types,
		Metadata:    map[string]string{"paymentMethod": req.PaymentMethod},
	}
	if params.Currency == "" {
		params.Currency = s.cfg.DefaultCurrency
	}
	if req.PaymentMethod == MethodOnlineBanking {
		if !method.hasBank(req.Bank) {
			return nil, ErrUnknownBank
		}
		params.FPXBank = req.Bank
	}

	var items bytes.Buffer
	if err := json.Compact(&items, req.Items); err != nil {
		return nil, apperr.Invalidf("invalid items: %v", err)
	}
	params.Metadata["items"] = items.String()
	if req.MemberID != "" {
		params.Metadata["memberid"] = string(req.MemberID)
	}

	intent, err := s.gateway.CreateIntent(ctx, params)
	var apiErr *clients.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != 429 {
		return nil, apperr.Invalidf("Payment processing failed: %s", apiErr.Message)
	}
	if err != nil {
		return nil, fmt.Errorf("payment processing failed: %w", err)
	}
	s.logger.Info("payment intent created", "intent_id", intent.ID, "method", req.PaymentMethod, "amount", params.Amount)
	return &IntentResponse{ClientSecret: intent.ClientSecret, PaymentIntentID: intent.ID}, nil
}

func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if err := VerifySignature(payload, signature, s.cfg.WebhookSecret, s.tolerance); err != nil {
		s.record(ctx, "rejected")
		s.logger.Warn("webhook signature verification failed", "error", err)
		return nil, err
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		s.record(ctx, "rejected")
		return nil, apperr.Invalidf("Webhook Error: %v", err)
	}
	if string(event.Type) != EventPaymentSucceeded {
		s.record(ctx, "ignored")
		return &WebhookResult{Received: true}, nil
	}

	var intent stripe.PaymentIntent
	if event.Data == nil || json.Unmarshal(event.Data.Raw, &intent) != nil || intent.ID == "" {
		s.record(ctx, "rejected")
		return nil, apperr.Invalidf("Webhook Error: event %s carries no payment intent", event.ID)
	}
	items, memberID, err := sales.DecodeMetadata(intent.Metadata["items"], intent.Metadata["memberid"])
	if err != nil {
		s.record(ctx, "rejected")
		return nil, err
	}

	_, err = s.confirmer.Confirm(ctx, sales.PaymentConfirmation{
		TransactionID: intent.ID,
		Amount:        decimal.New(intent.Amount, -2),
		Items:         items,
		MemberID:      memberID,
	})
	if errors.Is(err, sales.ErrAlreadyProcessed) {
		s.record(ctx, "duplicate")
		s.logger.Info("duplicate payment confirmation", "intent_id", intent.ID)
		return &WebhookResult{Received: true, Duplicate: true}, nil
	}
	if err != nil {
		s.record(ctx, "failed")
		return nil, err
	}

	s.record(ctx, "applied")
	return &WebhookResult{Received: true}, nil
}

func (s *service) record(ctx context.Context, outcome string) {
	s.webhooks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
