// internal/server/app.go
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"bookstore/internal/auth"
	"bookstore/internal/catalog"
	"bookstore/internal/feedback"
	"bookstore/internal/membership"
	"bookstore/internal/notify"
	"bookstore/internal/payment"
	"bookstore/internal/purchasing"
	"bookstore/internal/sales"
	"bookstore/pkg/config"
	"bookstore/pkg/database"
)

// Deps are the long-lived resources the API runs on. The caller owns their
// lifecycle.
type Deps struct {
	Config  config.Config
	DB      *database.DB
	Hub     *notify.Hub
	OTPs    *auth.OTPStore
	Mailer  auth.Mailer
	Gateway payment.Gateway
	Logger  *slog.Logger
	Metrics *Metrics
}

// Build wires every service onto its Postgres store and returns the router.
func Build(d Deps) (http.Handler, error) {
	cfg := d.Config

	images, err := catalog.NewImageStore(cfg.Uploads.Dir, cfg.Uploads.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("image store: %w", err)
	}
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	salesSvc := sales.NewService(sales.NewPostgresStore(d.DB), d.Logger)
	paymentSvc := payment.NewService(d.Gateway, salesSvc, payment.Config{
		WebhookSecret:   cfg.Payment.WebhookSecret,
		DefaultCurrency: cfg.Payment.Currency,
	}, d.Logger)

	handlers := Handlers{
		Auth: auth.NewHandler(auth.NewService(auth.NewPostgresStore(d.DB), tokens, d.OTPs, d.Mailer, d.Logger)),
		Catalog: catalog.NewHandler(
			catalog.NewService(catalog.NewPostgresStore(d.DB), images, d.Hub, d.Logger),
			cfg.Uploads.MaxBytes,
		),
		Membership: membership.NewHandler(membership.NewService(membership.NewPostgresStore(d.DB), d.Logger)),
		Sales:      sales.NewHandler(salesSvc),
		Purchasing: purchasing.NewHandler(purchasing.NewService(purchasing.NewPostgresStore(d.DB), d.Hub, d.Logger)),
		Payment:    payment.NewHandler(paymentSvc),
		Feedback:   feedback.NewHandler(feedback.NewService(feedback.NewPostgresStore(d.DB), d.Logger)),
	}

	return New(Options{
		Logger:         d.Logger,
		DB:             d.DB,
		Guard:          tokens.Guard(cfg.Auth.RequireToken),
		Notifications:  d.Hub.StreamHandler(),
		UploadDir:      images.Dir(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        d.Metrics,
	}, handlers), nil
}
