// internal/server/server.go

// Package server assembles the HTTP API: shared middleware, operational
// endpoints and every service's routes under /api.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"bookstore/internal/auth"
	"bookstore/internal/catalog"
	"bookstore/internal/feedback"
	"bookstore/internal/membership"
	"bookstore/internal/payment"
	"bookstore/internal/purchasing"
	"bookstore/internal/sales"
	"bookstore/pkg/logging"
	"bookstore/pkg/web"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers are the per-service route sets.
type Handlers struct {
	Auth       *auth.Handler
	Catalog    *catalog.Handler
	Membership *membership.Handler
	Sales      *sales.Handler
	Purchasing *purchasing.Handler
	Payment    *payment.Handler
	Feedback   *feedback.Handler
}

type Options struct {
	Logger *slog.Logger
	DB     Pinger
	// Guard wraps admin-only routes.
	Guard          func(http.Handler) http.Handler
	Notifications  http.Handler
	UploadDir      string
	AllowedOrigins []string
	Metrics        *Metrics
}

// New builds the router.
func New(opts Options, h Handlers) http.Handler {
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(opts.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Stripe-Signature"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler(opts.DB))
	r.Handle("/metrics", opts.Metrics.Handler())
	if opts.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.UploadDir))))
	}

	r.Route("/api", func(r chi.Router) {
		if opts.Notifications != nil {
			r.Get("/notifications/stream", opts.Notifications.ServeHTTP)
		}
		h.Auth.Routes(r)
		h.Catalog.Routes(r, opts.Guard)
		h.Membership.Routes(r, opts.Guard)
		h.Sales.Routes(r, opts.Guard)
		h.Purchasing.Routes(r, opts.Guard)
		h.Feedback.Routes(r)
		r.Route("/payment", h.Payment.Routes)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		web.WriteJSON(w, http.StatusNotFound, web.ErrorBody{Error: "route not found"})
	})
	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			web.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db_error"})
			return
		}
		web.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
