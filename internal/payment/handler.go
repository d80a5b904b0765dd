// internal/payment/handler.go
package payment

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bookstore/pkg/apperr"
	"bookstore/pkg/web"
)

const maxWebhookBytes = 1 << 20

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the payment endpoints. The webhook reads the raw body since
// the signature covers its exact bytes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/payment-methods", h.handleMethods)
	r.Post("/create-payment-intent", h.handleCreateIntent)
	r.Post("/webhook", h.handleWebhook)
}

func (h *Handler) handleMethods(w http.ResponseWriter, r *http.Request) {
	web.WriteJSON(w, http.StatusOK, h.service.Methods())
}

func (h *Handler) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	var req IntentRequest
	if err := web.DecodeJSON(w, r, &req); err != nil {
		web.WriteError(w, err)
		return
	}
	resp, err := h.service.CreateIntent(r.Context(), req)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		web.WriteError(w, apperr.Invalidf("Webhook Error: %v", err))
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if errors.Is(err, apperr.ErrInvalid) {
		web.WriteError(w, err)
		return
	}
	if err != nil {
		// The gateway retries on 5xx.
		web.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Webhook processing failed",
			"message": err.Error(),
		})
		return
	}
	web.WriteJSON(w, http.StatusOK, result)
}
