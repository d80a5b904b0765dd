// internal/purchasing/handler.go
package purchasing

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"bookstore/pkg/web"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the purchase record endpoints behind guard.
func (h *Handler) Routes(r chi.Router, guard func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(guard)
		r.Get("/purchase-records", h.handleList)
		r.Post("/purchase-records", h.handleRecord)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "data": records})
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req NewPurchase
	if err := web.DecodeValid(w, r, &req); err != nil {
		web.WriteError(w, err)
		return
	}
	created, err := h.service.Record(r.Context(), req)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Purchase record added successfully",
		"data":    created,
	})
}
