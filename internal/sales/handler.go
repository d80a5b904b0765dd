// internal/sales/handler.go
package sales

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

// Routes mounts sales reporting and receipts. Reports are admin-only.
func (h *Handler) Routes(r chi.Router, guard func(http.Handler) http.Handler) {
	r.Get("/receipt/{transactionId}", h.handleReceipt)

	r.Group(func(r chi.Router) {
		r.Use(guard)
		r.Get("/sales/years", h.handleYears)
		r.Get("/sales/{year}", h.handleYearlyReport)
	})
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.service.Receipt(r.Context(), chi.URLParam(r, "transactionId"))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, receipt)
}

func (h *Handler) handleYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.service.Years(r.Context())
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, years)
}

func (h *Handler) handleYearlyReport(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYear(chi.URLParam(r, "year"))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	report, err := h.service.YearlyReport(r.Context(), year)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, report)
}
