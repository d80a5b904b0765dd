// internal/feedback/handler.go
package feedback

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

func (h *Handler) Routes(r chi.Router) {
	r.Get("/feedback", h.handleList)
	r.Post("/feedback", h.handleSubmit)
	r.Put("/feedback", h.handleEdit)
	r.Put("/feedback/{id}", h.handleEdit)
	r.Delete("/feedback/{id}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	v, err := web.Query(r)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	rows, err := h.service.ForBook(r.Context(), v.Get("isbn"))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, rows)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req NewFeedback
	if err := web.DecodeJSON(w, r, &req); err != nil {
		web.WriteError(w, err)
		return
	}
	id, err := h.service.Submit(r.Context(), req)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "feedbackId": id})
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req Edit
	if err := web.DecodeJSON(w, r, &req); err != nil {
		web.WriteError(w, err)
		return
	}
	if raw := chi.URLParam(r, "id"); raw != "" {
		id, err := web.PathInt(raw, "feedback id")
		if err != nil {
			web.WriteError(w, err)
			return
		}
		req.ID = int64(id)
	}
	if err := h.service.Edit(r.Context(), req); err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathInt(chi.URLParam(r, "id"), "feedback id")
	if err != nil {
		web.WriteError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), int64(id)); err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
