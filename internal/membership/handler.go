// internal/membership/handler.go
package membership

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

// Routes mounts the membership endpoints. guard wraps the admin mutations.
func (h *Handler) Routes(r chi.Router, guard func(http.Handler) http.Handler) {
	r.Get("/all_members", h.handleList)
	r.Get("/search_member/name/{name}", h.handleSearchByName)
	r.Get("/search_member/phone/{phone}", h.handleFindByPhone)
	r.Get("/member/{id}", h.handleGet)
	r.Post("/add_member", h.handleAdd)
	r.Post("/member/{id}/redeem", h.handleRedeem)

	r.Group(func(r chi.Router) {
		r.Use(guard)
		r.Put("/edit_member/{id}", h.handleUpdate)
		r.Delete("/delete_member/{id}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q, err := parseListRequest(r)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	h.writePage(w, r, q)
}

func (h *Handler) handleSearchByName(w http.ResponseWriter, r *http.Request) {
	q, err := parseListRequest(r)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	q.Name = chi.URLParam(r, "name")
	h.writePage(w, r, q)
}

func parseListRequest(r *http.Request) (ListQuery, error) {
	v, err := web.Query(r)
	if err != nil {
		return ListQuery{}, err
	}
	return ParseListQuery(v)
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, q ListQuery) {
	page, err := h.service.List(r.Context(), q)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleFindByPhone(w http.ResponseWriter, r *http.Request) {
	id, err := h.service.FindByPhone(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]int64{"member_ID": id})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathInt(chi.URLParam(r, "id"), "member id")
	if err != nil {
		web.WriteError(w, err)
		return
	}
	member, err := h.service.Get(r.Context(), int64(id))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req NewMember
	if err := web.DecodeValid(w, r, &req); err != nil {
		web.WriteError(w, err)
		return
	}
	id, err := h.service.Add(r.Context(), req)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, map[string]any{"message": "Member added successfully", "id": id})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathInt(chi.URLParam(r, "id"), "member id")
	if err != nil {
		web.WriteError(w, err)
		return
	}
	var req MemberUpdate
	if err := web.DecodeValid(w, r, &req); err != nil {
		web.WriteError(w, err)
		return
	}
	if err := h.service.Update(r.Context(), int64(id), req); err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]string{"message": "Member updated successfully"})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathInt(chi.URLParam(r, "id"), "member id")
	if err != nil {
		web.WriteError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), int64(id)); err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]string{"message": "Member deleted successfully"})
}

func (h *Handler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathInt(chi.URLParam(r, "id"), "member id")
	if err != nil {
		web.WriteError(w, err)
		return
	}
	member, err := h.service.Redeem(r.Context(), int64(id))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, member)
}
