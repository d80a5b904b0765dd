// internal/auth/handler.go
package auth

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
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Get("/profile/{adminId}", h.handleProfile)
	r.Get("/admin-name/{adminId}", h.handleAdminName)
	r.Post("/forgot", h.handleForgot)
	r.Post("/verify-otp", h.handleVerifyOTP)
	r.Put("/reset", h.handleReset)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := web.DecodeValid(w, r, &req); err != nil {
		web.WriteError(w, err)
		return
	}
	token, err := h.service.Register(r.Context(), req)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, map[string]string{"message": "Registration successful!", "token": token})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := web.DecodeJSON(w, r, &req); err != nil {
		web.WriteError(w, err)
		return
	}
	token, profile, err := h.service.Login(r.Context(), req)
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]any{"token": token, "profile": profile})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathInt(chi.URLParam(r, "adminId"), "admin id")
	if err != nil {
		web.WriteError(w, err)
		return
	}
	profile, err := h.service.Profile(r.Context(), int64(id))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleAdminName(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathInt(chi.URLParam(r, "adminId"), "admin id")
	if err != nil {
		web.WriteError(w, err)
		return
	}
	name, err := h.service.AdminName(r.Context(), int64(id))
	if err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]string{"admin_name": name})
}

func (h *Handler) handleForgot(w http.ResponseWriter, r *http.Request) {
	var req ForgotRequest
	if err := web.DecodeJSON(w, r, &req); err != nil {
		web.WriteError(w, err)
		return
	}
	if err := h.service.Forgot(r.Context(), req); err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]string{"message": "OTP sent to your email."})
}

func (h *Handler) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := web.DecodeJSON(w, r, &req); err != nil {
		web.WriteError(w, err)
		return
	}
	if err := h.service.VerifyOTP(r.Context(), req); err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]string{"message": "OTP verified."})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := web.DecodeJSON(w, r, &req); err != nil {
		web.WriteError(w, err)
		return
	}
	if err := h.service.Reset(r.Context(), req); err != nil {
		web.WriteError(w, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password reset successful."})
}
