package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/identity"
)

// LoginRequest is the request body for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer credential for admin requests
type LoginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// Login checks the credential pair and issues a token or session id
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.auth == nil || h.gate == nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, ErrorResponse{Error: "login is not configured"})
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, &simplecms.ValidationError{Field: "body", Reason: "invalid JSON"})
		return
	}

	principal, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		h.logger.WarnContext(r.Context(), "Login rejected", "email", req.Email)
		h.writeError(w, r, simplecms.ErrUnauthorized)
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	token, err := h.gate.Issue(r.Context(), principal)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if _, ok := h.gate.(*identity.Sessions); ok {
		http.SetCookie(w, &http.Cookie{
			Name:     identity.SessionCookie,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}

	h.logger.InfoContext(r.Context(), "Login succeeded", "principal", principal.ID)
	render.JSON(w, r, LoginResponse{Token: token, Email: principal.Email})
}

// Logout revokes the session of the request when the gate supports it
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if revoker, ok := h.gate.(identity.Revoker); ok {
		if id := identity.SessionID(r); id != "" {
			if err := revoker.Revoke(r.Context(), id); err != nil {
				h.writeError(w, r, err)
				return
			}
		}
		http.SetCookie(w, &http.Cookie{Name: identity.SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	}
	w.WriteHeader(http.StatusNoContent)
}
