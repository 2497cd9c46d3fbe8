package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shellboard/shellboard/internal/server/middleware"
	"github.com/shellboard/shellboard/internal/service"
)

// AuthHandler serves login, logout, and the current-identity endpoint.
type AuthHandler struct {
	authSvc *service.AuthService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

type loginRequest struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

// loginResponse puts token and user at the top level rather than under the
// usual data envelope; login clients read {success, token, user} directly.
type loginResponse struct {
	Success bool        `json:"success"`
	Token   string      `json:"token"`
	User    interface{} `json:"user"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	req.Identity = strings.TrimSpace(req.Identity)
	if req.Identity == "" || req.Secret == "" {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}

	token, user, err := h.authSvc.Login(r.Context(), req.Identity, req.Secret, clientIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, MsgInvalidCredentials)
			return
		}
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: token, User: user.Public()})
}

// Logout handles POST /api/auth/logout. Revoking an already-revoked or
// unknown token still succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if err := h.authSvc.Logout(r.Context(), token, clientIP(r), r.UserAgent()); err != nil {
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}
	writeData(w, http.StatusOK, MsgLoggedOut, nil)
}

// Me handles GET /api/auth/me, returning the authenticated identity.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := middleware.GetPrincipal(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, MsgInvalidCredentials)
		return
	}
	writeData(w, http.StatusOK, "", map[string]interface{}{
		"id":    p.UserID,
		"email": p.Email,
		"role":  p.Role,
	})
}
