package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shellboard/shellboard/internal/audit"
	"github.com/shellboard/shellboard/internal/model"
	"github.com/shellboard/shellboard/internal/server/middleware"
	"github.com/shellboard/shellboard/internal/service"
	"github.com/shellboard/shellboard/internal/store"
)

// UserHandler serves account management. Every route behind it requires the
// admin role.
type UserHandler struct {
	store *store.Store
	audit *audit.Recorder
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(st *store.Store, rec *audit.Recorder) *UserHandler {
	return &UserHandler{store: st, audit: rec}
}

// List handles GET /api/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}
	out := make([]model.PublicUser, len(users))
	for i := range users {
		out[i] = users[i].Public()
	}
	writeData(w, http.StatusOK, "", out)
}

type createUserRequest struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
	IsActive *bool      `json:"is_active,omitempty"`
}

// Create handles POST /api/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" || !model.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}

	hash, err := service.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	u := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     active,
	}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, MsgUserExists)
			return
		}
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}

	h.recordUserAudit(r, model.ActionUserCreated, "created user", u)
	writeData(w, http.StatusCreated, MsgUserCreated, u.Public())
}

type updateUserRequest struct {
	Name     *string     `json:"name,omitempty"`
	Email    *string     `json:"email,omitempty"`
	Password *string     `json:"password,omitempty"`
	Role     *model.Role `json:"role,omitempty"`
	IsActive *bool       `json:"is_active,omitempty"`
}

// Update handles PUT /api/users/{id}. Absent fields keep their current
// values; existing sessions survive a password change.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	var req updateUserRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}

	u, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgUserNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}

	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Email != nil {
		u.Email = strings.TrimSpace(*req.Email)
	}
	if req.Role != nil {
		if !model.ValidRole(*req.Role) {
			writeError(w, http.StatusBadRequest, MsgInvalidRequest)
			return
		}
		u.Role = *req.Role
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := service.HashPassword(*req.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, MsgInternalError)
			return
		}
		u.PasswordHash = hash
	}

	if err := h.store.UpdateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgUserNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}

	h.recordUserAudit(r, model.ActionUserUpdated, "updated user", u)
	writeData(w, http.StatusOK, MsgUserUpdated, u.Public())
}

// Delete handles DELETE /api/users/{id}. The authenticated user may not
// delete itself.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}

	p := middleware.GetPrincipal(r.Context())
	if p != nil && p.UserID == id {
		writeError(w, http.StatusBadRequest, MsgSelfDelete)
		return
	}

	u, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgUserNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}

	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgUserNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}

	h.recordUserAudit(r, model.ActionUserDeleted, "deleted user", u)
	writeData(w, http.StatusOK, MsgUserDeleted, nil)
}

func (h *UserHandler) recordUserAudit(r *http.Request, action, verb string, u *model.User) {
	p := middleware.GetPrincipal(r.Context())
	var actor *int64
	if p != nil {
		actor = audit.ActorRef(p.UserID)
	}
	h.audit.Record(r.Context(), audit.Event{
		Action:  action,
		Message: verb + " " + u.Email,
		Details: map[string]interface{}{
			"user_id": u.ID,
			"email":   u.Email,
			"role":    u.Role,
		},
		ActorID:   actor,
		Origin:    clientIP(r),
		UserAgent: r.UserAgent(),
	})
}
