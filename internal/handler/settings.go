package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shellboard/shellboard/internal/audit"
	"github.com/shellboard/shellboard/internal/model"
	"github.com/shellboard/shellboard/internal/server/middleware"
	"github.com/shellboard/shellboard/internal/store"
)

// SettingHandler serves the key-value settings API. Reads are available to
// any authenticated user; the public subset needs no authentication at all
// so the login page can fetch branding before a token exists.
type SettingHandler struct {
	store *store.Store
	audit *audit.Recorder
}

// NewSettingHandler creates a SettingHandler.
func NewSettingHandler(st *store.Store, rec *audit.Recorder) *SettingHandler {
	return &SettingHandler{store: st, audit: rec}
}

// List handles GET /api/settings.
func (h *SettingHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.ListSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}
	writeData(w, http.StatusOK, "", settings)
}

// ListPublic handles GET /api/settings/public, the unauthenticated subset.
func (h *SettingHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.ListPublicSettings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}
	writeData(w, http.StatusOK, "", settings)
}

type upsertSettingRequest struct {
	Value    string `json:"value"`
	Category string `json:"category,omitempty"`
	IsPublic bool   `json:"is_public,omitempty"`
}

// Upsert handles PUT /api/settings/{key}. Writing an existing key
// overwrites its value.
func (h *SettingHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "key"))
	if key == "" {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	var req upsertSettingRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	if req.Category == "" {
		req.Category = model.CategoryGeneral
	}

	set := &model.Setting{
		Key:      key,
		Value:    req.Value,
		Category: req.Category,
		IsPublic: req.IsPublic,
	}
	if err := h.store.UpsertSetting(r.Context(), set); err != nil {
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}

	h.recordSettingAudit(r, model.ActionConfigUpdated, "updated setting", key)
	writeData(w, http.StatusOK, MsgSettingSaved, set)
}

// Delete handles DELETE /api/settings/{key}.
func (h *SettingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.store.DeleteSetting(r.Context(), key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgSettingNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}
	h.recordSettingAudit(r, model.ActionConfigDeleted, "deleted setting", key)
	writeData(w, http.StatusOK, MsgSettingDeleted, nil)
}

func (h *SettingHandler) recordSettingAudit(r *http.Request, action, verb, key string) {
	p := middleware.GetPrincipal(r.Context())
	var actor *int64
	if p != nil {
		actor = audit.ActorRef(p.UserID)
	}
	h.audit.Record(r.Context(), audit.Event{
		Action:    action,
		Message:   verb + " " + key,
		Details:   map[string]interface{}{"key": key},
		ActorID:   actor,
		Origin:    clientIP(r),
		UserAgent: r.UserAgent(),
	})
}
