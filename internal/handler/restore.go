package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shellboard/shellboard/internal/model"
	"github.com/shellboard/shellboard/internal/restore"
	"github.com/shellboard/shellboard/internal/server/middleware"
	"github.com/shellboard/shellboard/internal/store"
)

// RestoreHandler serves restore target management and dump restoration.
// Admin only.
type RestoreHandler struct {
	store    *store.Store
	restorer *restore.Restorer
}

// NewRestoreHandler creates a RestoreHandler.
func NewRestoreHandler(st *store.Store, r *restore.Restorer) *RestoreHandler {
	return &RestoreHandler{store: st, restorer: r}
}

// targetView strips the DSN before a target leaves the API.
func targetView(t model.RestoreTarget) map[string]interface{} {
	return map[string]interface{}{
		"id":         t.ID,
		"name":       t.Name,
		"driver":     t.Driver,
		"dsn":        restore.RedactDSN(t.DSN),
		"is_active":  t.IsActive,
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
	}
}

// ListTargets handles GET /api/restore/targets.
func (h *RestoreHandler) ListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.store.ListRestoreTargets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}
	out := make([]map[string]interface{}, len(targets))
	for i, t := range targets {
		out[i] = targetView(t)
	}
	writeData(w, http.StatusOK, "", out)
}

type createTargetRequest struct {
	Name     string `json:"name"`
	Driver   string `json:"driver"`
	DSN      string `json:"dsn"`
	IsActive *bool  `json:"is_active,omitempty"`
}

// CreateTarget handles POST /api/restore/targets.
func (h *RestoreHandler) CreateTarget(w http.ResponseWriter, r *http.Request) {
	var req createTargetRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.DSN == "" || !restore.SupportedDriver(req.Driver) {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	target := &model.RestoreTarget{
		Name:     req.Name,
		Driver:   req.Driver,
		DSN:      restore.NormalizeDSN(req.Driver, req.DSN),
		IsActive: active,
	}
	if err := h.store.CreateRestoreTarget(r.Context(), target); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, MsgInvalidRequest)
			return
		}
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}
	writeData(w, http.StatusCreated, MsgTargetCreated, targetView(*target))
}

// DeleteTarget handles DELETE /api/restore/targets/{id}.
func (h *RestoreHandler) DeleteTarget(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	if err := h.store.DeleteRestoreTarget(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgTargetNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}
	writeData(w, http.StatusOK, MsgTargetDeleted, nil)
}

// Restore handles POST /api/restore/targets/{name}/restore. The dump
// arrives as the multipart field "dump".
func (h *RestoreHandler) Restore(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	file, _, err := r.FormFile("dump")
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	defer file.Close()

	p := middleware.GetPrincipal(r.Context())
	sum, err := h.restorer.Restore(r.Context(), name, file, restore.Meta{
		ActorID:   p.UserID,
		Origin:    clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, restore.ErrTargetNotFound) {
			writeError(w, http.StatusNotFound, MsgTargetNotFound)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeData(w, http.StatusOK, MsgRestoreDone, sum)
}
