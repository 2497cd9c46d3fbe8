package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shellboard/shellboard/internal/engine"
	"github.com/shellboard/shellboard/internal/registry"
	"github.com/shellboard/shellboard/internal/server/middleware"
)

// ScriptHandler serves script upload, listing, execution, and deletion.
type ScriptHandler struct {
	registry *registry.Registry
	engine   *engine.Engine
}

// NewScriptHandler creates a ScriptHandler.
func NewScriptHandler(reg *registry.Registry, eng *engine.Engine) *ScriptHandler {
	return &ScriptHandler{registry: reg, engine: eng}
}

// Upload handles POST /api/scripts/upload. The script arrives as the
// multipart field "file"; its filename becomes the script name.
func (h *ScriptHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(registry.MaxScriptSize); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, registry.MaxScriptSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}

	p := middleware.GetPrincipal(r.Context())
	sc, err := h.registry.Upload(r.Context(), header.Filename, content, registry.UploadMeta{
		ActorID:   p.UserID,
		Origin:    clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeData(w, http.StatusCreated, MsgScriptUploaded, sc)
}

// List handles GET /api/scripts.
func (h *ScriptHandler) List(w http.ResponseWriter, r *http.Request) {
	scripts, err := h.registry.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}
	writeData(w, http.StatusOK, "", scripts)
}

type executeScriptRequest struct {
	ScriptID    int64             `json:"scriptId"`
	Environment map[string]string `json:"environment,omitempty"`
}

// Execute handles POST /api/scripts/execute.
func (h *ScriptHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeScriptRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	if req.ScriptID <= 0 {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}

	p := middleware.GetPrincipal(r.Context())
	res, err := h.engine.Execute(r.Context(), engine.Request{
		ScriptID:   req.ScriptID,
		Env:        req.Environment,
		ActorID:    p.UserID,
		ActorEmail: p.Email,
		Origin:     clientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		if isScriptNotFound(err) {
			writeError(w, http.StatusNotFound, MsgScriptNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}
	writeExecResult(w, res)
}

// Delete handles DELETE /api/scripts/{id}.
func (h *ScriptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}

	p := middleware.GetPrincipal(r.Context())
	err = h.registry.Delete(r.Context(), id, registry.UploadMeta{
		ActorID:   p.UserID,
		Origin:    clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeError(w, http.StatusNotFound, MsgScriptNotFound)
			return
		}
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}
	writeData(w, http.StatusOK, MsgScriptDeleted, nil)
}
