package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shellboard/shellboard/internal/engine"
	"github.com/shellboard/shellboard/internal/model"
	"github.com/shellboard/shellboard/internal/server/middleware"
)

// CommandHandler serves ad-hoc command execution.
type CommandHandler struct {
	engine *engine.Engine
}

// NewCommandHandler creates a CommandHandler.
func NewCommandHandler(eng *engine.Engine) *CommandHandler {
	return &CommandHandler{engine: eng}
}

type executeCommandRequest struct {
	Command     string            `json:"command"`
	Name        string            `json:"name,omitempty"`
	Environment map[string]string `json:"environment,omitempty"`
}

// Execute handles POST /api/commands/execute. The response carries full
// diagnostic detail on failure too, because the caller needs to see exactly
// what the command did.
func (h *CommandHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeCommandRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}

	p := middleware.GetPrincipal(r.Context())
	res, err := h.engine.Execute(r.Context(), engine.Request{
		Command:    req.Command,
		Label:      req.Name,
		Env:        req.Environment,
		ActorID:    p.UserID,
		ActorEmail: p.Email,
		Origin:     clientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}
	writeExecResult(w, res)
}

// writeExecResult maps an engine result onto the execution response shape
// shared by the command and script endpoints.
func writeExecResult(w http.ResponseWriter, res *engine.Result) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, model.ExecResponse{
		Success:  res.Success,
		Output:   res.Stdout,
		Stderr:   res.Stderr,
		ExitCode: res.ExitCode,
		Status:   res.Status,
		Error:    res.Error,
		LogFile:  res.LogPath,
	})
}

// isScriptNotFound reports whether err is the engine's unknown-script error.
func isScriptNotFound(err error) bool {
	return errors.Is(err, engine.ErrScriptNotFound)
}
