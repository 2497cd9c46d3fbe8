package handler

import (
	"net/http"
	"time"

	"github.com/shellboard/shellboard/internal/model"
	"github.com/shellboard/shellboard/internal/store"
)

// LogHandler serves the audit log query API. Admin only.
type LogHandler struct {
	store *store.Store
}

// NewLogHandler creates a LogHandler.
func NewLogHandler(st *store.Store) *LogHandler {
	return &LogHandler{store: st}
}

type logsResponse struct {
	Entries    []model.AuditLogEntry `json:"entries"`
	Pagination model.Pagination      `json:"pagination"`
}

// List handles GET /api/logs with page, limit, level, action, userId,
// startDate, and endDate query parameters. Dates are RFC 3339 or
// YYYY-MM-DD; unparseable dates are rejected rather than ignored.
func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := clampInt(queryInt(r, "limit", 50), 1, 500)

	filter := model.AuditFilter{
		Level:   model.AuditLevel(r.URL.Query().Get("level")),
		Action:  r.URL.Query().Get("action"),
		ActorID: int64(queryInt(r, "userId", 0)),
	}
	if filter.Level != "" && !model.ValidAuditLevel(filter.Level) {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}

	var ok bool
	if filter.Since, ok = parseDate(r.URL.Query().Get("startDate"), false); !ok {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	if filter.Until, ok = parseDate(r.URL.Query().Get("endDate"), true); !ok {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}

	entries, total, err := h.store.QueryAudit(r.Context(), filter, page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, MsgInternalError)
		return
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	writeData(w, http.StatusOK, "", logsResponse{
		Entries: entries,
		Pagination: model.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	})
}

// parseDate accepts RFC 3339 or a bare date. A bare end date is pushed to
// the end of that day so the range is inclusive.
func parseDate(s string, endOfDay bool) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, true
}
