// Package audit writes the append-only audit log. Appends are best effort:
// a failed write is reported to the process log and swallowed, so audit
// logging can never become the reason a user-facing operation fails.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shellboard/shellboard/internal/model"
	"github.com/shellboard/shellboard/internal/store"
)

// Recorder appends entries to the audit log through the store.
type Recorder struct {
	store  *store.Store
	logger *slog.Logger
}

// NewRecorder creates a Recorder. logger receives diagnostics for appends
// that could not be persisted.
func NewRecorder(st *store.Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: st, logger: logger}
}

// Event describes one sensitive action to record. ActorID is nil for
// system-initiated actions.
type Event struct {
	Level     model.AuditLevel
	Action    string
	Message   string
	Details   map[string]interface{}
	ActorID   *int64
	Origin    string
	UserAgent string
}

// Record appends one entry. It never returns an error: persistence failures
// are logged locally and swallowed, so callers are structurally permitted to
// ignore the outcome.
func (r *Recorder) Record(ctx context.Context, ev Event) {
	if ev.Level == "" {
		ev.Level = model.LevelInfo
	}

	details := "{}"
	if len(ev.Details) > 0 {
		b, err := json.Marshal(ev.Details)
		if err != nil {
			r.logger.Warn("audit details not serializable", "action", ev.Action, "error", err)
		} else {
			details = string(b)
		}
	}

	entry := &model.AuditLogEntry{
		Level:       ev.Level,
		Action:      ev.Action,
		Message:     ev.Message,
		DetailsJSON: details,
		ActorID:     ev.ActorID,
		Origin:      ev.Origin,
		UserAgent:   ev.UserAgent,
	}

	if err := r.store.AppendAudit(ctx, entry); err != nil {
		r.logger.Error("audit append failed", "action", ev.Action, "error", err)
	}
}

// ActorRef converts a user ID into the nullable actor reference used by
// audit entries.
func ActorRef(id int64) *int64 {
	return &id
}
