package model

import "time"

// AuditLevel is the closed severity set for audit entries.
type AuditLevel string

const (
	LevelInfo  AuditLevel = "INFO"
	LevelWarn  AuditLevel = "WARN"
	LevelError AuditLevel = "ERROR"
)

// ValidAuditLevel reports whether l is a known severity.
func ValidAuditLevel(l AuditLevel) bool {
	return l == LevelInfo || l == LevelWarn || l == LevelError
}

// Audit action tags. The vocabulary is closed: every sensitive operation in
// the panel writes exactly one of these.
const (
	ActionLoginSuccess   = "LOGIN_SUCCESS"
	ActionLoginFailed    = "LOGIN_FAILED"
	ActionLogout         = "LOGOUT"
	ActionScriptUpload   = "SCRIPT_UPLOAD"
	ActionScriptDelete   = "SCRIPT_DELETE"
	ActionScriptExecute  = "SCRIPT_EXECUTE"
	ActionCommandExecute = "COMMAND_EXECUTE"
	ActionDBRestore      = "DB_RESTORE"
	ActionUserCreated    = "USER_CREATED"
	ActionUserUpdated    = "USER_UPDATED"
	ActionUserDeleted    = "USER_DELETED"
	ActionConfigUpdated  = "CONFIG_UPDATED"
	ActionConfigDeleted  = "CONFIG_DELETED"
)

// AuditLogEntry is one append-only record of a sensitive action. ActorID is
// nil for system-initiated actions. Entries are never updated or deleted by
// normal operation.
type AuditLogEntry struct {
	ID          int64      `json:"id" db:"id"`
	Level       AuditLevel `json:"level" db:"level"`
	Action      string     `json:"action" db:"action"`
	Message     string     `json:"message" db:"message"`
	DetailsJSON string     `json:"-" db:"details_json"`
	ActorID     *int64     `json:"actor_id,omitempty" db:"actor_id"`
	Origin      string     `json:"origin" db:"origin"`
	UserAgent   string     `json:"user_agent" db:"user_agent"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// AuditFilter narrows an audit log query. Zero values mean "no constraint".
// Action matches as a substring so callers can filter e.g. all SCRIPT_*
// actions at once.
type AuditFilter struct {
	Level   AuditLevel
	Action  string
	ActorID int64
	Since   time.Time
	Until   time.Time
}
