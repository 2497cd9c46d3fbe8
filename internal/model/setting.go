package model

import "time"

// Setting categories with special behavior. Settings in CategoryEnvironment
// are injected into every execution's environment as the base layer (caller-
// supplied keys win on conflict). CategoryBranding settings are typically
// public so the login page can read them before authentication.
const (
	CategoryGeneral     = "general"
	CategoryBranding    = "branding"
	CategoryEnvironment = "environment"
)

// Setting is one key-value configuration entry. Writes have upsert
// semantics: writing an existing key overwrites its value and bumps
// UpdatedAt. Keys flagged IsPublic are visible without authentication.
type Setting struct {
	ID        int64     `json:"id" db:"id"`
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	Category  string    `json:"category" db:"category"`
	IsPublic  bool      `json:"is_public" db:"is_public"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
