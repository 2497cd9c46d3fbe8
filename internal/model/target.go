package model

import "time"

// RestoreTarget is a database connection that SQL dumps can be restored
// into. The driver name selects the SQL dialect and underlying driver:
// postgres, mysql, mssql, oracle, snowflake, or sqlite.
type RestoreTarget struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Driver    string    `json:"driver" db:"driver"`
	DSN       string    `json:"dsn,omitempty" db:"dsn"` // handlers redact before returning
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
