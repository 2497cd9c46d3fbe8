package model

import "time"

// ExecutionStatus is the terminal state machine of one subprocess invocation:
// pending -> running -> {succeeded, failed, timed_out}. Failed executions are
// terminal; no retries happen anywhere in the pipeline.
type ExecutionStatus string

const (
	ExecPending   ExecutionStatus = "pending"
	ExecRunning   ExecutionStatus = "running"
	ExecSucceeded ExecutionStatus = "succeeded"
	ExecFailed    ExecutionStatus = "failed"
	ExecTimedOut  ExecutionStatus = "timed_out"
)

// Terminal reports whether the status is one of the three end states.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecSucceeded || s == ExecFailed || s == ExecTimedOut
}

// ExecutionRecord is the persisted account of one subprocess invocation:
// inputs, captured outputs, and outcome. Records are written once, after the
// invocation reaches a terminal state, and are never edited afterwards.
type ExecutionRecord struct {
	ID         string     `json:"id" db:"id"` // UUID
	ScriptID   *int64     `json:"script_id,omitempty" db:"script_id"`
	Command    string     `json:"command" db:"command"`
	Label      string     `json:"label" db:"label"`
	ActorID    int64      `json:"actor_id" db:"actor_id"`
	EnvJSON    string     `json:"-" db:"env_json"` // environment map as supplied, unredacted
	Stdout     string     `json:"stdout" db:"stdout"`
	Stderr     string     `json:"stderr" db:"stderr"`
	ExitCode   int        `json:"exit_code" db:"exit_code"`
	Status     ExecutionStatus `json:"status" db:"status"`
	Error      string     `json:"error,omitempty" db:"error"`
	LogPath    string     `json:"log_path" db:"log_path"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
}
