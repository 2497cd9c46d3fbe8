package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shellboard/shellboard/internal/model"
)

// CreateExecution persists a finished execution record. Records are written
// once, after the invocation reached a terminal state, and never edited.
func (s *Store) CreateExecution(ctx context.Context, rec *model.ExecutionRecord) error {
	const q = `INSERT INTO executions
		(id, script_id, command, label, actor_id, env_json, stdout, stderr,
		 exit_code, status, error, log_path, started_at, finished_at)
		VALUES
		(:id, :script_id, :command, :label, :actor_id, :env_json, :stdout, :stderr,
		 :exit_code, :status, :error, :log_path, :started_at, :finished_at)`

	if _, err := s.db.NamedExecContext(ctx, q, rec); err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetExecution returns an execution record by UUID.
func (s *Store) GetExecution(ctx context.Context, id string) (*model.ExecutionRecord, error) {
	var rec model.ExecutionRecord
	if err := s.db.GetContext(ctx, &rec, "SELECT * FROM executions WHERE id = ?", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get execution: %w", err)
	}
	return &rec, nil
}

// ListExecutions returns up to limit execution records, newest first.
func (s *Store) ListExecutions(ctx context.Context, limit int) ([]model.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []model.ExecutionRecord
	if err := s.db.SelectContext(ctx, &recs,
		"SELECT * FROM executions ORDER BY started_at DESC LIMIT ?", limit); err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	return recs, nil
}
