package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shellboard/shellboard/internal/model"
)

// CreateRestoreTarget inserts a new restore target. The ID, CreatedAt, and
// UpdatedAt fields are populated after a successful insert.
func (s *Store) CreateRestoreTarget(ctx context.Context, t *model.RestoreTarget) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	const q = `INSERT INTO restore_targets (name, driver, dsn, is_active, created_at, updated_at)
		VALUES (:name, :driver, :dsn, :is_active, :created_at, :updated_at)`

	result, err := s.db.NamedExecContext(ctx, q, t)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return ErrDuplicate
		}
		return fmt.Errorf("insert restore target: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get restore target id: %w", err)
	}
	t.ID = id
	return nil
}

// GetRestoreTargetByName returns a restore target by its unique name.
func (s *Store) GetRestoreTargetByName(ctx context.Context, name string) (*model.RestoreTarget, error) {
	var t model.RestoreTarget
	if err := s.db.GetContext(ctx, &t, "SELECT * FROM restore_targets WHERE name = ?", name); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get restore target: %w", err)
	}
	return &t, nil
}

// ListRestoreTargets returns all restore targets ordered by name.
func (s *Store) ListRestoreTargets(ctx context.Context) ([]model.RestoreTarget, error) {
	var targets []model.RestoreTarget
	if err := s.db.SelectContext(ctx, &targets, "SELECT * FROM restore_targets ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list restore targets: %w", err)
	}
	return targets, nil
}

// DeleteRestoreTarget removes a restore target by ID.
func (s *Store) DeleteRestoreTarget(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM restore_targets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete restore target: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete restore target rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
