package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shellboard/shellboard/internal/model"
)

// UpsertScript creates a script record or, when a record with the same name
// already exists, replaces its content, path, size, and timestamp. Re-upload
// of an existing name is an update, not a duplicate. The ID field on sc is
// populated either way.
func (s *Store) UpsertScript(ctx context.Context, sc *model.Script) error {
	sc.UploadedAt = time.Now().UTC()
	sc.Size = int64(len(sc.Content))

	const q = `INSERT INTO scripts (name, owner_id, content, path, size, uploaded_at)
		VALUES (:name, :owner_id, :content, :path, :size, :uploaded_at)
		ON CONFLICT(name) DO UPDATE SET
			owner_id = excluded.owner_id,
			content = excluded.content,
			path = excluded.path,
			size = excluded.size,
			uploaded_at = excluded.uploaded_at`

	if _, err := s.db.NamedExecContext(ctx, q, sc); err != nil {
		return fmt.Errorf("upsert script: %w", err)
	}

	// LastInsertId is unreliable for upserts; read the row back by name.
	var id int64
	if err := s.db.GetContext(ctx, &id, "SELECT id FROM scripts WHERE name = ?", sc.Name); err != nil {
		return fmt.Errorf("get script id: %w", err)
	}
	sc.ID = id
	return nil
}

// GetScript returns a script by ID, including its stored content.
func (s *Store) GetScript(ctx context.Context, id int64) (*model.Script, error) {
	var sc model.Script
	if err := s.db.GetContext(ctx, &sc, "SELECT * FROM scripts WHERE id = ?", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get script: %w", err)
	}
	return &sc, nil
}

// GetScriptByName returns a script by its unique name.
func (s *Store) GetScriptByName(ctx context.Context, name string) (*model.Script, error) {
	var sc model.Script
	if err := s.db.GetContext(ctx, &sc, "SELECT * FROM scripts WHERE name = ?", name); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get script by name: %w", err)
	}
	return &sc, nil
}

// ListScripts returns all scripts, most recently uploaded first.
func (s *Store) ListScripts(ctx context.Context) ([]model.Script, error) {
	var scripts []model.Script
	if err := s.db.SelectContext(ctx, &scripts,
		"SELECT * FROM scripts ORDER BY uploaded_at DESC, id DESC"); err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}
	return scripts, nil
}

// DeleteScript removes a script record by ID.
func (s *Store) DeleteScript(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM scripts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete script: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete script rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
