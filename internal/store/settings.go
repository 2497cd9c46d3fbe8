package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shellboard/shellboard/internal/model"
)

// UpsertSetting writes a setting. Writing an existing key overwrites its
// value, category, and visibility and bumps the update timestamp.
func (s *Store) UpsertSetting(ctx context.Context, set *model.Setting) error {
	set.UpdatedAt = time.Now().UTC()
	if set.Category == "" {
		set.Category = model.CategoryGeneral
	}

	const q = `INSERT INTO settings (key, value, category, is_public, updated_at)
		VALUES (:key, :value, :category, :is_public, :updated_at)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			category = excluded.category,
			is_public = excluded.is_public,
			updated_at = excluded.updated_at`

	if _, err := s.db.NamedExecContext(ctx, q, set); err != nil {
		return fmt.Errorf("upsert setting: %w", err)
	}

	var id int64
	if err := s.db.GetContext(ctx, &id, "SELECT id FROM settings WHERE key = ?", set.Key); err != nil {
		return fmt.Errorf("get setting id: %w", err)
	}
	set.ID = id
	return nil
}

// GetSetting returns a setting by key.
func (s *Store) GetSetting(ctx context.Context, key string) (*model.Setting, error) {
	var set model.Setting
	if err := s.db.GetContext(ctx, &set, "SELECT * FROM settings WHERE key = ?", key); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return &set, nil
}

// ListSettings returns all settings ordered by key.
func (s *Store) ListSettings(ctx context.Context) ([]model.Setting, error) {
	var settings []model.Setting
	if err := s.db.SelectContext(ctx, &settings, "SELECT * FROM settings ORDER BY key"); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// ListSettingsByCategory returns all settings in one category ordered by key.
func (s *Store) ListSettingsByCategory(ctx context.Context, category string) ([]model.Setting, error) {
	var settings []model.Setting
	if err := s.db.SelectContext(ctx, &settings,
		"SELECT * FROM settings WHERE category = ? ORDER BY key", category); err != nil {
		return nil, fmt.Errorf("list settings by category: %w", err)
	}
	return settings, nil
}

// ListPublicSettings returns the settings flagged public, ordered by key.
// These are readable without authentication (login-page branding).
func (s *Store) ListPublicSettings(ctx context.Context) ([]model.Setting, error) {
	var settings []model.Setting
	if err := s.db.SelectContext(ctx, &settings,
		"SELECT * FROM settings WHERE is_public = 1 ORDER BY key"); err != nil {
		return nil, fmt.Errorf("list public settings: %w", err)
	}
	return settings, nil
}

// DeleteSetting removes a setting by key.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete setting rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
