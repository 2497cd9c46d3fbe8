package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shellboard/shellboard/internal/model"
)

// CreateSession inserts a new session row. The ID and CreatedAt fields are
// populated after insert.
func (s *Store) CreateSession(ctx context.Context, sess *model.Session) error {
	sess.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO sessions (token_hash, user_id, expires_at, is_active, created_at)
		VALUES (:token_hash, :user_id, :expires_at, :is_active, :created_at)`

	result, err := s.db.NamedExecContext(ctx, q, sess)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get session id: %w", err)
	}
	sess.ID = id
	return nil
}

// GetSessionByTokenHash looks up a session by the SHA-256 hash of its token.
func (s *Store) GetSessionByTokenHash(ctx context.Context, hash string) (*model.Session, error) {
	var sess model.Session
	if err := s.db.GetContext(ctx, &sess, "SELECT * FROM sessions WHERE token_hash = ?", hash); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// RevokeSession marks the session with the given token hash inactive.
// Revoking an already-revoked or unknown session is not an error; logout is
// idempotent.
func (s *Store) RevokeSession(ctx context.Context, hash string) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET is_active = 0 WHERE token_hash = ?", hash); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeUserSessions marks every session belonging to a user inactive. Used
// when an account is deactivated or deleted so stale tokens stop working
// immediately.
func (s *Store) RevokeUserSessions(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET is_active = 0 WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	return nil
}

// PruneExpiredSessions deletes sessions whose expiry has passed. Returns the
// number of rows removed.
func (s *Store) PruneExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune sessions rows affected: %w", err)
	}
	return n, nil
}

// HashToken returns the hex-encoded SHA-256 hash of a raw bearer token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
