package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shellboard/shellboard/internal/model"
)

// AppendAudit inserts one audit log entry. The log is append-only; there is
// no update or delete path.
func (s *Store) AppendAudit(ctx context.Context, e *model.AuditLogEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO audit_log
		(level, action, message, details_json, actor_id, origin, user_agent, created_at)
		VALUES
		(:level, :action, :message, :details_json, :actor_id, :origin, :user_agent, :created_at)`

	result, err := s.db.NamedExecContext(ctx, q, e)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get audit entry id: %w", err)
	}
	e.ID = id
	return nil
}

// QueryAudit returns a page of audit entries matching the filter, newest
// first, along with the total count of matching entries regardless of the
// requested page size.
func (s *Store) QueryAudit(ctx context.Context, f model.AuditFilter, page, limit int) ([]model.AuditLogEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}

	where, args := buildAuditWhere(f)

	var total int64
	countQ := "SELECT COUNT(*) FROM audit_log" + where
	if err := s.db.GetContext(ctx, &total, countQ, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	listQ := "SELECT * FROM audit_log" + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	listArgs := append(append([]interface{}{}, args...), limit, (page-1)*limit)

	var entries []model.AuditLogEntry
	if err := s.db.SelectContext(ctx, &entries, listQ, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	return entries, total, nil
}

func buildAuditWhere(f model.AuditFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Level != "" {
		conds = append(conds, "level = ?")
		args = append(args, f.Level)
	}
	if f.Action != "" {
		conds = append(conds, "action LIKE ?")
		args = append(args, "%"+f.Action+"%")
	}
	if f.ActorID != 0 {
		conds = append(conds, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if !f.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if !f.Until.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, f.Until.UTC())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
