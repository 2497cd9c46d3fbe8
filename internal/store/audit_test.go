package store

import (
	"context"
	"testing"
	"time"

	"github.com/shellboard/shellboard/internal/model"
)

func appendEntry(t *testing.T, s *Store, level model.AuditLevel, action string, actor *int64, at time.Time) {
	t.Helper()
	e := &model.AuditLogEntry{
		Level:       level,
		Action:      action,
		Message:     "test entry",
		DetailsJSON: "{}",
		ActorID:     actor,
		Origin:      "127.0.0.1",
		CreatedAt:   at,
	}
	if err := s.AppendAudit(context.Background(), e); err != nil {
		t.Fatalf("AppendAudit(%s): %v", action, err)
	}
	if e.ID == 0 {
		t.Fatalf("AppendAudit did not populate ID")
	}
}

func TestQueryAuditFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := mustCreateUser(t, s, "auditor@example.com", model.RoleAdmin)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	appendEntry(t, s, model.LevelInfo, model.ActionLoginSuccess, &u.ID, base)
	appendEntry(t, s, model.LevelWarn, model.ActionLoginFailed, nil, base.Add(time.Minute))
	appendEntry(t, s, model.LevelInfo, model.ActionScriptUpload, &u.ID, base.Add(2*time.Minute))
	appendEntry(t, s, model.LevelInfo, model.ActionScriptExecute, &u.ID, base.Add(3*time.Minute))
	appendEntry(t, s, model.LevelError, model.ActionDBRestore, &u.ID, base.Add(4*time.Minute))

	// No filter returns everything, newest first.
	entries, total, err := s.QueryAudit(ctx, model.AuditFilter{}, 1, 50)
	if err != nil {
		t.Fatalf("QueryAudit: %v", err)
	}
	if total != 5 || len(entries) != 5 {
		t.Fatalf("total = %d, len = %d, want 5/5", total, len(entries))
	}
	if entries[0].Action != model.ActionDBRestore {
		t.Errorf("first entry = %s, want newest (DB_RESTORE)", entries[0].Action)
	}

	// Level filter.
	entries, total, err = s.QueryAudit(ctx, model.AuditFilter{Level: model.LevelWarn}, 1, 50)
	if err != nil {
		t.Fatalf("QueryAudit level: %v", err)
	}
	if total != 1 || entries[0].Action != model.ActionLoginFailed {
		t.Errorf("level filter: total = %d, entries = %+v", total, entries)
	}

	// Action matches as substring, so SCRIPT catches upload and execute.
	_, total, err = s.QueryAudit(ctx, model.AuditFilter{Action: "SCRIPT"}, 1, 50)
	if err != nil {
		t.Fatalf("QueryAudit action: %v", err)
	}
	if total != 2 {
		t.Errorf("action substring filter total = %d, want 2", total)
	}

	// Actor filter skips the system entry.
	_, total, err = s.QueryAudit(ctx, model.AuditFilter{ActorID: u.ID}, 1, 50)
	if err != nil {
		t.Fatalf("QueryAudit actor: %v", err)
	}
	if total != 4 {
		t.Errorf("actor filter total = %d, want 4", total)
	}

	// Time window.
	_, total, err = s.QueryAudit(ctx, model.AuditFilter{
		Since: base.Add(time.Minute),
		Until: base.Add(3 * time.Minute),
	}, 1, 50)
	if err != nil {
		t.Fatalf("QueryAudit window: %v", err)
	}
	if total != 3 {
		t.Errorf("window filter total = %d, want 3", total)
	}
}

func TestQueryAuditPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		appendEntry(t, s, model.LevelInfo, model.ActionCommandExecute, nil, base.Add(time.Duration(i)*time.Second))
	}

	page1, total, err := s.QueryAudit(ctx, model.AuditFilter{}, 1, 3)
	if err != nil {
		t.Fatalf("QueryAudit page 1: %v", err)
	}
	if total != 7 || len(page1) != 3 {
		t.Fatalf("page 1: total = %d, len = %d", total, len(page1))
	}

	page3, _, err := s.QueryAudit(ctx, model.AuditFilter{}, 3, 3)
	if err != nil {
		t.Fatalf("QueryAudit page 3: %v", err)
	}
	if len(page3) != 1 {
		t.Errorf("page 3 len = %d, want 1", len(page3))
	}

	// Pages never overlap.
	seen := map[int64]bool{}
	for p := 1; p <= 3; p++ {
		entries, _, err := s.QueryAudit(ctx, model.AuditFilter{}, p, 3)
		if err != nil {
			t.Fatalf("QueryAudit page %d: %v", p, err)
		}
		for _, e := range entries {
			if seen[e.ID] {
				t.Errorf("entry %d appeared on more than one page", e.ID)
			}
			seen[e.ID] = true
		}
	}
	if len(seen) != 7 {
		t.Errorf("pages covered %d entries, want 7", len(seen))
	}

	// Out-of-range page and limit fall back to defaults.
	entries, _, err := s.QueryAudit(ctx, model.AuditFilter{}, 0, 9999)
	if err != nil {
		t.Fatalf("QueryAudit clamped: %v", err)
	}
	if len(entries) != 7 {
		t.Errorf("clamped query len = %d, want 7", len(entries))
	}
}
