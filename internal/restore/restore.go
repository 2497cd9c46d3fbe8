// Package restore replays SQL dump files into configured database targets.
// A dump is split into individual statements and executed in order inside a
// single transaction where the engine supports one.
package restore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/shellboard/shellboard/internal/audit"
	"github.com/shellboard/shellboard/internal/model"
	"github.com/shellboard/shellboard/internal/store"
)

// ErrTargetNotFound is returned when no restore target with the given name
// is configured.
var ErrTargetNotFound = errors.New("restore target not found")

// MaxDumpSize caps one uploaded dump file.
const MaxDumpSize = 100 * 1024 * 1024

// connectTimeout bounds the initial connection attempt so an unreachable
// host fails the request instead of hanging it.
const connectTimeout = 15 * time.Second

// Restorer replays dumps into restore targets.
type Restorer struct {
	store  *store.Store
	audit  *audit.Recorder
	logger *slog.Logger
}

// New creates a Restorer.
func New(st *store.Store, rec *audit.Recorder, logger *slog.Logger) *Restorer {
	return &Restorer{store: st, audit: rec, logger: logger}
}

// Meta carries the request context for a restore.
type Meta struct {
	ActorID   int64
	Origin    string
	UserAgent string
}

// Summary reports what a restore executed.
type Summary struct {
	Target     string `json:"target"`
	Statements int    `json:"statements"`
	Duration   string `json:"duration"`
}

// Restore replays the dump into the named target. The dump is applied
// transactionally: either every statement commits or none do.
func (r *Restorer) Restore(ctx context.Context, targetName string, dump io.Reader, meta Meta) (*Summary, error) {
	target, err := r.store.GetRestoreTargetByName(ctx, targetName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}
	if !target.IsActive {
		return nil, fmt.Errorf("restore target %q is disabled", targetName)
	}

	stmts, err := SplitStatements(dump)
	if err != nil {
		return nil, fmt.Errorf("parse dump: %w", err)
	}
	if len(stmts) == 0 {
		return nil, errors.New("dump contains no statements")
	}

	driverName, err := sqlDriverFor(target.Driver)
	if err != nil {
		return nil, err
	}
	dsn := NormalizeDSN(target.Driver, target.DSN)

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	db, err := sqlx.ConnectContext(connectCtx, driverName, dsn)
	if err != nil {
		r.recordOutcome(ctx, target, meta, 0, fmt.Errorf("connect: %w", err))
		return nil, fmt.Errorf("connect to %q: %w", targetName, err)
	}
	defer db.Close()

	start := time.Now()
	applied, err := r.apply(ctx, db, stmts)
	if err != nil {
		r.recordOutcome(ctx, target, meta, applied, err)
		return nil, err
	}

	summary := &Summary{
		Target:     targetName,
		Statements: applied,
		Duration:   time.Since(start).Round(time.Millisecond).String(),
	}
	r.recordOutcome(ctx, target, meta, applied, nil)
	return summary, nil
}

func (r *Restorer) apply(ctx context.Context, db *sqlx.DB, stmts []string) (int, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return i, fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return len(stmts), fmt.Errorf("commit: %w", err)
	}
	return len(stmts), nil
}

func (r *Restorer) recordOutcome(ctx context.Context, target *model.RestoreTarget, meta Meta, applied int, failure error) {
	level := model.LevelInfo
	msg := fmt.Sprintf("restored dump into %q", target.Name)
	details := map[string]interface{}{
		"target":     target.Name,
		"driver":     target.Driver,
		"dsn":        RedactDSN(target.DSN),
		"statements": applied,
	}
	if failure != nil {
		level = model.LevelError
		msg = fmt.Sprintf("restore into %q failed", target.Name)
		details["error"] = failure.Error()
	}
	r.audit.Record(ctx, audit.Event{
		Level:     level,
		Action:    model.ActionDBRestore,
		Message:   msg,
		Details:   details,
		ActorID:   audit.ActorRef(meta.ActorID),
		Origin:    meta.Origin,
		UserAgent: meta.UserAgent,
	})
}

// SplitStatements splits a SQL dump into individual statements on
// semicolons, ignoring semicolons inside quoted strings and comments.
// Line comments (-- style) and block comments are dropped entirely.
func SplitStatements(r io.Reader) ([]string, error) {
	br := bufio.NewReaderSize(io.LimitReader(r, MaxDumpSize+1), 64*1024)

	var (
		stmts   []string
		cur     strings.Builder
		total   int64
		inSQ    bool // inside 'single quotes'
		inDQ    bool // inside "double quotes"
		inLine  bool // inside -- comment
		inBlock bool // inside /* comment */
		prev    rune
	)

	flush := func() {
		s := strings.TrimSpace(cur.String())
		cur.Reset()
		if s != "" {
			stmts = append(stmts, s)
		}
	}

	for {
		ch, size, err := br.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		total += int64(size)
		if total > MaxDumpSize {
			return nil, fmt.Errorf("dump exceeds %d bytes", MaxDumpSize)
		}

		switch {
		case inLine:
			if ch == '\n' {
				inLine = false
				cur.WriteRune('\n')
			}
		case inBlock:
			if prev == '*' && ch == '/' {
				inBlock = false
				ch = 0
			}
		case inSQ:
			cur.WriteRune(ch)
			// Standard SQL escapes a quote by doubling it. Closing on every
			// quote and re-opening on the next one splits '' identically to
			// treating it as content, and a literal backslash ('\') cannot
			// hold the lexer inside a string.
			if ch == '\'' {
				inSQ = false
			}
		case inDQ:
			cur.WriteRune(ch)
			if ch == '"' {
				inDQ = false
			}
		default:
			switch {
			case ch == '-' && prev == '-':
				// Drop the first dash already buffered.
				s := cur.String()
				cur.Reset()
				cur.WriteString(strings.TrimSuffix(s, "-"))
				inLine = true
			case ch == '*' && prev == '/':
				s := cur.String()
				cur.Reset()
				cur.WriteString(strings.TrimSuffix(s, "/"))
				inBlock = true
			case ch == '\'':
				inSQ = true
				cur.WriteRune(ch)
			case ch == '"':
				inDQ = true
				cur.WriteRune(ch)
			case ch == ';':
				flush()
			default:
				cur.WriteRune(ch)
			}
		}
		prev = ch
	}
	flush()
	return stmts, nil
}
