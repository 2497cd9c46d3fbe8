// Package registry manages uploaded shell scripts: each script is stored
// both in the database (authoritative copy) and as a flat executable file
// under the scripts directory, filename equal to the script name.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shellboard/shellboard/internal/audit"
	"github.com/shellboard/shellboard/internal/model"
	"github.com/shellboard/shellboard/internal/store"
)

var (
	// ErrNotFound is returned when no script with the given ID exists.
	ErrNotFound = errors.New("script not found")

	// ErrInvalidName rejects names that could escape the scripts directory
	// or collide with shell syntax.
	ErrInvalidName = errors.New("invalid script name")
)

// MaxScriptSize caps one uploaded script.
const MaxScriptSize = 1 * 1024 * 1024

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Registry stores and retrieves uploaded scripts.
type Registry struct {
	dir    string
	store  *store.Store
	audit  *audit.Recorder
	logger *slog.Logger
}

// New creates a Registry rooted at dir, creating it if needed.
func New(dir string, st *store.Store, rec *audit.Recorder, logger *slog.Logger) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scripts dir: %w", err)
	}
	return &Registry{dir: dir, store: st, audit: rec, logger: logger}, nil
}

// ValidateName reports whether name is acceptable as a script filename.
// Path separators and dot-prefixed names are rejected so a crafted name can
// never address a file outside the scripts directory.
func ValidateName(name string) error {
	if name == "" || len(name) > 255 {
		return ErrInvalidName
	}
	if strings.HasPrefix(name, ".") {
		return ErrInvalidName
	}
	if !nameRe.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

// UploadMeta carries the request context for an upload.
type UploadMeta struct {
	ActorID   int64
	Origin    string
	UserAgent string
}

// Upload stores content under name, overwriting any previous script with the
// same name. The file is written executable so the engine can invoke it
// directly.
func (r *Registry) Upload(ctx context.Context, name string, content []byte, meta UploadMeta) (*model.Script, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, errors.New("empty script")
	}
	if len(content) > MaxScriptSize {
		return nil, fmt.Errorf("script exceeds %d bytes", MaxScriptSize)
	}

	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, content, 0o755); err != nil {
		return nil, fmt.Errorf("write script file: %w", err)
	}

	sc := &model.Script{
		Name:    name,
		OwnerID: meta.ActorID,
		Content: content,
		Path:    path,
		Size:    int64(len(content)),
	}
	if err := r.store.UpsertScript(ctx, sc); err != nil {
		// The disk copy without a record is unreachable; take it back out.
		os.Remove(path)
		return nil, fmt.Errorf("persist script: %w", err)
	}

	r.audit.Record(ctx, audit.Event{
		Action:  model.ActionScriptUpload,
		Message: fmt.Sprintf("uploaded script %q", name),
		Details: map[string]interface{}{
			"script_id": sc.ID,
			"size":      sc.Size,
		},
		ActorID:   audit.ActorRef(meta.ActorID),
		Origin:    meta.Origin,
		UserAgent: meta.UserAgent,
	})
	return sc, nil
}

// Get returns one script by ID.
func (r *Registry) Get(ctx context.Context, id int64) (*model.Script, error) {
	sc, err := r.store.GetScript(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return sc, err
}

// List returns all scripts, newest upload first.
func (r *Registry) List(ctx context.Context) ([]model.Script, error) {
	return r.store.ListScripts(ctx)
}

// Delete removes a script's file and record. The file is removed first and
// a failure there aborts the deletion, so a record never outlives the store
// while its file lingers on disk unaccounted.
func (r *Registry) Delete(ctx context.Context, id int64, meta UploadMeta) error {
	sc, err := r.store.GetScript(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := os.Remove(sc.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove script file: %w", err)
	}
	if err := r.store.DeleteScript(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete script record: %w", err)
	}

	r.audit.Record(ctx, audit.Event{
		Level:   model.LevelWarn,
		Action:  model.ActionScriptDelete,
		Message: fmt.Sprintf("deleted script %q", sc.Name),
		Details: map[string]interface{}{
			"script_id": sc.ID,
		},
		ActorID:   audit.ActorRef(meta.ActorID),
		Origin:    meta.Origin,
		UserAgent: meta.UserAgent,
	})
	return nil
}
