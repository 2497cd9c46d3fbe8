package registry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/shellboard/shellboard/internal/audit"
	"github.com/shellboard/shellboard/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	st, err := store.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	r, err := New(dir, st, audit.NewRecorder(st, logger), logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, dir
}

func TestValidateName(t *testing.T) {
	valid := []string{"backup.sh", "run_all", "deploy-v2.sh", "A.B-c_d"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q) = %v, want nil", name, err)
		}
	}
	invalid := []string{"", ".", "..", ".hidden", "a/b.sh", "../escape.sh", "a b.sh", "a;rm.sh", "a\x00b"}
	for _, name := range invalid {
		if err := ValidateName(name); err == nil {
			t.Errorf("ValidateName(%q) = nil, want error", name)
		}
	}
}

func TestUploadRoundTrip(t *testing.T) {
	r, dir := newTestRegistry(t)
	ctx := context.Background()

	content := []byte("#!/bin/sh\necho hi\n")
	sc, err := r.Upload(ctx, "hi.sh", content, UploadMeta{ActorID: 1})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if sc.ID == 0 {
		t.Error("no ID assigned")
	}
	if sc.Size != int64(len(content)) {
		t.Errorf("size = %d, want %d", sc.Size, len(content))
	}

	// File lands executable under the scripts dir.
	path := filepath.Join(dir, "hi.sh")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("file mode %v not executable", info.Mode())
	}
	disk, _ := os.ReadFile(path)
	if !bytes.Equal(disk, content) {
		t.Error("disk content differs from upload")
	}

	got, err := r.Get(ctx, sc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got.Content, content) {
		t.Error("stored content differs from upload")
	}
}

func TestUploadOverwritesSameName(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	first, err := r.Upload(ctx, "job.sh", []byte("echo one\n"), UploadMeta{ActorID: 1})
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second, err := r.Upload(ctx, "job.sh", []byte("echo two\n"), UploadMeta{ActorID: 2})
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("overwrite created new ID %d (was %d)", second.ID, first.ID)
	}

	scripts, err := r.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(scripts) != 1 {
		t.Fatalf("len = %d, want 1", len(scripts))
	}
	if string(scripts[0].Content) != "echo two\n" {
		t.Errorf("content = %q, want overwrite", scripts[0].Content)
	}
}

func TestUploadRejectsBadInput(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.Upload(ctx, "../evil.sh", []byte("x"), UploadMeta{}); !errors.Is(err, ErrInvalidName) {
		t.Errorf("traversal name: err = %v, want ErrInvalidName", err)
	}
	if _, err := r.Upload(ctx, "ok.sh", nil, UploadMeta{}); err == nil {
		t.Error("empty content accepted")
	}
	if _, err := r.Upload(ctx, "big.sh", make([]byte, MaxScriptSize+1), UploadMeta{}); err == nil {
		t.Error("oversized content accepted")
	}
}

func TestDelete(t *testing.T) {
	r, dir := newTestRegistry(t)
	ctx := context.Background()

	sc, err := r.Upload(ctx, "rm.sh", []byte("echo\n"), UploadMeta{ActorID: 1})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := r.Delete(ctx, sc.ID, UploadMeta{ActorID: 1}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "rm.sh")); !os.IsNotExist(err) {
		t.Error("file still on disk after delete")
	}
	if _, err := r.Get(ctx, sc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
	if err := r.Delete(ctx, sc.ID, UploadMeta{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: err = %v, want ErrNotFound", err)
	}
}
