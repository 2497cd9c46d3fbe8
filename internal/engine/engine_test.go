package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shellboard/shellboard/internal/audit"
	"github.com/shellboard/shellboard/internal/model"
	"github.com/shellboard/shellboard/internal/store"
)

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *store.Store) {
	t.Helper()

	st, err := store.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := Config{
		ScriptsDir: t.TempDir(),
		LogsDir:    t.TempDir(),
		EnvDir:     t.TempDir(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg, st, audit.NewRecorder(st, logger), logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, st
}

func TestExecuteSuccess(t *testing.T) {
	e, st := newTestEngine(t, nil)

	res, err := e.Execute(context.Background(), Request{
		Command: "echo hello",
		ActorID: 1,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got status %s error %q", res.Status, res.Error)
	}
	if res.Status != model.ExecSucceeded {
		t.Errorf("status = %s, want %s", res.Status, model.ExecSucceeded)
	}
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", res.ExitCode)
	}
	if got := strings.TrimSpace(res.Stdout); got != "hello" {
		t.Errorf("stdout = %q, want %q", got, "hello")
	}

	rec, err := st.GetExecution(context.Background(), res.RecordID)
	if err != nil {
		t.Fatalf("GetExecution: %v", err)
	}
	if rec.Status != model.ExecSucceeded {
		t.Errorf("persisted status = %s, want %s", rec.Status, model.ExecSucceeded)
	}
	if rec.FinishedAt == nil {
		t.Error("persisted record has no finish time")
	}
}

func TestExecuteNonZeroExit(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	res, err := e.Execute(context.Background(), Request{
		Command: "echo oops >&2; exit 3",
		ActorID: 1,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Status != model.ExecFailed {
		t.Errorf("status = %s, want %s", res.Status, model.ExecFailed)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", res.ExitCode)
	}
	if got := strings.TrimSpace(res.Stderr); got != "oops" {
		t.Errorf("stderr = %q, want %q", got, "oops")
	}
}

func TestExecuteTimeout(t *testing.T) {
	e, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Timeout = 200 * time.Millisecond
	})

	res, err := e.Execute(context.Background(), Request{
		Command: "sleep 5",
		ActorID: 1,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if res.Status != model.ExecTimedOut {
		t.Errorf("status = %s, want %s", res.Status, model.ExecTimedOut)
	}
	if !strings.Contains(res.Error, "timed out") {
		t.Errorf("error = %q, want timeout message", res.Error)
	}
}

func TestExecuteOutputLimit(t *testing.T) {
	e, _ := newTestEngine(t, func(cfg *Config) {
		cfg.MaxOutput = 1024
	})

	res, err := e.Execute(context.Background(), Request{
		Command: "yes overflow",
		ActorID: 1,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Fatal("expected output-limit failure")
	}
	if res.Status != model.ExecFailed {
		t.Errorf("status = %s, want %s", res.Status, model.ExecFailed)
	}
	if !strings.Contains(res.Error, "output limit") {
		t.Errorf("error = %q, want output limit message", res.Error)
	}
}

func TestExecuteScriptNotFound(t *testing.T) {
	e, st := newTestEngine(t, nil)

	_, err := e.Execute(context.Background(), Request{ScriptID: 9999, ActorID: 1})
	if !errors.Is(err, ErrScriptNotFound) {
		t.Fatalf("unknown id: err = %v, want ErrScriptNotFound", err)
	}

	// A record whose on-disk file vanished is equally not found.
	sc := &model.Script{
		Name:    "gone.sh",
		OwnerID: 1,
		Content: []byte("#!/bin/sh\n"),
		Path:    "/nonexistent/gone.sh",
		Size:    10,
	}
	if err := st.UpsertScript(context.Background(), sc); err != nil {
		t.Fatalf("UpsertScript: %v", err)
	}
	_, err = e.Execute(context.Background(), Request{ScriptID: sc.ID, ActorID: 1})
	if !errors.Is(err, ErrScriptNotFound) {
		t.Fatalf("missing file: err = %v, want ErrScriptNotFound", err)
	}
}

func TestExecuteEnvInjection(t *testing.T) {
	e, st := newTestEngine(t, nil)
	ctx := context.Background()

	// Stored environment settings form the base layer.
	if err := st.UpsertSetting(ctx, &model.Setting{
		Key: "BASE_VAR", Value: "from-settings", Category: model.CategoryEnvironment,
	}); err != nil {
		t.Fatalf("UpsertSetting: %v", err)
	}
	if err := st.UpsertSetting(ctx, &model.Setting{
		Key: "SHARED_VAR", Value: "from-settings", Category: model.CategoryEnvironment,
	}); err != nil {
		t.Fatalf("UpsertSetting: %v", err)
	}

	res, err := e.Execute(ctx, Request{
		Command: `echo "$BASE_VAR/$SHARED_VAR/$CALL_VAR"`,
		Env: map[string]string{
			"SHARED_VAR": "from-caller",
			"CALL_VAR":   "direct",
		},
		ActorID: 1,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := "from-settings/from-caller/direct"
	if got := strings.TrimSpace(res.Stdout); got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestExecuteEnvValueEscaping(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	res, err := e.Execute(context.Background(), Request{
		Command: `echo "$TRICKY"`,
		Env:     map[string]string{"TRICKY": `a"b$c` + "`d`"},
		ActorID: 1,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := `a"b$c` + "`d`"
	if got := strings.TrimSpace(res.Stdout); got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

// Concurrent executions with different variable values must each observe
// their own set; a shared environment file would make them bleed together.
func TestExecuteConcurrentEnvIsolation(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := fmt.Sprintf("worker-%d", i)
			res, err := e.Execute(context.Background(), Request{
				Command: `sleep 0.1; echo "$WORKER_ID"`,
				Env:     map[string]string{"WORKER_ID": want},
				ActorID: 1,
			})
			if err != nil {
				errs <- err
				return
			}
			if got := strings.TrimSpace(res.Stdout); got != want {
				errs <- fmt.Errorf("worker %d observed %q", i, got)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestExecuteWritesLogArtifact(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	res, err := e.Execute(context.Background(), Request{
		Command: "echo artifact",
		ActorID: 1,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.LogPath == "" {
		t.Fatal("no log artifact path")
	}
	data, err := os.ReadFile(res.LogPath)
	if err != nil {
		t.Fatalf("read log artifact: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "echo artifact") {
		t.Error("log artifact missing command")
	}
	if !strings.Contains(content, "artifact") {
		t.Error("log artifact missing stdout")
	}
}

func TestExecuteRunsRegisteredScript(t *testing.T) {
	e, st := newTestEngine(t, nil)
	ctx := context.Background()

	path := e.cfg.ScriptsDir + "/greet.sh"
	content := []byte("#!/bin/sh\necho \"hi from $GREETED\"\n")
	if err := os.WriteFile(path, content, 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	sc := &model.Script{Name: "greet.sh", OwnerID: 1, Content: content, Path: path, Size: int64(len(content))}
	if err := st.UpsertScript(ctx, sc); err != nil {
		t.Fatalf("UpsertScript: %v", err)
	}

	res, err := e.Execute(ctx, Request{
		ScriptID: sc.ID,
		Env:      map[string]string{"GREETED": "tests"},
		ActorID:  1,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("status %s error %q stderr %q", res.Status, res.Error, res.Stderr)
	}
	if got := strings.TrimSpace(res.Stdout); got != "hi from tests" {
		t.Errorf("stdout = %q", got)
	}
}

func TestExecuteRegisteredScriptWithRelativeScriptsDir(t *testing.T) {
	// The default config ships relative paths; the shell cds into the
	// scripts dir before invoking, so the engine must pin them to absolute
	// paths or registered scripts stop resolving.
	t.Chdir(t.TempDir())

	e, st := newTestEngine(t, func(cfg *Config) {
		cfg.ScriptsDir = "data/scripts"
		cfg.LogsDir = "data/logs"
		cfg.EnvDir = "data/env"
	})
	ctx := context.Background()

	if !filepath.IsAbs(e.ScriptsDir()) {
		t.Fatalf("ScriptsDir() = %q, want absolute", e.ScriptsDir())
	}

	path := filepath.Join(e.ScriptsDir(), "hello.sh")
	content := []byte("#!/bin/sh\necho relative ok\n")
	if err := os.WriteFile(path, content, 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	sc := &model.Script{Name: "hello.sh", OwnerID: 1, Content: content, Path: path, Size: int64(len(content))}
	if err := st.UpsertScript(ctx, sc); err != nil {
		t.Fatalf("UpsertScript: %v", err)
	}

	res, err := e.Execute(ctx, Request{ScriptID: sc.ID, ActorID: 1})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("status %s exit %d error %q stderr %q", res.Status, res.ExitCode, res.Error, res.Stderr)
	}
	if got := strings.TrimSpace(res.Stdout); got != "relative ok" {
		t.Errorf("stdout = %q", got)
	}
}

func TestExecuteEnvFileRemoved(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	if _, err := e.Execute(context.Background(), Request{
		Command: "true",
		Env:     map[string]string{"X": "1"},
		ActorID: 1,
	}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	entries, err := os.ReadDir(e.cfg.EnvDir)
	if err != nil {
		t.Fatalf("read env dir: %v", err)
	}
	for _, ent := range entries {
		if strings.HasSuffix(ent.Name(), ".env") {
			t.Errorf("leftover env file %s", ent.Name())
		}
	}
}
