// Package engine runs shell commands and registered scripts as subprocesses,
// captures their output, and persists an immutable record plus a raw log
// artifact for every invocation.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shellboard/shellboard/internal/audit"
	"github.com/shellboard/shellboard/internal/model"
	"github.com/shellboard/shellboard/internal/store"
)

// ErrScriptNotFound is returned when the requested script has no registry
// record or its on-disk artifact is missing. The two are re-verified at
// execution time; they can independently go missing between upload and run.
var ErrScriptNotFound = errors.New("script not found")

const (
	// DefaultTimeout is the fixed ceiling on subprocess runtime. There is no
	// user-triggered cancel; the timeout is the only cancellation mechanism.
	DefaultTimeout = 5 * time.Minute

	// DefaultMaxOutput caps combined stdout+stderr. Exceeding it kills the
	// subprocess and fails the execution; output is never silently truncated.
	DefaultMaxOutput = 10 * 1024 * 1024
)

// Config holds the engine's filesystem layout and limits.
type Config struct {
	ScriptsDir string        // working directory for subprocesses; uploaded scripts live here
	LogsDir    string        // timestamped raw log artifacts
	EnvDir     string        // per-invocation environment files; empty selects os.TempDir()
	Timeout    time.Duration // zero selects DefaultTimeout
	MaxOutput  int64         // zero selects DefaultMaxOutput
	Shell      string        // empty selects /bin/sh
}

// Engine executes commands and scripts. Subprocesses run with the server
// process's own privileges, undiminished.
type Engine struct {
	cfg    Config
	store  *store.Store
	audit  *audit.Recorder
	logger *slog.Logger
}

// New creates an Engine and ensures its directories exist.
func New(cfg Config, st *store.Store, rec *audit.Recorder, logger *slog.Logger) (*Engine, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxOutput <= 0 {
		cfg.MaxOutput = DefaultMaxOutput
	}
	if cfg.Shell == "" {
		cfg.Shell = "/bin/sh"
	}
	if cfg.EnvDir == "" {
		cfg.EnvDir = os.TempDir()
	}
	// Subprocesses run with ScriptsDir as their working directory, so any
	// relative path configured here would stop resolving once the shell has
	// cd'd into it. Pin all three directories to absolute paths up front.
	for _, dir := range []*string{&cfg.ScriptsDir, &cfg.LogsDir, &cfg.EnvDir} {
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return nil, fmt.Errorf("resolve engine dir %s: %w", *dir, err)
		}
		*dir = abs
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, fmt.Errorf("create engine dir %s: %w", abs, err)
		}
	}
	return &Engine{cfg: cfg, store: st, audit: rec, logger: logger}, nil
}

// ScriptsDir returns the directory subprocesses run in; the script registry
// shares it so uploaded files are directly invocable.
func (e *Engine) ScriptsDir() string {
	return e.cfg.ScriptsDir
}

// Request describes one invocation. Either Command is a literal shell
// command, or ScriptID references a registered script.
type Request struct {
	Command    string
	ScriptID   int64
	Env        map[string]string
	ActorID    int64
	ActorEmail string
	Origin     string
	UserAgent  string
	Label      string
}

// Result is what the caller gets back. Exit code 0 is the sole success
// signal; timeout and output-limit kills are reported as their own states
// so "ran and failed" stays distinguishable from "never finished".
type Result struct {
	RecordID string
	Success  bool
	Status   model.ExecutionStatus
	ExitCode int
	Stdout   string
	Stderr   string
	Error    string
	LogPath  string
}

// Execute runs the request to completion and persists the outcome. The
// returned error is non-nil only for failures to start (unknown script,
// unwritable env file); a subprocess that ran and failed is reported through
// Result, not through error.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	command := req.Command
	label := req.Label
	var scriptID *int64

	if req.ScriptID > 0 {
		sc, err := e.store.GetScript(ctx, req.ScriptID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrScriptNotFound
			}
			return nil, fmt.Errorf("resolve script: %w", err)
		}
		// The registry record and the disk artifact can drift apart
		// (volume not mounted, files cleared out-of-band). Re-verify here.
		if _, err := os.Stat(sc.Path); err != nil {
			return nil, ErrScriptNotFound
		}
		command = sc.Path
		scriptID = &sc.ID
		if label == "" {
			label = sc.Name
		}
	}
	if strings.TrimSpace(command) == "" {
		return nil, errors.New("empty command")
	}

	extra := e.mergedEnv(ctx, req.Env)

	envFile, err := writeEnvFile(e.cfg.EnvDir, extra)
	if err != nil {
		return nil, err
	}
	defer os.Remove(envFile)

	id := uuid.NewString()
	startedAt := time.Now().UTC()
	res := e.run(ctx, command, envFile, extra)
	finishedAt := time.Now().UTC()

	res.RecordID = id
	res.LogPath = e.writeLogArtifact(id, command, req.ActorEmail, extra, startedAt, res)

	envJSON, _ := json.Marshal(req.Env)
	rec := &model.ExecutionRecord{
		ID:         id,
		ScriptID:   scriptID,
		Command:    command,
		Label:      label,
		ActorID:    req.ActorID,
		EnvJSON:    string(envJSON),
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		ExitCode:   res.ExitCode,
		Status:     res.Status,
		Error:      res.Error,
		LogPath:    res.LogPath,
		StartedAt:  startedAt,
		FinishedAt: &finishedAt,
	}
	// Record and audit writes are best effort: their failure must never mask
	// the execution's own result to the caller.
	if err := e.store.CreateExecution(ctx, rec); err != nil {
		e.logger.Error("persist execution record failed", "execution", id, "error", err)
	}

	action := model.ActionCommandExecute
	if scriptID != nil {
		action = model.ActionScriptExecute
	}
	level := model.LevelInfo
	if !res.Success {
		level = model.LevelError
	}
	e.audit.Record(ctx, audit.Event{
		Level:   level,
		Action:  action,
		Message: fmt.Sprintf("executed %q", label),
		Details: map[string]interface{}{
			"execution_id": id,
			"exit_code":    res.ExitCode,
			"status":       res.Status,
			"success":      res.Success,
		},
		ActorID:   audit.ActorRef(req.ActorID),
		Origin:    req.Origin,
		UserAgent: req.UserAgent,
	})

	return res, nil
}

// run spawns the subprocess and classifies its outcome.
func (e *Engine) run(ctx context.Context, command, envFile string, extra map[string]string) *Result {
	runCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	// The working directory is set and the per-invocation env file sourced
	// before the command runs, so scripts see their variables both from the
	// file and from the process environment.
	line := fmt.Sprintf("cd %q && . %q && %s", e.cfg.ScriptsDir, envFile, command)

	cmd := exec.CommandContext(runCtx, e.cfg.Shell, "-c", line)
	cmd.Env = flattenEnv(processEnvWith(extra))

	budget := &outputBudget{remaining: e.cfg.MaxOutput, cancel: cancel}
	stdout := &capWriter{budget: budget}
	stderr := &capWriter{budget: budget}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	runErr := cmd.Run()

	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		res.Status = model.ExecTimedOut
		res.Error = fmt.Sprintf("execution timed out after %s", e.cfg.Timeout)
	case budget.exceeded():
		res.Status = model.ExecFailed
		res.Error = fmt.Sprintf("output limit exceeded (%d bytes)", e.cfg.MaxOutput)
	case runErr == nil:
		res.Status = model.ExecSucceeded
		res.Success = true
	default:
		res.Status = model.ExecFailed
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.Error = fmt.Sprintf("exit status %d", res.ExitCode)
		} else {
			res.Error = runErr.Error()
		}
	}
	return res
}

// mergedEnv layers the stored environment settings under the caller's map;
// caller-supplied keys win on conflict. The parent process's environment is
// never mutated.
func (e *Engine) mergedEnv(ctx context.Context, callerEnv map[string]string) map[string]string {
	merged := make(map[string]string)
	settings, err := e.store.ListSettingsByCategory(ctx, model.CategoryEnvironment)
	if err != nil {
		e.logger.Warn("load environment settings failed", "error", err)
	} else {
		for _, s := range settings {
			merged[s.Key] = s.Value
		}
	}
	for k, v := range callerEnv {
		merged[k] = v
	}
	return merged
}

// processEnvWith merges the parent environment with extra; extra wins.
func processEnvWith(extra map[string]string) map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	for k, v := range extra {
		env[k] = v
	}
	return env
}

func flattenEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(env))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// writeLogArtifact writes the human-readable log file for one execution and
// returns its path. Failures are logged and swallowed; the artifact is an
// observability aid, not part of the execution contract.
func (e *Engine) writeLogArtifact(id, command, actor string, env map[string]string, startedAt time.Time, res *Result) string {
	name := fmt.Sprintf("exec-%s-%s.log", startedAt.Format("20060102-150405"), id[:8])
	path := filepath.Join(e.cfg.LogsDir, name)

	var b strings.Builder
	fmt.Fprintf(&b, "==== Execution %s ====\n", id)
	fmt.Fprintf(&b, "Started:   %s\n", startedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Actor:     %s\n", actor)
	fmt.Fprintf(&b, "Command:   %s\n", command)
	b.WriteString("Environment:\n")
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s=%s\n", k, env[k])
	}
	fmt.Fprintf(&b, "Exit code: %d\n", res.ExitCode)
	fmt.Fprintf(&b, "Status:    %s\n", res.Status)
	if res.Error != "" {
		fmt.Fprintf(&b, "Error:     %s\n", res.Error)
	}
	b.WriteString("---- stdout ----\n")
	b.WriteString(res.Stdout)
	b.WriteString("\n---- stderr ----\n")
	b.WriteString(res.Stderr)
	b.WriteString("\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		e.logger.Error("write execution log artifact failed", "path", path, "error", err)
		return ""
	}
	return path
}

// outputBudget tracks the remaining combined output allowance across the
// stdout and stderr writers. When the budget is exhausted the subprocess is
// killed via cancel so an endlessly chatty script cannot hold the request
// until the timeout.
type outputBudget struct {
	mu        sync.Mutex
	remaining int64
	hit       bool
	cancel    context.CancelFunc
}

func (b *outputBudget) take(n int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hit {
		return false
	}
	if n > b.remaining {
		b.hit = true
		b.cancel()
		return false
	}
	b.remaining -= n
	return true
}

func (b *outputBudget) exceeded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hit
}

type capWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	budget *outputBudget
}

func (w *capWriter) Write(p []byte) (int, error) {
	if !w.budget.take(int64(len(p))) {
		// Report success so the exec copier keeps draining the pipe while
		// the kill takes effect; the overflow itself is already recorded.
		return len(p), nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *capWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}
