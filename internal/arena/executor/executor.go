package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/shlex"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErr "codeclash/pkg/errors"
	"codeclash/pkg/utils/logger"
)

const (
	defaultTimeLimitMs    int64 = 5000
	defaultMaxOutputBytes int64 = 64 * 1024
	defaultMaxSourceBytes int64 = 256 * 1024
)

const (
	outcomePending int32 = iota
	outcomeFinished
	outcomeTimedOut
)

// Config holds engine settings.
type Config struct {
	// WorkRoot is where source artifacts are written. Empty means the OS
	// temp directory.
	WorkRoot string
	// MaxOutputBytes caps captured stdout and stderr, each.
	MaxOutputBytes int64
	// MaxSourceBytes caps accepted source code size.
	MaxSourceBytes int64
	// DefaultTimeLimitMs applies when a request carries no limit.
	DefaultTimeLimitMs int64
}

// Engine executes one isolated process per submission. It performs exactly
// one attempt per call and never retries internally.
type Engine struct {
	cfg      Config
	profiles map[string]Profile
}

// NewEngine creates an engine with the built-in runtime profiles.
func NewEngine(cfg Config) *Engine {
	return NewEngineWithProfiles(cfg, DefaultProfiles())
}

// NewEngineWithProfiles creates an engine with a custom runtime table.
func NewEngineWithProfiles(cfg Config, profiles map[string]Profile) *Engine {
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = defaultMaxOutputBytes
	}
	if cfg.MaxSourceBytes <= 0 {
		cfg.MaxSourceBytes = defaultMaxSourceBytes
	}
	if cfg.DefaultTimeLimitMs <= 0 {
		cfg.DefaultTimeLimitMs = defaultTimeLimitMs
	}
	if cfg.WorkRoot == "" {
		cfg.WorkRoot = os.TempDir()
	}
	return &Engine{cfg: cfg, profiles: profiles}
}

// Execute runs the submission and returns captured output, elapsed wall
// time and the exit code. On timeout the process is force-killed, partial
// output is discarded, and an ExecutionTimeout error is returned. The
// source artifact is removed on every exit path.
func (e *Engine) Execute(ctx context.Context, req Request) (Result, error) {
	prof, err := e.resolveProfile(req.Language)
	if err != nil {
		return Result{}, err
	}
	if int64(len(req.SourceCode)) > e.cfg.MaxSourceBytes {
		return Result{}, appErr.New(appErr.CodeTooLarge)
	}

	timeLimit := req.TimeLimitMs
	if timeLimit <= 0 {
		timeLimit = e.cfg.DefaultTimeLimitMs
	}

	if err := os.MkdirAll(e.cfg.WorkRoot, 0755); err != nil {
		return Result{}, appErr.Wrapf(err, appErr.ArtifactWriteFailure, "create work root failed")
	}
	artifactPath := filepath.Join(e.cfg.WorkRoot, fmt.Sprintf("sub-%s%s", uuid.NewString(), prof.Extension))
	if err := os.WriteFile(artifactPath, []byte(req.SourceCode), 0644); err != nil {
		return Result{}, appErr.Wrapf(err, appErr.ArtifactWriteFailure, "write source artifact failed")
	}
	defer removeArtifact(ctx, artifactPath)

	fields, err := buildCommand(prof.RunCmdTpl, artifactPath)
	if err != nil {
		return Result{}, err
	}

	cmd := exec.Command(fields[0], fields[1:]...)
	// Empty stdin still attaches a closed stream so the process never
	// blocks waiting for input.
	cmd.Stdin = strings.NewReader(req.Stdin)
	stdout := newCappedBuffer(e.cfg.MaxOutputBytes)
	stderr := newCappedBuffer(e.cfg.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if len(prof.Env) > 0 {
		cmd.Env = append(os.Environ(), prof.Env...)
	}
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, appErr.Wrapf(err, appErr.LaunchFailure, "launch %s runtime failed", prof.ID)
	}

	// Exactly one party claims the outcome: the timer kills the process
	// group only if it wins the claim, and a run whose Wait already
	// returned can never be flagged as a timeout afterwards.
	var outcome atomic.Int32
	done := make(chan struct{})
	go func() {
		select {
		case <-time.After(time.Duration(timeLimit) * time.Millisecond):
			if outcome.CompareAndSwap(outcomePending, outcomeTimedOut) {
				killProcessGroup(cmd)
			}
		case <-ctx.Done():
			killProcessGroup(cmd)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	outcome.CompareAndSwap(outcomePending, outcomeFinished)
	close(done)
	elapsedMs := time.Since(start).Milliseconds()

	if outcome.Load() == outcomeTimedOut {
		return Result{}, appErr.Newf(appErr.ExecutionTimeout, "execution exceeded %dms", timeLimit)
	}
	if ctx.Err() != nil {
		return Result{}, appErr.Wrap(ctx.Err(), appErr.ExecutionFailed)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return Result{}, appErr.Wrapf(waitErr, appErr.ExecutionFailed, "wait for process failed")
		}
	}

	return Result{
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		ExecutionTimeMs: elapsedMs,
		ExitCode:        exitCode(cmd, waitErr),
	}, nil
}

// Languages returns the ids of all configured runtime profiles.
func (e *Engine) Languages() []string {
	ids := make([]string, 0, len(e.profiles))
	for id := range e.profiles {
		ids = append(ids, id)
	}
	return ids
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func buildCommand(tpl, artifactPath string) ([]string, error) {
	expanded := strings.ReplaceAll(tpl, "{src}", artifactPath)
	fields, err := shlex.Split(expanded)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidParams, "parse run command template failed")
	}
	if len(fields) == 0 {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("run command is empty after expansion")
	}
	return fields, nil
}

// removeArtifact deletes the source artifact. A missing file is not a
// fault; the delete is idempotent.
func removeArtifact(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn(ctx, "remove source artifact failed",
			zap.String("path", path), zap.Error(err))
	}
}

type cappedBuffer struct {
	buf bytes.Buffer
	max int64
}

func newCappedBuffer(max int64) *cappedBuffer {
	return &cappedBuffer{max: max}
}

// Write keeps at most max bytes and silently drops the rest.
func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.max - int64(b.buf.Len())
	if remaining <= 0 {
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		b.buf.Write(p[:remaining])
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
