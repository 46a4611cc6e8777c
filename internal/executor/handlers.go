package executor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Iron-Ham/planward/internal/backup"
	"github.com/Iron-Ham/planward/internal/errors"
	"github.com/Iron-Ham/planward/internal/plan"
	"github.com/Iron-Ham/planward/internal/util"
)

// ApplyOutcome carries what a handler's Apply produced so Verify can check
// it. File steps fill Path and ContentSHA; command steps fill ExitCode and
// the captured output.
type ApplyOutcome struct {
	Path       string
	ContentSHA string
	ExitCode   int
	Stdout     string
	Stderr     string
}

// Handler applies one step type against a resolved target, verifies the
// result afterward, and undoes it during rollback. The target passed to
// Apply is already resolved and confirmed inside the workspace.
type Handler interface {
	Apply(ctx context.Context, step plan.Step, target string) (*ApplyOutcome, error)
	Verify(ctx context.Context, step plan.Step, outcome *ApplyOutcome) error
	Rollback(rec *backup.Record) error
}

func newHandlers(backups *backup.Store, workspace string, maxOutput int) map[plan.StepType]Handler {
	return map[plan.StepType]Handler{
		plan.StepCreateFile:     &createFileHandler{backups: backups},
		plan.StepModifyFile:     &modifyFileHandler{backups: backups},
		plan.StepDeleteFile:     &deleteFileHandler{backups: backups},
		plan.StepExecuteCommand: &commandHandler{workspace: workspace, maxOutput: maxOutput},
	}
}

// ---------------------------------------------------------------------------
// File steps
// ---------------------------------------------------------------------------

type createFileHandler struct {
	backups *backup.Store
}

func (h *createFileHandler) Apply(ctx context.Context, step plan.Step, target string) (*ApplyOutcome, error) {
	if _, err := os.Lstat(target); err == nil {
		return nil, fmt.Errorf("%s already exists", step.Path)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat %s: %w", step.Path, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("create parent dir: %w", err)
	}
	data := []byte(step.Content)
	if err := util.AtomicWriteFile(target, data, 0o644); err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return &ApplyOutcome{Path: target, ContentSHA: hex.EncodeToString(sum[:])}, nil
}

func (h *createFileHandler) Verify(ctx context.Context, step plan.Step, outcome *ApplyOutcome) error {
	return verifyFileContent(outcome)
}

func (h *createFileHandler) Rollback(rec *backup.Record) error {
	return h.backups.Restore(rec)
}

type modifyFileHandler struct {
	backups *backup.Store
}

func (h *modifyFileHandler) Apply(ctx context.Context, step plan.Step, target string) (*ApplyOutcome, error) {
	info, err := os.Lstat(target)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s does not exist", step.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", step.Path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", step.Path)
	}
	data := []byte(step.Content)
	if err := util.AtomicWriteFile(target, data, info.Mode().Perm()); err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return &ApplyOutcome{Path: target, ContentSHA: hex.EncodeToString(sum[:])}, nil
}

func (h *modifyFileHandler) Verify(ctx context.Context, step plan.Step, outcome *ApplyOutcome) error {
	return verifyFileContent(outcome)
}

func (h *modifyFileHandler) Rollback(rec *backup.Record) error {
	return h.backups.Restore(rec)
}

type deleteFileHandler struct {
	backups *backup.Store
}

func (h *deleteFileHandler) Apply(ctx context.Context, step plan.Step, target string) (*ApplyOutcome, error) {
	if _, err := os.Lstat(target); os.IsNotExist(err) {
		// Already absent, which is the desired end state.
		return &ApplyOutcome{Path: target}, nil
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", step.Path, err)
	}
	if err := os.Remove(target); err != nil {
		return nil, fmt.Errorf("delete %s: %w", step.Path, err)
	}
	return &ApplyOutcome{Path: target}, nil
}

func (h *deleteFileHandler) Verify(ctx context.Context, step plan.Step, outcome *ApplyOutcome) error {
	if _, err := os.Lstat(outcome.Path); err == nil {
		return fmt.Errorf("%s still exists", outcome.Path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (h *deleteFileHandler) Rollback(rec *backup.Record) error {
	return h.backups.Restore(rec)
}

// verifyFileContent reads the target back and checks it holds exactly what
// Apply wrote.
func verifyFileContent(outcome *ApplyOutcome) error {
	data, err := os.ReadFile(outcome.Path)
	if err != nil {
		return fmt.Errorf("read back %s: %w", outcome.Path, err)
	}
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != outcome.ContentSHA {
		return fmt.Errorf("%s does not contain what was written", outcome.Path)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Command steps
// ---------------------------------------------------------------------------

type commandHandler struct {
	workspace string
	maxOutput int
}

// Apply runs the command through the shell with the workspace as its
// working directory. A non-zero exit is not an apply failure; the command
// ran, and Verify judges the code. Only a process that could not run or
// was cut off by the context fails here.
func (h *commandHandler) Apply(ctx context.Context, step plan.Step, target string) (*ApplyOutcome, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", step.Command)
	cmd.Dir = h.workspace
	// Unblocks Wait when a killed command's children keep the pipes open.
	cmd.WaitDelay = 5 * time.Second
	stdout := newBoundedBuffer(h.maxOutput)
	stderr := newBoundedBuffer(h.maxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	outcome := &ApplyOutcome{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			outcome.ExitCode = exitErr.ExitCode()
			return outcome, nil
		}
		return nil, fmt.Errorf("run command: %w", err)
	}
	return outcome, nil
}

func (h *commandHandler) Verify(ctx context.Context, step plan.Step, outcome *ApplyOutcome) error {
	if outcome.ExitCode == 0 {
		return nil
	}
	if s := summarize(outcome.Stderr); s != "" {
		return fmt.Errorf("command exited with code %d: %s", outcome.ExitCode, s)
	}
	return fmt.Errorf("command exited with code %d", outcome.ExitCode)
}

// Rollback is a no-op: a command's side effects have no automatic undo.
func (h *commandHandler) Rollback(rec *backup.Record) error {
	return nil
}

// boundedBuffer keeps at most limit bytes and drops the rest, noting that
// truncation happened.
type boundedBuffer struct {
	limit     int
	buf       bytes.Buffer
	truncated bool
}

func newBoundedBuffer(limit int) *boundedBuffer {
	return &boundedBuffer{limit: limit}
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buf.Len()
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *boundedBuffer) String() string {
	if b.truncated {
		return b.buf.String() + "\n[output truncated]"
	}
	return b.buf.String()
}

// summarize reduces command output to a single capped line for error
// messages and audit detail.
func summarize(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
