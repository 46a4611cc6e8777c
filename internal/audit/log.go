package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Iron-Ham/planward/internal/errors"
	"github.com/Iron-Ham/planward/internal/logging"
)

const (
	// dirName is the audit subdirectory under the data directory.
	dirName = "audit"

	// fileName is the JSONL log file inside dirName.
	fileName = "audit.jsonl"

	// maxLineBytes bounds a single audit line when scanning the log.
	maxLineBytes = 4 * 1024 * 1024
)

// Log is the append-only audit log. A process-wide mutex serializes
// in-process appends; an advisory flock on a sidecar lock file serializes
// appends across processes. All writes go through Append.
type Log struct {
	mu     sync.Mutex
	path   string
	logger *logging.Logger
}

// Open prepares the audit log under dataDir, creating the audit directory
// if needed. The log file itself is created lazily on first append.
func Open(dataDir string, logger *logging.Logger) (*Log, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	dir := filepath.Join(dataDir, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	return &Log{
		path:   filepath.Join(dir, fileName),
		logger: logger.WithComponent("audit"),
	}, nil
}

// Path returns the absolute path of the log file.
func (l *Log) Path() string {
	return l.path
}

// -----------------------------------------------------------------------------
// Append
// -----------------------------------------------------------------------------

// Append writes one entry to the end of the log and returns it with its
// sequence number and hashes filled in. The write is durable before Append
// returns: the line is fsynced, then the containing directory.
func (l *Log) Append(rec Record) (Entry, error) {
	if err := rec.Validate(); err != nil {
		return Entry{}, errors.Wrap(err, "invalid audit record")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lockFile, err := os.OpenFile(l.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return Entry{}, fmt.Errorf("open audit lock: %w", err)
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return Entry{}, fmt.Errorf("lock audit log: %w", err)
	}
	defer func() {
		_ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
	}()

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return Entry{}, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	lastSeq, lastHash, err := readTail(file)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		Seq:       lastSeq + 1,
		ID:        newEventID(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Mode:      rec.Mode,
		Actor:     rec.Actor,
		Action:    rec.Action,
		Target:    rec.Target,
		PlanID:    rec.PlanID,
		StepIndex: rec.StepIndex,
		RiskLevel: rec.RiskLevel,
		Outcome:   rec.Outcome,
		Detail:    rec.Detail,
		PrevHash:  lastHash,
	}

	entry.Hash, err = computeHash(entry)
	if err != nil {
		return Entry{}, err
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal audit entry: %w", err)
	}

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return Entry{}, fmt.Errorf("seek audit log end: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return Entry{}, fmt.Errorf("append audit entry: %w", err)
	}
	if err := file.Sync(); err != nil {
		return Entry{}, fmt.Errorf("fsync audit log: %w", err)
	}
	if err := syncDirectory(filepath.Dir(l.path)); err != nil {
		return Entry{}, err
	}

	l.logger.Debug("audit entry appended",
		"seq", entry.Seq,
		"action", entry.Action.String(),
		"outcome", entry.Outcome.String(),
	)
	return entry, nil
}

// readTail scans the log and returns the sequence number and hash of the
// final entry. An empty or missing log yields (0, "").
func readTail(file *os.File) (int, string, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return 0, "", fmt.Errorf("seek audit log start: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lastSeq := 0
	lastHash := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return 0, "", fmt.Errorf("decode existing audit entry: %w", err)
		}
		lastSeq = entry.Seq
		lastHash = entry.Hash
	}
	if err := scanner.Err(); err != nil {
		return 0, "", fmt.Errorf("scan audit log: %w", err)
	}
	return lastSeq, lastHash, nil
}

// syncDirectory fsyncs a directory so a freshly appended file entry
// survives a crash. Filesystems that cannot sync directories are
// tolerated.
func syncDirectory(dir string) error {
	handle, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open audit dir: %w", err)
	}
	defer handle.Close()

	if err := handle.Sync(); err != nil {
		if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTSUP) {
			return nil
		}
		return fmt.Errorf("fsync audit dir: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Read
// -----------------------------------------------------------------------------

// List returns entries in append order. A positive limit returns only the
// last limit entries; limit <= 0 returns everything. A missing log file
// yields an empty slice.
func (l *Log) List(limit int) ([]Entry, error) {
	entries, err := l.load()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// load reads every entry from disk in append order.
func (l *Log) load() ([]Entry, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("decode audit line %d: %w", lineNum, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	return entries, nil
}

// -----------------------------------------------------------------------------
// Verify
// -----------------------------------------------------------------------------

// VerifyResult reports the outcome of a chain verification pass.
type VerifyResult struct {
	// OK is true when every entry's hash and linkage check out.
	OK bool

	// Entries is the number of entries examined.
	Entries int

	// BrokenSeq is the sequence number of the first broken entry,
	// or 0 when the chain is intact.
	BrokenSeq int

	// BrokenID is the ID of the first broken entry, if any.
	BrokenID string

	// Message describes what failed, empty when OK.
	Message string
}

// Err returns nil for an intact chain, or an IntegrityError naming the
// first broken entry.
func (r *VerifyResult) Err() error {
	if r.OK {
		return nil
	}
	return errors.NewIntegrityError(r.BrokenSeq, r.BrokenID)
}

// Verify walks the whole log and checks, per entry, that the sequence
// numbers ascend from 1, that PrevHash equals the predecessor's Hash, and
// that the stored Hash matches the recomputed one. It stops at the first
// broken entry. The log is never modified.
func (l *Log) Verify() (*VerifyResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.load()
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{OK: true, Entries: len(entries)}
	prevHash := ""
	for i, entry := range entries {
		broken := func(format string, args ...any) *VerifyResult {
			result.OK = false
			result.BrokenSeq = entry.Seq
			if result.BrokenSeq == 0 {
				result.BrokenSeq = i + 1
			}
			result.BrokenID = entry.ID
			result.Message = fmt.Sprintf(format, args...)
			return result
		}

		if entry.Seq != i+1 {
			return broken("seq mismatch: got %d want %d", entry.Seq, i+1), nil
		}
		if entry.PrevHash != prevHash {
			return broken("prev_hash mismatch: got %q want %q", entry.PrevHash, prevHash), nil
		}
		want, err := computeHash(entry)
		if err != nil {
			return broken("recompute hash: %v", err), nil
		}
		if entry.Hash != want {
			return broken("hash mismatch"), nil
		}
		prevHash = entry.Hash
	}
	return result, nil
}
