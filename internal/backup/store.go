// Package backup stores pre-apply snapshots of the files a plan is about
// to touch and restores them during rollback. Every snapshot is a data
// copy plus a JSON sidecar describing what was captured; a target that did
// not exist at snapshot time gets a sidecar-only marker so rollback knows
// to delete instead of restore.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Iron-Ham/planward/internal/logging"
	"github.com/Iron-Ham/planward/internal/util"
)

// dirName is the backups subdirectory under the data directory.
const dirName = "backups"

// Record describes one snapshot. DataFile and SHA256 are empty when the
// target did not exist at snapshot time. SidecarFile is where the record
// itself lives on disk; it is filled on write and load, never serialized.
type Record struct {
	ID        string      `json:"id"`
	PlanID    string      `json:"plan_id"`
	StepIndex int         `json:"step_index"`
	Path      string      `json:"path"`
	Existed   bool        `json:"existed"`
	Mode      os.FileMode `json:"mode,omitempty"`
	Size      int64       `json:"size"`
	SHA256    string      `json:"sha256,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	DataFile  string      `json:"data_file,omitempty"`

	SidecarFile string `json:"-"`
}

// Store writes and reads snapshots under <dataDir>/backups/<planID>/.
type Store struct {
	root   string
	logger *logging.Logger
}

// NewStore creates a backup store rooted under dataDir.
func NewStore(dataDir string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store{
		root:   filepath.Join(dataDir, dirName),
		logger: logger.WithComponent("backup"),
	}
}

// PlanDir returns the directory holding a plan's snapshots.
func (s *Store) PlanDir(planID string) string {
	return filepath.Join(s.root, planID)
}

// Snapshot captures the state of path before step stepIndex touches it.
// A missing target produces a marker record with Existed false.
func (s *Store) Snapshot(planID string, stepIndex int, path string) (*Record, error) {
	dir := s.PlanDir(planID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	rec := &Record{
		ID:        fmt.Sprintf("%s/%03d", planID, stepIndex),
		PlanID:    planID,
		StepIndex: stepIndex,
		Path:      path,
		CreatedAt: time.Now().UTC(),
	}

	info, err := os.Lstat(path)
	switch {
	case os.IsNotExist(err):
		// Marker-only record; rollback deletes whatever apply creates.
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", path, err)
	case !info.Mode().IsRegular():
		return nil, fmt.Errorf("refusing to back up non-regular file %s", path)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		sum := sha256.Sum256(data)

		dataFile := filepath.Join(dir, fmt.Sprintf("%03d_%s", stepIndex, filepath.Base(path)))
		if err := util.AtomicWriteFile(dataFile, data, 0o600); err != nil {
			return nil, fmt.Errorf("write backup data: %w", err)
		}

		rec.Existed = true
		rec.Mode = info.Mode().Perm()
		rec.Size = int64(len(data))
		rec.SHA256 = hex.EncodeToString(sum[:])
		rec.DataFile = dataFile
	}

	sidecar := filepath.Join(dir, fmt.Sprintf("%03d_%s.json", stepIndex, filepath.Base(path)))
	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup record: %w", err)
	}
	if err := util.AtomicWriteFile(sidecar, payload, 0o600); err != nil {
		return nil, fmt.Errorf("write backup record: %w", err)
	}
	rec.SidecarFile = sidecar

	s.logger.Debug("snapshot taken",
		"plan_id", planID, "step", stepIndex, "path", path, "existed", rec.Existed)
	return rec, nil
}

// Restore puts the target back the way the snapshot saw it: the captured
// bytes and permissions when the file existed, absence when it did not.
// The backup data is checksummed before anything is touched.
func (s *Store) Restore(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("nil backup record")
	}

	if !rec.Existed {
		if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", rec.Path, err)
		}
		s.logger.Debug("restored absence", "path", rec.Path)
		return nil
	}

	data, err := os.ReadFile(rec.DataFile)
	if err != nil {
		return fmt.Errorf("read backup data: %w", err)
	}
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != rec.SHA256 {
		return fmt.Errorf("backup data for %s is corrupt: checksum mismatch", rec.Path)
	}

	if err := os.MkdirAll(filepath.Dir(rec.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	mode := rec.Mode
	if mode == 0 {
		mode = 0o644
	}
	if err := util.AtomicWriteFile(rec.Path, data, mode); err != nil {
		return fmt.Errorf("restore %s: %w", rec.Path, err)
	}

	s.logger.Debug("restored file", "path", rec.Path, "bytes", rec.Size)
	return nil
}

// Load reads every record for a plan, ordered by step index. A plan with
// no backups returns an empty slice.
func (s *Store) Load(planID string) ([]*Record, error) {
	dir := s.PlanDir(planID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var records []*Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		rec, err := LoadRecord(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StepIndex < records[j].StepIndex
	})
	return records, nil
}

// LoadRecord reads one sidecar file back into a Record.
func LoadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode backup record %s: %w", path, err)
	}
	rec.SidecarFile = path
	return &rec, nil
}
