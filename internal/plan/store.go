package plan

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Iron-Ham/planward/internal/errors"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// StatusFilter narrows what List returns. The zero value lists everything.
type StatusFilter struct {
	// Status restricts results to one status; empty means all statuses.
	Status Status
	// Limit caps the number of plans returned; 0 means no limit.
	Limit int
}

// Store persists plans in a SQLite database. Steps, dropped steps, and
// execution metadata serialize as JSON columns; status is a real column so
// listings can filter on it. Mutations are serialized by a mutex: the store
// is the single writer for plan state, and every status change goes through
// the transition table.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the plan database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create plan database directory: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan database: %w", err)
	}

	// SQLite behavior pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate plan database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS plans (
			id            TEXT PRIMARY KEY,
			description   TEXT NOT NULL,
			status        TEXT NOT NULL,
			risk_level    TEXT NOT NULL,
			steps         TEXT NOT NULL,
			dropped_steps TEXT,
			execution     TEXT,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_plans_status  ON plans(status);
		CREATE INDEX IF NOT EXISTS idx_plans_created ON plans(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// -----------------------------------------------------------------------------
// Writes
// -----------------------------------------------------------------------------

// Save inserts a new plan. The plan must be structurally valid; in
// particular a plan with no steps is rejected, never stored. Saving an ID
// that already exists returns an AlreadyExistsError.
func (s *Store) Save(p *Plan) error {
	if p == nil {
		return errors.NewValidationError("plan cannot be nil")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}
	dropped, err := marshalNullable(p.DroppedSteps)
	if err != nil {
		return fmt.Errorf("failed to marshal dropped steps: %w", err)
	}
	execution, err := marshalNullable(p.Execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		`INSERT INTO plans (id, description, status, risk_level, steps, dropped_steps, execution, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Description, p.Status.String(), p.RiskLevel.String(),
		string(steps), dropped, execution,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewAlreadyExistsError("plan", p.ID)
		}
		return fmt.Errorf("failed to insert plan: %w", err)
	}
	return nil
}

// UpdateStatus moves a plan to the next status, enforcing the transition
// table. An illegal move, including any move out of a terminal status,
// returns a *errors.StatusError and changes nothing. On success the updated
// plan is returned.
func (s *Store) UpdateStatus(id string, next Status) (*Plan, error) {
	if !next.IsValid() {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown status %q", string(next))).
			WithField("status")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var current string
	err = tx.QueryRow(`SELECT status FROM plans WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("plan", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read plan status: %w", err)
	}

	if !Status(current).CanTransitionTo(next) {
		return nil, errors.NewStatusError(id, current, next.String())
	}

	if _, err := tx.Exec(
		`UPDATE plans SET status = ?, updated_at = ? WHERE id = ?`,
		next.String(), formatTime(time.Now().UTC()), id,
	); err != nil {
		return nil, fmt.Errorf("failed to update plan status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}

	return s.get(id)
}

// SetExecutionMeta replaces the plan's execution metadata.
func (s *Store) SetExecutionMeta(id string, meta *ExecutionMeta) error {
	execution, err := marshalNullable(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal execution metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE plans SET execution = ?, updated_at = ? WHERE id = ?`,
		execution, formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution metadata: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("plan", id)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Reads
// -----------------------------------------------------------------------------

// Get retrieves a plan by ID.
func (s *Store) Get(id string) (*Plan, error) {
	return s.get(id)
}

func (s *Store) get(id string) (*Plan, error) {
	row := s.db.QueryRow(
		`SELECT id, description, status, risk_level, steps, dropped_steps, execution, created_at, updated_at
		 FROM plans WHERE id = ?`, id,
	)

	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("plan", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return p, nil
}

// List returns plans newest first, optionally filtered by status.
func (s *Store) List(filter StatusFilter) ([]*Plan, error) {
	query := `SELECT id, description, status, risk_level, steps, dropped_steps, execution, created_at, updated_at
		 FROM plans`
	args := []any{}

	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, filter.Status.String())
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// -----------------------------------------------------------------------------
// Row Handling
// -----------------------------------------------------------------------------

// rowScanner abstracts *sql.Row and *sql.Rows for scanPlan.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*Plan, error) {
	var (
		p                  Plan
		status, risk       string
		steps              string
		dropped, execution sql.NullString
		created, updated   string
	)

	if err := row.Scan(&p.ID, &p.Description, &status, &risk, &steps, &dropped, &execution, &created, &updated); err != nil {
		return nil, err
	}

	p.Status = Status(status)
	p.RiskLevel = RiskLevel(risk)

	if err := json.Unmarshal([]byte(steps), &p.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}
	if dropped.Valid && dropped.String != "" {
		if err := json.Unmarshal([]byte(dropped.String), &p.DroppedSteps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dropped steps: %w", err)
		}
	}
	if execution.Valid && execution.String != "" {
		if err := json.Unmarshal([]byte(execution.String), &p.Execution); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution metadata: %w", err)
		}
	}

	var err error
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &p, nil
}

// marshalNullable marshals v to a JSON string, or SQL NULL when v is nil or
// an empty slice.
func marshalNullable(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []DroppedStep:
		if len(t) == 0 {
			return nil, nil
		}
	case *ExecutionMeta:
		if t == nil {
			return nil, nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// timeLayout is RFC 3339 with a fixed-width fraction so the TEXT column
// sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
