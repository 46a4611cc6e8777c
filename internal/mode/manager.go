package mode

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Iron-Ham/planward/internal/errors"
	"github.com/Iron-Ham/planward/internal/logging"
	"github.com/Iron-Ham/planward/internal/util"
)

const (
	// historyLimit bounds how many past transitions are retained.
	historyLimit = 5

	// stateFileName is the file inside the data directory holding the
	// current mode between CLI invocations.
	stateFileName = "mode.json"
)

// Change records a single mode transition.
type Change struct {
	From Mode      `json:"from"`
	To   Mode      `json:"to"`
	At   time.Time `json:"at"`
}

// Status is a point-in-time snapshot of the manager.
type Status struct {
	Current     Mode     `json:"current"`
	Description string   `json:"description"`
	History     []Change `json:"history,omitempty"`
}

// persistedState is the on-disk form of the manager's state.
type persistedState struct {
	Mode    Mode      `json:"mode"`
	History []Change  `json:"history,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// Manager tracks the current operating mode and the recent transition
// history. It is safe for concurrent use. Construct one per process and
// inject it; the mode is process-wide state, not per-operation state.
type Manager struct {
	mu        sync.Mutex
	current   Mode
	history   []Change
	statePath string // empty disables persistence
	logger    *logging.Logger
}

// NewManager returns an in-memory Manager starting in safe_explore mode.
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Manager{
		current: ModeSafeExplore,
		logger:  logger.WithComponent("mode"),
	}
}

// NewPersistentManager returns a Manager that persists its state to a file
// under dataDir so the current mode survives across CLI invocations.
//
// A missing, unreadable, or corrupt state file loads as safe_explore: when
// in doubt the manager always starts in the most restrictive mode.
func NewPersistentManager(dataDir string, logger *logging.Logger) (*Manager, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	m := NewManager(logger)
	m.statePath = filepath.Join(dataDir, stateFileName)
	m.loadState()
	return m, nil
}

// Current returns the active mode.
func (m *Manager) Current() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Transition switches the active mode to target. Any mode may transition to
// any other mode, but only through this method. Switching to the mode that
// is already active returns ErrAlreadyInMode; an unknown target returns
// ErrInvalidMode.
//
// When persistence is enabled the new mode is written to disk before the
// in-memory state changes, so a failed write leaves the manager in its
// previous mode.
func (m *Manager) Transition(target Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !target.IsValid() {
		return errors.Wrapf(errors.ErrInvalidMode, "cannot switch to %q", target)
	}
	if target == m.current {
		return errors.Wrapf(errors.ErrAlreadyInMode, "already in %s mode", target)
	}

	change := Change{From: m.current, To: target, At: time.Now().UTC()}
	next := make([]Change, 0, len(m.history)+1)
	next = append(next, m.history...)
	next = append(next, change)
	if len(next) > historyLimit {
		next = next[len(next)-historyLimit:]
	}

	if m.statePath != "" {
		if err := m.saveState(target, next); err != nil {
			return errors.Wrap(err, "failed to persist mode change")
		}
	}

	m.current = target
	m.history = next
	m.logger.Info("mode changed", "from", change.From.String(), "to", change.To.String())
	return nil
}

// Assert returns nil when the current mode is one of required, and a
// *errors.ModeError otherwise. Every mutating operation must call Assert
// before doing anything; nothing switches modes to make an operation legal.
func (m *Manager) Assert(required ...Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range required {
		if m.current == r {
			return nil
		}
	}

	names := make([]string, len(required))
	for i, r := range required {
		names[i] = r.String()
	}
	return errors.NewModeError(m.current.String(), names...)
}

// Status returns a snapshot of the current mode and recent transitions.
// The returned history is a copy.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := make([]Change, len(m.history))
	copy(history, m.history)

	return Status{
		Current:     m.current,
		Description: m.current.Description(),
		History:     history,
	}
}

// History returns a copy of the retained transition history, oldest first.
func (m *Manager) History() []Change {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := make([]Change, len(m.history))
	copy(history, m.history)
	return history
}

// loadState restores mode and history from the state file. Any failure
// leaves the manager in safe_explore.
func (m *Manager) loadState() {
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("failed to read mode state, defaulting to safe_explore", "error", err.Error())
		}
		return
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		m.logger.Warn("failed to parse mode state, defaulting to safe_explore", "error", err.Error())
		return
	}
	if !state.Mode.IsValid() {
		m.logger.Warn("mode state holds unknown mode, defaulting to safe_explore", "mode", state.Mode.String())
		return
	}

	if len(state.History) > historyLimit {
		state.History = state.History[len(state.History)-historyLimit:]
	}

	m.current = state.Mode
	m.history = state.History
}

// saveState writes mode and history to the state file atomically.
// The caller must hold the mutex.
func (m *Manager) saveState(current Mode, history []Change) error {
	state := persistedState{
		Mode:    current,
		History: history,
		SavedAt: time.Now().UTC(),
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal mode state: %w", err)
	}

	return util.AtomicWriteFile(m.statePath, data, 0644)
}
