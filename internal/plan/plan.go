package plan

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/Iron-Ham/planward/internal/errors"
)

// Plan groups an ordered list of steps under one approval decision. Steps
// execute strictly in slice order. DroppedSteps records every proposed step
// that safety validation rejected, so a review always shows what the model
// wanted to do, not just what survived.
type Plan struct {
	ID           string         `json:"id"`
	Description  string         `json:"description"`
	Status       Status         `json:"status"`
	RiskLevel    RiskLevel      `json:"risk_level"`
	Steps        []Step         `json:"steps"`
	DroppedSteps []DroppedStep  `json:"dropped_steps,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Execution    *ExecutionMeta `json:"execution,omitempty"`
}

// DroppedStep records a proposed step that safety validation rejected,
// together with the reason it was dropped.
type DroppedStep struct {
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

// StepOutcome describes what happened to a single step during execution.
type StepOutcome string

const (
	// OutcomeApplied indicates the step applied and verified successfully.
	OutcomeApplied StepOutcome = "applied"

	// OutcomeFailed indicates the step failed to apply or verify.
	OutcomeFailed StepOutcome = "failed"

	// OutcomeRolledBack indicates an applied step was undone after a later
	// step failed.
	OutcomeRolledBack StepOutcome = "rolled_back"

	// OutcomeSkipped indicates the step was never reached.
	OutcomeSkipped StepOutcome = "skipped"
)

// String returns the string representation of the outcome.
func (o StepOutcome) String() string {
	return string(o)
}

// StepResult records the execution outcome of one step.
type StepResult struct {
	Index      int         `json:"index"`
	Outcome    StepOutcome `json:"outcome"`
	StartedAt  time.Time   `json:"started_at,omitempty"`
	FinishedAt time.Time   `json:"finished_at,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// ExecutionMeta captures everything recorded about one execution attempt.
// A plan executes at most once; the metadata survives on the plan row.
type ExecutionMeta struct {
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	DryRun      bool         `json:"dry_run,omitempty"`
	BackupDir   string       `json:"backup_dir,omitempty"`
	StepResults []StepResult `json:"step_results,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// New creates a pending plan with a fresh ID and a risk level computed from
// the steps' tiers. The caller is expected to have validated the steps.
func New(description string, steps []Step) *Plan {
	now := time.Now().UTC()
	p := &Plan{
		ID:          GenerateID(),
		Description: description,
		Status:      StatusPending,
		Steps:       steps,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.RiskLevel = p.ComputeRiskLevel()
	return p
}

// ComputeRiskLevel returns the maximum risk tier across the plan's steps.
// A plan with no tiered steps is RiskLow.
func (p *Plan) ComputeRiskLevel() RiskLevel {
	level := RiskLow
	for _, s := range p.Steps {
		if s.RiskTier.IsValid() {
			level = MaxRiskLevel(level, s.RiskTier)
		}
	}
	return level
}

// RequiresBackup returns true if any step destroys existing content and
// therefore needs a backup before it applies.
func (p *Plan) RequiresBackup() bool {
	for _, s := range p.Steps {
		if s.Type == StepModifyFile || s.Type == StepDeleteFile {
			return true
		}
	}
	return false
}

// StepCount returns the number of steps in the plan.
func (p *Plan) StepCount() int {
	return len(p.Steps)
}

// Validate checks the plan's shape: non-empty ID and description, at least
// one step, and every step individually valid. An empty plan is never valid;
// generation must fail instead of storing one.
func (p *Plan) Validate() error {
	if p.ID == "" {
		return errors.NewValidationError("plan ID cannot be empty").WithField("id")
	}
	if p.Description == "" {
		return errors.NewValidationError("plan description cannot be empty").WithField("description")
	}
	if len(p.Steps) == 0 {
		return errors.Wrap(errors.ErrPlanInvalid, "plan has no steps")
	}
	if !p.Status.IsValid() {
		return errors.NewValidationError(fmt.Sprintf("unknown status %q", string(p.Status))).
			WithField("status")
	}

	for i, s := range p.Steps {
		if err := s.Validate(); err != nil {
			return errors.Wrapf(err, "step %d", i)
		}
	}
	return nil
}

// generateID creates a short random hex ID.
// Falls back to timestamp-based ID if crypto/rand fails.
func generateID() string {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID if crypto/rand fails
		return fmt.Sprintf("%08x", time.Now().UnixNano()&0xFFFFFFFF)
	}
	return hex.EncodeToString(bytes)
}

// GenerateID generates a new random 8-character hex ID for a plan.
func GenerateID() string {
	return generateID()
}
