// Package plan defines the plan domain model: the steps a plan is made of,
// the risk tiers attached to them, the plan status machine, and the SQLite
// store plans live in.
//
// A plan is the unit of approval. It is generated in propose mode, reviewed
// and approved or rejected by the user, and applied in execute mode. Its
// status only ever moves along the transition table implemented by
// [Status.CanTransitionTo]; terminal statuses never move again.
package plan

import (
	"fmt"

	"github.com/Iron-Ham/planward/internal/errors"
)

// -----------------------------------------------------------------------------
// Risk Levels
// -----------------------------------------------------------------------------

// RiskLevel grades how dangerous a step or plan is. Step tiers are assigned
// exactly once, by safety validation, based on the normalized target; a
// plan's risk level is the maximum tier across its steps.
type RiskLevel string

const (
	// RiskLow covers additive changes such as creating a new file.
	RiskLow RiskLevel = "low"

	// RiskMedium covers changes to existing content.
	RiskMedium RiskLevel = "medium"

	// RiskHigh covers deletions and command execution.
	RiskHigh RiskLevel = "high"

	// RiskCritical covers operations that are never executed, such as
	// recursive deletes of root-like paths.
	RiskCritical RiskLevel = "critical"
)

// String returns the string representation of the risk level.
func (r RiskLevel) String() string {
	return string(r)
}

// IsValid returns true if this is a recognized risk level.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	default:
		return false
	}
}

// Rank returns the risk level's position in the escalation order.
// Higher is riskier. Unknown levels rank below RiskLow.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return -1
	}
}

// AtLeast reports whether r is at or above other in the escalation order.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.Rank() >= other.Rank()
}

// MaxRiskLevel returns the riskier of a and b.
func MaxRiskLevel(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// -----------------------------------------------------------------------------
// Plan Status
// -----------------------------------------------------------------------------

// Status represents the lifecycle state of a plan.
type Status string

const (
	// StatusPending indicates the plan awaits an approval decision.
	StatusPending Status = "pending"

	// StatusApproved indicates the user approved the plan for execution.
	StatusApproved Status = "approved"

	// StatusRejected indicates the user rejected the plan. Terminal.
	StatusRejected Status = "rejected"

	// StatusExecuting indicates the plan is currently being applied.
	StatusExecuting Status = "executing"

	// StatusCompleted indicates every step applied successfully. Terminal.
	StatusCompleted Status = "completed"

	// StatusFailed indicates a step failed and rollback also did not fully
	// restore the workspace. Terminal.
	StatusFailed Status = "failed"

	// StatusRolledBack indicates a step failed and all previously applied
	// steps were undone. Terminal.
	StatusRolledBack Status = "rolled_back"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if this is a recognized status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusExecuting,
		StatusCompleted, StatusFailed, StatusRolledBack:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if this status represents a final state.
// Terminal plans never change status again.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusFailed, StatusRolledBack:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the status machine permits moving from s
// to next:
//
//	pending   -> approved | rejected
//	approved  -> executing
//	executing -> completed | failed | rolled_back
//
// Every other move, including any move out of a terminal status, is illegal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusExecuting
	case StatusExecuting:
		return next == StatusCompleted || next == StatusFailed || next == StatusRolledBack
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// Step Types
// -----------------------------------------------------------------------------

// StepType identifies the kind of work a step performs.
type StepType string

const (
	// StepCreateFile creates a new file with the given content.
	StepCreateFile StepType = "create_file"

	// StepModifyFile replaces the content of an existing file.
	StepModifyFile StepType = "modify_file"

	// StepDeleteFile removes an existing file.
	StepDeleteFile StepType = "delete_file"

	// StepExecuteCommand runs a shell command inside the workspace.
	StepExecuteCommand StepType = "execute_command"
)

// String returns the string representation of the step type.
func (t StepType) String() string {
	return string(t)
}

// IsValid returns true if this is a recognized step type.
func (t StepType) IsValid() bool {
	switch t {
	case StepCreateFile, StepModifyFile, StepDeleteFile, StepExecuteCommand:
		return true
	default:
		return false
	}
}

// IsFileOperation returns true for step types that target a filesystem path.
func (t StepType) IsFileOperation() bool {
	switch t {
	case StepCreateFile, StepModifyFile, StepDeleteFile:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// Rollback Descriptors
// -----------------------------------------------------------------------------

// RollbackKind identifies how an applied step can be undone.
type RollbackKind string

const (
	// RollbackDeleteCreated removes a file the step created.
	RollbackDeleteCreated RollbackKind = "delete_created"

	// RollbackRestoreBackup restores the pre-apply backup of the target.
	RollbackRestoreBackup RollbackKind = "restore_backup"

	// RollbackNone marks a step with no automatic undo, such as a command.
	RollbackNone RollbackKind = "none"
)

// RollbackDescriptor records how to undo an applied step. The executor
// populates it immediately before applying the step, never earlier: the
// backup it references does not exist until that moment.
type RollbackDescriptor struct {
	Kind      RollbackKind `json:"kind"`
	BackupRef string       `json:"backup_ref,omitempty"`
}

// -----------------------------------------------------------------------------
// Steps
// -----------------------------------------------------------------------------

// Step is one unit of work inside a plan. Type selects which payload fields
// are meaningful: file steps use Path (and Content/Diff for create and
// modify), command steps use Command. RiskTier is assigned once by safety
// validation; Rollback is populated by the executor just before apply.
type Step struct {
	Type        StepType            `json:"type"`
	Description string              `json:"description"`
	Path        string              `json:"path,omitempty"`
	Content     string              `json:"content,omitempty"`
	Diff        string              `json:"diff,omitempty"`
	Command     string              `json:"command,omitempty"`
	RiskTier    RiskLevel           `json:"risk_tier,omitempty"`
	Rollback    *RollbackDescriptor `json:"rollback,omitempty"`
}

// NewCreateFile returns a create_file step.
func NewCreateFile(description, path, content string) Step {
	return Step{
		Type:        StepCreateFile,
		Description: description,
		Path:        path,
		Content:     content,
	}
}

// NewModifyFile returns a modify_file step carrying the full new content.
func NewModifyFile(description, path, content string) Step {
	return Step{
		Type:        StepModifyFile,
		Description: description,
		Path:        path,
		Content:     content,
	}
}

// NewDeleteFile returns a delete_file step.
func NewDeleteFile(description, path string) Step {
	return Step{
		Type:        StepDeleteFile,
		Description: description,
		Path:        path,
	}
}

// NewCommand returns an execute_command step.
func NewCommand(description, command string) Step {
	return Step{
		Type:        StepExecuteCommand,
		Description: description,
		Command:     command,
	}
}

// Target returns what the step acts on: the path for file steps, the command
// for command steps.
func (s Step) Target() string {
	if s.Type.IsFileOperation() {
		return s.Path
	}
	return s.Command
}

// Validate checks the step's shape. It does not judge risk; that is the
// safety validator's job.
func (s Step) Validate() error {
	if !s.Type.IsValid() {
		return errors.NewValidationError(fmt.Sprintf("unknown step type %q", string(s.Type))).
			WithField("type")
	}

	if s.Type.IsFileOperation() && s.Path == "" {
		return errors.NewValidationError("path cannot be empty").WithField("path")
	}
	if s.Type == StepExecuteCommand && s.Command == "" {
		return errors.NewValidationError("command cannot be empty").WithField("command")
	}

	return nil
}
