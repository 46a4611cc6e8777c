// Package audit implements the append-only, hash-chained audit log.
//
// Every state-changing action in the system (mode changes, plan lifecycle
// events, step application, rollbacks) is recorded as one JSONL entry in
// <data>/audit/audit.jsonl. Each entry carries the hash of its predecessor,
// so editing or removing any historical line breaks every hash from that
// point forward. Verification is diagnostic only: a broken chain is
// reported, never repaired.
package audit

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Actions
// -----------------------------------------------------------------------------

// Action identifies the kind of state change an entry records.
type Action string

const (
	// ActionModeChanged records an explicit mode transition.
	ActionModeChanged Action = "mode_changed"

	// ActionPlanCreated records a validated plan entering the store.
	ActionPlanCreated Action = "plan_created"

	// ActionPlanApproved records the user approving a pending plan.
	ActionPlanApproved Action = "plan_approved"

	// ActionPlanRejected records the user rejecting a pending plan.
	ActionPlanRejected Action = "plan_rejected"

	// ActionStepApplied records one step applying and verifying cleanly.
	ActionStepApplied Action = "step_applied"

	// ActionStepFailed records a step failing to apply or verify.
	ActionStepFailed Action = "step_failed"

	// ActionTimeoutOccurred records a step exceeding its execution timeout.
	// The step is additionally recorded as failed.
	ActionTimeoutOccurred Action = "timeout_occurred"

	// ActionStepRolledBack records one previously applied step being undone.
	ActionStepRolledBack Action = "step_rolled_back"

	// ActionRollbackFailed records a rollback action that could not restore
	// its target. The workspace may be in a partial state.
	ActionRollbackFailed Action = "rollback_failed"

	// ActionPlanCompleted is the summary entry for a fully applied plan.
	ActionPlanCompleted Action = "plan_completed"

	// ActionPlanRolledBack is the summary entry for a plan whose applied
	// steps were all undone after a failure.
	ActionPlanRolledBack Action = "plan_rolled_back"

	// ActionPolicyReloaded records a safety policy file being reloaded.
	ActionPolicyReloaded Action = "policy_reloaded"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// IsValid returns true if this is a recognized action.
func (a Action) IsValid() bool {
	switch a {
	case ActionModeChanged, ActionPlanCreated, ActionPlanApproved,
		ActionPlanRejected, ActionStepApplied, ActionStepFailed,
		ActionTimeoutOccurred, ActionStepRolledBack, ActionRollbackFailed,
		ActionPlanCompleted, ActionPlanRolledBack, ActionPolicyReloaded:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// Outcomes
// -----------------------------------------------------------------------------

// Outcome records whether the audited action succeeded.
type Outcome string

const (
	// OutcomeSuccess indicates the action completed as intended.
	OutcomeSuccess Outcome = "success"

	// OutcomeFailure indicates the action failed.
	OutcomeFailure Outcome = "failure"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// IsValid returns true if this is a recognized outcome.
func (o Outcome) IsValid() bool {
	return o == OutcomeSuccess || o == OutcomeFailure
}

// -----------------------------------------------------------------------------
// Entries
// -----------------------------------------------------------------------------

// Entry is one persisted audit record. Entries are immutable once written;
// the Hash field chains each entry to its predecessor.
type Entry struct {
	// Seq is the 1-based position of the entry in the log.
	Seq int `json:"seq"`

	// ID uniquely identifies the entry, e.g. "evt-9f2a1c8e44d0".
	ID string `json:"id"`

	// Timestamp is the UTC RFC3339Nano time the entry was appended.
	Timestamp string `json:"ts"`

	// Mode is the execution mode that was active when the action happened.
	Mode string `json:"mode"`

	// Actor names who triggered the action ("user" or "system").
	Actor string `json:"actor"`

	// Action is the kind of state change recorded.
	Action Action `json:"action"`

	// Target is what the action acted on: a path, a command, or a mode
	// transition rendered as "from -> to".
	Target string `json:"target,omitempty"`

	// PlanID scopes the entry to a plan, when one is involved.
	PlanID string `json:"plan_id,omitempty"`

	// StepIndex is the 1-based step number within the plan. Zero means the
	// entry is not scoped to a single step.
	StepIndex int `json:"step_index,omitempty"`

	// RiskLevel is the risk tier of the step or plan involved, if any.
	RiskLevel string `json:"risk_level,omitempty"`

	// Outcome records whether the action succeeded.
	Outcome Outcome `json:"outcome"`

	// Detail carries free-form context such as an error message.
	Detail string `json:"detail,omitempty"`

	// PrevHash is the Hash of the preceding entry, or "" for the first.
	PrevHash string `json:"prev_hash"`

	// Hash commits to every other field of this entry plus PrevHash.
	Hash string `json:"hash"`
}

// Record is the caller-supplied portion of an entry. Seq, ID, Timestamp,
// and the hash fields are filled in by the log at append time.
type Record struct {
	Mode      string
	Actor     string
	Action    Action
	Target    string
	PlanID    string
	StepIndex int
	RiskLevel string
	Outcome   Outcome
	Detail    string
}

// Validate checks that the record carries the fields every entry requires.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Mode) == "" {
		return fmt.Errorf("mode is required")
	}
	if strings.TrimSpace(r.Actor) == "" {
		return fmt.Errorf("actor is required")
	}
	if !r.Action.IsValid() {
		return fmt.Errorf("unknown action %q", r.Action)
	}
	if !r.Outcome.IsValid() {
		return fmt.Errorf("unknown outcome %q", r.Outcome)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Hashing
// -----------------------------------------------------------------------------

// computeHash returns the chain hash for an entry: the SHA-256 of the
// predecessor's hash, a newline, and the entry's canonical JSON with the
// Hash field zeroed. PrevHash participates twice (in the payload and in the
// prefix) so that both a tampered field and a re-linked chain are caught.
func computeHash(e Entry) (string, error) {
	e.Hash = ""
	payload, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal audit payload: %w", err)
	}
	sum := sha256.Sum256(append([]byte(e.PrevHash+"\n"), payload...))
	return hex.EncodeToString(sum[:]), nil
}

// newEventID returns a fresh random entry ID of the form "evt-<12 hex>".
func newEventID() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// Fall back to a timestamp-derived ID; uniqueness is best-effort
		// at nanosecond resolution.
		return fmt.Sprintf("evt-%012x", time.Now().UnixNano()&0xffffffffffff)
	}
	return "evt-" + hex.EncodeToString(buf)
}
