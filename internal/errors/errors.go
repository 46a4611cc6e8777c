// Package errors provides centralized error definitions and error handling
// utilities for the Planward codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - ModeError: an operation was attempted outside its required mode
//   - StatusError: an illegal plan status transition was attempted
//   - GenerationError: plan generation failed (model unavailable, empty plan)
//   - RejectionError: a proposed step was rejected by safety validation
//   - ExecutionError: a plan step failed during execution
//   - RollbackError: a rollback action itself failed (critical)
//   - IntegrityError: the audit hash chain failed verification
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - AlreadyExistsError: resource already exists
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewModeError(current, required...)
//
//	// Semantic error
//	err := errors.NewNotFoundError("plan", "a1b2c3d4")
//
//	// With context wrapping
//	err := errors.NewExecutionError("apply failed", cause).WithStepIndex(2)
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrEmptyPlan) { ... }
//
//	// Check for error types
//	var modeErr *errors.ModeError
//	if errors.As(err, &modeErr) { ... }
//
//	// Use classification helpers
//	if errors.IsUserFacing(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed on retry
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Mode-related sentinel errors
var (
	// ErrInvalidMode indicates that a mode name does not name a known mode.
	ErrInvalidMode = New("invalid mode")
	// ErrAlreadyInMode indicates a transition to the mode already active.
	ErrAlreadyInMode = New("already in requested mode")
	// ErrForbiddenInMode indicates an operation attempted outside its required mode.
	ErrForbiddenInMode = New("operation not permitted in current mode")
)

// Plan-related sentinel errors
var (
	// ErrPlanNotFound indicates that a plan could not be found.
	ErrPlanNotFound = New("plan not found")
	// ErrPlanInvalid indicates that a plan is structurally invalid.
	ErrPlanInvalid = New("plan is invalid")
	// ErrInvalidTransition indicates an illegal plan status transition.
	ErrInvalidTransition = New("invalid status transition")
	// ErrPlanNotApproved indicates execution was requested for an unapproved plan.
	ErrPlanNotApproved = New("plan is not approved")
)

// Generation-related sentinel errors
var (
	// ErrModelUnavailable indicates the model collaborator could not be reached.
	ErrModelUnavailable = New("model unavailable")
	// ErrEmptyPlan indicates no proposed steps survived safety validation.
	ErrEmptyPlan = New("no steps survived validation")
	// ErrStepRejected indicates a step was rejected by safety validation.
	ErrStepRejected = New("step rejected by safety validation")
)

// Execution-related sentinel errors
var (
	// ErrExecutionInProgress indicates another plan execution is already running.
	ErrExecutionInProgress = New("another execution is in progress")
	// ErrStepFailed indicates a step failed to apply or verify.
	ErrStepFailed = New("step failed")
	// ErrRollbackFailed indicates a rollback action could not be completed.
	ErrRollbackFailed = New("rollback failed")
)

// Audit-related sentinel errors
var (
	// ErrChainBroken indicates the audit hash chain failed verification.
	ErrChainBroken = New("audit chain broken")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrOperationFailed indicates a general operation failure.
	ErrOperationFailed = New("operation failed")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// PlanwardError is the base interface for all Planward errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type PlanwardError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ModeError reports an operation attempted outside its required mode.
// It is the primary safety signal of the mode gate: callers receive the
// current mode and the set of modes in which the operation is permitted.
//
// Example:
//
//	err := errors.NewModeError("safe_explore", "propose")
//	fmt.Println(err) // "mode error [current=safe_explore, required=propose]: operation not permitted in current mode"
type ModeError struct {
	baseError
	Current  string
	Required []string
}

// NewModeError creates a new ModeError for an operation that requires one of
// the given modes while the current mode is something else.
func NewModeError(current string, required ...string) *ModeError {
	return &ModeError{
		baseError: baseError{
			message:    "operation not permitted in current mode",
			cause:      ErrForbiddenInMode,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		Current:  current,
		Required: required,
	}
}

// Error returns the formatted error message.
func (e *ModeError) Error() string {
	var parts []string
	if e.Current != "" {
		parts = append(parts, fmt.Sprintf("current=%s", e.Current))
	}
	if len(e.Required) > 0 {
		parts = append(parts, fmt.Sprintf("required=%s", strings.Join(e.Required, "|")))
	}

	prefix := "mode error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("mode error [%s]", strings.Join(parts, ", "))
	}

	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ModeError) Is(target error) bool {
	if _, ok := target.(*ModeError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// StatusError reports an attempted plan status transition that the status
// state machine does not permit. The transition is aborted, never coerced.
//
// Example:
//
//	err := errors.NewStatusError("a1b2c3d4", "completed", "executing")
type StatusError struct {
	baseError
	PlanID string
	From   string
	To     string
}

// NewStatusError creates a new StatusError for an illegal transition.
func NewStatusError(planID, from, to string) *StatusError {
	return &StatusError{
		baseError: baseError{
			message:    "invalid status transition",
			cause:      ErrInvalidTransition,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		PlanID: planID,
		From:   from,
		To:     to,
	}
}

// Error returns the formatted error message.
func (e *StatusError) Error() string {
	var parts []string
	if e.PlanID != "" {
		parts = append(parts, fmt.Sprintf("plan=%s", e.PlanID))
	}
	if e.From != "" || e.To != "" {
		parts = append(parts, fmt.Sprintf("%s->%s", e.From, e.To))
	}

	prefix := "status error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("status error [%s]", strings.Join(parts, ", "))
	}

	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *StatusError) Is(target error) bool {
	if _, ok := target.(*StatusError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// GenerationError reports a plan generation failure. The cause distinguishes
// the failure class: ErrModelUnavailable when the model collaborator could
// not produce proposals, ErrEmptyPlan when nothing survived validation.
//
// Example:
//
//	err := errors.NewGenerationError("add a login handler", errors.ErrEmptyPlan)
type GenerationError struct {
	baseError
	Description string
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(description string, cause error) *GenerationError {
	return &GenerationError{
		baseError: baseError{
			message:    "plan generation failed",
			cause:      cause,
			severity:   SeverityError,
			retryable:  errors.Is(cause, ErrModelUnavailable),
			userFacing: true,
		},
		Description: description,
	}
}

// Error returns the formatted error message.
func (e *GenerationError) Error() string {
	prefix := "generation error"
	if e.Description != "" {
		desc := e.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		prefix = fmt.Sprintf("generation error [task=%q]", desc)
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *GenerationError) Is(target error) bool {
	if _, ok := target.(*GenerationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// RejectionError reports a step rejected by safety validation, carrying the
// human-readable reason. Rejections are recorded, never silently dropped.
//
// Example:
//
//	err := errors.NewRejectionError("dangerous pattern: recursive root delete")
//	err = err.WithStepIndex(1)
type RejectionError struct {
	baseError
	StepIndex int
	Reason    string
}

// NewRejectionError creates a new RejectionError with the given reason.
func NewRejectionError(reason string) *RejectionError {
	return &RejectionError{
		baseError: baseError{
			message:    reason,
			cause:      ErrStepRejected,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		StepIndex: -1, // -1 indicates not set
		Reason:    reason,
	}
}

// WithStepIndex adds a step index to the error context.
func (e *RejectionError) WithStepIndex(idx int) *RejectionError {
	e.StepIndex = idx
	return e
}

// Error returns the formatted error message.
func (e *RejectionError) Error() string {
	prefix := "rejected"
	if e.StepIndex >= 0 {
		prefix = fmt.Sprintf("rejected [step=%d]", e.StepIndex)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Reason)
}

// Is checks if this error matches the target.
func (e *RejectionError) Is(target error) bool {
	if _, ok := target.(*RejectionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ExecutionError reports a step failure during plan execution. By the time
// this error is returned the executor has already taken the rollback path;
// the plan has reached a terminal status.
//
// Example:
//
//	err := errors.NewExecutionError("verify failed", cause).WithStepIndex(2).WithPlanID(id)
type ExecutionError struct {
	baseError
	PlanID    string
	StepIndex int
	Phase     string
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(message string, cause error) *ExecutionError {
	return &ExecutionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		StepIndex: -1, // -1 indicates not set
	}
}

// WithPlanID adds a plan ID to the error context.
func (e *ExecutionError) WithPlanID(id string) *ExecutionError {
	e.PlanID = id
	return e
}

// WithStepIndex adds a step index to the error context.
func (e *ExecutionError) WithStepIndex(idx int) *ExecutionError {
	e.StepIndex = idx
	return e
}

// WithPhase adds the execution phase (backup, apply, verify, timeout) to the
// error context.
func (e *ExecutionError) WithPhase(phase string) *ExecutionError {
	e.Phase = phase
	return e
}

// Error returns the formatted error message.
func (e *ExecutionError) Error() string {
	var parts []string
	if e.PlanID != "" {
		parts = append(parts, fmt.Sprintf("plan=%s", e.PlanID))
	}
	if e.StepIndex >= 0 {
		parts = append(parts, fmt.Sprintf("step=%d", e.StepIndex))
	}
	if e.Phase != "" {
		parts = append(parts, fmt.Sprintf("phase=%s", e.Phase))
	}

	prefix := "execution error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("execution error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ExecutionError) Is(target error) bool {
	if _, ok := target.(*ExecutionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// RollbackError reports a failure during rollback itself: the most severe
// execution failure class. The system must not claim a clean rollback
// happened if it didn't, so this error carries Critical severity and is
// surfaced directly to the operator for manual intervention.
type RollbackError struct {
	baseError
	PlanID    string
	StepIndex int
	Target    string
}

// NewRollbackError creates a new RollbackError.
func NewRollbackError(message string, cause error) *RollbackError {
	return &RollbackError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityCritical,
			retryable:  false,
			userFacing: true,
		},
		StepIndex: -1, // -1 indicates not set
	}
}

// WithPlanID adds a plan ID to the error context.
func (e *RollbackError) WithPlanID(id string) *RollbackError {
	e.PlanID = id
	return e
}

// WithStepIndex adds a step index to the error context.
func (e *RollbackError) WithStepIndex(idx int) *RollbackError {
	e.StepIndex = idx
	return e
}

// WithTarget adds the target path to the error context.
func (e *RollbackError) WithTarget(target string) *RollbackError {
	e.Target = target
	return e
}

// Error returns the formatted error message.
func (e *RollbackError) Error() string {
	var parts []string
	if e.PlanID != "" {
		parts = append(parts, fmt.Sprintf("plan=%s", e.PlanID))
	}
	if e.StepIndex >= 0 {
		parts = append(parts, fmt.Sprintf("step=%d", e.StepIndex))
	}
	if e.Target != "" {
		parts = append(parts, fmt.Sprintf("target=%s", e.Target))
	}

	prefix := "rollback error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("rollback error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *RollbackError) Is(target error) bool {
	if _, ok := target.(*RollbackError); ok {
		return true
	}
	if errors.Is(target, ErrRollbackFailed) {
		return true
	}
	return e.baseError.Is(target)
}

// IntegrityError reports an audit chain verification failure: the first
// entry whose stored hash does not match its recomputed hash. Verification
// is diagnostic only; a broken chain is never auto-repaired.
//
// Example:
//
//	err := errors.NewIntegrityError(3, "evt-9f2a1c8e44d0")
type IntegrityError struct {
	baseError
	Seq     int
	EntryID string
}

// NewIntegrityError creates a new IntegrityError for the first broken entry.
func NewIntegrityError(seq int, entryID string) *IntegrityError {
	return &IntegrityError{
		baseError: baseError{
			message:    "audit chain broken",
			cause:      ErrChainBroken,
			severity:   SeverityCritical,
			retryable:  false,
			userFacing: true,
		},
		Seq:     seq,
		EntryID: entryID,
	}
}

// Error returns the formatted error message.
func (e *IntegrityError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("seq=%d", e.Seq))
	if e.EntryID != "" {
		parts = append(parts, fmt.Sprintf("entry=%s", e.EntryID))
	}
	return fmt.Sprintf("integrity error [%s]: %s", strings.Join(parts, ", "), e.message)
}

// Is checks if this error matches the target.
func (e *IntegrityError) Is(target error) bool {
	if _, ok := target.(*IntegrityError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("plan", "a1b2c3d4")
//	fmt.Println(err) // "plan 'a1b2c3d4' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if e.ResourceType == "plan" && errors.Is(target, ErrPlanNotFound) {
		return true
	}
	return e.baseError.Is(target)
}

// AlreadyExistsError represents a resource that already exists.
//
// Example:
//
//	err := errors.NewAlreadyExistsError("file", "main.go")
//	fmt.Println(err) // "file 'main.go' already exists"
type AlreadyExistsError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(resourceType, resourceID string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' already exists", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *AlreadyExistsError) WithCause(cause error) *AlreadyExistsError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *AlreadyExistsError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' already exists: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' already exists", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *AlreadyExistsError) Is(target error) bool {
	if _, ok := target.(*AlreadyExistsError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("step path cannot be empty")
//	err = err.WithField("path").WithValue("")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("applying step 3", 60*time.Second)
//	fmt.Println(err) // "timeout error: applying step 3 (timeout: 1m0s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true, // Timeouts are generally retryable
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// WithRetryable sets whether the error is retryable (default true for timeouts).
func (e *TimeoutError) WithRetryable(r bool) *TimeoutError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing PlanwardError with IsRetryable() returning true
//   - TimeoutError instances
//   - Errors wrapping ErrTimeout or ErrModelUnavailable
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    time.Sleep(backoff)
//	    return retry(operation)
//	}
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Check if error implements PlanwardError
	var pwErr PlanwardError
	if As(err, &pwErr) {
		return pwErr.IsRetryable()
	}

	// Check for known retryable sentinel errors
	if Is(err, ErrTimeout) || Is(err, ErrModelUnavailable) {
		return true
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display to end
// users. This checks for:
//   - Errors implementing PlanwardError with IsUserFacing() returning true
//   - Semantic errors (NotFoundError, AlreadyExistsError, ValidationError, TimeoutError)
//
// Example:
//
//	if errors.IsUserFacing(err) {
//	    displayToUser(err.Error())
//	} else {
//	    displayToUser("An internal error occurred")
//	    log.Error("internal error", "err", err)
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	// Check if error implements PlanwardError
	var pwErr PlanwardError
	if As(err, &pwErr) {
		return pwErr.IsUserFacing()
	}

	// Semantic errors are always user-facing
	var notFound *NotFoundError
	var alreadyExists *AlreadyExistsError
	var validation *ValidationError
	var timeout *TimeoutError

	if As(err, &notFound) || As(err, &alreadyExists) ||
		As(err, &validation) || As(err, &timeout) {
		return true
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement PlanwardError.
//
// Example:
//
//	switch errors.GetSeverity(err) {
//	case errors.SeverityCritical:
//	    alertOperator(err)
//	case errors.SeverityError:
//	    log.Error("error occurred", "err", err)
//	case errors.SeverityWarning:
//	    log.Warn("warning", "err", err)
//	}
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	// Check if error implements PlanwardError
	var pwErr PlanwardError
	if As(err, &pwErr) {
		return pwErr.Severity()
	}

	// Default to Error severity for unknown errors
	return SeverityError
}

// IsDomainError returns true if the error is a domain-specific error
// (ModeError, StatusError, GenerationError, RejectionError, ExecutionError,
// RollbackError, or IntegrityError).
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}

	var modeErr *ModeError
	var statusErr *StatusError
	var genErr *GenerationError
	var rejErr *RejectionError
	var execErr *ExecutionError
	var rbErr *RollbackError
	var intErr *IntegrityError

	return As(err, &modeErr) || As(err, &statusErr) || As(err, &genErr) ||
		As(err, &rejErr) || As(err, &execErr) || As(err, &rbErr) || As(err, &intErr)
}

// IsSemanticError returns true if the error is a semantic error
// (NotFoundError, AlreadyExistsError, ValidationError, or TimeoutError).
func IsSemanticError(err error) bool {
	if err == nil {
		return false
	}

	var notFound *NotFoundError
	var alreadyExists *AlreadyExistsError
	var validation *ValidationError
	var timeout *TimeoutError

	return As(err, &notFound) || As(err, &alreadyExists) ||
		As(err, &validation) || As(err, &timeout)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to persist plan")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to load plan %s", planID)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
