// Package executor applies approved plans. Each step goes through the same
// sequence: resolve the target, snapshot it, apply, verify, audit. On any
// failure every applied step is rolled back in reverse order; a rollback
// that itself fails leaves the plan failed and demands manual attention.
// Only one execution runs at a time.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Iron-Ham/planward/internal/audit"
	"github.com/Iron-Ham/planward/internal/backup"
	"github.com/Iron-Ham/planward/internal/errors"
	"github.com/Iron-Ham/planward/internal/logging"
	"github.com/Iron-Ham/planward/internal/mode"
	"github.com/Iron-Ham/planward/internal/plan"
	"github.com/Iron-Ham/planward/internal/safety"
)

const actorName = "executor"

// Options control a single execution run.
type Options struct {
	// DryRun walks the plan and reports what each step would do without
	// touching the workspace or the plan's status.
	DryRun bool
}

// Report summarizes one run for display. Results mirror what was persisted
// on the plan's execution metadata; Notes is filled for dry runs only.
type Report struct {
	PlanID  string
	DryRun  bool
	Status  plan.Status
	Results []plan.StepResult
	Notes   []string
}

// Config carries the executor's collaborators and limits.
type Config struct {
	Modes     *mode.Manager
	Store     *plan.Store
	Backups   *backup.Store
	Audit     *audit.Log
	Validator *safety.Validator

	// StepTimeout bounds each step. PlanTimeout bounds the whole run and
	// is disabled when zero. MaxOutputBytes caps captured command output.
	StepTimeout    time.Duration
	PlanTimeout    time.Duration
	MaxOutputBytes int

	Logger *logging.Logger
}

// Executor runs approved plans against the workspace.
type Executor struct {
	modes       *mode.Manager
	store       *plan.Store
	backups     *backup.Store
	audit       *audit.Log
	validator   *safety.Validator
	handlers    map[plan.StepType]Handler
	stepTimeout time.Duration
	planTimeout time.Duration
	logger      *logging.Logger

	mu      sync.Mutex
	running bool
}

// New creates an executor from its collaborators.
func New(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Executor{
		modes:       cfg.Modes,
		store:       cfg.Store,
		backups:     cfg.Backups,
		audit:       cfg.Audit,
		validator:   cfg.Validator,
		handlers:    newHandlers(cfg.Backups, cfg.Validator.Workspace(), cfg.MaxOutputBytes),
		stepTimeout: cfg.StepTimeout,
		planTimeout: cfg.PlanTimeout,
		logger:      logger.WithComponent("executor"),
	}
}

// Execute runs the plan with the given ID. The system must be in execute
// mode and the plan must be approved. Every step is validated again with
// the current policy before anything is touched; a plan approved under a
// policy that has since tightened is refused, not partially run.
func (e *Executor) Execute(ctx context.Context, planID string, opts Options) (*Report, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, errors.Wrapf(errors.ErrExecutionInProgress, "plan %s", planID)
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	if err := e.modes.Assert(mode.ModeExecute); err != nil {
		return nil, err
	}

	p, err := e.store.Get(planID)
	if err != nil {
		return nil, err
	}
	if p.Status != plan.StatusApproved {
		return nil, errors.Wrapf(errors.ErrPlanNotApproved, "plan %s is %s", p.ID, p.Status)
	}

	if err := e.revalidate(p); err != nil {
		return nil, err
	}

	if opts.DryRun {
		return e.dryRun(p)
	}
	return e.run(ctx, p)
}

// revalidate runs every step through safety validation again and refreshes
// its risk tier. The plan stays approved when this refuses it; the user
// can rerun after relaxing the policy.
func (e *Executor) revalidate(p *plan.Plan) error {
	if err := e.validator.ValidatePlan(p.Steps); err != nil {
		return err
	}
	for i, step := range p.Steps {
		verdict := e.validator.Validate(step)
		if verdict.Rejected {
			return errors.NewExecutionError(
				fmt.Sprintf("refused by current policy: %s", verdict.Reason), nil).
				WithPlanID(p.ID).
				WithStepIndex(i + 1)
		}
		p.Steps[i].RiskTier = verdict.Tier
	}
	return nil
}

// ---------------------------------------------------------------------------
// Dry run
// ---------------------------------------------------------------------------

// dryRun resolves every target and reports what each step would do. The
// plan keeps its approved status so a real run can follow.
func (e *Executor) dryRun(p *plan.Plan) (*Report, error) {
	report := &Report{PlanID: p.ID, DryRun: true, Status: p.Status}
	for i, step := range p.Steps {
		note, err := e.describeStep(i+1, step)
		if err != nil {
			return nil, errors.NewExecutionError("dry run", err).
				WithPlanID(p.ID).
				WithStepIndex(i + 1)
		}
		report.Notes = append(report.Notes, note)
	}

	now := time.Now().UTC()
	meta := &plan.ExecutionMeta{StartedAt: now, CompletedAt: &now, DryRun: true}
	if err := e.store.SetExecutionMeta(p.ID, meta); err != nil {
		return nil, errors.Wrap(err, "record dry run")
	}

	e.logger.Info("dry run completed", "plan_id", p.ID, "steps", len(p.Steps))
	return report, nil
}

func (e *Executor) describeStep(index int, step plan.Step) (string, error) {
	if step.Type == plan.StepExecuteCommand {
		return fmt.Sprintf("step %d: would run `%s`", index, step.Command), nil
	}
	target, err := e.validator.ResolveTarget(step.Path)
	if err != nil {
		return "", err
	}
	switch step.Type {
	case plan.StepCreateFile:
		return fmt.Sprintf("step %d: would create %s (%d bytes)", index, target, len(step.Content)), nil
	case plan.StepModifyFile:
		return fmt.Sprintf("step %d: would modify %s (%d bytes)", index, target, len(step.Content)), nil
	case plan.StepDeleteFile:
		return fmt.Sprintf("step %d: would delete %s", index, target), nil
	}
	return "", fmt.Errorf("unknown step type %q", step.Type)
}

// ---------------------------------------------------------------------------
// Real execution
// ---------------------------------------------------------------------------

// appliedStep tracks an applied step so a later failure can undo it.
type appliedStep struct {
	index int
	step  plan.Step
	rec   *backup.Record
}

func (e *Executor) run(ctx context.Context, p *plan.Plan) (*Report, error) {
	if _, err := e.store.UpdateStatus(p.ID, plan.StatusExecuting); err != nil {
		return nil, err
	}

	meta := &plan.ExecutionMeta{
		StartedAt: time.Now().UTC(),
		BackupDir: e.backups.PlanDir(p.ID),
	}

	runCtx := ctx
	if e.planTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.planTimeout)
		defer cancel()
	}

	e.logger.Info("execution started",
		"plan_id", p.ID, "steps", len(p.Steps), "risk", p.RiskLevel.String())

	var applied []appliedStep
	for i := range p.Steps {
		index := i + 1
		step := p.Steps[i]

		if ctxErr := runCtx.Err(); ctxErr != nil {
			now := time.Now().UTC()
			meta.StepResults = append(meta.StepResults, plan.StepResult{
				Index: index, Outcome: plan.OutcomeFailed,
				StartedAt: now, FinishedAt: now, Error: ctxErr.Error(),
			})
			stepErr := errors.NewExecutionError(
				fmt.Sprintf("execution stopped before step %d", index), ctxErr).
				WithPlanID(p.ID).WithStepIndex(index)
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				stepErr = stepErr.WithPhase("timeout")
				e.auditBestEffort(e.stepRecord(p, index, step, audit.ActionTimeoutOccurred,
					audit.OutcomeFailure, fmt.Sprintf("plan deadline exceeded before step %d", index)))
			}
			e.auditBestEffort(e.stepRecord(p, index, step, audit.ActionStepFailed,
				audit.OutcomeFailure, ctxErr.Error()))
			markSkipped(meta, index+1, len(p.Steps))
			return e.finishFailed(p, meta, applied, stepErr)
		}

		result := plan.StepResult{Index: index, StartedAt: time.Now().UTC()}
		rec, target, err := e.prepare(p.ID, index, &step)
		phase := "backup"
		stepApplied := false
		if err == nil {
			handler := e.handlers[step.Type]
			stepCtx, cancel := context.WithTimeout(runCtx, e.stepTimeout)
			var outcome *ApplyOutcome
			outcome, err = handler.Apply(stepCtx, step, target)
			if err == nil {
				stepApplied = true
				phase = "verify"
				err = handler.Verify(stepCtx, step, outcome)
			} else {
				phase = "apply"
			}
			cancel()
		}
		result.FinishedAt = time.Now().UTC()

		// A step that applied but failed verification changed the
		// workspace, so it belongs in the rollback set too.
		if stepApplied {
			applied = append(applied, appliedStep{index: index, step: step, rec: rec})
		}

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				phase = "timeout"
				e.auditBestEffort(e.stepRecord(p, index, step, audit.ActionTimeoutOccurred,
					audit.OutcomeFailure, fmt.Sprintf("deadline exceeded during step %d", index)))
			}
			result.Outcome = plan.OutcomeFailed
			result.Error = err.Error()
			meta.StepResults = append(meta.StepResults, result)
			e.auditBestEffort(e.stepRecord(p, index, step, audit.ActionStepFailed,
				audit.OutcomeFailure, err.Error()))
			markSkipped(meta, index+1, len(p.Steps))
			stepErr := errors.NewExecutionError(
				fmt.Sprintf("step %d (%s) failed", index, step.Type), err).
				WithPlanID(p.ID).WithStepIndex(index).WithPhase(phase)
			return e.finishFailed(p, meta, applied, stepErr)
		}

		result.Outcome = plan.OutcomeApplied
		meta.StepResults = append(meta.StepResults, result)

		if _, auditErr := e.audit.Append(e.stepRecord(p, index, step,
			audit.ActionStepApplied, audit.OutcomeSuccess, step.Description)); auditErr != nil {
			// The change is on disk but not on the record. The log's
			// completeness guarantee wins, so the step is undone.
			markSkipped(meta, index+1, len(p.Steps))
			stepErr := errors.NewExecutionError(
				fmt.Sprintf("step %d applied but audit append failed", index), auditErr).
				WithPlanID(p.ID).WithStepIndex(index)
			return e.finishFailed(p, meta, applied, stepErr)
		}

		e.logger.Info("step applied",
			"plan_id", p.ID, "step", index, "type", string(step.Type), "target", step.Target())
	}

	completed := time.Now().UTC()
	meta.CompletedAt = &completed
	if err := e.store.SetExecutionMeta(p.ID, meta); err != nil {
		return nil, errors.Wrap(err, "persist execution metadata")
	}
	if _, err := e.store.UpdateStatus(p.ID, plan.StatusCompleted); err != nil {
		return nil, err
	}
	if _, err := e.audit.Append(audit.Record{
		Mode:      e.modes.Current().String(),
		Actor:     actorName,
		Action:    audit.ActionPlanCompleted,
		PlanID:    p.ID,
		RiskLevel: p.RiskLevel.String(),
		Outcome:   audit.OutcomeSuccess,
		Detail:    fmt.Sprintf("%d steps applied", len(p.Steps)),
	}); err != nil {
		return nil, errors.Wrapf(err, "plan %s completed but audit append failed", p.ID)
	}

	e.logger.Info("execution completed", "plan_id", p.ID, "steps", len(p.Steps))
	return &Report{PlanID: p.ID, Status: plan.StatusCompleted, Results: meta.StepResults}, nil
}

// prepare resolves the step's target and snapshots it. Command steps get
// no snapshot; their rollback descriptor records that there is no undo.
func (e *Executor) prepare(planID string, index int, step *plan.Step) (*backup.Record, string, error) {
	if step.Type == plan.StepExecuteCommand {
		step.Rollback = &plan.RollbackDescriptor{Kind: plan.RollbackNone}
		return nil, step.Command, nil
	}
	target, err := e.validator.ResolveTarget(step.Path)
	if err != nil {
		return nil, "", err
	}
	rec, err := e.backups.Snapshot(planID, index, target)
	if err != nil {
		return nil, "", errors.Wrapf(err, "backup %s", step.Path)
	}
	step.Rollback = &plan.RollbackDescriptor{
		Kind:      rollbackKind(step.Type),
		BackupRef: rec.SidecarFile,
	}
	return rec, target, nil
}

func rollbackKind(t plan.StepType) plan.RollbackKind {
	switch t {
	case plan.StepCreateFile:
		return plan.RollbackDeleteCreated
	case plan.StepModifyFile, plan.StepDeleteFile:
		return plan.RollbackRestoreBackup
	default:
		return plan.RollbackNone
	}
}

// finishFailed rolls back what was applied, settles the plan's terminal
// status, and persists the execution record. Rolled back cleanly means
// rolled_back; a rollback failure means failed plus a critical error.
func (e *Executor) finishFailed(p *plan.Plan, meta *plan.ExecutionMeta, applied []appliedStep, stepErr error) (*Report, error) {
	rbErr := e.rollbackApplied(p, applied, meta)

	completed := time.Now().UTC()
	meta.CompletedAt = &completed

	status := plan.StatusRolledBack
	finalErr := stepErr
	if rbErr != nil {
		status = plan.StatusFailed
		finalErr = rbErr
		meta.Error = fmt.Sprintf("%v (rollback: %v)", stepErr, rbErr)
	} else {
		meta.Error = stepErr.Error()
		e.auditBestEffort(audit.Record{
			Mode:      e.modes.Current().String(),
			Actor:     actorName,
			Action:    audit.ActionPlanRolledBack,
			PlanID:    p.ID,
			RiskLevel: p.RiskLevel.String(),
			Outcome:   audit.OutcomeSuccess,
			Detail:    fmt.Sprintf("%d applied steps rolled back after failure", len(applied)),
		})
	}

	if _, err := e.store.UpdateStatus(p.ID, status); err != nil {
		e.logger.Error("status update failed",
			"plan_id", p.ID, "status", status.String(), "error", err)
	}
	if err := e.store.SetExecutionMeta(p.ID, meta); err != nil {
		e.logger.Error("persist execution metadata failed", "plan_id", p.ID, "error", err)
	}

	e.logger.Warn("execution failed",
		"plan_id", p.ID, "status", status.String(), "error", finalErr)
	return &Report{PlanID: p.ID, Status: status, Results: meta.StepResults}, finalErr
}

// rollbackApplied undoes applied steps in reverse order. Steps without an
// automatic undo are left in place and noted. The first failed restore
// stops the walk: past that point the workspace state is unknown and
// blind further restores could make it worse.
func (e *Executor) rollbackApplied(p *plan.Plan, applied []appliedStep, meta *plan.ExecutionMeta) error {
	for i := len(applied) - 1; i >= 0; i-- {
		a := applied[i]
		if a.step.Rollback == nil || a.step.Rollback.Kind == plan.RollbackNone {
			e.logger.Debug("no automatic undo for step", "plan_id", p.ID, "step", a.index)
			continue
		}
		handler := e.handlers[a.step.Type]
		if err := handler.Rollback(a.rec); err != nil {
			e.auditBestEffort(audit.Record{
				Mode:      e.modes.Current().String(),
				Actor:     actorName,
				Action:    audit.ActionRollbackFailed,
				Target:    a.step.Target(),
				PlanID:    p.ID,
				StepIndex: a.index,
				RiskLevel: plan.RiskCritical.String(),
				Outcome:   audit.OutcomeFailure,
				Detail:    err.Error(),
			})
			return errors.NewRollbackError(fmt.Sprintf("restore step %d", a.index), err).
				WithPlanID(p.ID).
				WithStepIndex(a.index).
				WithTarget(a.step.Target())
		}
		setOutcome(meta, a.index, plan.OutcomeRolledBack)
		e.auditBestEffort(e.stepRecord(p, a.index, a.step,
			audit.ActionStepRolledBack, audit.OutcomeSuccess, ""))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (e *Executor) stepRecord(p *plan.Plan, index int, step plan.Step, action audit.Action, outcome audit.Outcome, detail string) audit.Record {
	return audit.Record{
		Mode:      e.modes.Current().String(),
		Actor:     actorName,
		Action:    action,
		Target:    step.Target(),
		PlanID:    p.ID,
		StepIndex: index,
		RiskLevel: step.RiskTier.String(),
		Outcome:   outcome,
		Detail:    detail,
	}
}

// auditBestEffort appends on the failure path, where the run is already
// returning an error and a second one would only mask it.
func (e *Executor) auditBestEffort(rec audit.Record) {
	if _, err := e.audit.Append(rec); err != nil {
		e.logger.Warn("audit append failed", "action", string(rec.Action), "error", err)
	}
}

func markSkipped(meta *plan.ExecutionMeta, from, to int) {
	for j := from; j <= to; j++ {
		meta.StepResults = append(meta.StepResults, plan.StepResult{
			Index: j, Outcome: plan.OutcomeSkipped,
		})
	}
}

func setOutcome(meta *plan.ExecutionMeta, index int, outcome plan.StepOutcome) {
	for i := range meta.StepResults {
		if meta.StepResults[i].Index == index {
			meta.StepResults[i].Outcome = outcome
			return
		}
	}
}
