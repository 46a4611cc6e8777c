package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Iron-Ham/planward/internal/ai"
	"github.com/Iron-Ham/planward/internal/audit"
	"github.com/Iron-Ham/planward/internal/backup"
	"github.com/Iron-Ham/planward/internal/config"
	"github.com/Iron-Ham/planward/internal/errors"
	"github.com/Iron-Ham/planward/internal/executor"
	"github.com/Iron-Ham/planward/internal/logging"
	"github.com/Iron-Ham/planward/internal/mode"
	"github.com/Iron-Ham/planward/internal/plan"
	"github.com/Iron-Ham/planward/internal/planner"
	"github.com/Iron-Ham/planward/internal/safety"
	"github.com/Iron-Ham/planward/internal/tui"
)

// app carries the collaborators a command invocation needs. Each run
// function builds one, uses it, and closes it before returning.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	modes     *mode.Manager
	plans     *plan.Store
	audit     *audit.Log
	validator *safety.Validator
	backups   *backup.Store
	watcher   *safety.Watcher
	dataDir   string
	workspace string
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	dataDir := cfg.ResolveDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dataDir, err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determine working directory: %w", err)
	}

	a := &app{
		cfg:       cfg,
		dataDir:   dataDir,
		workspace: cfg.ResolveWorkspaceRoot(cwd),
	}

	if cfg.Logging.Enabled {
		a.logger, err = logging.NewLoggerWithRotation(dataDir, cfg.Logging.Level, logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		})
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
	} else {
		a.logger = logging.NopLogger()
	}

	a.modes, err = mode.NewPersistentManager(dataDir, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.plans, err = plan.Open(filepath.Join(dataDir, "plans.db"))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.audit, err = audit.Open(dataDir, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	level, err := safety.ParseLevel(cfg.Safety.Level)
	if err != nil {
		a.Close()
		return nil, err
	}
	policy, err := safety.LoadPolicy(cfg.Safety.PolicyFile, level)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.validator, err = safety.NewValidator(policy, a.workspace, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.backups = backup.NewStore(dataDir, a.logger)

	if cfg.Safety.WatchPolicy && cfg.Safety.PolicyFile != "" {
		a.startPolicyWatch(cfg.Safety.PolicyFile)
	}

	return a, nil
}

// startPolicyWatch hot-reloads the safety policy while a command runs.
// A watch that cannot start is logged and skipped; the command still
// works with the policy loaded at startup.
func (a *app) startPolicyWatch(policyFile string) {
	w, err := safety.NewWatcher(policyFile, a.validator, a.logger)
	if err != nil {
		a.logger.Warn("policy watch unavailable", "path", policyFile, "error", err)
		return
	}
	w.SetReloadCallback(func(_ *safety.Policy) {
		_, err := a.audit.Append(audit.Record{
			Mode:    a.modes.Current().String(),
			Actor:   "system",
			Action:  audit.ActionPolicyReloaded,
			Target:  policyFile,
			Outcome: audit.OutcomeSuccess,
		})
		if err != nil {
			a.logger.Warn("audit append failed", "action", audit.ActionPolicyReloaded, "error", err)
		}
	})
	w.Start()
	a.watcher = w
}

func (a *app) Close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.plans != nil {
		_ = a.plans.Close()
	}
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

// newGenerator builds the plan generator. An unreachable or missing
// model is reported here as a warning; generation itself returns the
// hard error if the model is still unavailable when asked to propose.
func (a *app) newGenerator(ctx context.Context) (*planner.Generator, error) {
	backend, err := ai.NewFromConfig(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	if ollama, ok := backend.(*ai.OllamaBackend); ok {
		if err := ollama.VerifyModel(ctx); err != nil {
			a.logger.Warn("model unavailable at startup", "error", err)
			fmt.Printf("%s\n", tui.WarningStyle.Render(fmt.Sprintf("warning: %v", err)))
		}
	}

	var retriever ai.Retriever
	topK := 0
	if a.cfg.Retrieval.Enabled {
		retriever = ai.NewFileRetriever(a.workspace)
		topK = a.cfg.Retrieval.TopK
	}

	return planner.New(planner.Config{
		Modes:         a.modes,
		Backend:       backend,
		Retriever:     retriever,
		Validator:     a.validator,
		Store:         a.plans,
		Audit:         a.audit,
		RetrievalTopK: topK,
		Logger:        a.logger,
	}), nil
}

func (a *app) newExecutor() *executor.Executor {
	return executor.New(executor.Config{
		Modes:          a.modes,
		Store:          a.plans,
		Backups:        a.backups,
		Audit:          a.audit,
		Validator:      a.validator,
		StepTimeout:    a.cfg.Executor.StepTimeout(),
		PlanTimeout:    a.cfg.Executor.PlanTimeout(),
		MaxOutputBytes: a.cfg.Executor.MaxOutputBytes,
		Logger:         a.logger,
	})
}

// approvePlan moves a pending plan to approved and records the decision.
func (a *app) approvePlan(id, note string) (*plan.Plan, error) {
	if err := a.modes.Assert(mode.ModePropose); err != nil {
		return nil, err
	}
	p, err := a.plans.UpdateStatus(id, plan.StatusApproved)
	if err != nil {
		return nil, err
	}
	if _, err := a.audit.Append(audit.Record{
		Mode:      a.modes.Current().String(),
		Actor:     "user",
		Action:    audit.ActionPlanApproved,
		PlanID:    p.ID,
		RiskLevel: p.RiskLevel.String(),
		Outcome:   audit.OutcomeSuccess,
		Detail:    note,
	}); err != nil {
		return nil, errors.Wrapf(err, "plan %s approved but audit append failed", id)
	}
	return p, nil
}

// rejectPlan moves a pending plan to rejected and records the decision.
func (a *app) rejectPlan(id, reason string) (*plan.Plan, error) {
	if err := a.modes.Assert(mode.ModePropose); err != nil {
		return nil, err
	}
	p, err := a.plans.UpdateStatus(id, plan.StatusRejected)
	if err != nil {
		return nil, err
	}
	if _, err := a.audit.Append(audit.Record{
		Mode:      a.modes.Current().String(),
		Actor:     "user",
		Action:    audit.ActionPlanRejected,
		PlanID:    p.ID,
		RiskLevel: p.RiskLevel.String(),
		Outcome:   audit.OutcomeSuccess,
		Detail:    reason,
	}); err != nil {
		return nil, errors.Wrapf(err, "plan %s rejected but audit append failed", id)
	}
	return p, nil
}

// modeHint decorates mode errors with the command that unblocks them.
func (a *app) modeHint(err error) error {
	var modeErr *errors.ModeError
	if err == nil || !errors.As(err, &modeErr) || len(modeErr.Required) == 0 {
		return err
	}
	hint := fmt.Sprintf("switch with: planward mode %s", modeErr.Required[0])
	return fmt.Errorf("%w\n%s", err, tui.MutedStyle.Render(hint))
}
