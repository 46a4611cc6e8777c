package safety

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Iron-Ham/planward/internal/errors"
	"github.com/Iron-Ham/planward/internal/logging"
	"github.com/Iron-Ham/planward/internal/plan"
)

// Verdict is the validator's decision for one step. A rejected verdict
// carries the reason; an accepted one carries the assigned risk tier.
type Verdict struct {
	Tier     plan.RiskLevel
	Rejected bool
	Reason   string
}

// accept returns an accepting verdict at the given tier.
func accept(tier plan.RiskLevel) Verdict {
	return Verdict{Tier: tier}
}

// reject returns a rejecting verdict. Rejected steps grade critical;
// they are dropped before a plan is stored and never run.
func reject(format string, args ...any) Verdict {
	return Verdict{
		Tier:     plan.RiskCritical,
		Rejected: true,
		Reason:   fmt.Sprintf(format, args...),
	}
}

// Validator applies the active policy to steps and whole plans. The
// compiled classifier is swapped atomically on policy reload, so a long
// validation pass never observes a half-updated policy.
type Validator struct {
	mu         sync.RWMutex
	policy     *Policy
	classifier *Classifier
	workspace  string
	logger     *logging.Logger
}

// NewValidator compiles the policy against the workspace root.
func NewValidator(p *Policy, workspaceRoot string, logger *logging.Logger) (*Validator, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	classifier, err := NewClassifier(p, workspaceRoot)
	if err != nil {
		return nil, err
	}
	return &Validator{
		policy:     p,
		classifier: classifier,
		workspace:  workspaceRoot,
		logger:     logger.WithComponent("safety"),
	}, nil
}

// Reload swaps in a new policy. The old policy stays active if the new
// one fails to compile.
func (v *Validator) Reload(p *Policy) error {
	classifier, err := NewClassifier(p, v.workspace)
	if err != nil {
		return fmt.Errorf("reload policy: %w", err)
	}

	v.mu.Lock()
	v.policy = p
	v.classifier = classifier
	v.mu.Unlock()

	v.logger.Info("safety policy reloaded",
		"denied_paths", len(p.DeniedPaths),
		"critical_patterns", len(p.CriticalCommands),
	)
	return nil
}

// Policy returns the active policy.
func (v *Validator) Policy() *Policy {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.policy
}

// Workspace returns the absolute workspace root targets resolve against.
func (v *Validator) Workspace() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.classifier.Workspace()
}

// ResolveTarget normalizes a file path against the workspace root using
// the active policy. The executor uses this to locate backup targets with
// the same rules validation used.
func (v *Validator) ResolveTarget(path string) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.classifier.ResolveTarget(path)
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

// Validate judges one step against the active policy. Steps are rejected
// when their target escapes the workspace or is denylisted, when a
// hard-reject command pattern fires, or when content exceeds the size
// limits. Everything else is accepted with a risk tier: the maximum of
// the operation's base tier and any dangerous-command or
// suspicious-content match.
func (v *Validator) Validate(step plan.Step) Verdict {
	v.mu.RLock()
	classifier := v.classifier
	limits := v.policy.Limits
	v.mu.RUnlock()

	if err := step.Validate(); err != nil {
		return reject("malformed step: %v", err)
	}

	if step.Type.IsFileOperation() {
		abs, err := classifier.ResolveTarget(step.Path)
		if err != nil {
			return reject("path %s escapes the workspace root", step.Path)
		}
		if prefix := classifier.DeniedPrefix(abs); prefix != "" {
			return reject("path %s is denied by policy (%s)", step.Path, prefix)
		}
	}

	if step.Type == plan.StepExecuteCommand {
		if pattern := classifier.MatchCritical(step.Command); pattern != "" {
			return reject("command matches forbidden pattern %q", pattern)
		}
	}

	if step.Content != "" {
		if int64(len(step.Content)) > limits.MaxFileBytes {
			return reject("content is %d bytes, limit is %d", len(step.Content), limits.MaxFileBytes)
		}
		if lines := strings.Count(step.Content, "\n") + 1; lines > limits.MaxContentLines {
			return reject("content is %d lines, limit is %d", lines, limits.MaxContentLines)
		}
	}

	return accept(classifier.Classify(step))
}

// ValidatePlan enforces plan-level limits across a step list. Per-step
// verdicts stay with Validate; this only checks what single steps cannot
// see.
func (v *Validator) ValidatePlan(steps []plan.Step) error {
	v.mu.RLock()
	limits := v.policy.Limits
	v.mu.RUnlock()

	if len(steps) > limits.MaxStepsPerPlan {
		return errors.NewValidationError(
			fmt.Sprintf("plan has %d steps, limit is %d", len(steps), limits.MaxStepsPerPlan)).
			WithField("steps")
	}
	return nil
}
