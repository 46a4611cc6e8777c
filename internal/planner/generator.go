// Package planner turns a task description into a stored, reviewable plan.
// The generator is the only producer of plans: it gates on propose mode,
// collects workspace context, asks the model backend for proposals, runs
// every proposal through safety validation, and persists whatever survives
// together with a record of what was dropped.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/Iron-Ham/planward/internal/ai"
	"github.com/Iron-Ham/planward/internal/audit"
	"github.com/Iron-Ham/planward/internal/errors"
	"github.com/Iron-Ham/planward/internal/logging"
	"github.com/Iron-Ham/planward/internal/mode"
	"github.com/Iron-Ham/planward/internal/plan"
	"github.com/Iron-Ham/planward/internal/safety"
)

// actorName identifies the generator in audit entries.
const actorName = "planner"

// Config carries the generator's collaborators. Modes, Backend, Validator,
// Store, and Audit are required; Retriever may be nil to disable context
// retrieval.
type Config struct {
	Modes         *mode.Manager
	Backend       ai.Backend
	Retriever     ai.Retriever
	Validator     *safety.Validator
	Store         *plan.Store
	Audit         *audit.Log
	RetrievalTopK int
	Logger        *logging.Logger
}

// Generator builds plans from task descriptions.
type Generator struct {
	modes     *mode.Manager
	backend   ai.Backend
	retriever ai.Retriever
	validator *safety.Validator
	store     *plan.Store
	audit     *audit.Log
	topK      int
	logger    *logging.Logger
}

// New creates a Generator from its collaborators.
func New(cfg Config) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Generator{
		modes:     cfg.Modes,
		backend:   cfg.Backend,
		retriever: cfg.Retriever,
		validator: cfg.Validator,
		store:     cfg.Store,
		audit:     cfg.Audit,
		topK:      cfg.RetrievalTopK,
		logger:    logger.WithComponent("planner"),
	}
}

// Generate produces, validates, and stores a plan for the description.
//
// Requires propose mode. Proposals that fail safety validation are dropped
// and recorded on the plan; if nothing survives, no plan is stored and the
// error wraps errors.ErrEmptyPlan. Retrieval failures are tolerated: the
// model just gets no context.
func (g *Generator) Generate(ctx context.Context, description string) (*plan.Plan, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, errors.NewValidationError("task description cannot be empty").
			WithField("description")
	}

	if err := g.modes.Assert(mode.ModePropose); err != nil {
		return nil, err
	}

	snippets := g.retrieveContext(ctx, description)

	proposals, err := g.backend.ProposeSteps(ctx, description, snippets)
	if err != nil {
		return nil, errors.NewGenerationError(description, err)
	}
	g.logger.Debug("received proposals", "count", len(proposals))
	if len(proposals) == 0 {
		return nil, errors.NewGenerationError(description, errors.ErrEmptyPlan)
	}

	steps, dropped := g.screenProposals(proposals)
	if len(steps) == 0 {
		g.logger.Warn("no proposals survived validation",
			"proposed", len(proposals), "dropped", len(dropped))
		return nil, errors.NewGenerationError(description, errors.ErrEmptyPlan)
	}

	if err := g.validator.ValidatePlan(steps); err != nil {
		return nil, err
	}

	p := plan.New(description, steps)
	p.DroppedSteps = dropped

	if err := g.store.Save(p); err != nil {
		return nil, errors.Wrap(err, "persist generated plan")
	}

	_, err = g.audit.Append(audit.Record{
		Mode:      g.modes.Current().String(),
		Actor:     actorName,
		Action:    audit.ActionPlanCreated,
		PlanID:    p.ID,
		RiskLevel: p.RiskLevel.String(),
		Outcome:   audit.OutcomeSuccess,
		Detail:    fmt.Sprintf("%d steps, %d dropped", len(p.Steps), len(p.DroppedSteps)),
	})
	if err != nil {
		// The plan row exists but its creation is not on the record. That
		// breaks the log's completeness guarantee, so the operation fails
		// loudly instead of pretending everything is fine.
		return nil, errors.Wrapf(err, "plan %s stored but audit append failed", p.ID)
	}

	g.logger.Info("plan generated",
		"plan_id", p.ID,
		"steps", len(p.Steps),
		"dropped", len(p.DroppedSteps),
		"risk", p.RiskLevel.String())
	return p, nil
}

// retrieveContext fetches workspace snippets for the prompt. Failures are
// logged and swallowed.
func (g *Generator) retrieveContext(ctx context.Context, description string) []string {
	if g.retriever == nil || g.topK <= 0 {
		return nil
	}

	found, err := g.retriever.Search(ctx, description, g.topK)
	if err != nil {
		g.logger.Warn("context retrieval failed", "error", err)
		return nil
	}

	snippets := make([]string, 0, len(found))
	for _, s := range found {
		snippets = append(snippets, fmt.Sprintf("%s:\n%s", s.Source, s.Text))
	}
	return snippets
}

// screenProposals converts raw proposals to steps and validates each one.
// Rejected or malformed proposals land in the dropped list with a reason.
func (g *Generator) screenProposals(proposals []ai.ProposedStep) ([]plan.Step, []plan.DroppedStep) {
	var steps []plan.Step
	var dropped []plan.DroppedStep

	for _, prop := range proposals {
		step, err := stepFromProposal(prop)
		if err != nil {
			dropped = append(dropped, plan.DroppedStep{
				Description: describeProposal(prop),
				Reason:      err.Error(),
			})
			continue
		}

		verdict := g.validator.Validate(step)
		if verdict.Rejected {
			g.logger.Debug("proposal rejected", "description", step.Description, "reason", verdict.Reason)
			dropped = append(dropped, plan.DroppedStep{
				Description: describeProposal(prop),
				Reason:      verdict.Reason,
			})
			continue
		}

		step.RiskTier = verdict.Tier
		steps = append(steps, step)
	}
	return steps, dropped
}

// stepFromProposal maps a raw proposal onto a typed step. The type set is
// closed; anything else is an error. A missing description is synthesized
// from the type and target so review output stays readable.
func stepFromProposal(p ai.ProposedStep) (plan.Step, error) {
	desc := strings.TrimSpace(p.Description)
	if desc == "" {
		desc = describeProposal(p)
	}

	switch plan.StepType(strings.ToLower(strings.TrimSpace(p.Type))) {
	case plan.StepCreateFile:
		return plan.NewCreateFile(desc, p.Path, p.Content), nil
	case plan.StepModifyFile:
		return plan.NewModifyFile(desc, p.Path, p.Content), nil
	case plan.StepDeleteFile:
		return plan.NewDeleteFile(desc, p.Path), nil
	case plan.StepExecuteCommand:
		return plan.NewCommand(desc, p.Command), nil
	default:
		return plan.Step{}, fmt.Errorf("unknown step type %q", p.Type)
	}
}

// describeProposal returns something reviewable for a dropped proposal even
// when the model omitted the description.
func describeProposal(p ai.ProposedStep) string {
	if desc := strings.TrimSpace(p.Description); desc != "" {
		return desc
	}
	if target := strings.TrimSpace(p.Path); target != "" {
		return fmt.Sprintf("%s %s", p.Type, target)
	}
	if cmd := strings.TrimSpace(p.Command); cmd != "" {
		return fmt.Sprintf("%s %s", p.Type, cmd)
	}
	return p.Type
}
