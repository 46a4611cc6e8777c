package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/planward/internal/mode"
	"github.com/Iron-Ham/planward/internal/plan"
	"github.com/Iron-Ham/planward/internal/tui"
	"github.com/Iron-Ham/planward/internal/util"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate, inspect, and manage plans",
}

var planSubmitCmd = &cobra.Command{
	Use:   "submit \"<task>\"",
	Short: "Generate a plan for a task description",
	Long: `Generate a plan for a natural-language task description.

The model proposes a step sequence, every step is risk-classified against
the safety policy, and the surviving steps are stored as a pending plan.
Proposals the policy rejects outright are dropped and recorded on the
plan with the reason.

Requires propose mode.

Examples:
  planward plan submit "add a Makefile with build and test targets"
  planward plan submit "rename config.yml to config.yaml everywhere"`,
	Args: cobra.ExactArgs(1),
	RunE: runPlanSubmit,
}

var planListStatus string

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored plans",
	RunE:  runPlanList,
}

var planShowCmd = &cobra.Command{
	Use:   "show <plan-id>",
	Short: "Show a plan's steps, risk tiers, and execution results",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanShow,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planSubmitCmd)
	planCmd.AddCommand(planListCmd)
	planCmd.AddCommand(planShowCmd)

	planListCmd.Flags().StringVar(&planListStatus, "status", "", "Filter by status (pending/approved/rejected/executing/completed/failed/rolled_back)")
}

func runPlanSubmit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Check the mode before reaching for the model backend.
	if err := a.modes.Assert(mode.ModePropose); err != nil {
		return a.modeHint(err)
	}

	gen, err := a.newGenerator(cmd.Context())
	if err != nil {
		return err
	}

	p, err := gen.Generate(cmd.Context(), args[0])
	if err != nil {
		return a.modeHint(err)
	}

	fmt.Printf("Created plan %s\n\n", tui.TitleStyle.Render(p.ID))
	printPlan(p)
	fmt.Println(tui.MutedStyle.Render(fmt.Sprintf("\nreview with: planward plan review %s", p.ID)))
	return nil
}

func runPlanList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	filter := plan.StatusFilter{}
	if planListStatus != "" {
		status := plan.Status(planListStatus)
		if !status.IsValid() {
			return fmt.Errorf("unknown status %q (valid: pending, approved, rejected, executing, completed, failed, rolled_back)", planListStatus)
		}
		filter.Status = status
	}

	plans, err := a.plans.List(filter)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		fmt.Println("No plans found.")
		return nil
	}

	fmt.Printf("%-16s %-12s %-10s %5s  %-19s %s\n", "ID", "STATUS", "RISK", "STEPS", "CREATED", "DESCRIPTION")
	for _, p := range plans {
		fmt.Printf("%-16s %s %s %5d  %-19s %s\n",
			p.ID,
			tui.StatusStyle(p.Status).Render(fmt.Sprintf("%-12s", p.Status)),
			tui.RiskStyle(p.RiskLevel).Render(fmt.Sprintf("%-10s", p.RiskLevel)),
			len(p.Steps),
			p.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			util.TruncateString(p.Description, 48),
		)
	}
	return nil
}

func runPlanShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.plans.Get(args[0])
	if err != nil {
		return err
	}
	printPlan(p)
	return nil
}

func printPlan(p *plan.Plan) {
	fmt.Printf("Plan:        %s\n", p.ID)
	fmt.Printf("Description: %s\n", p.Description)
	fmt.Printf("Status:      %s\n", tui.StatusStyle(p.Status).Render(p.Status.String()))
	fmt.Printf("Risk:        %s\n", tui.RiskStyle(p.RiskLevel).Render(p.RiskLevel.String()))
	fmt.Printf("Created:     %s\n", p.CreatedAt.Local().Format("2006-01-02 15:04:05"))

	fmt.Println("\nSteps:")
	for i, step := range p.Steps {
		fmt.Printf("  %d. %-15s %s %s\n",
			i+1,
			step.Type.String(),
			tui.RiskStyle(step.RiskTier).Render(fmt.Sprintf("%-8s", step.RiskTier)),
			step.Description,
		)
		fmt.Printf("     %s\n", tui.MutedStyle.Render(step.Target()))
	}

	if len(p.DroppedSteps) > 0 {
		fmt.Println()
		fmt.Println(tui.WarningStyle.Render(fmt.Sprintf("%d proposed step(s) dropped by safety validation:", len(p.DroppedSteps))))
		for _, d := range p.DroppedSteps {
			fmt.Printf("  - %s: %s\n", d.Description, tui.MutedStyle.Render(d.Reason))
		}
	}

	if p.Execution != nil {
		printExecution(p.Execution)
	}
}

func printExecution(meta *plan.ExecutionMeta) {
	fmt.Println("\nExecution:")
	if meta.DryRun {
		fmt.Println(tui.MutedStyle.Render("  dry run"))
	}
	fmt.Printf("  started:   %s\n", meta.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if meta.CompletedAt != nil {
		fmt.Printf("  completed: %s\n", meta.CompletedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if meta.BackupDir != "" {
		fmt.Printf("  backups:   %s\n", meta.BackupDir)
	}
	if meta.Error != "" {
		fmt.Printf("  error:     %s\n", tui.ErrorStyle.Render(meta.Error))
	}
	for _, res := range meta.StepResults {
		line := fmt.Sprintf("  step %d: %s", res.Index, outcomeLabel(res.Outcome))
		if res.Error != "" {
			line += tui.MutedStyle.Render(" - " + res.Error)
		}
		fmt.Println(line)
	}
}

func outcomeLabel(outcome plan.StepOutcome) string {
	switch outcome {
	case plan.OutcomeApplied:
		return tui.SuccessStyle.Render(string(outcome))
	case plan.OutcomeFailed:
		return tui.ErrorStyle.Render(string(outcome))
	case plan.OutcomeRolledBack:
		return tui.WarningStyle.Render(string(outcome))
	default:
		return tui.MutedStyle.Render(string(outcome))
	}
}
