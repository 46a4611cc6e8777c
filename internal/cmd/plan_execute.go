package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/planward/internal/executor"
	"github.com/Iron-Ham/planward/internal/tui"
)

var planExecuteDryRun bool

var planExecuteCmd = &cobra.Command{
	Use:   "execute <plan-id>",
	Short: "Apply an approved plan to the workspace",
	Long: `Apply an approved plan. Each step is backed up, applied, and
verified in order; the first failure rolls back every step applied so
far. Every step lands in the audit log.

With --dry-run the steps are described but nothing is touched.

Requires execute mode.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlanExecute,
}

func init() {
	planCmd.AddCommand(planExecuteCmd)

	planExecuteCmd.Flags().BoolVar(&planExecuteDryRun, "dry-run", false, "Describe the steps without touching the workspace")
}

func runPlanExecute(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	dryRun := planExecuteDryRun
	if !cmd.Flags().Changed("dry-run") {
		dryRun = a.cfg.Executor.DryRunDefault
	}

	report, execErr := a.newExecutor().Execute(cmd.Context(), args[0], executor.Options{DryRun: dryRun})
	if report != nil {
		printReport(report)
	}
	if execErr != nil {
		return a.modeHint(execErr)
	}
	return nil
}

func printReport(r *executor.Report) {
	if r.DryRun {
		fmt.Printf("Dry run of plan %s:\n", r.PlanID)
		for _, note := range r.Notes {
			fmt.Printf("  %s\n", note)
		}
		fmt.Println(tui.MutedStyle.Render("\nnothing was changed"))
		return
	}

	fmt.Printf("Plan %s: %s\n", r.PlanID, tui.StatusStyle(r.Status).Render(r.Status.String()))
	for _, res := range r.Results {
		line := fmt.Sprintf("  step %d: %s", res.Index, outcomeLabel(res.Outcome))
		if !res.FinishedAt.IsZero() {
			line += tui.MutedStyle.Render(fmt.Sprintf(" (%s)", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond)))
		}
		if res.Error != "" {
			line += " - " + res.Error
		}
		fmt.Println(line)
	}
}
