package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/planward/internal/mode"
	"github.com/Iron-Ham/planward/internal/plan"
	"github.com/Iron-Ham/planward/internal/tui"
)

var planApproveNote string

var planApproveCmd = &cobra.Command{
	Use:   "approve <plan-id>",
	Short: "Approve a pending plan for execution",
	Long: `Approve a pending plan. Approval is recorded in the audit log and
makes the plan eligible for execution.

Requires propose mode.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlanApprove,
}

var planRejectReason string

var planRejectCmd = &cobra.Command{
	Use:   "reject <plan-id>",
	Short: "Reject a pending plan",
	Long: `Reject a pending plan. Rejection is terminal and recorded in the
audit log together with the reason.

Requires propose mode.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlanReject,
}

var planReviewCmd = &cobra.Command{
	Use:   "review <plan-id>",
	Short: "Review a pending plan interactively",
	Long: `Open an interactive review of a pending plan: step through the plan
with its risk tiers, then approve or reject it without leaving the
terminal.

Requires propose mode.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlanReview,
}

func init() {
	planCmd.AddCommand(planApproveCmd)
	planCmd.AddCommand(planRejectCmd)
	planCmd.AddCommand(planReviewCmd)

	planApproveCmd.Flags().StringVar(&planApproveNote, "note", "", "Note to record with the approval")
	planRejectCmd.Flags().StringVar(&planRejectReason, "reason", "", "Reason to record with the rejection")
}

func runPlanApprove(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.approvePlan(args[0], planApproveNote)
	if err != nil {
		return a.modeHint(err)
	}

	fmt.Printf("Approved plan %s (%s risk, %d steps)\n",
		p.ID, tui.RiskStyle(p.RiskLevel).Render(p.RiskLevel.String()), len(p.Steps))
	fmt.Println(tui.MutedStyle.Render(fmt.Sprintf("apply with: planward plan execute %s", p.ID)))
	return nil
}

func runPlanReject(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.rejectPlan(args[0], planRejectReason)
	if err != nil {
		return a.modeHint(err)
	}

	fmt.Printf("Rejected plan %s\n", p.ID)
	return nil
}

func runPlanReview(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// A decision needs propose mode; say so before opening the screen.
	if err := a.modes.Assert(mode.ModePropose); err != nil {
		return a.modeHint(err)
	}

	p, err := a.plans.Get(args[0])
	if err != nil {
		return err
	}
	if p.Status != plan.StatusPending {
		return fmt.Errorf("plan %s is %s; only pending plans can be reviewed", p.ID, p.Status)
	}

	decision, note, err := tui.RunReview(p)
	if err != nil {
		return err
	}

	switch decision {
	case tui.DecisionApprove:
		if _, err := a.approvePlan(p.ID, note); err != nil {
			return a.modeHint(err)
		}
		fmt.Printf("Approved plan %s\n", p.ID)
		fmt.Println(tui.MutedStyle.Render(fmt.Sprintf("apply with: planward plan execute %s", p.ID)))
	case tui.DecisionReject:
		if _, err := a.rejectPlan(p.ID, note); err != nil {
			return a.modeHint(err)
		}
		fmt.Printf("Rejected plan %s\n", p.ID)
	default:
		fmt.Println("No decision recorded; plan is still pending.")
	}
	return nil
}
