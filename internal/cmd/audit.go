package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/planward/internal/audit"
	"github.com/Iron-Ham/planward/internal/tui"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
}

var auditShowLimit int

var auditShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show audit log entries",
	Long: `Show entries from the append-only audit log: mode changes, plan
lifecycle events, and per-step execution records.

Examples:
  # Show the last 20 entries
  planward audit show

  # Show everything
  planward audit show --limit 0`,
	RunE: runAuditShow,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the audit log's hash chain",
	Long: `Recompute every entry's hash and check the chain linkage. A broken
chain means the log was edited after the fact; the first bad entry is
reported.`,
	RunE: runAuditVerify,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditShowCmd)
	auditCmd.AddCommand(auditVerifyCmd)

	auditShowCmd.Flags().IntVar(&auditShowLimit, "limit", 20, "Number of most recent entries to show (0 for all)")
}

func runAuditShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.audit.List(auditShowLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("Audit log is empty.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%4d  %s  %-12s %-16s %s  %s\n",
			e.Seq,
			tui.MutedStyle.Render(entryTime(e)),
			e.Mode,
			e.Action,
			outcomeMark(e.Outcome),
			entrySubject(e),
		)
	}
	return nil
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.audit.Verify()
	if err != nil {
		return err
	}

	if result.OK {
		fmt.Printf("%s chain intact, %d entries\n", tui.SuccessStyle.Render("ok:"), result.Entries)
		return nil
	}
	return fmt.Errorf("audit chain broken at entry %d: %s", result.BrokenSeq, result.Message)
}

func entryTime(e audit.Entry) string {
	ts, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return e.Timestamp
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func outcomeMark(outcome audit.Outcome) string {
	if outcome == audit.OutcomeFailure {
		return tui.ErrorStyle.Render("fail")
	}
	return tui.SuccessStyle.Render("ok  ")
}

func entrySubject(e audit.Entry) string {
	var parts []string
	if e.PlanID != "" {
		ref := e.PlanID
		if e.StepIndex > 0 {
			ref = fmt.Sprintf("%s step %d", ref, e.StepIndex)
		}
		parts = append(parts, ref)
	}
	if e.Target != "" {
		parts = append(parts, e.Target)
	}
	if e.Detail != "" {
		parts = append(parts, tui.MutedStyle.Render(e.Detail))
	}
	return strings.Join(parts, "  ")
}
