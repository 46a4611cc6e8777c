package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/planward/internal/audit"
	"github.com/Iron-Ham/planward/internal/errors"
	"github.com/Iron-Ham/planward/internal/mode"
	"github.com/Iron-Ham/planward/internal/tui"
)

var modeCmd = &cobra.Command{
	Use:   "mode [safe_explore|propose|execute]",
	Short: "Show or switch the execution mode",
	Long: `Show the current execution mode, or switch to another one.

The mode gates what Planward may do:

  safe_explore  read-only; plans can be listed and shown, nothing else
  propose       plans can be generated, approved, and rejected
  execute       approved plans can be applied to the workspace

Every switch is recorded in the audit log.

Examples:
  # Show the current mode and recent transitions
  planward mode

  # Allow plan generation and review
  planward mode propose

  # Allow applying approved plans
  planward mode execute`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMode,
}

func init() {
	rootCmd.AddCommand(modeCmd)
}

func runMode(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 0 {
		printModeStatus(a)
		return nil
	}

	target, err := mode.Parse(args[0])
	if err != nil {
		return fmt.Errorf("%w (valid modes: %s)", err, modeNames())
	}

	from := a.modes.Current()
	if err := a.modes.Transition(target); err != nil {
		if errors.Is(err, errors.ErrAlreadyInMode) {
			fmt.Printf("Already in %s mode.\n", target)
			return nil
		}
		return err
	}

	if _, err := a.audit.Append(audit.Record{
		Mode:    target.String(),
		Actor:   "user",
		Action:  audit.ActionModeChanged,
		Target:  fmt.Sprintf("%s -> %s", from, target),
		Outcome: audit.OutcomeSuccess,
	}); err != nil {
		return errors.Wrap(err, "mode changed but audit append failed")
	}

	fmt.Printf("Mode: %s\n", tui.ModeStyle(target.String()).Render(target.String()))
	fmt.Println(tui.MutedStyle.Render(target.Description()))
	return nil
}

func printModeStatus(a *app) {
	st := a.modes.Status()

	fmt.Printf("Mode: %s\n", tui.ModeStyle(st.Current.String()).Render(st.Current.String()))
	fmt.Println(tui.MutedStyle.Render(st.Description))

	if len(st.History) > 0 {
		fmt.Println("\nRecent transitions:")
		for _, ch := range st.History {
			fmt.Printf("  %s  %s -> %s\n",
				tui.MutedStyle.Render(ch.At.Local().Format("2006-01-02 15:04:05")),
				ch.From, ch.To)
		}
	}
}

func modeNames() string {
	all := mode.All()
	names := make([]string, len(all))
	for i, m := range all {
		names[i] = m.String()
	}
	return strings.Join(names, ", ")
}
