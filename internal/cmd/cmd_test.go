package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/planward/internal/audit"
	"github.com/Iron-Ham/planward/internal/logging"
	"github.com/Iron-Ham/planward/internal/mode"
)

// executeCommand runs the root command with args and captures cobra's
// output: usage text and errors. Output the run functions print with
// fmt goes to stdout and is checked through state instead.
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "planward" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "planward")
	}

	want := map[string]bool{
		"mode":    false,
		"plan":    false,
		"audit":   false,
		"config":  false,
		"version": false,
	}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestPlanSubcommands(t *testing.T) {
	want := map[string]bool{
		"submit":  false,
		"list":    false,
		"show":    false,
		"approve": false,
		"reject":  false,
		"review":  false,
		"execute": false,
	}
	for _, cmd := range planCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing plan subcommand %q", name)
		}
	}
}

func TestHelpListsCommands(t *testing.T) {
	t.Setenv("PLANWARD_DATA_DIR", t.TempDir())

	out, err := executeCommand(rootCmd, "help")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, want := range []string{"planward", "mode", "plan", "audit", "config"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestModeSwitchThroughCLI(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("PLANWARD_DATA_DIR", dataDir)

	if _, err := executeCommand(rootCmd, "mode", "propose"); err != nil {
		t.Fatalf("mode propose: %v", err)
	}

	modes, err := mode.NewPersistentManager(dataDir, logging.NopLogger())
	if err != nil {
		t.Fatalf("reopen mode manager: %v", err)
	}
	if got := modes.Current(); got != mode.ModePropose {
		t.Errorf("persisted mode = %s, want %s", got, mode.ModePropose)
	}

	log, err := audit.Open(dataDir, nil)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	entries, err := log.List(0)
	if err != nil {
		t.Fatalf("list audit entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	if entries[0].Action != audit.ActionModeChanged {
		t.Errorf("action = %s, want %s", entries[0].Action, audit.ActionModeChanged)
	}
	if want := "safe_explore -> propose"; entries[0].Target != want {
		t.Errorf("target = %q, want %q", entries[0].Target, want)
	}
}

func TestModeRejectsUnknownMode(t *testing.T) {
	t.Setenv("PLANWARD_DATA_DIR", t.TempDir())

	out, err := executeCommand(rootCmd, "mode", "yolo")
	if err == nil {
		t.Fatal("expected an error for unknown mode")
	}
	if !strings.Contains(out, "safe_explore") {
		t.Errorf("error output should list valid modes:\n%s", out)
	}
}

func TestSubmitRefusedInSafeExplore(t *testing.T) {
	t.Setenv("PLANWARD_DATA_DIR", t.TempDir())

	out, err := executeCommand(rootCmd, "plan", "submit", "write a readme")
	if err == nil {
		t.Fatal("expected a mode error in safe_explore")
	}
	for _, want := range []string{"current=safe_explore", "required=propose", "planward mode propose"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestExecuteRefusedInSafeExplore(t *testing.T) {
	t.Setenv("PLANWARD_DATA_DIR", t.TempDir())

	out, err := executeCommand(rootCmd, "plan", "execute", "plan-0000")
	if err == nil {
		t.Fatal("expected a mode error in safe_explore")
	}
	for _, want := range []string{"required=execute", "planward mode execute"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPlanShowUnknownPlan(t *testing.T) {
	t.Setenv("PLANWARD_DATA_DIR", t.TempDir())

	_, err := executeCommand(rootCmd, "plan", "show", "plan-missing")
	if err == nil {
		t.Fatal("expected an error for unknown plan")
	}
	if !strings.Contains(err.Error(), "plan-missing") {
		t.Errorf("error should name the plan: %v", err)
	}
}

func TestAuditVerifyFreshLog(t *testing.T) {
	t.Setenv("PLANWARD_DATA_DIR", t.TempDir())

	if _, err := executeCommand(rootCmd, "audit", "verify"); err != nil {
		t.Fatalf("audit verify: %v", err)
	}
}

func TestConfigShowRuns(t *testing.T) {
	t.Setenv("PLANWARD_DATA_DIR", t.TempDir())

	if _, err := executeCommand(rootCmd, "config", "show"); err != nil {
		t.Fatalf("config show: %v", err)
	}
}
