package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/planward/internal/tui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect Planward configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration Planward is running with, after merging the
config file, environment variables (PLANWARD_*), and defaults.`,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg

	fmt.Println(tui.TitleStyle.Render("Planward configuration"))

	fmt.Println("\nCore:")
	fmt.Printf("  %-20s %s\n", "data_dir:", a.dataDir)
	fmt.Printf("  %-20s %s\n", "workspace_root:", a.workspace)

	fmt.Println("\nModel:")
	fmt.Printf("  %-20s %s\n", "backend:", cfg.Model.Backend)
	fmt.Printf("  %-20s %s\n", "host:", cfg.Model.Host)
	fmt.Printf("  %-20s %s\n", "model:", cfg.Model.Model)
	fmt.Printf("  %-20s %.2f\n", "temperature:", cfg.Model.Temperature)
	fmt.Printf("  %-20s %s\n", "timeout:", cfg.Model.Timeout())

	fmt.Println("\nRetrieval:")
	fmt.Printf("  %-20s %t\n", "enabled:", cfg.Retrieval.Enabled)
	fmt.Printf("  %-20s %d\n", "top_k:", cfg.Retrieval.TopK)

	fmt.Println("\nExecutor:")
	fmt.Printf("  %-20s %s\n", "step_timeout:", cfg.Executor.StepTimeout())
	fmt.Printf("  %-20s %s\n", "plan_timeout:", cfg.Executor.PlanTimeout())
	fmt.Printf("  %-20s %t\n", "dry_run_default:", cfg.Executor.DryRunDefault)
	fmt.Printf("  %-20s %d\n", "max_output_bytes:", cfg.Executor.MaxOutputBytes)

	fmt.Println("\nSafety:")
	policyFile := cfg.Safety.PolicyFile
	if policyFile == "" {
		policyFile = "(built-in defaults)"
	}
	fmt.Printf("  %-20s %s\n", "policy_file:", policyFile)
	fmt.Printf("  %-20s %s\n", "level:", cfg.Safety.Level)
	fmt.Printf("  %-20s %t\n", "watch_policy:", cfg.Safety.WatchPolicy)

	fmt.Println("\nLogging:")
	fmt.Printf("  %-20s %t\n", "enabled:", cfg.Logging.Enabled)
	fmt.Printf("  %-20s %s\n", "level:", cfg.Logging.Level)
	fmt.Printf("  %-20s %d\n", "max_size_mb:", cfg.Logging.MaxSizeMB)
	fmt.Printf("  %-20s %d\n", "max_backups:", cfg.Logging.MaxBackups)

	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Println(tui.MutedStyle.Render(fmt.Sprintf("\nconfig file: %s", used)))
	} else {
		fmt.Println(tui.MutedStyle.Render("\nno config file found, using defaults"))
	}
	return nil
}
