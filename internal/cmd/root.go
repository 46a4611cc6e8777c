// Package cmd wires Planward's CLI: mode switching, plan lifecycle
// commands, audit inspection, and configuration display.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/planward/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "planward",
	Short: "Mode-gated plan execution for your workspace",
	Long: `Planward turns natural-language tasks into reviewable, reversible plans.

Plans are generated in propose mode, reviewed and approved by a human,
and applied in execute mode with per-step backups, verification, and an
append-only audit trail. The default safe_explore mode permits neither.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/planward/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/planward")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PLANWARD")
	// Replace dots with underscores for nested keys in env vars
	// e.g., PLANWARD_SAFETY_LEVEL for safety.level
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
