package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Planward configuration
type Config struct {
	// DataDir is where Planward keeps its state: plan store, audit log,
	// backups, mode state, and logs. Empty means the XDG data directory.
	DataDir string `mapstructure:"data_dir"`

	// WorkspaceRoot is the directory plans are allowed to act on.
	// Empty means the current working directory. Supports ~ expansion.
	WorkspaceRoot string `mapstructure:"workspace_root"`

	Model     ModelConfig     `mapstructure:"model"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Safety    SafetyConfig    `mapstructure:"safety"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ModelConfig controls the plan-generation backend
type ModelConfig struct {
	// Backend selects the generation backend: "ollama" or "static"
	Backend string `mapstructure:"backend"`
	// Host is the Ollama server base URL
	Host string `mapstructure:"host"`
	// Model is the model name passed to the backend
	Model string `mapstructure:"model"`
	// Temperature controls sampling randomness (0.0 - 2.0)
	Temperature float64 `mapstructure:"temperature"`
	// TimeoutSeconds bounds a single generation request
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// RetrievalConfig controls workspace context retrieval for generation
type RetrievalConfig struct {
	// Enabled turns workspace snippet retrieval on or off
	Enabled bool `mapstructure:"enabled"`
	// TopK is how many snippets to hand the model per request
	TopK int `mapstructure:"top_k"`
}

// ExecutorConfig controls plan execution behavior
type ExecutorConfig struct {
	// StepTimeoutSeconds bounds a single step (default: 60)
	StepTimeoutSeconds int `mapstructure:"step_timeout_seconds"`
	// PlanTimeoutSeconds bounds a whole plan execution, 0 = no limit
	PlanTimeoutSeconds int `mapstructure:"plan_timeout_seconds"`
	// DryRunDefault makes `plan execute` simulate unless --dry-run=false
	// is given explicitly
	DryRunDefault bool `mapstructure:"dry_run_default"`
	// MaxOutputBytes caps captured stdout/stderr per command step
	MaxOutputBytes int `mapstructure:"max_output_bytes"`
}

// SafetyConfig controls the safety policy
type SafetyConfig struct {
	// PolicyFile is the YAML policy path. Empty or missing uses the
	// built-in policy for Level.
	PolicyFile string `mapstructure:"policy_file"`
	// Level selects the built-in limit set: "standard" or "strict"
	Level string `mapstructure:"level"`
	// WatchPolicy hot-reloads the policy file while a long command runs
	WatchPolicy bool `mapstructure:"watch_policy"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		DataDir:       "", // Empty means use DataDir()
		WorkspaceRoot: "", // Empty means current working directory
		Model: ModelConfig{
			Backend:        "ollama",
			Host:           "http://localhost:11434",
			Model:          "tinyllama:latest",
			Temperature:    0.7,
			TimeoutSeconds: 120,
		},
		Retrieval: RetrievalConfig{
			Enabled: true,
			TopK:    3,
		},
		Executor: ExecutorConfig{
			StepTimeoutSeconds: 60,
			PlanTimeoutSeconds: 300,
			DryRunDefault:      false,
			MaxOutputBytes:     64 * 1024,
		},
		Safety: SafetyConfig{
			PolicyFile:  "", // Empty means built-in policy
			Level:       "standard",
			WatchPolicy: true,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Timeout returns the generation request timeout as a time.Duration
func (m *ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// StepTimeout returns the per-step timeout as a time.Duration
func (e *ExecutorConfig) StepTimeout() time.Duration {
	return time.Duration(e.StepTimeoutSeconds) * time.Second
}

// PlanTimeout returns the whole-plan timeout as a time.Duration (0 means no limit)
func (e *ExecutorConfig) PlanTimeout() time.Duration {
	return time.Duration(e.PlanTimeoutSeconds) * time.Second
}

// ResolveDataDir returns the absolute data directory, falling back to the
// XDG data home when unset.
func (c *Config) ResolveDataDir() string {
	if c.DataDir == "" {
		return DataDir()
	}
	return expandPath(c.DataDir, "")
}

// ResolveWorkspaceRoot returns the resolved workspace root.
// If WorkspaceRoot is empty, it returns baseDir (normally the working
// directory). If it starts with ~, it expands to the user's home
// directory. A relative path is resolved relative to baseDir.
func (c *Config) ResolveWorkspaceRoot(baseDir string) string {
	if c.WorkspaceRoot == "" {
		return baseDir
	}
	return expandPath(c.WorkspaceRoot, baseDir)
}

// expandPath expands a leading ~ and resolves relative paths against baseDir.
func expandPath(path, baseDir string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}

	return path
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("data_dir", defaults.DataDir)
	viper.SetDefault("workspace_root", defaults.WorkspaceRoot)

	// Model defaults
	viper.SetDefault("model.backend", defaults.Model.Backend)
	viper.SetDefault("model.host", defaults.Model.Host)
	viper.SetDefault("model.model", defaults.Model.Model)
	viper.SetDefault("model.temperature", defaults.Model.Temperature)
	viper.SetDefault("model.timeout_seconds", defaults.Model.TimeoutSeconds)

	// Retrieval defaults
	viper.SetDefault("retrieval.enabled", defaults.Retrieval.Enabled)
	viper.SetDefault("retrieval.top_k", defaults.Retrieval.TopK)

	// Executor defaults
	viper.SetDefault("executor.step_timeout_seconds", defaults.Executor.StepTimeoutSeconds)
	viper.SetDefault("executor.plan_timeout_seconds", defaults.Executor.PlanTimeoutSeconds)
	viper.SetDefault("executor.dry_run_default", defaults.Executor.DryRunDefault)
	viper.SetDefault("executor.max_output_bytes", defaults.Executor.MaxOutputBytes)

	// Safety defaults
	viper.SetDefault("safety.policy_file", defaults.Safety.PolicyFile)
	viper.SetDefault("safety.level", defaults.Safety.Level)
	viper.SetDefault("safety.watch_policy", defaults.Safety.WatchPolicy)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "planward")
	}
	// Fall back to ~/.config/planward
	home, err := os.UserHomeDir()
	if err != nil {
		return ".planward"
	}
	return filepath.Join(home, ".config", "planward")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns the path to the user's data directory
func DataDir() string {
	// Check XDG_DATA_HOME first
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "planward")
	}
	// Fall back to ~/.local/share/planward
	home, err := os.UserHomeDir()
	if err != nil {
		return ".planward"
	}
	return filepath.Join(home, ".local", "share", "planward")
}
