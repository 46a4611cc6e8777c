package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "model.temperature")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidBackends returns the list of valid model backend values
func ValidBackends() []string {
	return []string{"ollama", "static"}
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidSafetyLevels returns the list of valid safety levels
func ValidSafetyLevels() []string {
	return []string{"standard", "strict"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateModel()...)
	errors = append(errors, c.validateRetrieval()...)
	errors = append(errors, c.validateExecutor()...)
	errors = append(errors, c.validateSafety()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateModel validates the ModelConfig
func (c *Config) validateModel() []ValidationError {
	var errors []ValidationError

	if c.Model.Backend != "" && !slices.Contains(ValidBackends(), c.Model.Backend) {
		errors = append(errors, ValidationError{
			Field:   "model.backend",
			Value:   c.Model.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidBackends(), ", ")),
		})
	}

	if c.Model.Host != "" {
		u, err := url.Parse(c.Model.Host)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "model.host",
				Value:   c.Model.Host,
				Message: "must be an http(s) URL",
			})
		}
	}

	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "model.temperature",
			Value:   c.Model.Temperature,
			Message: "must be between 0.0 and 2.0",
		})
	}

	if c.Model.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "model.timeout_seconds",
			Value:   c.Model.TimeoutSeconds,
			Message: "must be positive",
		})
	}

	return errors
}

// validateRetrieval validates the RetrievalConfig
func (c *Config) validateRetrieval() []ValidationError {
	var errors []ValidationError

	if c.Retrieval.TopK < 0 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Value:   c.Retrieval.TopK,
			Message: "must be non-negative",
		})
	}

	// Bound what gets stuffed into a prompt
	const maxTopK = 20
	if c.Retrieval.TopK > maxTopK {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Value:   c.Retrieval.TopK,
			Message: fmt.Sprintf("exceeds maximum of %d", maxTopK),
		})
	}

	return errors
}

// validateExecutor validates the ExecutorConfig
func (c *Config) validateExecutor() []ValidationError {
	var errors []ValidationError

	if c.Executor.StepTimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "executor.step_timeout_seconds",
			Value:   c.Executor.StepTimeoutSeconds,
			Message: "must be positive",
		})
	}

	if c.Executor.PlanTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "executor.plan_timeout_seconds",
			Value:   c.Executor.PlanTimeoutSeconds,
			Message: "must be non-negative (0 disables the limit)",
		})
	}

	if c.Executor.PlanTimeoutSeconds > 0 && c.Executor.PlanTimeoutSeconds < c.Executor.StepTimeoutSeconds {
		errors = append(errors, ValidationError{
			Field:   "executor.plan_timeout_seconds",
			Value:   c.Executor.PlanTimeoutSeconds,
			Message: "must be at least executor.step_timeout_seconds",
		})
	}

	if c.Executor.MaxOutputBytes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "executor.max_output_bytes",
			Value:   c.Executor.MaxOutputBytes,
			Message: "must be positive",
		})
	}

	return errors
}

// validateSafety validates the SafetyConfig
func (c *Config) validateSafety() []ValidationError {
	var errors []ValidationError

	if c.Safety.Level != "" && !slices.Contains(ValidSafetyLevels(), c.Safety.Level) {
		errors = append(errors, ValidationError{
			Field:   "safety.level",
			Value:   c.Safety.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidSafetyLevels(), ", ")),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
