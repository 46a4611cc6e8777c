package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got %d errors: %v", len(errs), errs)
	}
}

func TestConfig_Validate_Model(t *testing.T) {
	t.Run("valid backends", func(t *testing.T) {
		for _, backend := range []string{"ollama", "static", ""} {
			cfg := Default()
			cfg.Model.Backend = backend
			errs := cfg.Validate()

			for _, err := range errs {
				if err.Field == "model.backend" {
					t.Errorf("backend %q should be valid, got error: %v", backend, err)
				}
			}
		}
	})

	t.Run("invalid backend", func(t *testing.T) {
		cfg := Default()
		cfg.Model.Backend = "unknown"
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "model.backend" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for unknown backend")
		}
	})

	t.Run("case sensitive backend", func(t *testing.T) {
		cfg := Default()
		cfg.Model.Backend = "OLLAMA"
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "model.backend" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for uppercase backend name")
		}
	})

	t.Run("valid hosts", func(t *testing.T) {
		for _, host := range []string{"http://localhost:11434", "https://ollama.internal:443", ""} {
			cfg := Default()
			cfg.Model.Host = host
			errs := cfg.Validate()

			for _, err := range errs {
				if err.Field == "model.host" {
					t.Errorf("host %q should be valid, got error: %v", host, err)
				}
			}
		}
	})

	t.Run("invalid hosts", func(t *testing.T) {
		for _, host := range []string{"localhost:11434", "ftp://example.com", "not a url"} {
			cfg := Default()
			cfg.Model.Host = host
			errs := cfg.Validate()

			found := false
			for _, err := range errs {
				if err.Field == "model.host" {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error for host %q", host)
			}
		}
	})

	t.Run("temperature out of range", func(t *testing.T) {
		for _, temp := range []float64{-0.1, 2.1, 100} {
			cfg := Default()
			cfg.Model.Temperature = temp
			errs := cfg.Validate()

			found := false
			for _, err := range errs {
				if err.Field == "model.temperature" {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error for temperature %f", temp)
			}
		}
	})

	t.Run("boundary temperatures are valid", func(t *testing.T) {
		for _, temp := range []float64{0, 1.0, 2.0} {
			cfg := Default()
			cfg.Model.Temperature = temp
			errs := cfg.Validate()

			for _, err := range errs {
				if err.Field == "model.temperature" {
					t.Errorf("temperature %f should be valid: %v", temp, err)
				}
			}
		}
	})

	t.Run("non-positive timeout", func(t *testing.T) {
		for _, seconds := range []int{0, -5} {
			cfg := Default()
			cfg.Model.TimeoutSeconds = seconds
			errs := cfg.Validate()

			found := false
			for _, err := range errs {
				if err.Field == "model.timeout_seconds" {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error for timeout %ds", seconds)
			}
		}
	})
}

func TestConfig_Validate_Retrieval(t *testing.T) {
	t.Run("negative top_k", func(t *testing.T) {
		cfg := Default()
		cfg.Retrieval.TopK = -1
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "retrieval.top_k" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for negative top_k")
		}
	})

	t.Run("excessive top_k", func(t *testing.T) {
		cfg := Default()
		cfg.Retrieval.TopK = 100
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "retrieval.top_k" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for excessive top_k")
		}
	})

	t.Run("zero top_k is valid (disables retrieval)", func(t *testing.T) {
		cfg := Default()
		cfg.Retrieval.TopK = 0
		errs := cfg.Validate()

		for _, err := range errs {
			if err.Field == "retrieval.top_k" {
				t.Errorf("zero top_k should be valid: %v", err)
			}
		}
	})
}

func TestConfig_Validate_Executor(t *testing.T) {
	t.Run("non-positive step timeout", func(t *testing.T) {
		for _, seconds := range []int{0, -10} {
			cfg := Default()
			cfg.Executor.StepTimeoutSeconds = seconds
			errs := cfg.Validate()

			found := false
			for _, err := range errs {
				if err.Field == "executor.step_timeout_seconds" {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error for step timeout %ds", seconds)
			}
		}
	})

	t.Run("negative plan timeout", func(t *testing.T) {
		cfg := Default()
		cfg.Executor.PlanTimeoutSeconds = -1
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "executor.plan_timeout_seconds" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for negative plan timeout")
		}
	})

	t.Run("zero plan timeout is valid (no limit)", func(t *testing.T) {
		cfg := Default()
		cfg.Executor.PlanTimeoutSeconds = 0
		errs := cfg.Validate()

		for _, err := range errs {
			if err.Field == "executor.plan_timeout_seconds" {
				t.Errorf("zero plan timeout should be valid: %v", err)
			}
		}
	})

	t.Run("plan timeout shorter than step timeout", func(t *testing.T) {
		cfg := Default()
		cfg.Executor.StepTimeoutSeconds = 60
		cfg.Executor.PlanTimeoutSeconds = 30
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "executor.plan_timeout_seconds" && strings.Contains(err.Message, "at least") {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for plan timeout shorter than step timeout")
		}
	})

	t.Run("non-positive max output bytes", func(t *testing.T) {
		cfg := Default()
		cfg.Executor.MaxOutputBytes = 0
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "executor.max_output_bytes" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for zero max output bytes")
		}
	})
}

func TestConfig_Validate_Safety(t *testing.T) {
	t.Run("valid levels", func(t *testing.T) {
		for _, level := range []string{"standard", "strict", ""} {
			cfg := Default()
			cfg.Safety.Level = level
			errs := cfg.Validate()

			for _, err := range errs {
				if err.Field == "safety.level" {
					t.Errorf("level %q should be valid, got error: %v", level, err)
				}
			}
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		cfg := Default()
		cfg.Safety.Level = "paranoid"
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "safety.level" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for unknown safety level")
		}
	})
}

func TestConfig_Validate_Logging(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", ""} {
			cfg := Default()
			cfg.Logging.Level = level
			errs := cfg.Validate()

			for _, err := range errs {
				if err.Field == "logging.level" {
					t.Errorf("level %q should be valid, got error: %v", level, err)
				}
			}
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.Level = "invalid"
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "logging.level" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for invalid log level")
		}
	})

	t.Run("max size must be positive", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.MaxSizeMB = 0
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "logging.max_size_mb" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for zero max size")
		}
	})

	t.Run("negative max backups", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.MaxBackups = -1
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "logging.max_backups" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for negative max backups")
		}
	})

	t.Run("zero max backups is valid", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.MaxBackups = 0
		errs := cfg.Validate()

		for _, err := range errs {
			if err.Field == "logging.max_backups" {
				t.Errorf("zero max backups should be valid: %v", err)
			}
		}
	})
}

func TestValidLogLevels(t *testing.T) {
	levels := ValidLogLevels()
	expected := []string{"debug", "info", "warn", "error"}

	if len(levels) != len(expected) {
		t.Errorf("ValidLogLevels() length = %d, want %d", len(levels), len(expected))
	}

	for i, level := range expected {
		if levels[i] != level {
			t.Errorf("ValidLogLevels()[%d] = %q, want %q", i, levels[i], level)
		}
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := Default()
	// Set multiple invalid values
	cfg.Model.Backend = "unknown"
	cfg.Model.Temperature = 5.0
	cfg.Logging.Level = "invalid"
	cfg.Retrieval.TopK = -1

	errs := cfg.Validate()
	if len(errs) < 4 {
		t.Errorf("expected at least 4 errors, got %d: %v", len(errs), errs)
	}
}
