// Package logging provides structured logging for Planward.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation support. Every significant action Planward takes is
// logged with the component that took it, the plan it concerns, and the
// operating mode it ran under, so a session can be reconstructed after the
// fact. The log complements the audit trail: the audit trail is the
// tamper-evident record of what happened, the log is the diagnostic record
// of how it happened.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context propagation (component, plan ID, mode)
//   - Log rotation with configurable size limits
//   - Optional gzip compression for rotated logs
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The [Logger] type
// uses Go's slog internally which is designed for concurrent access. The
// [RotatingWriter] type uses a mutex to protect file operations during
// rotation. Child loggers created via With* methods share the underlying
// writer safely.
//
// # Basic Usage
//
// Create a logger for the data directory:
//
//	logger, err := logging.NewLogger("/path/to/data", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	// Log messages at various levels
//	logger.Debug("detailed info", "key", "value")
//	logger.Info("operation completed", "duration_ms", 150)
//	logger.Warn("potential issue", "threshold", 100)
//	logger.Error("operation failed", "error", err.Error())
//
// # Context Propagation
//
// Create child loggers with persistent context attributes:
//
//	// Add the subsystem doing the work
//	execLogger := logger.WithComponent("executor")
//
//	// Add the plan being worked on
//	planLogger := execLogger.WithPlan("a1b2c3d4")
//
//	// Add the mode the work runs under
//	modeLogger := planLogger.WithMode("execute")
//
//	// All logs from modeLogger carry component, plan_id, and mode
//	modeLogger.Info("step applied", "step", 2, "type", "modify_file")
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"step applied","component":"executor","plan_id":"a1b2c3d4","mode":"execute","step":2,"type":"modify_file"}
//
// # Log Rotation
//
// The log file lives for the lifetime of the installation rather than a
// single session, so rotation is on by default. To tune it:
//
//	config := logging.RotationConfig{
//	    MaxSizeMB:  10,    // Rotate when file exceeds 10MB
//	    MaxBackups: 3,     // Keep 3 backup files
//	    Compress:   true,  // Gzip compress rotated files
//	}
//
//	logger, err := logging.NewLoggerWithRotation("/path/to/data", "INFO", config)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
// Rotated files are named: planward.log.1, planward.log.2, etc., where .1 is
// the most recent backup. When compression is enabled, rotated files become
// planward.log.1.gz, etc.
//
// # Testing
//
// For testing, use [NopLogger] to discard all log output:
//
//	func TestSomething(t *testing.T) {
//	    logger := logging.NopLogger()
//	    // Use logger in tests without creating files
//	}
//
// # Log Levels
//
// The package defines four log levels:
//
//   - [LevelDebug]: Detailed information for debugging
//   - [LevelInfo]: General operational information (default)
//   - [LevelWarn]: Warning conditions that may need attention
//   - [LevelError]: Error conditions that affect functionality
//
// Use [ValidLevels] to get the list of valid level strings, and [ParseLevel]
// to normalize user-provided level strings.
//
// # Configuration
//
// The logging system is typically configured via Planward's config file:
//
//	logging:
//	  level: info
//	  max_size_mb: 10
//	  max_backups: 3
//	  compress: false
//
// See the Planward README for complete configuration documentation.
package logging
