// Package mode implements the operating-mode state machine that gates every
// mutating operation. Planward is always in exactly one of three modes:
// safe_explore (read-only), propose (plans may be generated and reviewed),
// and execute (approved plans may be applied). Modes change only through an
// explicit user command; no internal component ever switches modes on the
// user's behalf.
package mode

import (
	"strings"

	"github.com/Iron-Ham/planward/internal/errors"
)

// Mode identifies one of the three operating modes.
type Mode string

const (
	// ModeSafeExplore is the default read-only mode. No plans can be
	// generated and nothing in the workspace can be touched.
	ModeSafeExplore Mode = "safe_explore"

	// ModePropose permits plan generation, approval, and rejection.
	// Plans are described but never applied.
	ModePropose Mode = "propose"

	// ModeExecute permits applying previously approved plans.
	ModeExecute Mode = "execute"
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// IsValid returns true if this is a recognized mode value.
func (m Mode) IsValid() bool {
	switch m {
	case ModeSafeExplore, ModePropose, ModeExecute:
		return true
	default:
		return false
	}
}

// Description returns a one-line summary of what the mode permits.
func (m Mode) Description() string {
	switch m {
	case ModeSafeExplore:
		return "read-only exploration; no plan generation, no workspace changes"
	case ModePropose:
		return "plan generation and review; nothing is applied"
	case ModeExecute:
		return "approved plans may be applied to the workspace"
	default:
		return "unknown mode"
	}
}

// All returns the modes in escalation order.
func All() []Mode {
	return []Mode{ModeSafeExplore, ModePropose, ModeExecute}
}

// Parse converts user input into a Mode. Input is case-insensitive, treats
// hyphens as underscores, and accepts the short aliases "safe", "explore",
// and "exec". Unrecognized input returns ErrInvalidMode.
func Parse(s string) (Mode, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")

	switch normalized {
	case "safe_explore", "safe", "explore":
		return ModeSafeExplore, nil
	case "propose":
		return ModePropose, nil
	case "execute", "exec":
		return ModeExecute, nil
	default:
		return "", errors.Wrapf(errors.ErrInvalidMode, "unknown mode %q (valid: safe_explore, propose, execute)", s)
	}
}
