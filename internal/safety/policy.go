// Package safety decides what a plan step is allowed to do. It houses the
// policy file (denied paths, command and content patterns, size limits),
// the risk classifier that grades each step, and the validator that either
// accepts a step with a tier or rejects it with a reason. A policy watcher
// hot-reloads the file so edits take effect without a restart.
//
// Classification is deliberately conservative: targets are normalized
// before any check, unknown input escalates rather than passes, and
// hard-reject rules fire regardless of the step's operation type.
package safety

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/planward/internal/errors"
	"github.com/Iron-Ham/planward/internal/util"
)

// -----------------------------------------------------------------------------
// Safety Levels
// -----------------------------------------------------------------------------

// Level selects how tight the built-in policy limits are. It only shapes
// DefaultPolicy output; an explicit policy file always wins as written.
type Level string

const (
	// LevelStandard is the default limit set.
	LevelStandard Level = "standard"

	// LevelStrict halves the standard size and step limits.
	LevelStrict Level = "strict"
)

// String returns the string representation of the level.
func (l Level) String() string {
	return string(l)
}

// IsValid returns true if this is a recognized safety level.
func (l Level) IsValid() bool {
	return l == LevelStandard || l == LevelStrict
}

// ParseLevel converts a string into a Level. An empty string selects
// LevelStandard.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case "":
		return LevelStandard, nil
	case LevelStandard, LevelStrict:
		return Level(s), nil
	default:
		return "", errors.NewValidationError(fmt.Sprintf("unknown safety level %q", s)).
			WithField("safety.level").
			WithValue(s)
	}
}

// -----------------------------------------------------------------------------
// Policy
// -----------------------------------------------------------------------------

// Limits bounds how large a plan and its file contents may get.
type Limits struct {
	// MaxFileBytes caps the byte size of content written by one step.
	MaxFileBytes int64 `yaml:"max_file_bytes"`

	// MaxContentLines caps the line count of content written by one step.
	MaxContentLines int `yaml:"max_content_lines"`

	// MaxStepsPerPlan caps how many steps a single plan may carry.
	MaxStepsPerPlan int `yaml:"max_steps_per_plan"`
}

// Policy is the on-disk safety policy. All pattern lists hold RE2 regular
// expressions matched case-insensitively against commands or file content.
type Policy struct {
	// WorkspaceRoot, when set, overrides the configured workspace root
	// that file targets are resolved against.
	WorkspaceRoot string `yaml:"workspace_root,omitempty"`

	// DeniedPaths are absolute path prefixes no step may touch. Entries
	// may start with "~/" to refer to the invoking user's home.
	DeniedPaths []string `yaml:"denied_paths"`

	// CriticalCommands hard-reject any command step matching them.
	CriticalCommands []string `yaml:"critical_commands"`

	// DangerousCommands raise a matching command step to at least high
	// risk without rejecting it.
	DangerousCommands []string `yaml:"dangerous_commands"`

	// SuspiciousContent raises a step writing matching file content to
	// at least high risk without rejecting it.
	SuspiciousContent []string `yaml:"suspicious_content"`

	// Limits bounds plan and content size.
	Limits Limits `yaml:"limits"`
}

// DefaultPolicy returns the built-in policy for a safety level. The strict
// level halves every limit; the rule lists are identical across levels.
func DefaultPolicy(level Level) *Policy {
	p := &Policy{
		DeniedPaths: []string{
			"/etc", "/usr", "/bin", "/sbin", "/boot",
			"/sys", "/proc", "/dev", "/var/log", "/root",
			"~/.ssh", "~/.aws", "~/.gnupg", "~/.kube",
		},
		CriticalCommands: []string{
			`\brm\s+-rf\s+/`,
			`\brm\s+-fr\s+/`,
			`\bsudo\s+rm\b`,
			`\bmkfs\.`,
			`\bdd\s+.*of=/dev/`,
			`>\s*/dev/s[dr]`,
			`\bchmod\s+777\s+/`,
			`\bchown\s+.*:\s*/`,
			`:\(\)\s*\{`,
			`\bcurl\s+[^|]*\|\s*(ba|z|da)?sh`,
			`\bwget\s+[^|]*\|\s*(ba|z|da)?sh`,
		},
		DangerousCommands: []string{
			`\bshutdown\b`,
			`\breboot\b`,
			`\bhalt\b`,
			`\bkillall\s`,
			`\bfdisk\s`,
			`\bcurl\s`,
			`\bwget\s`,
			`\bssh\s`,
			`\bscp\s`,
			`\bnc\s`,
			`\bnmap\s`,
		},
		SuspiciousContent: []string{
			`\beval\s*\(`,
			`\bexec\s*\(`,
			`__import__\s*\(`,
			`\bos\.system\s*\(`,
			`\bos\.popen\s*\(`,
			`\bsubprocess\.`,
			`shell\s*=\s*True`,
			`\bpickle\.loads\b`,
			`\bmarshal\.loads\b`,
			`\bDROP\s+TABLE\b`,
			`\bTRUNCATE\s+TABLE\b`,
			`\bDELETE\s+FROM\s+\w+\s*(;|$)`,
			`(api[_-]?key|secret|password|token)\s*[:=]\s*["'][^"']+["']`,
		},
		Limits: Limits{
			MaxFileBytes:    10 << 20,
			MaxContentLines: 10_000,
			MaxStepsPerPlan: 50,
		},
	}
	if level == LevelStrict {
		p.Limits.MaxFileBytes /= 2
		p.Limits.MaxContentLines /= 2
		p.Limits.MaxStepsPerPlan /= 2
	}
	return p
}

// normalize fills zeroed limits with standard defaults so a sparse policy
// file cannot accidentally disable them.
func (p *Policy) normalize() {
	def := DefaultPolicy(LevelStandard)
	if p.Limits.MaxFileBytes <= 0 {
		p.Limits.MaxFileBytes = def.Limits.MaxFileBytes
	}
	if p.Limits.MaxContentLines <= 0 {
		p.Limits.MaxContentLines = def.Limits.MaxContentLines
	}
	if p.Limits.MaxStepsPerPlan <= 0 {
		p.Limits.MaxStepsPerPlan = def.Limits.MaxStepsPerPlan
	}
}

// ReadPolicy loads a policy file. The file must exist and parse; callers
// that want missing-file fallback use LoadPolicy.
func ReadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	p.normalize()
	return &p, nil
}

// LoadPolicy returns the policy at path, or the built-in policy for the
// given level when path is empty or the file does not exist. Any other
// read or parse failure is an error; a broken policy file must never
// silently degrade into the defaults.
func LoadPolicy(path string, level Level) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(level), nil
	}
	p, err := ReadPolicy(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultPolicy(level), nil
		}
		return nil, err
	}
	return p, nil
}

// Save writes the policy to path atomically.
func (p *Policy) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write policy file: %w", err)
	}
	return nil
}
