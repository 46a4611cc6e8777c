package safety

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Iron-Ham/planward/internal/plan"
)

// Classifier is a compiled policy: denylist prefixes resolved, pattern
// lists compiled, workspace root absolute. It is immutable after
// construction; the validator swaps whole classifiers on policy reload.
type Classifier struct {
	policy    *Policy
	workspace string
	denied    []string
	critical  []*regexp.Regexp
	dangerous []*regexp.Regexp
	suspect   []*regexp.Regexp
}

// NewClassifier compiles a policy against a workspace root. A non-empty
// policy WorkspaceRoot overrides the passed root. Patterns are compiled
// case-insensitively; a pattern that does not compile fails construction
// rather than silently dropping a rule.
func NewClassifier(p *Policy, workspaceRoot string) (*Classifier, error) {
	root := workspaceRoot
	if p.WorkspaceRoot != "" {
		root = p.WorkspaceRoot
	}
	if root == "" {
		return nil, fmt.Errorf("workspace root is required")
	}
	abs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}

	c := &Classifier{
		policy:    p,
		workspace: abs,
		denied:    expandDeniedPaths(p.DeniedPaths),
	}
	if c.critical, err = compilePatterns("critical_commands", p.CriticalCommands); err != nil {
		return nil, err
	}
	if c.dangerous, err = compilePatterns("dangerous_commands", p.DangerousCommands); err != nil {
		return nil, err
	}
	if c.suspect, err = compilePatterns("suspicious_content", p.SuspiciousContent); err != nil {
		return nil, err
	}
	return c, nil
}

// Workspace returns the absolute workspace root targets resolve against.
func (c *Classifier) Workspace() string {
	return c.workspace
}

// compilePatterns compiles a pattern list with case-insensitive matching.
func compilePatterns(list string, patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %s pattern %q: %w", list, pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// expandDeniedPaths cleans denylist entries and expands a leading "~" to
// the invoking user's home directory. Entries that cannot be expanded are
// dropped; relative entries are meaningless as prefixes and dropped too.
func expandDeniedPaths(entries []string) []string {
	home, homeErr := os.UserHomeDir()

	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry == "~" || strings.HasPrefix(entry, "~/") {
			if homeErr != nil {
				continue
			}
			entry = filepath.Join(home, strings.TrimPrefix(entry, "~"))
		}
		entry = filepath.Clean(entry)
		if !filepath.IsAbs(entry) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// -----------------------------------------------------------------------------
// Target Resolution
// -----------------------------------------------------------------------------

// ResolveTarget normalizes a step's file path: cleaned, joined to the
// workspace root when relative, and required to stay inside the root.
// Normalization happens before any policy check so that traversal
// sequences cannot smuggle a target past the denylist.
func (c *Classifier) ResolveTarget(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("empty target path")
	}
	p := filepath.Clean(path)
	if !filepath.IsAbs(p) {
		p = filepath.Join(c.workspace, p)
	}
	p = filepath.Clean(p)

	prefix := c.workspace + string(filepath.Separator)
	if c.workspace == string(filepath.Separator) {
		prefix = c.workspace
	}
	if p != c.workspace && !strings.HasPrefix(p, prefix) {
		return "", fmt.Errorf("path %s escapes workspace root %s", path, c.workspace)
	}
	return p, nil
}

// DeniedPrefix returns the denylist prefix covering an absolute path, or
// "" when the path is not denied.
func (c *Classifier) DeniedPrefix(abs string) string {
	for _, prefix := range c.denied {
		if abs == prefix || strings.HasPrefix(abs, prefix+string(filepath.Separator)) {
			return prefix
		}
	}
	return ""
}

// -----------------------------------------------------------------------------
// Pattern Matching
// -----------------------------------------------------------------------------

// MatchCritical returns the first hard-reject pattern matching s, or "".
func (c *Classifier) MatchCritical(s string) string {
	return firstMatch(c.critical, s)
}

// MatchDangerous returns the first risk-raising command pattern matching
// s, or "".
func (c *Classifier) MatchDangerous(s string) string {
	return firstMatch(c.dangerous, s)
}

// MatchSuspicious returns the first risk-raising content pattern matching
// s, or "".
func (c *Classifier) MatchSuspicious(s string) string {
	return firstMatch(c.suspect, s)
}

func firstMatch(patterns []*regexp.Regexp, s string) string {
	if s == "" {
		return ""
	}
	for _, re := range patterns {
		if re.MatchString(s) {
			return re.String()
		}
	}
	return ""
}

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// baseTier grades a step by its operation type alone: additions are low,
// mutations medium, deletions and command execution high. Unknown types
// classify critical so nothing unrecognized can slip through cheaply.
func baseTier(t plan.StepType) plan.RiskLevel {
	switch t {
	case plan.StepCreateFile:
		return plan.RiskLow
	case plan.StepModifyFile:
		return plan.RiskMedium
	case plan.StepDeleteFile:
		return plan.RiskHigh
	case plan.StepExecuteCommand:
		return plan.RiskHigh
	default:
		return plan.RiskCritical
	}
}

// Classify grades a step. The result is the maximum of the base tier for
// the operation type and every rule the step triggers: denied or escaping
// paths and hard-reject patterns grade critical, dangerous command and
// suspicious content matches grade at least high. Classify never rejects;
// the validator decides what is allowed to proceed.
func (c *Classifier) Classify(step plan.Step) plan.RiskLevel {
	tier := baseTier(step.Type)

	if step.Type.IsFileOperation() {
		abs, err := c.ResolveTarget(step.Path)
		if err != nil {
			return plan.RiskCritical
		}
		if c.DeniedPrefix(abs) != "" {
			return plan.RiskCritical
		}
	}

	if step.Type == plan.StepExecuteCommand {
		if c.MatchCritical(step.Command) != "" {
			return plan.RiskCritical
		}
		if c.MatchDangerous(step.Command) != "" {
			tier = plan.MaxRiskLevel(tier, plan.RiskHigh)
		}
	}

	if step.Content != "" {
		if c.MatchSuspicious(step.Content) != "" {
			tier = plan.MaxRiskLevel(tier, plan.RiskHigh)
		}
	}

	return tier
}
