// Package tui renders Planward's terminal UI: the shared color palette
// used by CLI output and the interactive plan review screen.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/planward/internal/plan"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#A78BFA") // Purple
	GreenColor   = lipgloss.Color("#10B981") // Green
	YellowColor  = lipgloss.Color("#FBBF24") // Yellow
	AmberColor   = lipgloss.Color("#F59E0B") // Amber
	RedColor     = lipgloss.Color("#F87171") // Red
	BlueColor    = lipgloss.Color("#60A5FA") // Blue
	MutedColor   = lipgloss.Color("#9CA3AF") // Gray
	TextColor    = lipgloss.Color("#F9FAFB") // Near-white
	BorderColor  = lipgloss.Color("#6B7280") // Gray border
)

// Common styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(GreenColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(AmberColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(RedColor)

	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor)

	HelpKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(GreenColor)

	HelpBarStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			MarginTop(1)

	ContentBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)
)

// RiskStyle returns the display style for a risk tier.
func RiskStyle(tier plan.RiskLevel) lipgloss.Style {
	switch tier {
	case plan.RiskLow:
		return lipgloss.NewStyle().Foreground(GreenColor)
	case plan.RiskMedium:
		return lipgloss.NewStyle().Foreground(YellowColor)
	case plan.RiskHigh:
		return lipgloss.NewStyle().Foreground(AmberColor)
	case plan.RiskCritical:
		return lipgloss.NewStyle().Bold(true).Foreground(RedColor)
	default:
		return MutedStyle
	}
}

// StatusStyle returns the display style for a plan status.
func StatusStyle(status plan.Status) lipgloss.Style {
	switch status {
	case plan.StatusPending:
		return lipgloss.NewStyle().Foreground(YellowColor)
	case plan.StatusApproved, plan.StatusCompleted:
		return lipgloss.NewStyle().Foreground(GreenColor)
	case plan.StatusExecuting:
		return lipgloss.NewStyle().Foreground(BlueColor)
	case plan.StatusRejected, plan.StatusFailed:
		return lipgloss.NewStyle().Foreground(RedColor)
	case plan.StatusRolledBack:
		return lipgloss.NewStyle().Foreground(AmberColor)
	default:
		return MutedStyle
	}
}

// ModeStyle returns the display style for an execution mode name.
func ModeStyle(name string) lipgloss.Style {
	switch name {
	case "safe_explore":
		return lipgloss.NewStyle().Foreground(GreenColor)
	case "propose":
		return lipgloss.NewStyle().Foreground(YellowColor)
	case "execute":
		return lipgloss.NewStyle().Bold(true).Foreground(RedColor)
	default:
		return MutedStyle
	}
}
