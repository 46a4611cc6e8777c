package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/planward/internal/plan"
	"github.com/Iron-Ham/planward/internal/util"
)

// Decision is the outcome of an interactive review session.
type Decision int

const (
	// DecisionNone means the reviewer quit without deciding.
	DecisionNone Decision = iota

	// DecisionApprove means the reviewer approved the plan.
	DecisionApprove

	// DecisionReject means the reviewer rejected the plan.
	DecisionReject
)

// ReviewModel is the bubbletea model for reviewing a pending plan. It
// only collects a decision; persisting the status change and writing the
// audit entry stay with the caller.
type ReviewModel struct {
	plan   *plan.Plan
	cursor int
	width  int
	height int

	rejecting bool
	reason    textinput.Model

	decision Decision
	note     string
	quitting bool
}

// NewReview creates a review model for the given plan.
func NewReview(p *plan.Plan) ReviewModel {
	ti := textinput.New()
	ti.Placeholder = "reason for rejection"
	ti.CharLimit = 200
	ti.Width = 60

	return ReviewModel{
		plan:   p,
		reason: ti,
	}
}

// Decision reports what the review concluded and, for rejections, the
// reviewer's note.
func (m ReviewModel) Decision() (Decision, string) {
	return m.decision, m.note
}

// Init implements tea.Model.
func (m ReviewModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.rejecting {
			return m.handleRejectKeypress(msg)
		}

		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < len(m.plan.Steps)-1 {
				m.cursor++
			}

		case "a", "y":
			m.decision = DecisionApprove
			m.quitting = true
			return m, tea.Quit

		case "r", "n":
			m.rejecting = true
			m.reason.Focus()
			return m, textinput.Blink
		}
	}

	return m, nil
}

func (m ReviewModel) handleRejectKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.rejecting = false
		m.reason.Blur()
		m.reason.SetValue("")
		return m, nil

	case "enter":
		m.decision = DecisionReject
		m.note = strings.TrimSpace(m.reason.Value())
		m.quitting = true
		return m, tea.Quit

	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.reason, cmd = m.reason.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m ReviewModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	p := m.plan

	b.WriteString(TitleStyle.Render(fmt.Sprintf("Review plan %s", p.ID)))
	b.WriteString("\n")
	b.WriteString(p.Description)
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render("overall risk: "))
	b.WriteString(RiskStyle(p.RiskLevel).Render(p.RiskLevel.String()))
	b.WriteString("\n\n")

	for i, step := range p.Steps {
		line := fmt.Sprintf("%2d. %-15s %s %s",
			i+1,
			step.Type.String(),
			RiskStyle(step.RiskTier).Render(fmt.Sprintf("%-8s", step.RiskTier.String())),
			step.Description,
		)
		if m.width > 0 {
			line = util.TruncateANSI(line, m.width-2)
		}
		if i == m.cursor {
			b.WriteString(SelectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	if len(p.Steps) > 0 {
		b.WriteString("\n")
		b.WriteString(ContentBoxStyle.Render(m.stepDetail(p.Steps[m.cursor])))
		b.WriteString("\n")
	}

	if len(p.DroppedSteps) > 0 {
		b.WriteString("\n")
		b.WriteString(WarningStyle.Render(fmt.Sprintf("%d proposed step(s) dropped by safety validation:", len(p.DroppedSteps))))
		b.WriteString("\n")
		for _, d := range p.DroppedSteps {
			b.WriteString(MutedStyle.Render(fmt.Sprintf("  - %s: %s", d.Description, d.Reason)))
			b.WriteString("\n")
		}
	}

	if m.rejecting {
		b.WriteString("\n")
		b.WriteString("Reject reason: ")
		b.WriteString(m.reason.View())
		b.WriteString("\n")
		b.WriteString(HelpBarStyle.Render(helpEntry("enter", "confirm") + "  " + helpEntry("esc", "cancel")))
		return b.String()
	}

	help := strings.Join([]string{
		helpEntry("a", "approve"),
		helpEntry("r", "reject"),
		helpEntry("j/k", "move"),
		helpEntry("q", "quit"),
	}, "  ")
	b.WriteString(HelpBarStyle.Render(help))

	return b.String()
}

func (m ReviewModel) stepDetail(step plan.Step) string {
	lines := []string{
		MutedStyle.Render("type:   ") + step.Type.String(),
		MutedStyle.Render("target: ") + step.Target(),
		MutedStyle.Render("tier:   ") + RiskStyle(step.RiskTier).Render(step.RiskTier.String()),
	}
	if step.Type == plan.StepCreateFile || step.Type == plan.StepModifyFile {
		lines = append(lines, MutedStyle.Render("bytes:  ")+fmt.Sprintf("%d", len(step.Content)))
	}
	if step.Diff != "" {
		lines = append(lines, "", step.Diff)
	}
	return strings.Join(lines, "\n")
}

func helpEntry(key, verb string) string {
	return HelpKeyStyle.Render(key) + MutedStyle.Render(" "+verb)
}

// RunReview opens the interactive review screen and blocks until the
// reviewer decides or quits. For rejections the returned note carries the
// reviewer's reason.
func RunReview(p *plan.Plan) (Decision, string, error) {
	prog := tea.NewProgram(NewReview(p), tea.WithAltScreen())
	final, err := prog.Run()
	if err != nil {
		return DecisionNone, "", err
	}
	model, ok := final.(ReviewModel)
	if !ok {
		return DecisionNone, "", fmt.Errorf("unexpected review model type %T", final)
	}
	decision, note := model.Decision()
	return decision, note, nil
}
