package plan

import (
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/planward/internal/errors"
)

func TestNew(t *testing.T) {
	steps := []Step{
		NewCreateFile("add a", "a.txt", "a"),
		NewCommand("run tests", "go test ./..."),
	}
	steps[0].RiskTier = RiskLow
	steps[1].RiskTier = RiskHigh

	p := New("add a file and test", steps)

	if p.Status != StatusPending {
		t.Errorf("Status = %q, want %q", p.Status, StatusPending)
	}
	if len(p.ID) != 8 {
		t.Errorf("ID = %q, want 8 hex characters", p.ID)
	}
	if p.RiskLevel != RiskHigh {
		t.Errorf("RiskLevel = %q, want %q", p.RiskLevel, RiskHigh)
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
	if p.Execution != nil {
		t.Error("new plan should have no execution metadata")
	}
}

func TestComputeRiskLevel(t *testing.T) {
	t.Run("takes the maximum tier", func(t *testing.T) {
		p := &Plan{Steps: []Step{
			{Type: StepCreateFile, RiskTier: RiskLow},
			{Type: StepExecuteCommand, RiskTier: RiskHigh},
			{Type: StepModifyFile, RiskTier: RiskMedium},
		}}
		if got := p.ComputeRiskLevel(); got != RiskHigh {
			t.Errorf("ComputeRiskLevel() = %q, want %q", got, RiskHigh)
		}
	})

	t.Run("critical wins", func(t *testing.T) {
		p := &Plan{Steps: []Step{
			{Type: StepCreateFile, RiskTier: RiskCritical},
			{Type: StepCreateFile, RiskTier: RiskLow},
		}}
		if got := p.ComputeRiskLevel(); got != RiskCritical {
			t.Errorf("ComputeRiskLevel() = %q, want %q", got, RiskCritical)
		}
	})

	t.Run("no steps means low", func(t *testing.T) {
		p := &Plan{}
		if got := p.ComputeRiskLevel(); got != RiskLow {
			t.Errorf("ComputeRiskLevel() = %q, want %q", got, RiskLow)
		}
	})

	t.Run("untiered steps are ignored", func(t *testing.T) {
		p := &Plan{Steps: []Step{
			{Type: StepCreateFile},
			{Type: StepModifyFile, RiskTier: RiskMedium},
		}}
		if got := p.ComputeRiskLevel(); got != RiskMedium {
			t.Errorf("ComputeRiskLevel() = %q, want %q", got, RiskMedium)
		}
	})
}

func TestRequiresBackup(t *testing.T) {
	tests := []struct {
		name  string
		steps []Step
		want  bool
	}{
		{"create only", []Step{NewCreateFile("", "a.txt", "x")}, false},
		{"command only", []Step{NewCommand("", "make")}, false},
		{"with modify", []Step{NewCreateFile("", "a.txt", "x"), NewModifyFile("", "b.txt", "y")}, true},
		{"with delete", []Step{NewDeleteFile("", "c.txt")}, true},
		{"empty", nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &Plan{Steps: tc.steps}
			if got := p.RequiresBackup(); got != tc.want {
				t.Errorf("RequiresBackup() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPlanValidate(t *testing.T) {
	valid := func() *Plan {
		return New("do something", []Step{NewCreateFile("add", "a.txt", "x")})
	}

	t.Run("valid plan passes", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	t.Run("no steps", func(t *testing.T) {
		p := valid()
		p.Steps = nil
		err := p.Validate()
		if err == nil {
			t.Fatal("plan with no steps passed validation")
		}
		if !errors.Is(err, errors.ErrPlanInvalid) {
			t.Errorf("error = %v, want ErrPlanInvalid", err)
		}
	})

	t.Run("empty description", func(t *testing.T) {
		p := valid()
		p.Description = ""
		if err := p.Validate(); err == nil {
			t.Error("plan with empty description passed validation")
		}
	})

	t.Run("empty id", func(t *testing.T) {
		p := valid()
		p.ID = ""
		if err := p.Validate(); err == nil {
			t.Error("plan with empty ID passed validation")
		}
	})

	t.Run("invalid step reports its index", func(t *testing.T) {
		p := valid()
		p.Steps = append(p.Steps, Step{Type: StepExecuteCommand})
		err := p.Validate()
		if err == nil {
			t.Fatal("plan with invalid step passed validation")
		}
		if !strings.Contains(err.Error(), "step 1") {
			t.Errorf("error %q does not name the failing step", err.Error())
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		p := valid()
		p.Status = Status("queued")
		if err := p.Validate(); err == nil {
			t.Error("plan with unknown status passed validation")
		}
	})
}

func TestGenerateID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateID()
		if len(id) != 8 {
			t.Fatalf("GenerateID() = %q, want 8 characters", id)
		}
		for _, c := range id {
			if !strings.ContainsRune("0123456789abcdef", c) {
				t.Fatalf("GenerateID() = %q contains non-hex character %q", id, c)
			}
		}
		if seen[id] {
			t.Fatalf("GenerateID() produced duplicate %q", id)
		}
		seen[id] = true
	}
}

func TestStepResultTimestamps(t *testing.T) {
	start := time.Now().UTC()
	r := StepResult{Index: 0, Outcome: OutcomeApplied, StartedAt: start, FinishedAt: start.Add(50 * time.Millisecond)}

	if r.FinishedAt.Before(r.StartedAt) {
		t.Error("FinishedAt before StartedAt")
	}
	if r.Outcome.String() != "applied" {
		t.Errorf("Outcome.String() = %q, want %q", r.Outcome.String(), "applied")
	}
}
