package mode

import (
	"testing"

	"github.com/Iron-Ham/planward/internal/errors"
)

func TestModeString(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeSafeExplore, "safe_explore"},
		{ModePropose, "propose"},
		{ModeExecute, "execute"},
	}

	for _, tc := range tests {
		if got := tc.mode.String(); got != tc.want {
			t.Errorf("Mode(%q).String() = %q, want %q", tc.mode, got, tc.want)
		}
	}
}

func TestModeIsValid(t *testing.T) {
	tests := []struct {
		mode Mode
		want bool
	}{
		{ModeSafeExplore, true},
		{ModePropose, true},
		{ModeExecute, true},
		{Mode("chat"), false},
		{Mode(""), false},
		{Mode("SAFE_EXPLORE"), false},
	}

	for _, tc := range tests {
		if got := tc.mode.IsValid(); got != tc.want {
			t.Errorf("Mode(%q).IsValid() = %v, want %v", tc.mode, got, tc.want)
		}
	}
}

func TestModeDescription(t *testing.T) {
	for _, m := range All() {
		if m.Description() == "" {
			t.Errorf("Mode(%q).Description() is empty", m)
		}
	}

	if got := Mode("bogus").Description(); got != "unknown mode" {
		t.Errorf("unknown mode description = %q, want %q", got, "unknown mode")
	}
}

func TestAll(t *testing.T) {
	modes := All()

	want := []Mode{ModeSafeExplore, ModePropose, ModeExecute}
	if len(modes) != len(want) {
		t.Fatalf("All() returned %d modes, want %d", len(modes), len(want))
	}
	for i, m := range modes {
		if m != want[i] {
			t.Errorf("All()[%d] = %q, want %q", i, m, want[i])
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"safe_explore", ModeSafeExplore, false},
		{"safe-explore", ModeSafeExplore, false},
		{"SAFE_EXPLORE", ModeSafeExplore, false},
		{"safe", ModeSafeExplore, false},
		{"explore", ModeSafeExplore, false},
		{"propose", ModePropose, false},
		{"Propose", ModePropose, false},
		{"execute", ModeExecute, false},
		{"exec", ModeExecute, false},
		{"  execute  ", ModeExecute, false},
		{"chat", "", true},
		{"", "", true},
		{"yolo", "", true},
	}

	for _, tc := range tests {
		got, err := Parse(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("Parse(%q) expected error, got %q", tc.input, got)
				continue
			}
			if !errors.Is(err, errors.ErrInvalidMode) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidMode", tc.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
