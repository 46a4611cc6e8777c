package ai

import "context"

// StaticBackend returns a fixed proposal list. It backs tests and the
// "static" config backend, which is useful on machines with no model
// server: submitted tasks produce whatever steps were loaded into it.
type StaticBackend struct {
	Steps []ProposedStep
	Err   error
}

// NewStaticBackend creates a static backend returning the given proposals.
func NewStaticBackend(steps []ProposedStep) *StaticBackend {
	return &StaticBackend{Steps: steps}
}

// Name identifies this backend.
func (s *StaticBackend) Name() BackendName { return BackendStatic }

// ProposeSteps returns the canned proposals, or the canned error.
func (s *StaticBackend) ProposeSteps(_ context.Context, _ string, _ []string) ([]ProposedStep, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Steps, nil
}
