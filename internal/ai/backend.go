// Package ai holds the model and retrieval collaborators used during plan
// generation. A Backend turns a task description into raw step proposals;
// a Retriever finds workspace context to ground those proposals. Everything
// a backend returns is untrusted until safety validation has seen it.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/Iron-Ham/planward/internal/config"
	"github.com/Iron-Ham/planward/internal/logging"
)

// BackendName identifies a supported model backend.
type BackendName string

const (
	BackendOllama BackendName = "ollama"
	BackendStatic BackendName = "static"
)

// ProposedStep is the raw step unit produced by a model backend. Nothing in
// it has been classified or validated; the planner drops any proposal that
// does not survive safety checks.
type ProposedStep struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Path        string `json:"path,omitempty"`
	Content     string `json:"content,omitempty"`
	Command     string `json:"command,omitempty"`
}

// Backend produces step proposals for a task description.
type Backend interface {
	Name() BackendName
	// ProposeSteps asks the model for an ordered list of steps implementing
	// the described task. Context snippets, when present, are included in
	// the prompt verbatim.
	ProposeSteps(ctx context.Context, description string, snippets []string) ([]ProposedStep, error)
}

// ErrUnknownBackend is returned when the configured backend is unsupported.
var ErrUnknownBackend = fmt.Errorf("unknown AI backend")

// NewFromConfig builds a Backend from configuration.
func NewFromConfig(cfg *config.Config, logger *logging.Logger) (Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing config")
	}

	switch strings.ToLower(cfg.Model.Backend) {
	case string(BackendOllama), "":
		return NewOllamaBackend(cfg.Model, logger), nil
	case string(BackendStatic):
		return NewStaticBackend(nil), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Model.Backend)
	}
}

// DefaultBackend returns an Ollama backend with default settings.
func DefaultBackend() Backend {
	return NewOllamaBackend(config.Default().Model, nil)
}
