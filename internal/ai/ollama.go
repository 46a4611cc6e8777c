package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"

	"github.com/Iron-Ham/planward/internal/config"
	"github.com/Iron-Ham/planward/internal/errors"
	"github.com/Iron-Ham/planward/internal/logging"
)

// fallbackModel is used when the configured model is not installed but this
// one is.
const fallbackModel = "tinyllama:latest"

// maxResponseBytes caps how much of a chat response is read. Small local
// models can run away; anything past this is not a step list.
const maxResponseBytes = 8 << 20

// systemPrompt pins the model to a bare JSON step array. Everything else in
// the response is stripped before parsing, but the instruction keeps small
// models from burying the array in prose.
const systemPrompt = `You are a careful planning assistant. Respond with a JSON array of step objects and nothing else: no prose, no markdown fences.

Each step object has these fields:
  "type": one of "create_file", "modify_file", "delete_file", "execute_command"
  "description": one sentence saying what the step does
  "path": target file path, required for file steps
  "content": full file content, required for create_file and modify_file
  "command": shell command, required for execute_command

Rules:
- Use paths relative to the working directory.
- Prefer file operations over shell commands.
- Keep the plan minimal; include only steps the task needs.`

// userPromptTemplate renders the task and any retrieved context snippets.
var userPromptTemplate = template.Must(template.New("propose").Parse(`Task: {{.Description}}
{{- if .Snippets}}

Relevant context from the working directory:
{{- range .Snippets}}
---
{{.}}
{{- end}}
---
{{- end}}

Produce the JSON step array now.`))

// OllamaBackend proposes steps by calling a local Ollama server's chat API.
type OllamaBackend struct {
	host        string
	model       string
	temperature float64
	client      *http.Client
	logger      *logging.Logger
}

// NewOllamaBackend creates an Ollama backend from model configuration.
// A nil logger degrades to a no-op logger.
func NewOllamaBackend(cfg config.ModelConfig, logger *logging.Logger) *OllamaBackend {
	host := strings.TrimSuffix(cfg.Host, "/")
	if host == "" {
		host = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = fallbackModel
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &OllamaBackend{
		host:        host,
		model:       model,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: cfg.Timeout()},
		logger:      logger.WithComponent("ollama"),
	}
}

// Name identifies this backend.
func (o *OllamaBackend) Name() BackendName { return BackendOllama }

// Model returns the model the backend will ask for. VerifyModel may change
// it to the fallback.
func (o *OllamaBackend) Model() string { return o.model }

// ----------------------------------------------------------------------------
// Chat API wire types
// ----------------------------------------------------------------------------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// ----------------------------------------------------------------------------
// Operations
// ----------------------------------------------------------------------------

// ProposeSteps asks the model for a step list. An unreachable server, a
// non-200 response, or output that does not contain a step array all wrap
// errors.ErrModelUnavailable.
func (o *OllamaBackend) ProposeSteps(ctx context.Context, description string, snippets []string) ([]ProposedStep, error) {
	prompt, err := renderUserPrompt(description, snippets)
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	reqBody := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream:  false,
		Options: chatOptions{Temperature: o.temperature},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	o.logger.Debug("requesting step proposals", "model", o.model, "prompt_bytes", len(prompt))

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrModelUnavailable, "ollama at %s: %v", o.host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrModelUnavailable, "read chat response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrModelUnavailable, "ollama returned HTTP %d: %s", resp.StatusCode, firstLine(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrapf(errors.ErrModelUnavailable, "malformed chat response: %v", err)
	}

	steps, err := extractSteps(parsed.Message.Content)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrModelUnavailable, "model output is not a step list: %v", err)
	}

	o.logger.Debug("received step proposals", "count", len(steps))
	return steps, nil
}

// VerifyModel checks that the configured model is installed on the server.
// A missing model falls back to the default when that one is installed. A
// failure to list models is only logged: the chat call surfaces real
// connectivity problems on its own. Call before the first ProposeSteps.
func (o *OllamaBackend) VerifyModel(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("build tags request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		o.logger.Warn("could not list installed models", "error", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		o.logger.Warn("could not list installed models", "status", resp.StatusCode)
		return nil
	}

	var tags tagsResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&tags); err != nil {
		o.logger.Warn("could not parse installed model list", "error", err)
		return nil
	}

	installed := make(map[string]bool, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name != "" {
			installed[m.Name] = true
		}
		if m.Model != "" {
			installed[m.Model] = true
		}
	}

	if installed[o.model] {
		return nil
	}
	if installed[fallbackModel] {
		o.logger.Warn("configured model not installed, using fallback",
			"model", o.model, "fallback", fallbackModel)
		o.model = fallbackModel
		return nil
	}

	name, _, _ := strings.Cut(o.model, ":")
	return errors.Wrapf(errors.ErrModelUnavailable,
		"model %s is not installed (try: ollama pull %s)", o.model, name)
}

// ----------------------------------------------------------------------------
// Prompt rendering and response parsing
// ----------------------------------------------------------------------------

func renderUserPrompt(description string, snippets []string) (string, error) {
	var sb strings.Builder
	err := userPromptTemplate.Execute(&sb, struct {
		Description string
		Snippets    []string
	}{Description: description, Snippets: snippets})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// extractSteps pulls the JSON step array out of model output. Small models
// wrap the array in fences or prose no matter what the prompt says, so this
// strips fenced blocks and then takes everything between the first '[' and
// the last ']'.
func extractSteps(content string) ([]ProposedStep, error) {
	text := stripFences(content)

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array in output")
	}

	var steps []ProposedStep
	if err := json.Unmarshal([]byte(text[start:end+1]), &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

// stripFences removes markdown code fence lines, keeping their contents.
func stripFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	var sb strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// firstLine truncates an error body for log-friendly messages.
func firstLine(body []byte) string {
	line := string(body)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if len(line) > 200 {
		line = line[:200]
	}
	return strings.TrimSpace(line)
}
