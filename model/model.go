package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/lcagent/lcagent/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset
// expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by nodes.
type Request struct {
	Messages []core.Message   `json:"messages"` // Resolved conversation history, oldest first
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Stream   bool             `json:"stream,omitempty"`
}

// Response is a (partial or final) event emitted by a generating model.
type Response struct {
	Partial      bool         `json:"partial"` // Indicates if this is a partial response
	Message      core.Message `json:"message"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
}

// Info contains metadata about a chat model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// ChatModel is the minimal interface required by nodes to drive generation.
// Generate returns a response channel (partial responses when req.Stream,
// always terminated by one final response) and an error channel delivering
// at most one terminal error; both close when generation completes.
type ChatModel interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory ChatModel useful for tests and
// examples. Responses resolve in order: scripted queue first, then the
// canned prompt map, then a deterministic echo.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	script    []core.Message
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      "mock",
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Script enqueues completions returned in order on successive calls,
// regardless of prompt. Useful for driving multi-round router flows.
func (m *MockModel) Script(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range responses {
		m.script = append(m.script, core.NewAIMessage(r))
	}
}

// ScriptMessage enqueues a full message (e.g. one carrying tool calls).
func (m *MockModel) ScriptMessage(msg core.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, msg)
}

func (m *MockModel) next(prompt string) core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.script) > 0 {
		msg := m.script[0]
		m.script = m.script[1:]
		return msg
	}
	if full, ok := m.responses[prompt]; ok {
		return core.NewAIMessage(full)
	}
	return core.NewAIMessage(fmt.Sprintf("Mock response to: %s", prompt))
}

// Generate implements ChatModel; emits optional streaming char chunks then
// the final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}

		prompt := req.Messages[len(req.Messages)-1].Content
		final := m.next(prompt)

		if req.Stream {
			for _, r := range final.Content {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Message: core.Message{Role: core.RoleAI, Content: string(r)},
				}:
				}
			}
		}

		respCh <- Response{
			Partial:      false,
			Message:      final,
			FinishReason: "stop",
		}
	}()

	return respCh, errCh
}

// Info implements ChatModel.
func (m *MockModel) Info() Info { return m.info }
