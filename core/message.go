package core

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Role identifies the conversational origin of a message.
type Role string

const (
	// RoleSystem marks system prompt fragments.
	RoleSystem Role = "system"
	// RoleHuman marks user-authored turns.
	RoleHuman Role = "human"
	// RoleAI marks model-produced turns.
	RoleAI Role = "ai"
	// RoleTool marks tool/function results.
	RoleTool Role = "tool"
)

// ToolCall describes a function invocation requested by a model. Unified
// across providers so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string `json:"id,omitempty"`        // Optional stable id (correlates call and result)
	Name      string `json:"name"`                // Tool / function name
	Arguments string `json:"arguments,omitempty"` // Serialized JSON argument payload
}

// Args unmarshals the serialized argument payload into a generic map.
func (tc ToolCall) Args() (map[string]any, error) {
	if tc.Arguments == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// Message is the unit of conversational content flowing through a network.
// A node's resolved inputs are messages and its output is a single message.
// After a node transitions to invoked its output message should be treated
// as immutable (see network.Node).
type Message struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Name      string         `json:"name,omitempty"`       // Optional author hint (agent/tool name)
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"` // Pending function call requests
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewSystemMessage constructs a system prompt fragment.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewHumanMessage constructs a user turn.
func NewHumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

// NewAIMessage constructs a model turn.
func NewAIMessage(content string) Message {
	return Message{Role: RoleAI, Content: content}
}

// NewToolMessage constructs a tool result turn correlated to a call id.
func NewToolMessage(content, callID string) Message {
	return Message{Role: RoleTool, Content: content, Metadata: map[string]any{"tool_call_id": callID}}
}

// FirstToolCall returns the first pending tool call, if any.
func (m Message) FirstToolCall() (ToolCall, bool) {
	if len(m.ToolCalls) == 0 {
		return ToolCall{}, false
	}
	return m.ToolCalls[0], true
}

// NewID generates a process-unique identifier used for nodes, networks and
// function call correlation.
func NewID() string { return uuid.NewString() }
