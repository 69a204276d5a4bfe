package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageConstructors(t *testing.T) {
	assert.Equal(t, RoleSystem, NewSystemMessage("s").Role)
	assert.Equal(t, RoleHuman, NewHumanMessage("h").Role)
	assert.Equal(t, RoleAI, NewAIMessage("a").Role)

	tool := NewToolMessage("4", "call-1")
	assert.Equal(t, RoleTool, tool.Role)
	assert.Equal(t, "4", tool.Content)
	assert.Equal(t, "call-1", tool.Metadata["tool_call_id"])
}

func TestToolCallArgs(t *testing.T) {
	tc := ToolCall{Name: "calculate", Arguments: `{"a": 2, "op": "add"}`}
	args, err := tc.Args()
	require.NoError(t, err)
	assert.Equal(t, 2.0, args["a"])
	assert.Equal(t, "add", args["op"])

	empty := ToolCall{Name: "noop"}
	args, err = empty.Args()
	require.NoError(t, err)
	assert.Empty(t, args)

	bad := ToolCall{Name: "broken", Arguments: "{"}
	_, err = bad.Args()
	assert.Error(t, err)
}

func TestFirstToolCall(t *testing.T) {
	msg := NewAIMessage("")
	_, ok := msg.FirstToolCall()
	assert.False(t, ok)

	msg.ToolCalls = []ToolCall{{Name: "first"}, {Name: "second"}}
	tc, ok := msg.FirstToolCall()
	require.True(t, ok)
	assert.Equal(t, "first", tc.Name)
}

func TestSeparatorChunk(t *testing.T) {
	c := NewSeparatorChunk("node-1")
	assert.True(t, c.Separator)
	assert.Equal(t, "\n", c.Content)
	assert.Equal(t, "node-1", c.NodeID)
}

func TestNewIDUnique(t *testing.T) {
	assert.NotEqual(t, NewID(), NewID())
}
