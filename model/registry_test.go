package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcagent/lcagent/core"
)

func TestRegistryReferenceCounting(t *testing.T) {
	r := NewRegistry()
	first := NewMockModel("gpt")
	second := NewMockModel("gpt")

	r.Register("gpt", first)
	r.Register("gpt", second) // refcount bump, original model kept

	got, ok := r.Get("gpt")
	require.True(t, ok)
	assert.Same(t, first, got)

	r.Unregister("gpt")
	_, ok = r.Get("gpt")
	assert.True(t, ok, "still referenced once")

	r.Unregister("gpt")
	_, ok = r.Get("gpt")
	assert.False(t, ok)
}

func TestRegistryUnregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Unregister("never-registered")
	_, ok := r.Get("never-registered")
	assert.False(t, ok)
}

func TestRegistryDefaultName(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.DefaultName())

	r.Register("first", NewMockModel("first"))
	r.Register("second", NewMockModel("second"))
	assert.Equal(t, "first", r.DefaultName())

	r.SetDefault("second")
	assert.Equal(t, "second", r.DefaultName())

	// Removing the default falls back to some surviving entry.
	r.Unregister("second")
	assert.Equal(t, "first", r.DefaultName())

	r.Unregister("first")
	assert.Empty(t, r.DefaultName())
}

func TestMockModelScriptOrder(t *testing.T) {
	m := NewMockModel("scripted")
	m.Script("one", "two")
	m.AddResponse("hello", "canned")

	ask := func(prompt string, stream bool) Response {
		t.Helper()
		respCh, errCh := m.Generate(context.Background(), Request{
			Messages: []core.Message{core.NewHumanMessage(prompt)},
			Stream:   stream,
		})
		var final Response
		for resp := range respCh {
			if !resp.Partial {
				final = resp
			}
		}
		require.NoError(t, <-errCh)
		return final
	}

	assert.Equal(t, "one", ask("hello", false).Message.Content)
	assert.Equal(t, "two", ask("hello", false).Message.Content)
	// Script drained: the canned prompt map takes over.
	assert.Equal(t, "canned", ask("hello", false).Message.Content)
	// Unknown prompt falls back to a deterministic echo.
	assert.Contains(t, ask("other", false).Message.Content, "other")
}

func TestMockModelStreamingPartials(t *testing.T) {
	m := NewMockModel("streamer")
	m.Script("abc")

	respCh, errCh := m.Generate(context.Background(), Request{
		Messages: []core.Message{core.NewHumanMessage("q")},
		Stream:   true,
	})

	var partials string
	var final *Response
	for resp := range respCh {
		if resp.Partial {
			partials += resp.Message.Content
			continue
		}
		r := resp
		final = &r
	}
	require.NoError(t, <-errCh)

	require.NotNil(t, final)
	assert.Equal(t, "abc", partials)
	assert.Equal(t, "abc", final.Message.Content)
	assert.Equal(t, "stop", final.FinishReason)
}

func TestMockModelNoMessagesFails(t *testing.T) {
	m := NewMockModel("empty")
	respCh, errCh := m.Generate(context.Background(), Request{})
	for range respCh {
	}
	assert.Error(t, <-errCh)
}
