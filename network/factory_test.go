package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryCreateAppliesDefaults(t *testing.T) {
	f := NewNodeFactory()
	f.Register("StubNode", func() Node { return newStubNode("", "") }, map[string]any{"team": "qa"})

	n, ok := f.Create("StubNode")
	require.True(t, ok)
	assert.Equal(t, "qa", n.Metadata()["team"])

	_, ok = f.Create("Missing")
	assert.False(t, ok, "unknown type is absence, not an error")
}

func TestFactoryReferenceCounting(t *testing.T) {
	f := NewNodeFactory()
	ctor := func() Node { return newStubNode("first", "") }

	f.Register("StubNode", ctor, nil)
	// Re-registration keeps the original constructor and bumps the count.
	f.Register("StubNode", func() Node { return newStubNode("second", "") }, nil)

	n, ok := f.Create("StubNode")
	require.True(t, ok)
	assert.Equal(t, "first", n.Name())

	f.Unregister("StubNode")
	assert.True(t, f.Registered("StubNode"), "one reference still held")

	f.Unregister("StubNode")
	assert.False(t, f.Registered("StubNode"))

	// Unregistering an unknown name is a no-op.
	f.Unregister("StubNode")
	assert.Empty(t, f.Names())
}
