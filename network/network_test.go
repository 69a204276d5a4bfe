package network

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcagent/lcagent/core"
)

// stubNode is a minimal Node producing a fixed AI message, with an optional
// invoke override for fault injection.
type stubNode struct {
	BaseNode
	content  string
	invokeFn func(ctx context.Context, net *Network) (*core.Message, error)
	invoked  *int
}

func newStubNode(name, content string) *stubNode {
	return &stubNode{BaseNode: NewBaseNode(name), content: content}
}

func (s *stubNode) TypeName() string { return "StubNode" }

func (s *stubNode) Invoke(ctx context.Context, net *Network) (*core.Message, error) {
	if s.invoked != nil {
		*s.invoked++
	}
	if s.invokeFn != nil {
		return s.invokeFn(ctx, net)
	}
	msg := core.NewAIMessage(s.content)
	s.Complete(&msg)
	return s.Outputs(), nil
}

func (s *stubNode) Stream(ctx context.Context, net *Network) (<-chan core.Chunk, <-chan error) {
	return StreamFromInvoke(ctx, net, s)
}

func (s *stubNode) Snapshot() NodeState { return s.BaseState(s.TypeName()) }

// -------------------- Structure --------------------

func TestAddNodeLeafSemantics(t *testing.T) {
	net := New()

	a := net.AddNode(newStubNode("a", "A"))
	assert.Empty(t, a.Parents(), "first node becomes a root")

	b := net.AddNode(newStubNode("b", "B"))
	require.Len(t, b.Parents(), 1, "single leaf becomes the parent")
	assert.Equal(t, a.ID(), b.Parents()[0].ID())

	// Two leaves: a second root via explicit empty parent set.
	c := net.AddNodeAfter(newStubNode("c", "C"))
	assert.Empty(t, c.Parents())

	d := net.AddNode(newStubNode("d", "D"))
	assert.Empty(t, d.Parents(), "ambiguous leaves fall back to root")
}

func TestSortedNodesParentsFirst(t *testing.T) {
	net := New()
	a := net.AddNode(newStubNode("a", "A"))
	b := net.AddNodeAfter(newStubNode("b", "B"), a)
	c := net.AddNodeAfter(newStubNode("c", "C"), a)
	d := net.AddNodeAfter(newStubNode("d", "D"), b, c)

	ordered := net.SortedNodes()
	require.Len(t, ordered, 4)

	pos := map[string]int{}
	for i, n := range ordered {
		pos[n.ID()] = i
	}
	assert.Less(t, pos[a.ID()], pos[b.ID()])
	assert.Less(t, pos[a.ID()], pos[c.ID()])
	assert.Less(t, pos[b.ID()], pos[d.ID()])
	assert.Less(t, pos[c.ID()], pos[d.ID()])
}

func TestRemoveNodeSplicesParents(t *testing.T) {
	net := New()
	a := net.AddNode(newStubNode("a", "A"))
	b := net.AddNodeAfter(newStubNode("b", "B"), a)
	c := net.AddNodeAfter(newStubNode("c", "C"), b)

	require.True(t, net.RemoveNode(b))

	require.Len(t, c.Parents(), 1, "child re-parented onto removed node's parents")
	assert.Equal(t, a.ID(), c.Parents()[0].ID())
	assert.False(t, net.Contains(b))
}

func TestRemoveNodeDeduplicatesRewiredParents(t *testing.T) {
	net := New()
	a := net.AddNode(newStubNode("a", "A"))
	b := net.AddNodeAfter(newStubNode("b", "B"), a)
	// c already has a as a direct parent and b (whose parent is also a).
	c := net.AddNodeAfter(newStubNode("c", "C"), a, b)

	require.True(t, net.RemoveNode(b))

	require.Len(t, c.Parents(), 1, "a must not appear twice")
	assert.Equal(t, a.ID(), c.Parents()[0].ID())
}

func TestCrossNetworkParents(t *testing.T) {
	net1 := New()
	shared := net1.AddNode(newStubNode("shared", "S"))

	net2 := New()
	child := net2.AddNodeAfter(newStubNode("child", "C"), shared)

	require.Len(t, child.Parents(), 1)
	assert.False(t, net2.Contains(shared))

	ordered := net2.SortedNodes()
	require.Len(t, ordered, 1, "foreign parents never enter the ordering")
	assert.Equal(t, child.ID(), ordered[0].ID())

	// The foreign parent's output still resolves into the child's inputs.
	_, err := net1.Invoke(context.Background())
	require.NoError(t, err)
	msgs := ResolveInputs(child)
	require.Len(t, msgs, 1)
	assert.Equal(t, "S", msgs[0].Content)
}

// -------------------- Fixpoint evaluation --------------------

func TestInvokeEvaluatesChainOnce(t *testing.T) {
	net := New()
	count := 0
	for _, name := range []string{"a", "b", "c"} {
		n := newStubNode(name, name)
		n.invoked = &count
		net.AddNode(n)
	}

	out, err := net.Invoke(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "c", out.Content, "leaf output becomes the network output")
	assert.Equal(t, 3, count)

	// Second invoke finds no unevaluated nodes and keeps the output.
	out2, err := net.Invoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, "c", out2.Content)
}

// growOnce appends one follow-up node after the first evaluation it observes.
type growOnce struct {
	BaseModifier
	added bool
}

func (m *growOnce) OnPostInvoke(_ context.Context, net *Network, n Node) error {
	if m.added {
		return nil
	}
	m.added = true
	net.AddNodeAfter(newStubNode("grown", "GROWN"), n)
	return nil
}

func TestModifierGrowsGraphMidIteration(t *testing.T) {
	net := New()
	net.AddNode(newStubNode("seed", "SEED"))
	net.AddModifier(&growOnce{})

	out, err := net.Invoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "GROWN", out.Content)
	assert.Len(t, net.Nodes(), 2)
}

// growForever appends a follow-up after every evaluation; only the iteration
// ceiling stops it.
type growForever struct{ BaseModifier }

func (m *growForever) OnPostInvoke(_ context.Context, net *Network, n Node) error {
	net.AddNodeAfter(newStubNode("", "more"), n)
	return nil
}

func TestIterationCeilingStopsRunawayModifier(t *testing.T) {
	net := New(WithMaxIterations(5))
	net.AddNode(newStubNode("seed", "SEED"))
	net.AddModifier(&growForever{})

	_, err := net.Invoke(context.Background())
	require.NoError(t, err)

	invoked := 0
	for _, n := range net.Nodes() {
		if n.Invoked() {
			invoked++
		}
	}
	assert.Equal(t, 5, invoked)
}

// removePre removes a named node before it runs.
type removePre struct {
	BaseModifier
	target string
}

func (m *removePre) OnPreInvoke(_ context.Context, net *Network, n Node) error {
	if n.Name() == m.target {
		net.RemoveNode(n)
	}
	return nil
}

func TestPreInvokeRemovalSkipsNode(t *testing.T) {
	net := New()
	net.AddNode(newStubNode("a", "A"))
	net.AddNode(newStubNode("b", "B"))
	net.AddNode(newStubNode("c", "C"))
	net.AddModifier(&removePre{target: "b"})

	out, err := net.Invoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "C", out.Content)
	assert.Len(t, net.Nodes(), 2)
}

func TestNodeErrorAbortsInvoke(t *testing.T) {
	net := New()
	bad := newStubNode("bad", "")
	bad.invokeFn = func(context.Context, *Network) (*core.Message, error) {
		return nil, fmt.Errorf("model unavailable")
	}
	net.AddNode(bad)

	_, err := net.Invoke(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")
}

// -------------------- Modifier ordering --------------------

// orderRecorder appends its tag to a shared trace on begin.
type orderRecorder struct {
	BaseModifier
	tag   string
	trace *[]string
}

func (m *orderRecorder) OnBegin(context.Context, *Network) error {
	*m.trace = append(*m.trace, m.tag)
	return nil
}

func TestModifierPriorityOrdering(t *testing.T) {
	net := New()
	var trace []string

	net.AddModifier(&orderRecorder{tag: "second", trace: &trace}, func(o *ModifierOptions) { o.Priority = 1 })
	net.AddModifier(&orderRecorder{tag: "first", trace: &trace})
	net.AddModifier(&orderRecorder{tag: "third", trace: &trace}, func(o *ModifierOptions) { o.Priority = 2 })

	_, err := net.Invoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, trace)
}

// modifierAdder registers another modifier during its own begin hook.
type modifierAdder struct {
	BaseModifier
	trace *[]string
}

func (m *modifierAdder) OnBegin(_ context.Context, net *Network) error {
	*m.trace = append(*m.trace, "adder")
	net.AddModifier(&orderRecorder{tag: "late", trace: m.trace})
	return nil
}

func TestModifierAddedDuringRoundIsVisited(t *testing.T) {
	net := New()
	var trace []string
	net.AddModifier(&modifierAdder{trace: &trace})

	_, err := net.Invoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"adder", "late"}, trace, "late modifier runs within the same round")
}

// -------------------- Events --------------------

func TestEventCallbacks(t *testing.T) {
	net := New()
	var types []EventType
	net.OnEvent(EventAll, func(ev Event) { types = append(types, ev.Type) })

	a := net.AddNode(newStubNode("a", "A"))
	net.AddNodeAfter(newStubNode("b", "B"), a)

	assert.Equal(t,
		[]EventType{EventNodeAdded, EventNodeAdded, EventConnectionAdded},
		types)

	types = nil
	_, err := net.Invoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []EventType{EventNodeInvoked, EventNodeInvoked}, types)
}

func TestRemoveCallback(t *testing.T) {
	net := New()
	calls := 0
	id := net.OnEvent(EventNodeAdded, func(Event) { calls++ })

	net.AddNode(newStubNode("a", "A"))
	require.True(t, net.RemoveCallback(id))
	net.AddNode(newStubNode("b", "B"))

	assert.Equal(t, 1, calls)
	assert.False(t, net.RemoveCallback(id))
}
