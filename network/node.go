package network

import (
	"context"

	"github.com/lcagent/lcagent/core"
)

// Metadata keys interpreted by the scheduler itself. Routing-specific keys
// live in the route package.
const (
	// MetaContributeToHistory suppresses a node's output from input
	// resolution of downstream nodes when set to false. Used to keep
	// classification scaffolding out of replayed conversation history.
	MetaContributeToHistory = "contribute_to_history"

	// MetaAddedBy records which modifier structurally added a node.
	// Diagnostics only.
	MetaAddedBy = "added_by"

	// MetaChatModelName overrides the owning network's chat model for a
	// single node.
	MetaChatModelName = "chat_model_name"
)

// Node is a unit of work in the execution graph: an LLM turn, a tool call or
// a human input. Nodes are created detached, become owned by a network via
// AddNode, and are evaluated at most once by that network (guarded by the
// scheduler, not the node).
//
// A node holds an ordered list of parent references. Parents are shared, not
// owned: the same node may parent children in several networks (cross-network
// linking is a supported operation — parent resolution works by identity, not
// by list membership). Children are derived by the owning network, never
// stored.
//
// Outputs are immutable once the node transitions to invoked, except through
// an explicit SetOutputs by a modifier (result rewriting / promotion).
type Node interface {
	// ID returns the process-unique node identifier.
	ID() string

	// Name returns the optional human-readable name.
	Name() string

	// SetName sets the human-readable name.
	SetName(name string)

	// TypeName returns the registered type identifier used by the node
	// factory during deserialization.
	TypeName() string

	// Metadata returns the free-form metadata mapping. The returned map is
	// the live map; callers mutating it concurrently with evaluation are on
	// their own (see the single-task ownership contract in the package doc).
	Metadata() map[string]any

	// SetMeta sets a single metadata key.
	SetMeta(key string, value any)

	// Parents returns the ordered parent references.
	Parents() []Node

	// SetParents replaces the parent list.
	SetParents(parents []Node)

	// AddParent appends a parent reference.
	AddParent(p Node)

	// Inputs returns the node's own declared input messages (system prompt
	// fragments, the human turn text, ...). Ancestor outputs are resolved
	// separately via ResolveInputs.
	Inputs() []core.Message

	// AppendInput appends a declared input message.
	AppendInput(msg core.Message)

	// Outputs returns the produced message, nil until evaluated.
	Outputs() *core.Message

	// SetOutputs overwrites the produced message. Only modifiers performing
	// explicit result rewriting should call this on an invoked node.
	SetOutputs(msg *core.Message)

	// Invoked reports whether the node has been evaluated.
	Invoked() bool

	// MarkInvoked transitions the node to the invoked state.
	MarkInvoked()

	// Invoke resolves the node's inputs and computation, executes it, stores
	// the result in outputs, marks the node invoked and returns the result.
	// The computation is resolved lazily per invocation (the model or
	// function to run may depend on runtime state). Errors propagate to the
	// caller; retry decisions belong to the modifier layer.
	Invoke(ctx context.Context, net *Network) (*core.Message, error)

	// Stream is the chunked variant of Invoke. Chunks are strictly ordered
	// and their concatenated content equals the final outputs content. The
	// error channel delivers at most one terminal error after the chunk
	// channel closes.
	Stream(ctx context.Context, net *Network) (<-chan core.Chunk, <-chan error)

	// Snapshot captures the node's declared fields for serialization.
	// Parent edges are excluded; the owning network captures them as an
	// adjacency map.
	Snapshot() NodeState

	// ApplyState restores declared fields from a snapshot. The factory is
	// available for nodes that must reconstruct nested structure.
	ApplyState(st NodeState, factory *NodeFactory) error
}

// BaseNode supplies identity, linking, metadata and lifecycle state shared by
// all node implementations. Embed it and implement Invoke, Stream, TypeName
// and Snapshot to satisfy Node.
type BaseNode struct {
	id       string
	name     string
	metadata map[string]any
	parents  []Node
	inputs   []core.Message
	outputs  *core.Message
	invoked  bool
}

// NewBaseNode constructs a detached BaseNode with a fresh id.
func NewBaseNode(name string) BaseNode {
	return BaseNode{
		id:       core.NewID(),
		name:     name,
		metadata: map[string]any{},
	}
}

// ID returns the process-unique node identifier.
func (b *BaseNode) ID() string { return b.id }

// Name returns the optional human-readable name.
func (b *BaseNode) Name() string { return b.name }

// SetName sets the human-readable name.
func (b *BaseNode) SetName(name string) { b.name = name }

// Metadata returns the live metadata mapping.
func (b *BaseNode) Metadata() map[string]any { return b.metadata }

// SetMeta sets a single metadata key.
func (b *BaseNode) SetMeta(key string, value any) {
	if b.metadata == nil {
		b.metadata = map[string]any{}
	}
	b.metadata[key] = value
}

// Parents returns the ordered parent references.
func (b *BaseNode) Parents() []Node { return b.parents }

// SetParents replaces the parent list.
func (b *BaseNode) SetParents(parents []Node) { b.parents = parents }

// AddParent appends a parent reference, ignoring duplicates by identity.
func (b *BaseNode) AddParent(p Node) {
	for _, existing := range b.parents {
		if existing.ID() == p.ID() {
			return
		}
	}
	b.parents = append(b.parents, p)
}

// Inputs returns the node's own declared input messages.
func (b *BaseNode) Inputs() []core.Message { return b.inputs }

// AppendInput appends a declared input message.
func (b *BaseNode) AppendInput(msg core.Message) { b.inputs = append(b.inputs, msg) }

// Outputs returns the produced message, nil until evaluated.
func (b *BaseNode) Outputs() *core.Message { return b.outputs }

// SetOutputs overwrites the produced message.
func (b *BaseNode) SetOutputs(msg *core.Message) { b.outputs = msg }

// Invoked reports whether the node has been evaluated.
func (b *BaseNode) Invoked() bool { return b.invoked }

// MarkInvoked transitions the node to the invoked state.
func (b *BaseNode) MarkInvoked() { b.invoked = true }

// Complete stores the result and marks the node invoked. Node
// implementations call this at the end of a successful Invoke or Stream.
func (b *BaseNode) Complete(msg *core.Message) { b.outputs = msg; b.invoked = true }

// ContributesToHistory reports whether this node's output participates in
// downstream input resolution. Absent metadata means true.
func (b *BaseNode) ContributesToHistory() bool {
	if v, ok := b.metadata[MetaContributeToHistory]; ok {
		if contribute, ok := v.(bool); ok {
			return contribute
		}
	}
	return true
}

// ResolveInputs assembles the concrete message list a node computes over:
// the outputs of all its ancestors (parent-first, depth-first, deduplicated
// by identity, skipping nodes marked contribute_to_history=false) followed by
// the node's own declared inputs. The walk follows parent references directly
// so cross-network parents participate.
func ResolveInputs(n Node) []core.Message {
	visited := map[string]bool{}
	var msgs []core.Message

	var visit func(cur Node)
	visit = func(cur Node) {
		if visited[cur.ID()] {
			return
		}
		visited[cur.ID()] = true
		for _, p := range cur.Parents() {
			visit(p)
		}
		if cur.ID() == n.ID() {
			return
		}
		if !contributesToHistory(cur) {
			return
		}
		if out := cur.Outputs(); out != nil {
			msgs = append(msgs, *out)
			return
		}
		msgs = append(msgs, cur.Inputs()...)
	}
	visit(n)

	return append(msgs, n.Inputs()...)
}

func contributesToHistory(n Node) bool {
	if v, ok := n.Metadata()[MetaContributeToHistory]; ok {
		if contribute, ok := v.(bool); ok {
			return contribute
		}
	}
	return true
}

// StreamFromInvoke adapts a node whose computation is not incrementally
// producible into the streaming contract: one content chunk followed by
// channel close. Used by human and function nodes.
func StreamFromInvoke(ctx context.Context, net *Network, n Node) (<-chan core.Chunk, <-chan error) {
	out := make(chan core.Chunk, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		msg, err := n.Invoke(ctx, net)
		if err != nil {
			errCh <- err
			return
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case out <- core.Chunk{NodeID: n.ID(), Content: msg.Content, Role: msg.Role, Final: true}:
		}
	}()

	return out, errCh
}
