package network

import (
	"context"
	"fmt"

	"github.com/lcagent/lcagent/core"
	"github.com/lcagent/lcagent/logging"
	"github.com/lcagent/lcagent/profiling"
)

// DefaultMaxIterations is the hard ceiling on node evaluations per Invoke or
// Stream call. It is the backstop against unbounded loops from misbehaving
// modifiers; well-behaved router and retry modifiers terminate long before.
const DefaultMaxIterations = 100

// Options configures a Network.
type Options struct {
	// Name is an optional human-readable label used in logs and profiling.
	Name string

	// ChatModelName is the default chat model for chat nodes without an
	// explicit per-node override.
	ChatModelName string

	// MaxIterations caps node evaluations per entry point call.
	// Defaults to DefaultMaxIterations.
	MaxIterations int

	// Logger receives scheduler diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Network owns a mutable collection of nodes and their parent edges, the
// ordered collection of modifiers, and the event callback registry, and
// implements the incremental fixpoint evaluation loop.
//
// Concurrency contract: a network instance is owned by the single logical
// task evaluating it. Other networks may run concurrently in their own tasks;
// sharing one network instance across tasks is not supported. The node list
// and the identity set are kept in sync by every structural mutation.
type Network struct {
	id            string
	name          string
	nodes         []Node
	nodeSet       map[string]Node
	modifiers     []*modifierEntry
	modSeq        int
	callbacks     map[EventType][]callbackEntry
	chatModelName string
	metadata      map[string]any
	outputs       *core.Message
	maxIterations int
	logger        logging.Logger

	// currentModifier names the modifier whose hook is presently running,
	// recorded onto nodes it adds.
	currentModifier string
}

// New constructs an empty network.
func New(optFns ...func(o *Options)) *Network {
	opts := Options{
		MaxIterations: DefaultMaxIterations,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}

	return &Network{
		id:            core.NewID(),
		name:          opts.Name,
		nodeSet:       map[string]Node{},
		callbacks:     map[EventType][]callbackEntry{},
		chatModelName: opts.ChatModelName,
		metadata:      map[string]any{},
		maxIterations: opts.MaxIterations,
		logger:        opts.Logger,
	}
}

// WithName sets the network's label.
func WithName(name string) func(o *Options) {
	return func(o *Options) { o.Name = name }
}

// WithChatModelName sets the network-wide default chat model.
func WithChatModelName(name string) func(o *Options) {
	return func(o *Options) { o.ChatModelName = name }
}

// WithMaxIterations overrides the evaluation ceiling.
func WithMaxIterations(n int) func(o *Options) {
	return func(o *Options) { o.MaxIterations = n }
}

// WithLogger sets the scheduler logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// ID returns the network's unique identifier.
func (net *Network) ID() string { return net.id }

// Name returns the network's label.
func (net *Network) Name() string { return net.name }

// ChatModelName returns the network-wide default chat model name.
func (net *Network) ChatModelName() string { return net.chatModelName }

// SetChatModelName sets the network-wide default chat model name.
func (net *Network) SetChatModelName(name string) { net.chatModelName = name }

// Metadata returns the network's free-form metadata mapping.
func (net *Network) Metadata() map[string]any { return net.metadata }

// Logger returns the network's logger.
func (net *Network) Logger() logging.Logger { return net.logger }

// Outputs returns the network-level result: the output of the last node
// invoked, or whatever a modifier explicitly promoted via SetOutputs. It is
// deliberately distinct from any single node's own output.
func (net *Network) Outputs() *core.Message { return net.outputs }

// SetOutputs overwrites the network-level result (result promotion).
func (net *Network) SetOutputs(msg *core.Message) { net.outputs = msg }

// Nodes returns the node list in insertion order. The returned slice is a
// copy; the nodes are not.
func (net *Network) Nodes() []Node {
	out := make([]Node, len(net.nodes))
	copy(out, net.nodes)
	return out
}

// Contains reports membership by node identity.
func (net *Network) Contains(n Node) bool {
	if n == nil {
		return false
	}
	_, ok := net.nodeSet[n.ID()]
	return ok
}

// AddNode attaches a detached node to the network with leaf semantics: if the
// network currently has exactly one leaf, the new node is parented to it;
// otherwise the node becomes a root. Returns the node for chaining.
func (net *Network) AddNode(n Node) Node {
	leaves := net.LeafNodes(false)
	if len(leaves) == 1 {
		return net.AddNodeAfter(n, leaves[0])
	}
	return net.AddNodeAfter(n)
}

// AddNodeAfter attaches a node with an explicit parent set. Parents are
// resolved by identity and need not belong to this network (cross-network
// linking is supported). With no parents the node is a root.
func (net *Network) AddNodeAfter(n Node, parents ...Node) Node {
	if net.Contains(n) {
		return n
	}

	for _, p := range parents {
		n.AddParent(p)
	}

	if net.currentModifier != "" {
		n.SetMeta(MetaAddedBy, net.currentModifier)
	}

	net.nodes = append(net.nodes, n)
	net.nodeSet[n.ID()] = n

	net.emit(EventNodeAdded, n, nil)
	for _, p := range parents {
		net.emit(EventConnectionAdded, n, map[string]any{"parent_id": p.ID()})
	}

	net.logger.Debug("network.node_added", "network", net.id, "node", nodeLabel(n), "parents", len(parents))

	return n
}

// RemoveNode splices a node out: every former child is re-parented onto the
// node's own parents, preserving chain connectivity, and the node leaves both
// the node list and the identity set.
func (net *Network) RemoveNode(n Node) bool {
	if !net.Contains(n) {
		return false
	}

	parents := n.Parents()
	for _, child := range net.Children(n) {
		rewired := make([]Node, 0, len(child.Parents())+len(parents)-1)
		for _, p := range child.Parents() {
			if p.ID() != n.ID() {
				rewired = append(rewired, p)
				continue
			}
			// Replace the removed node's slot with its parents, in order.
			for _, gp := range parents {
				duplicate := false
				for _, r := range rewired {
					if r.ID() == gp.ID() {
						duplicate = true
						break
					}
				}
				if !duplicate {
					rewired = append(rewired, gp)
				}
			}
		}
		child.SetParents(rewired)
		net.emit(EventConnectionRemoved, child, map[string]any{"parent_id": n.ID()})
	}

	for i, existing := range net.nodes {
		if existing.ID() == n.ID() {
			net.nodes = append(net.nodes[:i], net.nodes[i+1:]...)
			break
		}
	}
	delete(net.nodeSet, n.ID())

	net.emit(EventNodeRemoved, n, nil)
	net.logger.Debug("network.node_removed", "network", net.id, "node", nodeLabel(n))

	return true
}

// SetNodeMeta sets node metadata through the network, firing
// EventMetadataChanged.
func (net *Network) SetNodeMeta(n Node, key string, value any) {
	n.SetMeta(key, value)
	net.emit(EventMetadataChanged, n, map[string]any{"key": key})
}

// Children derives the nodes whose parent list contains n, in insertion
// order. Children are never stored; they are always computed.
func (net *Network) Children(n Node) []Node {
	var children []Node
	for _, candidate := range net.nodes {
		for _, p := range candidate.Parents() {
			if p.ID() == n.ID() {
				children = append(children, candidate)
				break
			}
		}
	}
	return children
}

// LeafNodes returns the nodes with no recorded children, in insertion order.
// With unevaluatedOnly, the result is further filtered to nodes not yet
// invoked.
func (net *Network) LeafNodes(unevaluatedOnly bool) []Node {
	hasChild := map[string]bool{}
	for _, n := range net.nodes {
		for _, p := range n.Parents() {
			hasChild[p.ID()] = true
		}
	}

	var leaves []Node
	for _, n := range net.nodes {
		if hasChild[n.ID()] {
			continue
		}
		if unevaluatedOnly && n.Invoked() {
			continue
		}
		leaves = append(leaves, n)
	}
	return leaves
}

// SortedNodes returns a topological ordering in which every node appears
// after all of its parents: depth-first from the leaves, recursing into
// parents before appending self. This ordering, not insertion order, is the
// execution order. It is recomputed every scheduler pass because modifiers
// may have mutated the graph since the last pass.
func (net *Network) SortedNodes() []Node {
	visited := map[string]bool{}
	ordered := make([]Node, 0, len(net.nodes))

	var visit func(n Node)
	visit = func(n Node) {
		if visited[n.ID()] {
			return
		}
		visited[n.ID()] = true
		for _, p := range n.Parents() {
			visit(p)
		}
		// Cross-network parents participate in the walk but only owned
		// nodes appear in the ordering.
		if net.Contains(n) {
			ordered = append(ordered, n)
		}
	}

	for _, leaf := range net.LeafNodes(false) {
		visit(leaf)
	}

	return ordered
}

// Invoke evaluates the network to fixpoint and returns its result: begin
// hooks once, then repeated passes over the topologically sorted nodes
// (skipping invoked ones, letting modifiers react around each evaluation)
// until a full pass invokes nothing, then end hooks once. If no node was
// invoked at all, the previously recorded output is returned.
func (net *Network) Invoke(ctx context.Context) (*core.Message, error) {
	ctx = WithActive(ctx, net)

	frame := profiling.Begin(net.id, profiling.FrameNetwork, net.label())
	defer profiling.End(frame)

	if err := net.runModifiers(ctx, stageBegin, nil); err != nil {
		return nil, err
	}

	evaluated := 0

loop:
	for {
		invokedAny := false

		for _, n := range net.SortedNodes() {
			if n.Invoked() {
				continue
			}

			if err := net.runModifiers(ctx, stagePreInvoke, n); err != nil {
				return nil, err
			}
			// A pre-invoke hook may have removed or already resolved the node.
			if !net.Contains(n) || n.Invoked() {
				continue
			}

			nodeFrame := profiling.Begin(net.id, profiling.FrameNode, nodeLabel(n))
			out, err := n.Invoke(ctx, net)
			profiling.End(nodeFrame)

			if err != nil {
				return nil, fmt.Errorf("node %s: %w", nodeLabel(n), err)
			}

			net.outputs = out
			invokedAny = true
			evaluated++

			if err := net.runModifiers(ctx, stagePostInvoke, n); err != nil {
				return nil, err
			}
			net.emit(EventNodeInvoked, n, nil)

			if evaluated >= net.maxIterations {
				net.logger.Warn("network.iteration_ceiling", "network", net.id, "evaluated", evaluated)
				break loop
			}
		}

		if !invokedAny {
			break
		}
	}

	if err := net.runModifiers(ctx, stageEnd, nil); err != nil {
		return nil, err
	}

	return net.outputs, nil
}

// Stream evaluates the network like Invoke but yields output incrementally.
// Chunks preserve production order; a separator chunk is inserted exactly
// when the producing node changes across consecutive chunks, including
// switches between nodes of nested sub-networks. Per-chunk profiling is
// skipped for NetworkNode children to avoid double counting the inner
// network's own chunk frames.
func (net *Network) Stream(ctx context.Context) (<-chan core.Chunk, <-chan error) {
	out := make(chan core.Chunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		ctx := WithActive(ctx, net)

		frame := profiling.Begin(net.id, profiling.FrameNetwork, net.label())
		defer profiling.End(frame)

		if err := net.runModifiers(ctx, stageBegin, nil); err != nil {
			errCh <- err
			return
		}

		lastNodeID := ""
		evaluated := 0

	loop:
		for {
			invokedAny := false

			for _, n := range net.SortedNodes() {
				if n.Invoked() {
					continue
				}

				if err := net.runModifiers(ctx, stagePreInvoke, n); err != nil {
					errCh <- err
					return
				}
				if !net.Contains(n) || n.Invoked() {
					continue
				}

				last, err := net.streamNode(ctx, n, lastNodeID, out)
				if err != nil {
					errCh <- err
					return
				}
				lastNodeID = last

				net.outputs = n.Outputs()
				invokedAny = true
				evaluated++

				if err := net.runModifiers(ctx, stagePostInvoke, n); err != nil {
					errCh <- err
					return
				}
				net.emit(EventNodeInvoked, n, nil)

				if evaluated >= net.maxIterations {
					net.logger.Warn("network.iteration_ceiling", "network", net.id, "evaluated", evaluated)
					break loop
				}
			}

			if !invokedAny {
				break
			}
		}

		if err := net.runModifiers(ctx, stageEnd, nil); err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}

// streamNode drains one node's chunk stream into the network stream,
// inserting node-switch separators and recording per-chunk frames. It
// returns the id of the last producing node seen.
func (net *Network) streamNode(ctx context.Context, n Node, lastNodeID string, out chan<- core.Chunk) (string, error) {
	// Inner chunks of a sub-network are profiled by the sub-network itself.
	_, isSubNetwork := n.(*NetworkNode)

	nodeFrame := profiling.Begin(net.id, profiling.FrameNode, nodeLabel(n))
	defer profiling.End(nodeFrame)

	chunks, errs := n.Stream(ctx, net)

	for {
		var chunkFrame *profiling.Frame
		if !isSubNetwork {
			chunkFrame = profiling.Begin(net.id, profiling.FrameChunk, nodeLabel(n))
		}
		chunk, ok := <-chunks
		profiling.End(chunkFrame)
		if !ok {
			break
		}

		if chunk.Separator {
			// The producing sub-network already inserted this marker.
			if err := forwardChunk(ctx, out, chunk); err != nil {
				return lastNodeID, err
			}
			lastNodeID = chunk.NodeID
			continue
		}

		if lastNodeID != "" && chunk.NodeID != lastNodeID {
			if err := forwardChunk(ctx, out, core.NewSeparatorChunk(chunk.NodeID)); err != nil {
				return lastNodeID, err
			}
		}
		lastNodeID = chunk.NodeID

		if err := forwardChunk(ctx, out, chunk); err != nil {
			return lastNodeID, err
		}
	}

	if err := <-errs; err != nil {
		return lastNodeID, fmt.Errorf("node %s: %w", nodeLabel(n), err)
	}

	return lastNodeID, nil
}

func forwardChunk(ctx context.Context, out chan<- core.Chunk, chunk core.Chunk) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- chunk:
		return nil
	}
}

func (net *Network) label() string {
	if net.name != "" {
		return net.name
	}
	return net.id
}

func nodeLabel(n Node) string {
	if n.Name() != "" {
		return n.Name()
	}
	return n.TypeName() + ":" + n.ID()[:8]
}
