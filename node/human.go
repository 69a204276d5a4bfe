package node

import (
	"context"
	"strings"

	"github.com/lcagent/lcagent/core"
	"github.com/lcagent/lcagent/network"
)

// TypeHuman is the factory type name for human input nodes.
const TypeHuman = "HumanNode"

// HumanNode carries a human conversation turn into the graph. It performs no
// computation: evaluation promotes the declared inputs to outputs so
// downstream nodes see the turn as resolved history.
type HumanNode struct {
	network.BaseNode
}

// NewHumanNode creates a human node holding the given turn text.
func NewHumanNode(content string, optFns ...func(o *Options)) *HumanNode {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	n := &HumanNode{BaseNode: network.NewBaseNode(opts.Name)}
	if content != "" {
		n.AppendInput(core.NewHumanMessage(content))
	}
	for k, v := range opts.Metadata {
		n.SetMeta(k, v)
	}
	return n
}

// TypeName returns the registered factory type name.
func (n *HumanNode) TypeName() string { return TypeHuman }

// Invoke promotes the declared inputs to the node's outputs.
func (n *HumanNode) Invoke(_ context.Context, _ *network.Network) (*core.Message, error) {
	inputs := n.Inputs()
	if len(inputs) == 0 {
		msg := core.NewHumanMessage("")
		n.Complete(&msg)
		return n.Outputs(), nil
	}

	if len(inputs) == 1 {
		msg := inputs[0]
		n.Complete(&msg)
		return n.Outputs(), nil
	}

	parts := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if in.Content != "" {
			parts = append(parts, in.Content)
		}
	}
	msg := core.NewHumanMessage(strings.Join(parts, "\n"))
	n.Complete(&msg)
	return n.Outputs(), nil
}

// Stream resolves the node without emitting chunks: echoing the user's own
// words back into the stream would duplicate what the caller already has.
func (n *HumanNode) Stream(ctx context.Context, net *network.Network) (<-chan core.Chunk, <-chan error) {
	out := make(chan core.Chunk)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		if _, err := n.Invoke(ctx, net); err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}

// Snapshot captures the node's declared fields for serialization.
func (n *HumanNode) Snapshot() network.NodeState {
	return n.BaseState(TypeHuman)
}
