package network

import (
	"context"
	"fmt"

	"github.com/lcagent/lcagent/core"
)

// TypeNetworkNode is the factory type name for sub-network nodes.
const TypeNetworkNode = "NetworkNode"

// NetworkNode is a node whose computation is an internal sub-network: the
// node's invocation evaluates the sub-network to fixpoint and reports its
// result, giving agents that are themselves multi-step pipelines. Nesting
// depth is unbounded.
type NetworkNode struct {
	BaseNode
	subnet *Network
}

// NewNetworkNode wraps a network as a node.
func NewNetworkNode(name string, subnet *Network) *NetworkNode {
	n := &NetworkNode{BaseNode: NewBaseNode(name), subnet: subnet}
	return n
}

// SubNetwork returns the internal network.
func (n *NetworkNode) SubNetwork() *Network { return n.subnet }

// TypeName implements Node.
func (n *NetworkNode) TypeName() string { return TypeNetworkNode }

// Invoke evaluates the sub-network. The node's resolved inputs are handed to
// the sub-network's unevaluated root human-style nodes via declared inputs,
// so the inner pipeline sees the outer conversation state.
func (n *NetworkNode) Invoke(ctx context.Context, net *Network) (*core.Message, error) {
	n.seedSubnet()

	out, err := n.subnet.Invoke(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = &core.Message{Role: core.RoleAI}
	}

	n.Complete(out)
	return out, nil
}

// Stream evaluates the sub-network in streaming mode, forwarding inner chunks
// unchanged: each chunk keeps the id of the inner node that produced it, so
// downstream consumers can detect agent switches mid-stream. Separators
// between inner nodes are inserted by the sub-network itself.
func (n *NetworkNode) Stream(ctx context.Context, net *Network) (<-chan core.Chunk, <-chan error) {
	out := make(chan core.Chunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		n.seedSubnet()

		chunks, errs := n.subnet.Stream(ctx)
		for chunk := range chunks {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- chunk:
			}
		}
		if err := <-errs; err != nil {
			errCh <- err
			return
		}

		result := n.subnet.Outputs()
		if result == nil {
			result = &core.Message{Role: core.RoleAI}
		}
		n.Complete(result)
	}()

	return out, errCh
}

// seedSubnet forwards the node's resolved inputs to unevaluated roots of the
// sub-network that declare no inputs of their own.
func (n *NetworkNode) seedSubnet() {
	inherited := ResolveInputs(n)
	if len(inherited) == 0 {
		return
	}
	for _, inner := range n.subnet.Nodes() {
		if inner.Invoked() || len(inner.Parents()) > 0 || len(inner.Inputs()) > 0 {
			continue
		}
		for _, msg := range inherited {
			inner.AppendInput(msg)
		}
	}
}

// Snapshot implements Node; the sub-network's full structural snapshot rides
// in the Extra payload.
func (n *NetworkNode) Snapshot() NodeState {
	st := n.BaseState(n.TypeName())
	st.Extra = map[string]any{"network": n.subnet.Snapshot()}
	return st
}

// ApplyState implements Node, rebuilding the sub-network through the factory.
func (n *NetworkNode) ApplyState(st NodeState, factory *NodeFactory) error {
	if err := n.ApplyBaseState(st); err != nil {
		return err
	}

	raw, ok := st.Extra["network"]
	if !ok {
		return fmt.Errorf("network node %s: missing sub-network snapshot", st.ID)
	}
	data, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("network node %s: malformed sub-network snapshot %T", st.ID, raw)
	}

	subnet, err := Restore(data, factory)
	if err != nil {
		return fmt.Errorf("network node %s: %w", st.ID, err)
	}
	n.subnet = subnet

	return nil
}
