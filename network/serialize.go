package network

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/tiendc/go-deepcopy"

	"github.com/lcagent/lcagent/core"
)

// ConnectionsKey is the snapshot field holding the adjacency map: node
// position → list of parent node positions. Edges are captured by position,
// not identity, so they survive serialization.
const ConnectionsKey = "__connections__"

// NodeState is the serialized form of a node's declared fields. Parent edges
// are excluded (captured network-side in the adjacency map); node types with
// structure beyond the base fields ride it in Extra.
type NodeState struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Name     string         `json:"name,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Inputs   []core.Message `json:"inputs,omitempty"`
	Outputs  *core.Message  `json:"outputs,omitempty"`
	Invoked  bool           `json:"invoked"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// networkState mirrors the snapshot map for decoding.
type networkState struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	ChatModelName string         `json:"chat_model_name"`
	MaxIterations int            `json:"max_iterations"`
	Metadata      map[string]any `json:"metadata"`
	Outputs       *core.Message  `json:"outputs"`
	Nodes         []NodeState    `json:"nodes"`
	Connections   map[int][]int  `json:"__connections__"`
}

// BaseState captures the shared node fields into a NodeState. Metadata,
// inputs and outputs are deep-copied so later graph mutation cannot leak
// into a taken snapshot.
func (b *BaseNode) BaseState(typeName string) NodeState {
	st := NodeState{
		ID:      b.id,
		Type:    typeName,
		Name:    b.name,
		Invoked: b.invoked,
	}

	if len(b.metadata) > 0 {
		md := map[string]any{}
		if err := deepcopy.Copy(&md, b.metadata); err == nil {
			st.Metadata = md
		} else {
			st.Metadata = b.metadata
		}
	}
	if len(b.inputs) > 0 {
		inputs := make([]core.Message, 0, len(b.inputs))
		if err := deepcopy.Copy(&inputs, b.inputs); err == nil {
			st.Inputs = inputs
		} else {
			st.Inputs = b.inputs
		}
	}
	if b.outputs != nil {
		out := &core.Message{}
		if err := deepcopy.Copy(out, b.outputs); err == nil {
			st.Outputs = out
		} else {
			st.Outputs = b.outputs
		}
	}

	return st
}

// ApplyBaseState restores the shared node fields from a NodeState.
func (b *BaseNode) ApplyBaseState(st NodeState) error {
	if st.ID != "" {
		b.id = st.ID
	}
	b.name = st.Name
	b.invoked = st.Invoked
	b.metadata = st.Metadata
	if b.metadata == nil {
		b.metadata = map[string]any{}
	}
	b.inputs = st.Inputs
	b.outputs = st.Outputs
	return nil
}

// ApplyState implements the default restore for nodes without extra state.
func (b *BaseNode) ApplyState(st NodeState, _ *NodeFactory) error {
	return b.ApplyBaseState(st)
}

// Snapshot captures the network's full structure as a plain data form: node
// states in list order, the positional adjacency map, and the network-level
// scalar fields. Modifiers and event callbacks are runtime-only and are
// never part of the serialized surface.
func (net *Network) Snapshot() map[string]any {
	index := map[string]int{}
	for i, n := range net.nodes {
		index[n.ID()] = i
	}

	states := make([]NodeState, len(net.nodes))
	connections := map[int][]int{}
	for i, n := range net.nodes {
		states[i] = n.Snapshot()
		parents := []int{}
		for _, p := range n.Parents() {
			if pi, ok := index[p.ID()]; ok {
				parents = append(parents, pi)
			}
			// Cross-network parents have no position here and are dropped
			// from the serialized form.
		}
		if len(parents) > 0 {
			connections[i] = parents
		}
	}

	metadata := map[string]any{}
	if err := deepcopy.Copy(&metadata, net.metadata); err != nil {
		metadata = net.metadata
	}

	snap := map[string]any{
		"id":              net.id,
		"name":            net.name,
		"chat_model_name": net.chatModelName,
		"max_iterations":  net.maxIterations,
		"metadata":        metadata,
		"nodes":           states,
		ConnectionsKey:    connections,
	}
	if net.outputs != nil {
		out := &core.Message{}
		if err := deepcopy.Copy(out, net.outputs); err == nil {
			snap["outputs"] = out
		} else {
			snap["outputs"] = net.outputs
		}
	}

	return snap
}

// Restore rebuilds a network from a snapshot: nodes are reconstructed first
// through the factory, then adds are replayed in list order with the
// recorded parent sets, reproducing the exact structure. Unknown node types
// fail the whole restore.
func Restore(data map[string]any, factory *NodeFactory) (*Network, error) {
	var st networkState
	if err := decodeSnapshot(data, &st); err != nil {
		return nil, fmt.Errorf("decode network snapshot: %w", err)
	}

	net := New(
		WithName(st.Name),
		WithChatModelName(st.ChatModelName),
		WithMaxIterations(st.MaxIterations),
	)
	if st.ID != "" {
		net.id = st.ID
	}
	if st.Metadata != nil {
		net.metadata = st.Metadata
	}
	net.outputs = st.Outputs

	nodes := make([]Node, len(st.Nodes))
	for i, ns := range st.Nodes {
		n, ok := factory.Create(ns.Type)
		if !ok {
			return nil, fmt.Errorf("unknown node type %q at position %d", ns.Type, i)
		}
		if err := n.ApplyState(ns, factory); err != nil {
			return nil, fmt.Errorf("restore node %d (%s): %w", i, ns.Type, err)
		}
		nodes[i] = n
	}

	for i, n := range nodes {
		parents := make([]Node, 0, len(st.Connections[i]))
		for _, pi := range st.Connections[i] {
			if pi < 0 || pi >= len(nodes) {
				return nil, fmt.Errorf("connection %d -> %d out of range", i, pi)
			}
			parents = append(parents, nodes[pi])
		}
		net.AddNodeAfter(n, parents...)
	}

	return net, nil
}

// DumpJSON serializes the network snapshot as indented JSON.
func (net *Network) DumpJSON() ([]byte, error) {
	return json.MarshalIndent(net.Snapshot(), "", "  ")
}

// LoadJSON rebuilds a network from DumpJSON output.
func LoadJSON(data []byte, factory *NodeFactory) (*Network, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal network snapshot: %w", err)
	}
	return Restore(raw, factory)
}

// decodeSnapshot decodes the plain data form with json tag names, tolerating
// both typed (direct Snapshot output) and JSON-decoded (generic map) shapes.
func decodeSnapshot(data map[string]any, out *networkState) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	return decoder.Decode(data)
}
