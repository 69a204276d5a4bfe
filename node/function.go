package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/lcagent/lcagent/core"
	"github.com/lcagent/lcagent/internal/util"
	"github.com/lcagent/lcagent/model"
	"github.com/lcagent/lcagent/network"
)

// TypeFunction is the factory type name for function nodes.
const TypeFunction = "FunctionNode"

// Function is a callable exposed to the graph: a named operation with a JSON
// schema describing its arguments. Implementations must be safe for
// concurrent calls from multiple networks.
type Function interface {
	// Name returns the unique function name.
	Name() string

	// Description explains what the function does, for model consumption.
	Description() string

	// Schema returns the JSON schema of the argument object.
	Schema() map[string]any

	// Call executes the function with validated arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// FunctionOptions configure NewGoFunction.
type FunctionOptions struct {
	// Schema is the explicit JSON schema of the argument object.
	Schema map[string]any

	// ParamsStruct derives the schema from a struct type via reflection.
	// Ignored when Schema is set.
	ParamsStruct any
}

// GoFunction adapts a plain Go closure into a Function.
type GoFunction struct {
	name        string
	description string
	schema      map[string]any
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

// NewGoFunction wraps a Go closure as a Function. Without an explicit schema
// or params struct the function accepts any argument object.
func NewGoFunction(
	name, description string,
	fn func(ctx context.Context, args map[string]any) (any, error),
	optFns ...func(o *FunctionOptions),
) *GoFunction {
	opts := FunctionOptions{}
	for _, optFn := range optFns {
		optFn(&opts)
	}

	schema := opts.Schema
	if schema == nil && opts.ParamsStruct != nil {
		schema = util.CreateSchema(opts.ParamsStruct)
	}
	if schema == nil {
		schema = map[string]any{"type": "object", "properties": map[string]any{}}
	}

	return &GoFunction{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
	}
}

// Name returns the unique function name.
func (f *GoFunction) Name() string { return f.name }

// Description explains what the function does.
func (f *GoFunction) Description() string { return f.description }

// Schema returns the JSON schema of the argument object.
func (f *GoFunction) Schema() map[string]any { return f.schema }

// Call executes the wrapped closure.
func (f *GoFunction) Call(ctx context.Context, args map[string]any) (any, error) {
	return f.fn(ctx, args)
}

// Definition converts a Function into a model tool definition.
func Definition(f Function) model.ToolDefinition {
	return model.ToolDefinition{
		Name:        f.Name(),
		Description: f.Description(),
		Parameters:  f.Schema(),
	}
}

// FunctionNode executes a Function. Arguments come from an explicit argument
// map when provided, otherwise from the nearest parent AI message carrying a
// tool call for this function.
type FunctionNode struct {
	network.BaseNode

	fn   Function
	args map[string]any
}

// NewFunctionNode creates a function node.
func NewFunctionNode(fn Function, optFns ...func(o *Options)) *FunctionNode {
	opts := Options{}
	for _, optFn := range optFns {
		optFn(&opts)
	}

	name := opts.Name
	if name == "" && fn != nil {
		name = fn.Name()
	}

	n := &FunctionNode{
		BaseNode: network.NewBaseNode(name),
		fn:       fn,
	}
	for k, v := range opts.Metadata {
		n.SetMeta(k, v)
	}
	return n
}

// TypeName returns the registered factory type name.
func (n *FunctionNode) TypeName() string { return TypeFunction }

// Function returns the bound function.
func (n *FunctionNode) Function() Function { return n.fn }

// SetArgs pins an explicit argument map, bypassing tool call extraction.
func (n *FunctionNode) SetArgs(args map[string]any) { n.args = args }

// resolveArgs returns the argument map and the correlating tool call id.
// Explicit arguments win; otherwise the parents are scanned (nearest first)
// for an AI output carrying a call to this function.
func (n *FunctionNode) resolveArgs() (map[string]any, string, error) {
	if n.args != nil {
		return n.args, "", nil
	}

	parents := n.Parents()
	for i := len(parents) - 1; i >= 0; i-- {
		out := parents[i].Outputs()
		if out == nil {
			continue
		}
		for _, tc := range out.ToolCalls {
			if tc.Name != n.fn.Name() {
				continue
			}
			args, err := tc.Args()
			if err != nil {
				return nil, "", fmt.Errorf("decode tool call arguments for %q: %w", tc.Name, err)
			}
			return args, tc.ID, nil
		}
	}

	return map[string]any{}, "", nil
}

// Invoke validates the arguments against the function schema and executes the
// function. Validation failures are not errors: they become the node's output
// so the conversation can self-correct on a following model turn.
func (n *FunctionNode) Invoke(ctx context.Context, net *network.Network) (*core.Message, error) {
	if n.fn == nil {
		return nil, fmt.Errorf("function node %q has no bound function", n.Name())
	}

	args, callID, err := n.resolveArgs()
	if err != nil {
		return nil, err
	}

	if err := util.ValidateParameters(args, n.fn.Schema()); err != nil {
		msg := core.NewAIMessage(fmt.Sprintf("Invalid arguments for %s: %v", n.fn.Name(), err))
		n.Complete(&msg)
		return n.Outputs(), nil
	}

	if net != nil {
		net.Logger().Debug("function node calling", "function", n.fn.Name())
	}

	result, err := n.fn.Call(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("function %q: %w", n.fn.Name(), err)
	}

	content := ""
	switch v := result.(type) {
	case nil:
	case string:
		content = v
	default:
		content = fmt.Sprintf("%v", v)
	}

	msg := core.NewToolMessage(content, callID)
	msg.Name = n.fn.Name()
	n.Complete(&msg)
	return n.Outputs(), nil
}

// Stream adapts Invoke to the chunked contract.
func (n *FunctionNode) Stream(ctx context.Context, net *network.Network) (<-chan core.Chunk, <-chan error) {
	return network.StreamFromInvoke(ctx, net, n)
}

// Snapshot captures the node's declared fields plus the function name so a
// restore can rebind the function from the function registry.
func (n *FunctionNode) Snapshot() network.NodeState {
	st := n.BaseState(TypeFunction)
	if n.fn != nil {
		st.Extra = map[string]any{"function": n.fn.Name()}
	}
	return st
}

// ApplyState restores the node and rebinds its function by name. A missing
// registration is an error: a function node without a function is inert.
func (n *FunctionNode) ApplyState(st network.NodeState, _ *network.NodeFactory) error {
	if err := n.ApplyBaseState(st); err != nil {
		return err
	}
	name, _ := st.Extra["function"].(string)
	if name == "" {
		return nil
	}
	fn, ok := GetFunction(name)
	if !ok {
		return fmt.Errorf("restore function node: function %q not registered", name)
	}
	n.fn = fn
	return nil
}

// functionRegistry is the reference-counted name to Function mapping used to
// rebind restored function nodes.
type functionRegistry struct {
	mu      sync.Mutex
	entries map[string]*functionEntry
}

type functionEntry struct {
	fn   Function
	refs int
}

var defaultFunctions = &functionRegistry{entries: map[string]*functionEntry{}}

// RegisterFunction binds a function by name for node restoration.
// Re-registering an existing name increments its reference count and keeps
// the original function.
func RegisterFunction(fn Function) {
	defaultFunctions.mu.Lock()
	defer defaultFunctions.mu.Unlock()

	if e, ok := defaultFunctions.entries[fn.Name()]; ok {
		e.refs++
		return
	}
	defaultFunctions.entries[fn.Name()] = &functionEntry{fn: fn, refs: 1}
}

// UnregisterFunction decrements a function's reference count, removing it at
// zero. Unknown names are a no-op.
func UnregisterFunction(name string) {
	defaultFunctions.mu.Lock()
	defer defaultFunctions.mu.Unlock()

	e, ok := defaultFunctions.entries[name]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(defaultFunctions.entries, name)
	}
}

// GetFunction resolves a registered function by name.
func GetFunction(name string) (Function, bool) {
	defaultFunctions.mu.Lock()
	defer defaultFunctions.mu.Unlock()

	e, ok := defaultFunctions.entries[name]
	if !ok {
		return nil, false
	}
	return e.fn, true
}
