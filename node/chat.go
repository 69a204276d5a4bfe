package node

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/lcagent/lcagent/core"
	"github.com/lcagent/lcagent/model"
	"github.com/lcagent/lcagent/network"
)

// TypeChat is the factory type name for chat model nodes.
const TypeChat = "ChatNode"

// ChatNode evaluates one LLM turn. The model to call is resolved lazily at
// invocation time: node metadata first, then the owning network's model name,
// then the registry default. Resolution is deferred deliberately so graphs can
// be built and serialized before any model is registered.
type ChatNode struct {
	network.BaseNode

	tools []model.ToolDefinition
}

// NewChatNode creates a chat node.
func NewChatNode(optFns ...func(o *Options)) *ChatNode {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	n := &ChatNode{
		BaseNode: network.NewBaseNode(opts.Name),
		tools:    opts.Tools,
	}
	if opts.SystemPrompt != "" {
		n.AppendInput(core.NewSystemMessage(opts.SystemPrompt))
	}
	if opts.ModelName != "" {
		n.SetMeta(network.MetaChatModelName, opts.ModelName)
	}
	for k, v := range opts.Metadata {
		n.SetMeta(k, v)
	}
	return n
}

// TypeName returns the registered factory type name.
func (n *ChatNode) TypeName() string { return TypeChat }

// Tools returns the tool definitions advertised to the model.
func (n *ChatNode) Tools() []model.ToolDefinition { return n.tools }

// SetTools replaces the advertised tool definitions.
func (n *ChatNode) SetTools(tools []model.ToolDefinition) { n.tools = tools }

// resolveModel picks the chat model for this invocation. Precedence: node
// metadata, owning network, registry default.
func (n *ChatNode) resolveModel(net *network.Network) (model.ChatModel, string, error) {
	name := ""
	if v, ok := n.Metadata()[network.MetaChatModelName].(string); ok && v != "" {
		name = v
	} else if net != nil && net.ChatModelName() != "" {
		name = net.ChatModelName()
	} else {
		name = model.DefaultName()
	}

	if name == "" {
		return nil, "", fmt.Errorf("chat node %q: no chat model configured", n.label())
	}
	m, ok := model.Get(name)
	if !ok {
		return nil, "", fmt.Errorf("chat node %q: chat model %q not registered", n.label(), name)
	}
	return m, name, nil
}

// Invoke resolves the model, sends the resolved conversation history and
// stores the final response.
func (n *ChatNode) Invoke(ctx context.Context, net *network.Network) (*core.Message, error) {
	m, name, err := n.resolveModel(net)
	if err != nil {
		return nil, err
	}

	if net != nil {
		net.Logger().Debug("chat node invoking model",
			"node", n.label(), "model", name)
	}

	responses, errCh := m.Generate(ctx, model.Request{
		Messages: network.ResolveInputs(n),
		Tools:    n.tools,
	})

	var final *core.Message
	for resp := range responses {
		if resp.Partial {
			continue
		}
		msg := resp.Message
		final = &msg
	}
	if err := <-errCh; err != nil {
		return nil, fmt.Errorf("chat node %q: %w", n.label(), err)
	}
	if final == nil {
		return nil, fmt.Errorf("chat node %q: model %q produced no response", n.label(), name)
	}

	n.Complete(final)
	return n.Outputs(), nil
}

// Stream resolves the model and forwards partial responses as chunks. The
// concatenated chunk content equals the stored final output content.
func (n *ChatNode) Stream(ctx context.Context, net *network.Network) (<-chan core.Chunk, <-chan error) {
	out := make(chan core.Chunk, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		m, name, err := n.resolveModel(net)
		if err != nil {
			errCh <- err
			return
		}

		responses, modelErrs := m.Generate(ctx, model.Request{
			Messages: network.ResolveInputs(n),
			Tools:    n.tools,
			Stream:   true,
		})

		var final *core.Message
		for resp := range responses {
			if resp.Partial {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- core.Chunk{NodeID: n.ID(), Content: resp.Message.Content, Role: core.RoleAI}:
				}
				continue
			}
			msg := resp.Message
			final = &msg
		}
		if err := <-modelErrs; err != nil {
			errCh <- fmt.Errorf("chat node %q: %w", n.label(), err)
			return
		}
		if final == nil {
			errCh <- fmt.Errorf("chat node %q: model %q produced no response", n.label(), name)
			return
		}

		n.Complete(final)

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case out <- core.Chunk{NodeID: n.ID(), Role: core.RoleAI, Final: true}:
		}
	}()

	return out, errCh
}

// Snapshot captures the node's declared fields plus its tool definitions.
func (n *ChatNode) Snapshot() network.NodeState {
	st := n.BaseState(TypeChat)
	if len(n.tools) > 0 {
		st.Extra = map[string]any{"tools": n.tools}
	}
	return st
}

// ApplyState restores the node including tool definitions.
func (n *ChatNode) ApplyState(st network.NodeState, _ *network.NodeFactory) error {
	if err := n.ApplyBaseState(st); err != nil {
		return err
	}
	raw, ok := st.Extra["tools"]
	if !ok {
		return nil
	}
	var tools []model.ToolDefinition
	if err := mapstructure.Decode(raw, &tools); err != nil {
		return fmt.Errorf("restore chat node tools: %w", err)
	}
	n.tools = tools
	return nil
}

func (n *ChatNode) label() string {
	if n.Name() != "" {
		return n.Name()
	}
	return n.ID()
}
