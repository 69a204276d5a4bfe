package route

import (
	"context"
	"fmt"
	"strings"

	"github.com/lcagent/lcagent/core"
	"github.com/lcagent/lcagent/network"
	"github.com/lcagent/lcagent/node"
)

// Internal metadata tags distinguishing router scaffolding from conversation
// nodes.
const (
	metaClassifier = "router_classifier"
	metaToolAgent  = "router_tool_agent"
)

// DefaultMaxRounds bounds how many dispatch rounds a single router performs.
// The network's own iteration ceiling remains the backstop.
const DefaultMaxRounds = 10

// Route is one named tool-agent the supervisor can dispatch to.
type Route struct {
	// Name is the action token the classifier emits to select this route.
	Name string

	// Description tells the classifier what the route can answer.
	Description string

	// NewNode builds a fresh node executing the route. Called once per
	// dispatch; the node receives the classified question as input.
	NewNode func() network.Node
}

// RouterOptions configure NewRouterModifier.
type RouterOptions struct {
	// MaxRounds bounds dispatch rounds. Defaults to DefaultMaxRounds.
	MaxRounds int

	// ModelName pins classifier turns to a registered chat model.
	ModelName string
}

// RouterModifier implements the supervisor/router pattern as a modifier: it
// injects a classification turn, parses its action line, and grows the graph
// with the dispatched tool-agent followed by a re-classification turn, until
// the classifier emits FINAL or a bound is hit.
//
// Each network needs its own instance; the modifier keeps per-conversation
// round state.
type RouterModifier struct {
	network.BaseModifier

	routes    []Route
	maxRounds int
	modelName string

	rounds  int
	started bool
}

// NewRouterModifier creates a router over the given routes.
func NewRouterModifier(routes []Route, optFns ...func(o *RouterOptions)) *RouterModifier {
	opts := RouterOptions{MaxRounds: DefaultMaxRounds}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &RouterModifier{
		routes:    routes,
		maxRounds: opts.MaxRounds,
		modelName: opts.ModelName,
	}
}

// OnBegin injects the first classification turn after the current leaves.
func (r *RouterModifier) OnBegin(_ context.Context, net *network.Network) error {
	if r.started {
		return nil
	}
	r.started = true

	leaves := net.LeafNodes(true)
	net.AddNodeAfter(r.newClassifier(""), leaves...)
	return nil
}

// OnPostInvoke reacts to classifier and tool-agent results.
func (r *RouterModifier) OnPostInvoke(_ context.Context, net *network.Network, n network.Node) error {
	md := n.Metadata()

	if isTagged(md, metaToolAgent) {
		// A tool round completed: re-ask for classification with the
		// reconstructed history.
		next := r.newClassifier("")
		net.AddNodeAfter(next, n)
		if history := FormatHistory(CollectHistory(next)); history != "" {
			next.AppendInput(core.NewSystemMessage(history))
		}
		return nil
	}

	if !isTagged(md, metaClassifier) {
		return nil
	}
	out := n.Outputs()
	if out == nil {
		return nil
	}

	action, ok := ParseAction(out.Content, r.routeNames())
	if !ok {
		// No action line at all: take the raw response as the answer
		// rather than spinning another round.
		msg := core.NewAIMessage(strings.TrimSpace(out.Content))
		net.SetOutputs(&msg)
		return nil
	}

	if action.Final {
		msg := core.NewAIMessage(action.Content)
		net.SetOutputs(&msg)
		return nil
	}

	route, ok := r.lookup(action.Name)
	if !ok {
		return fmt.Errorf("router: classifier chose unknown route %q", action.Name)
	}

	if prior, ok := LatestRound(n); ok && prior.Name == action.Name && prior.Content == action.Content {
		net.SetNodeMeta(n, MetaIsLoop, true)
		net.Logger().Warn("router.loop_detected", "route", action.Name, "content", action.Content)

		corrective := node.NewHumanNode(fmt.Sprintf(
			"You already called %s with %q and have its result. Do not repeat the call: use the result, pick a different tool, or answer with FINAL.",
			action.Name, action.Content,
		))
		corrective.SetMeta(network.MetaContributeToHistory, false)
		net.AddNodeAfter(corrective, n)

		next := r.newClassifier("")
		net.AddNodeAfter(next, corrective)
		if history := FormatHistory(CollectHistory(next)); history != "" {
			next.AppendInput(core.NewSystemMessage(history))
		}
		next.AppendInput(core.NewHumanMessage(corrective.Inputs()[0].Content))
		return nil
	}

	r.rounds++
	if r.rounds > r.maxRounds {
		net.Logger().Warn("router.round_ceiling", "rounds", r.rounds, "max", r.maxRounds)
		msg := core.NewAIMessage(strings.TrimSpace(out.Content))
		net.SetOutputs(&msg)
		return nil
	}

	dispatch := node.NewHumanNode(action.Content)
	dispatch.SetMeta(network.MetaContributeToHistory, false)
	dispatch.SetMeta(MetaToolCallName, action.Name)
	dispatch.SetMeta(MetaToolCallContent, action.Content)
	dispatch.SetMeta(MetaToolCallFull, strings.TrimSpace(action.Name+" "+action.Content))
	net.AddNodeAfter(dispatch, n)

	tool := route.NewNode()
	tool.SetMeta(metaToolAgent, true)
	if action.Content != "" {
		tool.AppendInput(core.NewHumanMessage(action.Content))
	}
	net.AddNodeAfter(tool, dispatch)

	net.Logger().Debug("router.dispatch", "route", action.Name, "round", r.rounds)
	return nil
}

// newClassifier builds a classification turn. Classifier turns are
// scaffolding: they never contribute to downstream history.
func (r *RouterModifier) newClassifier(history string) *node.ChatNode {
	opts := []func(*node.Options){
		node.WithName("classifier"),
		node.WithSystemPrompt(r.classifierPrompt()),
		node.WithMetadata(map[string]any{
			network.MetaContributeToHistory: false,
			metaClassifier:                  true,
		}),
	}
	if r.modelName != "" {
		opts = append(opts, node.WithModelName(r.modelName))
	}

	c := node.NewChatNode(opts...)
	if history != "" {
		c.AppendInput(core.NewSystemMessage(history))
	}
	return c
}

// classifierPrompt renders the routing instruction listing every route.
func (r *RouterModifier) classifierPrompt() string {
	var b strings.Builder
	b.WriteString("You are a supervisor deciding how to answer the user.\n")
	b.WriteString("Available tools:\n")
	for _, rt := range r.routes {
		fmt.Fprintf(&b, "- %s: %s\n", rt.Name, rt.Description)
	}
	b.WriteString("Respond with exactly one line: either \"<ToolName> <question>\" to call a tool, ")
	b.WriteString("or \"FINAL <answer>\" when you can answer directly.")
	return b.String()
}

func (r *RouterModifier) routeNames() []string {
	names := make([]string, len(r.routes))
	for i, rt := range r.routes {
		names[i] = rt.Name
	}
	return names
}

func (r *RouterModifier) lookup(name string) (Route, bool) {
	for _, rt := range r.routes {
		if rt.Name == name {
			return rt, true
		}
	}
	return Route{}, false
}

func isTagged(md map[string]any, key string) bool {
	v, ok := md[key].(bool)
	return ok && v
}
