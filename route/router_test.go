package route

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcagent/lcagent/model"
	"github.com/lcagent/lcagent/network"
	"github.com/lcagent/lcagent/node"
)

func registerMock(t *testing.T, name string, script ...string) *model.MockModel {
	t.Helper()
	mock := model.NewMockModel(name)
	mock.Script(script...)
	model.Register(name, mock)
	t.Cleanup(func() { model.Unregister(name) })
	return mock
}

func kitInfoRoutes() []Route {
	return []Route{{
		Name:        "KitInfo",
		Description: "Answers questions about the user and their kit.",
		NewNode: func() network.Node {
			return node.NewChatNode(node.WithName("kitinfo"))
		},
	}}
}

func TestRouterDispatchesThenFinalizes(t *testing.T) {
	registerMock(t, "router-mock",
		"KitInfo What is the user name?", // classification round 1
		"Victor",                         // tool-agent result
		"FINAL Victor",                   // classification round 2
	)

	net := network.New(network.WithChatModelName("router-mock"))
	net.AddNode(node.NewHumanNode("Who is the user?"))
	net.AddModifier(NewRouterModifier(kitInfoRoutes()))

	out, err := net.Invoke(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "Victor", out.Content)

	// Exactly one dispatch happened and it recorded the call metadata.
	var dispatches []network.Node
	for _, n := range net.Nodes() {
		if _, ok := n.Metadata()[MetaToolCallName]; ok {
			dispatches = append(dispatches, n)
		}
	}
	require.Len(t, dispatches, 1)
	md := dispatches[0].Metadata()
	assert.Equal(t, "KitInfo", md[MetaToolCallName])
	assert.Equal(t, "What is the user name?", md[MetaToolCallContent])
	assert.Equal(t, "KitInfo What is the user name?", md[MetaToolCallFull])
}

func TestRouterDetectsImmediateLoop(t *testing.T) {
	registerMock(t, "loop-mock",
		"KitInfo q",  // round 1
		"result-one", // tool result
		"KitInfo q",  // identical re-classification: loop
		"FINAL done", // after the corrective instruction
	)

	net := network.New(network.WithChatModelName("loop-mock"))
	net.AddNode(node.NewHumanNode("Who is the user?"))
	net.AddModifier(NewRouterModifier(kitInfoRoutes()))

	out, err := net.Invoke(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "done", out.Content)

	dispatches, loops := 0, 0
	for _, n := range net.Nodes() {
		if _, ok := n.Metadata()[MetaToolCallName]; ok {
			dispatches++
		}
		if v, ok := n.Metadata()[MetaIsLoop].(bool); ok && v {
			loops++
		}
	}
	assert.Equal(t, 1, dispatches, "the repeated call is never dispatched again")
	assert.Equal(t, 1, loops, "second occurrence marked is_loop")
}

func TestRouterRoundCeiling(t *testing.T) {
	registerMock(t, "ceiling-mock",
		"KitInfo q1",
		"r1",
		"KitInfo q2", // would be round 2, over the budget
	)

	net := network.New(network.WithChatModelName("ceiling-mock"))
	net.AddNode(node.NewHumanNode("Who is the user?"))
	net.AddModifier(NewRouterModifier(kitInfoRoutes(), func(o *RouterOptions) {
		o.MaxRounds = 1
	}))

	out, err := net.Invoke(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "KitInfo q2", out.Content, "ceiling keeps the last classification as best effort")

	dispatches := 0
	for _, n := range net.Nodes() {
		if _, ok := n.Metadata()[MetaToolCallName]; ok {
			dispatches++
		}
	}
	assert.Equal(t, 1, dispatches)
}

func TestRouterUnparseableClassificationBecomesAnswer(t *testing.T) {
	registerMock(t, "raw-mock", "I cannot pick a tool here.")

	net := network.New(network.WithChatModelName("raw-mock"))
	net.AddNode(node.NewHumanNode("Who is the user?"))
	net.AddModifier(NewRouterModifier(kitInfoRoutes()))

	out, err := net.Invoke(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "I cannot pick a tool here.", out.Content)
}

func TestCollectHistoryWalksRounds(t *testing.T) {
	registerMock(t, "history-mock",
		"KitInfo What is the user name?",
		"Victor",
		"FINAL Victor",
	)

	net := network.New(network.WithChatModelName("history-mock"))
	net.AddNode(node.NewHumanNode("Who is the user?"))
	net.AddModifier(NewRouterModifier(kitInfoRoutes()))

	_, err := net.Invoke(context.Background())
	require.NoError(t, err)

	// The final classifier is the leaf; its history holds the one round.
	leaves := net.LeafNodes(false)
	require.Len(t, leaves, 1)
	rounds := CollectHistory(leaves[0])
	require.Len(t, rounds, 1)
	assert.Equal(t, ToolRound{
		Name:    "KitInfo",
		Content: "What is the user name?",
		Result:  "Victor",
	}, rounds[0])
}
