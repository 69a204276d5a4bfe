package route

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcagent/lcagent/core"
	"github.com/lcagent/lcagent/network"
	"github.com/lcagent/lcagent/node"
)

func matchChatNodes(n network.Node) bool {
	_, ok := n.(*node.ChatNode)
	return ok
}

func validateOK(msg *core.Message) error {
	if msg.Content != "ok" {
		return fmt.Errorf("expected %q, got %q", "ok", msg.Content)
	}
	return nil
}

func TestRetryInjectsCorrectiveRounds(t *testing.T) {
	registerMock(t, "retry-mock", "bad", "still bad", "ok")

	net := network.New(network.WithChatModelName("retry-mock"))
	net.AddNode(node.NewHumanNode("produce ok"))
	net.AddNode(node.NewChatNode(node.WithName("worker")))

	retry := NewRetryModifier(matchChatNodes, validateOK, func() network.Node {
		return node.NewChatNode(node.WithName("worker-retry"))
	})
	net.AddModifier(retry)

	out, err := net.Invoke(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "ok", out.Content)
	assert.Equal(t, 0, retry.Retries(), "counter resets on success")

	chatNodes := 0
	for _, n := range net.Nodes() {
		if matchChatNodes(n) {
			chatNodes++
		}
	}
	assert.Equal(t, 3, chatNodes, "original plus two corrective instances")
}

func TestRetryBudgetExhaustion(t *testing.T) {
	registerMock(t, "exhaust-mock", "bad", "bad", "bad")

	net := network.New(network.WithChatModelName("exhaust-mock"))
	net.AddNode(node.NewHumanNode("produce ok"))
	net.AddNode(node.NewChatNode(node.WithName("worker")))

	retry := NewRetryModifier(matchChatNodes, validateOK, func() network.Node {
		return node.NewChatNode(node.WithName("worker-retry"))
	}, func(o *RetryOptions) {
		o.MaxRetries = 2
	})
	net.AddModifier(retry)

	// The network terminates with the last error state, not an error.
	out, err := net.Invoke(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "bad", out.Content)
	assert.Equal(t, 2, retry.Retries())

	chatNodes := 0
	for _, n := range net.Nodes() {
		if matchChatNodes(n) {
			chatNodes++
		}
	}
	assert.Equal(t, 3, chatNodes, "no injections past the budget")
}

func TestRetryCustomFeedback(t *testing.T) {
	registerMock(t, "feedback-mock", "bad", "ok")

	net := network.New(network.WithChatModelName("feedback-mock"))
	net.AddNode(node.NewHumanNode("produce ok"))
	net.AddNode(node.NewChatNode(node.WithName("worker")))

	net.AddModifier(NewRetryModifier(matchChatNodes, validateOK, func() network.Node {
		return node.NewChatNode(node.WithName("worker-retry"))
	}, func(o *RetryOptions) {
		o.Feedback = func(err error) string {
			return "fix it: " + err.Error()
		}
	}))

	out, err := net.Invoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Content)

	found := false
	for _, n := range net.Nodes() {
		if len(n.Inputs()) > 0 && n.Inputs()[0].Role == core.RoleHuman &&
			len(n.Inputs()[0].Content) > 7 && n.Inputs()[0].Content[:7] == "fix it:" {
			found = true
		}
	}
	assert.True(t, found, "custom feedback text injected")
}
