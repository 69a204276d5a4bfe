package network

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcagent/lcagent/core"
)

// chunkNode streams its content in fixed-size pieces.
type chunkNode struct {
	BaseNode
	content string
	size    int
}

func newChunkNode(name, content string, size int) *chunkNode {
	return &chunkNode{BaseNode: NewBaseNode(name), content: content, size: size}
}

func (c *chunkNode) TypeName() string { return "ChunkNode" }

func (c *chunkNode) Invoke(_ context.Context, _ *Network) (*core.Message, error) {
	msg := core.NewAIMessage(c.content)
	c.Complete(&msg)
	return c.Outputs(), nil
}

func (c *chunkNode) Stream(ctx context.Context, _ *Network) (<-chan core.Chunk, <-chan error) {
	out := make(chan core.Chunk, 8)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		for i := 0; i < len(c.content); i += c.size {
			end := i + c.size
			if end > len(c.content) {
				end = len(c.content)
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- core.Chunk{NodeID: c.ID(), Content: c.content[i:end], Role: core.RoleAI}:
			}
		}
		msg := core.NewAIMessage(c.content)
		c.Complete(&msg)
	}()

	return out, errCh
}

func (c *chunkNode) Snapshot() NodeState { return c.BaseState(c.TypeName()) }

func collectStream(t *testing.T, net *Network) []core.Chunk {
	t.Helper()
	chunks, errs := net.Stream(context.Background())
	var got []core.Chunk
	for chunk := range chunks {
		got = append(got, chunk)
	}
	require.NoError(t, <-errs)
	return got
}

func TestStreamConcatenationMatchesInvoke(t *testing.T) {
	build := func() *Network {
		net := New()
		net.AddNode(newChunkNode("a", "hello world", 3))
		return net
	}

	out, err := build().Invoke(context.Background())
	require.NoError(t, err)

	var b strings.Builder
	for _, chunk := range collectStream(t, build()) {
		b.WriteString(chunk.Content)
	}
	assert.Equal(t, out.Content, b.String())
}

func TestStreamInsertsSeparatorOnNodeSwitch(t *testing.T) {
	net := New()
	a := net.AddNode(newChunkNode("a", "aaa", 2))
	net.AddNodeAfter(newChunkNode("b", "bbb", 2), a)

	got := collectStream(t, net)

	var separators int
	for i, chunk := range got {
		if chunk.Separator {
			separators++
			assert.Equal(t, "\n", chunk.Content)
			// The separator announces the switch to the next producer.
			require.Less(t, i+1, len(got))
			assert.Equal(t, got[i+1].NodeID, chunk.NodeID)
		}
	}
	assert.Equal(t, 1, separators, "exactly one producer switch")
	assert.Equal(t, "aaa\nbbb", joinContent(got))
}

func TestStreamNoSeparatorWithinOneNode(t *testing.T) {
	net := New()
	net.AddNode(newChunkNode("a", "aaaaaa", 2))

	for _, chunk := range collectStream(t, net) {
		assert.False(t, chunk.Separator)
	}
}

func TestStreamNestedNetworkKeepsInnerSeparators(t *testing.T) {
	inner := New(WithName("inner"))
	ia := inner.AddNode(newChunkNode("ia", "one", 3))
	inner.AddNodeAfter(newChunkNode("ib", "two", 3), ia)

	net := New(WithName("outer"))
	root := net.AddNode(newChunkNode("root", "pre", 3))
	net.AddNodeAfter(NewNetworkNode("sub", inner), root)

	got := collectStream(t, net)

	var separators int
	for _, chunk := range got {
		if chunk.Separator {
			separators++
		}
	}
	// One switch root->ia inserted by the outer network, one ia->ib
	// forwarded untouched from the inner network. No doubles.
	assert.Equal(t, 2, separators)
	assert.Equal(t, "pre\none\ntwo", joinContent(got))
}

func joinContent(chunks []core.Chunk) string {
	var b strings.Builder
	for _, chunk := range chunks {
		b.WriteString(chunk.Content)
	}
	return b.String()
}
