package runner

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcagent/lcagent/core"
	"github.com/lcagent/lcagent/model"
	"github.com/lcagent/lcagent/network"
	"github.com/lcagent/lcagent/node"
	"github.com/lcagent/lcagent/session"
)

func chatFactory(modelName string) AgentFactory {
	return func() *network.Network {
		net := network.New(network.WithChatModelName(modelName))
		net.AddNode(node.NewChatNode(node.WithName("assistant")))
		return net
	}
}

func registerMock(t *testing.T, name string, script ...string) *model.MockModel {
	t.Helper()
	mock := model.NewMockModel(name)
	mock.Script(script...)
	model.Register(name, mock)
	t.Cleanup(func() { model.Unregister(name) })
	return mock
}

func TestRunSyncPersistsTurns(t *testing.T) {
	registerMock(t, "runner-sync", "nice to meet you", "you said hello")

	store := session.NewInMemoryStore()
	r := New(chatFactory("runner-sync"), func(o *Options) {
		o.Store = store
	})

	out, err := r.RunSync(context.Background(), "s1", "hello")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "nice to meet you", out.Content)

	sess, err := store.Get("s1")
	require.NoError(t, err)
	require.Len(t, sess.Turns, 2)
	assert.Equal(t, core.RoleHuman, sess.Turns[0].Role)
	assert.Equal(t, "hello", sess.Turns[0].Content)
	assert.Equal(t, core.RoleAI, sess.Turns[1].Role)

	// A second turn sees the first turn's history.
	_, err = r.RunSync(context.Background(), "s1", "what did I say?")
	require.NoError(t, err)

	sess, err = store.Get("s1")
	require.NoError(t, err)
	assert.Len(t, sess.Turns, 4)
}

func TestRunStreamsChunks(t *testing.T) {
	registerMock(t, "runner-stream", "streamed reply")

	r := New(chatFactory("runner-stream"))

	runID, chunks, errs, err := r.Run(context.Background(), "s1", "hi")
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	var sb strings.Builder
	for chunk := range chunks {
		sb.WriteString(chunk.Content)
	}
	require.NoError(t, <-errs)
	assert.Equal(t, "streamed reply", sb.String())
	assert.Equal(t, 0, r.ActiveRuns())
}

func TestRunPersistsSnapshotsWhenEnabled(t *testing.T) {
	registerMock(t, "runner-snap", "done")

	store := session.NewInMemoryStore()
	r := New(chatFactory("runner-snap"), func(o *Options) {
		o.Store = store
		o.PersistSnapshots = true
	})

	_, err := r.RunSync(context.Background(), "s1", "hi")
	require.NoError(t, err)

	sess, err := store.Get("s1")
	require.NoError(t, err)
	require.Len(t, sess.Snapshots, 1)
	assert.Contains(t, sess.Snapshots[0], "nodes")
}

func TestCancelUnknownRun(t *testing.T) {
	r := New(chatFactory("unused"))
	assert.Error(t, r.Cancel("no-such-run"))
}

func TestRunSeparateSessionsAreIsolated(t *testing.T) {
	registerMock(t, "runner-iso", "a", "b")

	store := session.NewInMemoryStore()
	r := New(chatFactory("runner-iso"), func(o *Options) {
		o.Store = store
	})

	_, err := r.RunSync(context.Background(), "s1", "first")
	require.NoError(t, err)
	_, err = r.RunSync(context.Background(), "s2", "second")
	require.NoError(t, err)

	s1, err := store.Get("s1")
	require.NoError(t, err)
	s2, err := store.Get("s2")
	require.NoError(t, err)
	assert.Len(t, s1.Turns, 2)
	assert.Len(t, s2.Turns, 2)
	assert.Equal(t, "first", s1.Turns[0].Content)
	assert.Equal(t, "second", s2.Turns[0].Content)
}
