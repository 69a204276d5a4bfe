package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/lcagent/lcagent/core"
	"github.com/lcagent/lcagent/logging"
	"github.com/lcagent/lcagent/network"
	"github.com/lcagent/lcagent/node"
	"github.com/lcagent/lcagent/session"
)

// AgentFactory builds a fresh network for one conversational turn. Called
// once per run; the returned network must not be shared between runs.
type AgentFactory func() *network.Network

// Options holds dependency and configuration overrides passed to New.
type Options struct {
	// ChunkBufferSize sets channel buffering for streamed chunks.
	ChunkBufferSize int

	// PersistSnapshots stores a structural network snapshot per turn.
	PersistSnapshots bool

	// Store persists session history.
	Store session.Store

	// Logger receives run lifecycle logs.
	Logger logging.Logger
}

// Runner coordinates network execution: it seeds a network from session
// history, evaluates it, streams chunks, persists the produced turn and
// tracks active runs for cancellation.
type Runner struct {
	factory AgentFactory

	chunkBufferSize  int
	persistSnapshots bool

	store  session.Store
	logger logging.Logger

	activeRuns map[string]context.CancelFunc
	mu         sync.Mutex
}

// New constructs a Runner with optional overrides.
func New(factory AgentFactory, optFns ...func(o *Options)) *Runner {
	opts := Options{
		ChunkBufferSize: 64,
		Store:           session.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		factory:          factory,
		chunkBufferSize:  opts.ChunkBufferSize,
		persistSnapshots: opts.PersistSnapshots,
		store:            opts.Store,
		logger:           opts.Logger,
		activeRuns:       make(map[string]context.CancelFunc),
	}
}

// Run starts an asynchronous streaming run for one user turn. It returns the
// run id, the chunk stream and the error stream. The error stream delivers at
// most one terminal error after the chunk stream closes.
func (r *Runner) Run(
	ctx context.Context,
	sessionID string,
	input string,
) (string, <-chan core.Chunk, <-chan error, error) {
	sess, net, err := r.prepare(sessionID, input)
	if err != nil {
		return "", nil, nil, err
	}

	runID := core.NewID()

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	chunksOut := make(chan core.Chunk, r.chunkBufferSize)
	errorsOut := make(chan error, 1)

	go func() {
		defer func() {
			close(chunksOut)
			close(errorsOut)
			cancel()
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()
		}()

		r.logger.Debug("runner.run_started", "run", runID, "session", sess.ID)

		chunks, errs := net.Stream(ctx)
		for chunk := range chunks {
			select {
			case <-ctx.Done():
				errorsOut <- ctx.Err()
				return
			case chunksOut <- chunk:
			}
		}
		if err := <-errs; err != nil {
			errorsOut <- fmt.Errorf("run %s: %w", runID, err)
			return
		}

		if err := r.persist(sess.ID, net); err != nil {
			errorsOut <- err
			return
		}

		r.logger.Debug("runner.run_finished", "run", runID, "session", sess.ID)
	}()

	return runID, chunksOut, errorsOut, nil
}

// RunSync evaluates one user turn to completion and returns the final output.
func (r *Runner) RunSync(ctx context.Context, sessionID string, input string) (*core.Message, error) {
	sess, net, err := r.prepare(sessionID, input)
	if err != nil {
		return nil, err
	}

	runID := core.NewID()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.activeRuns, runID)
		r.mu.Unlock()
	}()

	out, err := net.Invoke(ctx)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	if err := r.persist(sess.ID, net); err != nil {
		return nil, err
	}

	return out, nil
}

// Cancel cancels a running run by id.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()
	return nil
}

// ActiveRuns returns the number of currently executing runs.
func (r *Runner) ActiveRuns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.activeRuns)
}

// prepare loads the session, records the user turn and builds a network
// seeded with the session history plus the new input.
func (r *Runner) prepare(sessionID, input string) (*session.Session, *network.Network, error) {
	sess, err := r.store.Get(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}

	userTurn := core.NewHumanMessage(input)
	if err := r.store.AppendTurn(sessionID, userTurn); err != nil {
		return nil, nil, fmt.Errorf("append user turn: %w", err)
	}

	net := r.factory()

	human := node.NewHumanNode("")
	for _, turn := range sess.Turns {
		human.AppendInput(turn)
	}
	human.AppendInput(userTurn)
	net.AddNode(human)

	return sess, net, nil
}

// persist records the produced turn and optionally the network snapshot.
func (r *Runner) persist(sessionID string, net *network.Network) error {
	if out := net.Outputs(); out != nil {
		if err := r.store.AppendTurn(sessionID, *out); err != nil {
			return fmt.Errorf("append output turn: %w", err)
		}
	}
	if r.persistSnapshots {
		if err := r.store.AddSnapshot(sessionID, net.Snapshot()); err != nil {
			return fmt.Errorf("persist snapshot: %w", err)
		}
	}
	return nil
}
