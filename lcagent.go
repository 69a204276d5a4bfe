// Package lcagent provides a high-level façade over the network scheduler,
// runner and service abstractions (sessions, models, logging) enabling rapid
// construction of multi-agent LLM systems. Most applications interact with
// this package by:
//  1. Creating an LCAgent via New() (optionally overriding the default
//     in-memory session store)
//  2. Registering one or more named agents, each an AgentFactory building a
//     network per conversational turn
//  3. Invoking agents asynchronously (Invoke) or synchronously (InvokeSync)
//
// The façade delegates orchestration to runner.Runner while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable session store
// and a structured logger.
package lcagent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lcagent/lcagent/core"
	"github.com/lcagent/lcagent/logging"
	"github.com/lcagent/lcagent/node"
	"github.com/lcagent/lcagent/runner"
	"github.com/lcagent/lcagent/session"
)

// Options configures the LCAgent instance.
type Options struct {
	// Store persists session history (defaults to in-memory).
	Store session.Store

	// Logger receives lifecycle logs (defaults to NoOp).
	Logger logging.Logger

	// ChunkBufferSize sets channel buffering for streamed chunks.
	ChunkBufferSize int

	// PersistSnapshots stores a structural network snapshot per turn.
	PersistSnapshots bool
}

// LCAgent is the high-level façade aggregating named agents and shared
// services.
type LCAgent struct {
	opts Options

	mu      sync.RWMutex
	runners map[string]*runner.Runner
}

// New creates a new LCAgent instance with optional overrides. It registers
// the built-in node types so serialized networks restore out of the box.
func New(optFns ...func(o *Options)) *LCAgent {
	opts := Options{
		Store:           session.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
		ChunkBufferSize: 64,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	node.RegisterDefaults()

	return &LCAgent{
		opts:    opts,
		runners: make(map[string]*runner.Runner),
	}
}

// RegisterAgent binds a named agent to a network factory. Re-registering a
// name replaces the previous factory.
func (a *LCAgent) RegisterAgent(name string, factory runner.AgentFactory) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.runners[name] = runner.New(factory, func(o *runner.Options) {
		o.Store = a.opts.Store
		o.Logger = a.opts.Logger
		o.ChunkBufferSize = a.opts.ChunkBufferSize
		o.PersistSnapshots = a.opts.PersistSnapshots
	})
}

// Agents returns the registered agent names.
func (a *LCAgent) Agents() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.runners))
	for name := range a.runners {
		names = append(names, name)
	}
	return names
}

// Invoke starts an asynchronous streaming run returning chunk and error
// channels.
func (a *LCAgent) Invoke(
	ctx context.Context,
	sessionID string,
	agentName string,
	input string,
) (string, <-chan core.Chunk, <-chan error, error) {
	r, err := a.runner(agentName)
	if err != nil {
		return "", nil, nil, err
	}
	return r.Run(ctx, sessionID, input)
}

// InvokeSync evaluates one turn to completion and returns the final output.
func (a *LCAgent) InvokeSync(
	ctx context.Context,
	sessionID string,
	agentName string,
	input string,
) (*core.Message, error) {
	r, err := a.runner(agentName)
	if err != nil {
		return nil, err
	}
	return r.RunSync(ctx, sessionID, input)
}

// InvokeText is a convenience wrapper around Invoke that drains the chunk
// stream into the final text.
func (a *LCAgent) InvokeText(
	ctx context.Context,
	sessionID string,
	agentName string,
	input string,
) (string, error) {
	_, chunks, errs, err := a.Invoke(ctx, sessionID, agentName, input)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for chunk := range chunks {
		b.WriteString(chunk.Content)
	}
	if err := <-errs; err != nil {
		return "", err
	}
	return b.String(), nil
}

// Cancel cancels a running run by id on whichever agent owns it.
func (a *LCAgent) Cancel(runID string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, r := range a.runners {
		if err := r.Cancel(runID); err == nil {
			return nil
		}
	}
	return fmt.Errorf("run %s not found", runID)
}

func (a *LCAgent) runner(agentName string) (*runner.Runner, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	r, ok := a.runners[agentName]
	if !ok {
		return nil, fmt.Errorf("agent %q not registered", agentName)
	}
	return r, nil
}
