// Package runner implements the orchestration layer above the network
// scheduler.
//
// A Runner owns an agent factory (how to build a network for one
// conversational turn), a session store (where history lives) and the run
// lifecycle: it seeds a fresh network from session history, evaluates it
// synchronously or as a chunk stream, persists the resulting turn plus an
// optional structural snapshot, and tracks active runs for cancellation.
//
// Public methods are safe for concurrent use; each run evaluates its own
// network instance.
package runner
