package session

import (
	"time"

	"github.com/tiendc/go-deepcopy"

	"github.com/lcagent/lcagent/core"
)

// Session is one persistent conversation: the ordered turns exchanged so far,
// optional structural snapshots of the networks that produced them, and
// free-form state shared across turns.
type Session struct {
	// ID is the caller-chosen session identifier.
	ID string `json:"id"`

	// Turns are the conversation messages in order.
	Turns []core.Message `json:"turns"`

	// Snapshots holds serialized network structures, newest last.
	Snapshots []map[string]any `json:"snapshots,omitempty"`

	// State is free-form per-session state.
	State map[string]any `json:"state,omitempty"`

	// CreatedAt is when the session was first created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the session last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// New constructs an empty session.
func New(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		State:     map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddTurn appends a conversation turn.
func (s *Session) AddTurn(msg core.Message) {
	s.Turns = append(s.Turns, msg)
	s.UpdatedAt = time.Now()
}

// AddSnapshot appends a serialized network structure.
func (s *Session) AddSnapshot(snapshot map[string]any) {
	s.Snapshots = append(s.Snapshots, snapshot)
	s.UpdatedAt = time.Now()
}

// MergeState merges a key/value delta into the session state.
func (s *Session) MergeState(delta map[string]any) {
	if s.State == nil {
		s.State = map[string]any{}
	}
	for k, v := range delta {
		s.State[k] = v
	}
	s.UpdatedAt = time.Now()
}

// Clone returns a deep copy so callers can mutate freely without affecting
// stored state.
func (s *Session) Clone() *Session {
	out := &Session{}
	if err := deepcopy.Copy(out, s); err != nil {
		// The session is plain data; a copy failure means a programming
		// error, fall back to a shallow copy rather than panicking.
		shallow := *s
		return &shallow
	}
	return out
}

// Store persists sessions. Implementations must be safe for concurrent use
// and must never hand out aliases of their internal state.
type Store interface {
	// Get returns the session with the given id, creating it when absent.
	Get(sessionID string) (*Session, error)

	// Create creates (or resets) the session with the given id.
	Create(sessionID string) (*Session, error)

	// Save stores a snapshot of the session.
	Save(sess *Session) error

	// AppendTurn adds a turn to an existing or newly created session.
	AppendTurn(sessionID string, msg core.Message) error

	// AddSnapshot records a serialized network structure.
	AddSnapshot(sessionID string, snapshot map[string]any) error

	// ApplyDelta merges a key/value delta into the session state.
	ApplyDelta(sessionID string, delta map[string]any) error

	// Delete removes a session. Deleting an unknown id is a no-op.
	Delete(sessionID string) error
}
