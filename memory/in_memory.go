package memory

import (
	"fmt"
	"strings"
	"sync"
)

// InMemoryStore keeps memories in a process-local map, ordered by insertion
// so recall is deterministic. Matching is case-insensitive substring search
// with a constant score; swap in a semantic index for production retrieval.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Entry
	nextID   int
}

// NewInMemoryStore constructs an empty in-memory memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]Entry)}
}

// Remember stores a fact for a session and returns its entry id.
func (s *InMemoryStore) Remember(sessionID, content string, metadata map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	entry := Entry{
		ID:      fmt.Sprintf("mem-%d", s.nextID),
		Content: content,
	}
	if len(metadata) > 0 {
		entry.Metadata = make(map[string]any, len(metadata))
		for k, v := range metadata {
			entry.Metadata[k] = v
		}
	}

	s.sessions[sessionID] = append(s.sessions[sessionID], entry)
	return entry.ID, nil
}

// Recall returns entries whose content contains the query, oldest first.
func (s *InMemoryStore) Recall(sessionID, query string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(query)
	results := make([]Entry, 0, limit)
	for _, entry := range s.sessions[sessionID] {
		if limit > 0 && len(results) >= limit {
			break
		}
		if query != "" && !strings.Contains(strings.ToLower(entry.Content), query) {
			continue
		}
		match := entry
		match.Score = 1.0
		if len(entry.Metadata) > 0 {
			match.Metadata = make(map[string]any, len(entry.Metadata))
			for k, v := range entry.Metadata {
				match.Metadata[k] = v
			}
		}
		results = append(results, match)
	}
	return results, nil
}

// Forget removes a stored entry by id.
func (s *InMemoryStore) Forget(sessionID, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.sessions[sessionID]
	for i, entry := range entries {
		if entry.ID == entryID {
			s.sessions[sessionID] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("memory %s not found in session %s", entryID, sessionID)
}
