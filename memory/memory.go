package memory

// Entry is one stored memory returned from a recall query.
type Entry struct {
	// ID identifies the entry within its session for later removal.
	ID string `json:"id"`

	// Content is the remembered text.
	Content string `json:"content"`

	// Score ranks the entry against the query, higher first.
	Score float64 `json:"score"`

	// Metadata carries free-form annotations stored with the entry.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Store persists per-session memories. Implementations must be safe for
// concurrent use and must not hand out aliases of their internal state.
type Store interface {
	// Remember stores a fact for a session and returns its entry id.
	Remember(sessionID, content string, metadata map[string]any) (string, error)

	// Recall returns entries matching the query, best first, up to limit.
	// An empty query returns the oldest entries up to limit.
	Recall(sessionID, query string, limit int) ([]Entry, error)

	// Forget removes a stored entry by id.
	Forget(sessionID, entryID string) error
}
