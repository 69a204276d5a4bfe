// Package memory provides long-lived agent memory: free-form facts stored
// per session and recalled by query. The Store interface admits pluggable
// backends (vector indexes, embedding databases); InMemoryStore is the
// process-local implementation suited to tests and demos. Tools adapts a
// store into callable functions so chat agents can remember and recall
// facts mid-conversation.
package memory
