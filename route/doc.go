// Package route implements the supervisor/router pattern on top of the
// network scheduler: a classifier turn picks a named tool-agent (or FINAL),
// a router modifier dispatches the pick by growing the graph, and bounded
// loop-detection and retry modifiers keep the fixpoint loop terminating.
package route
