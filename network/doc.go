// Package network implements the RunnableNetwork execution core: a directed
// acyclic graph of nodes evaluated by an incremental fixpoint scheduler.
//
// A Network owns a mutable collection of nodes (LLM turns, tool calls, human
// input) plus an ordered collection of modifiers. Evaluation interleaves
// "invoke one node" with "let modifiers react and possibly grow the graph":
// modifiers observe each node's output and may add, remove or rewire nodes,
// so the execution plan is discovered rather than computed upfront. The loop
// terminates when a full pass over the topologically sorted nodes invokes
// nothing.
//
// Networks compose: a NetworkNode delegates its own invocation to an internal
// sub-network, enabling recursive multi-agent nesting. The "active network"
// used by construction code and modifiers is carried on context.Context as an
// immutable stack, so concurrent top-level invocations never observe each
// other's nesting.
//
// The package also provides the structural event surface (node added/removed/
// invoked, connection changes), a reference-counted node factory, and a full
// structural serialization round trip (Snapshot / Restore).
package network
