// Package node provides the built-in node types evaluated by a
// network.Network: human turns, chat model turns and Go function calls.
// All types embed network.BaseNode and register with the node factory via
// RegisterDefaults so serialized graphs can be reconstructed.
package node
