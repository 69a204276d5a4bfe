// Package core contains the shared leaf types of the lcagent framework:
// conversation messages, streaming chunks, tool call descriptors and id
// generation. Higher level packages (network, node, model, route) all build
// on these types; core itself depends on nothing but the standard library
// and uuid.
package core
