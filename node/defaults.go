package node

import "github.com/lcagent/lcagent/network"

// RegisterDefaults registers the built-in node types on the process-wide
// factory so serialized graphs restore without per-caller setup. Balanced by
// UnregisterDefaults; the factory reference-counts repeated registrations.
func RegisterDefaults() {
	network.RegisterNodeType(TypeHuman, func() network.Node { return NewHumanNode("") }, nil)
	network.RegisterNodeType(TypeChat, func() network.Node { return NewChatNode() }, nil)
	network.RegisterNodeType(TypeFunction, func() network.Node { return NewFunctionNode(nil) }, nil)
	network.RegisterNodeType(network.TypeNetworkNode, func() network.Node {
		return network.NewNetworkNode("", network.New())
	}, nil)
}

// UnregisterDefaults releases the registrations made by RegisterDefaults.
func UnregisterDefaults() {
	network.UnregisterNodeType(TypeHuman)
	network.UnregisterNodeType(TypeChat)
	network.UnregisterNodeType(TypeFunction)
	network.UnregisterNodeType(network.TypeNetworkNode)
}
