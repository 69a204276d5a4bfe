package network

import "github.com/lcagent/lcagent/core"

// EventType enumerates the structural events a network emits. Callbacks fire
// synchronously in registration order relative to the triggering change.
type EventType int

const (
	// EventNodeAdded fires after a node is structurally linked into the network.
	EventNodeAdded EventType = iota
	// EventNodeRemoved fires after a node is spliced out of the network.
	EventNodeRemoved
	// EventNodeInvoked fires after a node evaluation and its post-invoke hooks.
	EventNodeInvoked
	// EventConnectionAdded fires for each parent edge established.
	EventConnectionAdded
	// EventConnectionRemoved fires for each parent edge dropped.
	EventConnectionRemoved
	// EventMetadataChanged fires when node metadata is changed through the network.
	EventMetadataChanged
	// EventAll subscribes a callback to every event type.
	EventAll
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventNodeAdded:
		return "node_added"
	case EventNodeRemoved:
		return "node_removed"
	case EventNodeInvoked:
		return "node_invoked"
	case EventConnectionAdded:
		return "connection_added"
	case EventConnectionRemoved:
		return "connection_removed"
	case EventMetadataChanged:
		return "metadata_changed"
	case EventAll:
		return "all"
	default:
		return "unknown"
	}
}

// Event is the payload delivered to structural event callbacks.
type Event struct {
	Type    EventType
	Network *Network
	Node    Node           // Affected node, nil for network-level events
	Payload map[string]any // Event specific details (e.g. parent id for connection events)
}

// Callback receives structural events.
type Callback func(ev Event)

type callbackEntry struct {
	id string
	fn Callback
}

// OnEvent registers a callback for an event type (or EventAll) and returns a
// handle usable with RemoveCallback.
func (net *Network) OnEvent(t EventType, fn Callback) string {
	id := core.NewID()
	net.callbacks[t] = append(net.callbacks[t], callbackEntry{id: id, fn: fn})
	return id
}

// RemoveCallback unregisters a previously registered callback.
func (net *Network) RemoveCallback(id string) bool {
	for t, entries := range net.callbacks {
		for i, e := range entries {
			if e.id == id {
				net.callbacks[t] = append(entries[:i], entries[i+1:]...)
				return true
			}
		}
	}
	return false
}

// emit delivers an event to subscribers of its type, then to EventAll
// subscribers, synchronously in registration order.
func (net *Network) emit(t EventType, n Node, payload map[string]any) {
	ev := Event{Type: t, Network: net, Node: n, Payload: payload}
	for _, e := range net.callbacks[t] {
		e.fn(ev)
	}
	for _, e := range net.callbacks[EventAll] {
		e.fn(ev)
	}
}
