package network

import "sync"

// NodeConstructor builds a fresh, detached node of a registered type.
type NodeConstructor func() Node

type factoryEntry struct {
	ctor     NodeConstructor
	defaults map[string]any
	refs     int
}

// NodeFactory is a reference-counted registry resolving a name to a
// constructible node type plus default metadata. The process-wide instance
// (DefaultFactory) is shared intentionally across all concurrent agent
// invocations; reference counting makes concurrent balanced register and
// unregister pairs for the same name safe by construction — only the
// unregister that brings the count to zero actually removes the entry.
// Callers must balance every Register with exactly one Unregister.
type NodeFactory struct {
	mu      sync.Mutex
	entries map[string]*factoryEntry
}

// NewNodeFactory constructs an empty factory.
func NewNodeFactory() *NodeFactory {
	return &NodeFactory{entries: map[string]*factoryEntry{}}
}

// Register binds a name to a node constructor with optional default
// metadata. Registering an existing name increments its reference count and
// keeps the original constructor.
func (f *NodeFactory) Register(name string, ctor NodeConstructor, defaults map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if e, ok := f.entries[name]; ok {
		e.refs++
		return
	}
	f.entries[name] = &factoryEntry{ctor: ctor, defaults: defaults, refs: 1}
}

// Unregister decrements a name's reference count, removing the registration
// when it reaches zero. Unregistering an unknown name is a no-op.
func (f *NodeFactory) Unregister(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	e, ok := f.entries[name]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(f.entries, name)
	}
}

// Create resolves a name to a fresh node with default metadata applied. An
// unknown name yields (nil, false) rather than an error: whether absence is
// fatal is the caller's decision.
func (f *NodeFactory) Create(name string) (Node, bool) {
	f.mu.Lock()
	e, ok := f.entries[name]
	f.mu.Unlock()

	if !ok {
		return nil, false
	}

	n := e.ctor()
	for k, v := range e.defaults {
		n.SetMeta(k, v)
	}
	return n, true
}

// Registered reports whether a name is currently bound.
func (f *NodeFactory) Registered(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[name]
	return ok
}

// Names returns the currently bound names (unordered).
func (f *NodeFactory) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.entries))
	for name := range f.entries {
		names = append(names, name)
	}
	return names
}

// DefaultFactory is the process-wide node factory.
var DefaultFactory = NewNodeFactory()

// RegisterNodeType registers a node type on the process-wide factory.
func RegisterNodeType(name string, ctor NodeConstructor, defaults map[string]any) {
	DefaultFactory.Register(name, ctor, defaults)
}

// UnregisterNodeType unregisters a node type from the process-wide factory.
func UnregisterNodeType(name string) {
	DefaultFactory.Unregister(name)
}

// CreateNode builds a node from the process-wide factory.
func CreateNode(name string) (Node, bool) {
	return DefaultFactory.Create(name)
}
