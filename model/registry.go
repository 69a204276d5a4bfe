package model

import "sync"

type registryEntry struct {
	model ChatModel
	refs  int
}

// Registry is a reference-counted name → ChatModel map. The process-wide
// instance (DefaultRegistry) is intentionally shared across all concurrent
// agent invocations: reference counting lets siblings register and
// unregister the same name independently without pulling a live model out
// from under each other — only the unregister bringing the count to zero
// actually removes the entry. Callers must balance every Register with
// exactly one Unregister.
type Registry struct {
	mu          sync.Mutex
	entries     map[string]*registryEntry
	defaultName string
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]*registryEntry{}}
}

// Register binds a name to a chat model. Registering an existing name
// increments its reference count and keeps the original model.
func (r *Registry) Register(name string, m ChatModel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		e.refs++
		return
	}
	r.entries[name] = &registryEntry{model: m, refs: 1}
	if r.defaultName == "" {
		r.defaultName = name
	}
}

// Unregister decrements a name's reference count, removing the binding when
// it reaches zero. Unregistering an unknown name is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	delete(r.entries, name)
	if r.defaultName == name {
		r.defaultName = ""
		for candidate := range r.entries {
			r.defaultName = candidate
			break
		}
	}
}

// Get resolves a name to a chat model. An unknown name yields (nil, false).
func (r *Registry) Get(name string) (ChatModel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.model, true
}

// SetDefault marks a registered name as the fallback model.
func (r *Registry) SetDefault(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultName = name
}

// DefaultName returns the fallback model name (first registered unless
// overridden), empty if the registry is empty.
func (r *Registry) DefaultName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.defaultName
}

// DefaultRegistry is the process-wide chat model registry.
var DefaultRegistry = NewRegistry()

// Register binds a name on the process-wide registry.
func Register(name string, m ChatModel) { DefaultRegistry.Register(name, m) }

// Unregister releases a name on the process-wide registry.
func Unregister(name string) { DefaultRegistry.Unregister(name) }

// Get resolves a name on the process-wide registry.
func Get(name string) (ChatModel, bool) { return DefaultRegistry.Get(name) }

// SetDefault sets the process-wide fallback model name.
func SetDefault(name string) { DefaultRegistry.SetDefault(name) }

// DefaultName returns the process-wide fallback model name.
func DefaultName() string { return DefaultRegistry.DefaultName() }
