package actor

import "sync"

// Registry routes messages to actors by path. The mutex guards only the
// map; delivery happens outside it so a slow receiver cannot stall
// registration.
type Registry struct {
	mu     sync.RWMutex
	actors map[Path]*Actor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{actors: make(map[Path]*Actor)}
}

// Register binds an actor to a path, replacing any previous binding.
func (r *Registry) Register(path Path, a *Actor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors[path] = a
}

// Remove unbinds a path. Removing an unknown path is a no-op.
func (r *Registry) Remove(path Path) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.actors, path)
}

// Lookup returns the actor bound to path, or nil.
func (r *Registry) Lookup(path Path) *Actor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.actors[path]
}

// Send enqueues msg on the actor bound to path. It reports false when
// no actor is bound or the mailbox rejected the message.
func (r *Registry) Send(path Path, msg Message) bool {
	a := r.Lookup(path)
	if a == nil {
		return false
	}
	return a.Enqueue(msg)
}

// Paths returns the currently bound paths, for diagnostics.
func (r *Registry) Paths() []Path {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]Path, 0, len(r.actors))
	for p := range r.actors {
		paths = append(paths, p)
	}
	return paths
}
