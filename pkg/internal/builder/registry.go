package builder

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps session ids carried by interaction controls to live
// sessions.
type Registry[T any] struct {
	mu       sync.RWMutex
	sessions map[string]T
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{sessions: make(map[string]T)}
}

// Add stores a session under a fresh id and returns the id.
func (r *Registry[T]) Add(session T) string {
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = session
	return id
}

func (r *Registry[T]) Get(id string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

func (r *Registry[T]) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
