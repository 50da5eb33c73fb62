package coordinator

import (
	"errors"
	"sync"
)

// SessionID uniquely identifies a coordinated playback session.
type SessionID string

// ErrSessionExists is returned when adding a session under an id that is
// already registered.
var ErrSessionExists = errors.New("session already exists")

// Store is the lookup abstraction for live sessions. Implementations can be
// in-memory or remote; the Registry uses a Store for all reads and writes and
// adds the locking, so Store implementations need no synchronization of
// their own.
type Store interface {
	GetSession(id SessionID) (*Orchestrator, bool)
	SetSession(id SessionID, o *Orchestrator)
	DeleteSession(id SessionID)
	ListSessionIDs() []SessionID
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	sessions map[SessionID]*Orchestrator
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[SessionID]*Orchestrator),
	}
}

// GetSession implements Store.GetSession.
func (s *InMemoryStore) GetSession(id SessionID) (*Orchestrator, bool) {
	o, ok := s.sessions[id]
	return o, ok
}

// SetSession implements Store.SetSession.
func (s *InMemoryStore) SetSession(id SessionID, o *Orchestrator) {
	s.sessions[id] = o
}

// DeleteSession implements Store.DeleteSession.
func (s *InMemoryStore) DeleteSession(id SessionID) {
	delete(s.sessions, id)
}

// ListSessionIDs implements Store.ListSessionIDs.
func (s *InMemoryStore) ListSessionIDs() []SessionID {
	ids := make([]SessionID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Registry is the concurrency-safe directory of live playback sessions.
type Registry struct {
	mu    sync.RWMutex
	store Store
}

// NewRegistry constructs a registry backed by a default in-memory store.
func NewRegistry() *Registry {
	return NewRegistryWithStore(NewInMemoryStore())
}

// NewRegistryWithStore constructs a registry that uses the given Store.
// Useful for testing or for plugging in a different backend.
func NewRegistryWithStore(store Store) *Registry {
	return &Registry{store: store}
}

// Add registers a session. It returns ErrSessionExists if the id is taken.
func (r *Registry) Add(id SessionID, o *Orchestrator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store.GetSession(id); exists {
		return ErrSessionExists
	}
	r.store.SetSession(id, o)
	return nil
}

// Get returns the session registered under id.
func (r *Registry) Get(id SessionID) (*Orchestrator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.GetSession(id)
}

// Remove disposes the session registered under id and drops it from the
// store. Removing an unknown id is a no-op and returns false.
func (r *Registry) Remove(id SessionID) bool {
	r.mu.Lock()
	o, ok := r.store.GetSession(id)
	if ok {
		r.store.DeleteSession(id)
	}
	r.mu.Unlock()

	// Dispose outside the registry lock; it serializes on the session's
	// own executor and may wait for an in-flight event.
	if ok {
		o.Dispose()
	}
	return ok
}

// ActiveSessionCount returns the number of registered sessions. Used for
// metrics.
func (r *Registry) ActiveSessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store.ListSessionIDs())
}
