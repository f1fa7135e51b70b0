package session

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/wricardo/chess-relay/game/engine"
	"github.com/wricardo/chess-relay/game/service"
	"github.com/wricardo/chess-relay/metrics"
)

var ErrSessionNotFound = errors.New("session not found")

// Registry is the process-wide, in-memory session store
type Registry struct {
	sessions map[string]*service.Session
	rules    engine.Rules
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry whose sessions start from rules.InitialState()
func NewRegistry(rules engine.Rules) *Registry {
	return &Registry{
		sessions: make(map[string]*service.Session),
		rules:    rules,
	}
}

// GetOrCreate returns the session with the given id, creating a waiting one on
// first reference. Identifiers are case-sensitive.
func (r *Registry) GetOrCreate(id string) *service.Session {
	r.mu.RLock()
	sess, exists := r.sessions[id]
	r.mu.RUnlock()
	if exists {
		return sess
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// another goroutine may have created it between the two locks
	if sess, exists := r.sessions[id]; exists {
		return sess
	}

	sess = service.NewSession(id, r.rules.InitialState())
	r.sessions[id] = sess
	metrics.SessionsOpen.Inc()
	return sess
}

// Get retrieves a session by id
func (r *Registry) Get(id string) (*service.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, exists := r.sessions[id]
	if !exists {
		return nil, errors.Wrapf(ErrSessionNotFound, "%q", id)
	}
	return sess, nil
}

// Remove drops a session. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; !exists {
		return
	}
	delete(r.sessions, id)
	metrics.SessionsOpen.Dec()
}

// List returns every registered session ordered by id
func (r *Registry) List() []*service.Session {
	r.mu.RLock()
	result := lo.Values(r.sessions)
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Count returns the number of registered sessions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

var _ service.SessionRegistry = (*Registry)(nil)
