package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/crewfinder/pkg/core/model"
	"github.com/example/crewfinder/pkg/core/search"
	"github.com/example/crewfinder/pkg/core/selection"
)

// SessionState holds one search and the selection built on top of it.
// Candidates and Criteria are fixed at search time; only Selection changes
type SessionState struct {
	ID         string
	Criteria   model.SearchCriteria
	Candidates []search.Candidate
	Selection  selection.Session
	CreatedAt  time.Time
}

// Candidate returns the candidate for a resource id, if the search
// produced one
func (s *SessionState) Candidate(resourceID string) (search.Candidate, bool) {
	for _, c := range s.Candidates {
		if c.Resource.ID == resourceID {
			return c, true
		}
	}
	return search.Candidate{}, false
}

// SessionRegistry keeps live search sessions in memory, keyed by id.
// Sessions are not persisted; a server restart discards them
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*SessionState
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*SessionState)}
}

// Create registers a new session for a completed search and returns it
func (r *SessionRegistry) Create(criteria model.SearchCriteria, candidates []search.Candidate) *SessionState {
	state := &SessionState{
		ID:         uuid.New().String(),
		Criteria:   criteria,
		Candidates: candidates,
		Selection:  selection.NewSession(),
		CreatedAt:  time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[state.ID] = state
	return state
}

// Get returns the session with the given id
func (r *SessionRegistry) Get(id string) (*SessionState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.sessions[id]
	return state, ok
}

// Update applies fn to the session under the registry lock, so concurrent
// selection changes to the same session cannot interleave
func (r *SessionRegistry) Update(id string, fn func(*SessionState) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	return fn(state)
}

// Delete removes a session from the registry
func (r *SessionRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}
