package claim

import (
	"context"
	"sync"

	"claimflow/pkg/platform/sentinel"
)

// InMemoryStore holds live claim sessions. Sessions are ephemeral by design;
// nothing here survives a restart and durability begins only at commit.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

func (s *InMemoryStore) Save(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return session, nil
}

// DeleteByEmployee drops any session held for the employee. A new policy
// lookup invalidates in-progress drafts, so opening a session replaces the
// old one wholesale.
func (s *InMemoryStore) DeleteByEmployee(_ context.Context, employeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.EmployeeID == employeeID {
			delete(s.sessions, id)
		}
	}
	return nil
}
