package auth

import (
	"context"
	"sort"
	"strings"
	"sync"

	"ruconnect/pkg/domain"
	"ruconnect/pkg/platform/sentinel"
)

// In-memory stores back the default deployment and the test suite.
// They intentionally favor clarity over performance.
type InMemoryUserStore struct {
	mu         sync.RWMutex
	users      map[domain.UserID]*User
	byUsername map[string]domain.UserID
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:      make(map[domain.UserID]*User),
		byUsername: make(map[string]domain.UserID),
	}
}

func (s *InMemoryUserStore) Create(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := usernameKey(user.Username)
	if _, exists := s.byUsername[key]; exists {
		return sentinel.ErrConflict
	}
	copied := *user
	s.users[user.ID] = &copied
	s.byUsername[key] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, id domain.UserID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *InMemoryUserStore) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[usernameKey(username)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.users[id]
	return &copied, nil
}

// usernameKey folds case so "Maria" and "maria" are the same account.
func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*Session
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[domain.SessionID]*Session)}
}

func (s *InMemorySessionStore) Create(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *InMemorySessionStore) FindByID(_ context.Context, id domain.SessionID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *InMemorySessionStore) ListByUser(_ context.Context, userID domain.UserID) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sessions []*Session
	for _, session := range s.sessions {
		if session.UserID == userID {
			copied := *session
			sessions = append(sessions, &copied)
		}
	}
	// Newest first so the current session leads the listing.
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (s *InMemorySessionStore) Update(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return sentinel.ErrNotFound
	}
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}
