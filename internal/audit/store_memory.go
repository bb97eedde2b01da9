package audit

import (
	"context"
	"sync"

	"ruconnect/pkg/domain"
)

// maxRetained bounds the in-memory trail for a long-running daemon;
// the oldest events are discarded once the cap is reached.
const maxRetained = 4096

type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if len(s.events) > maxRetained {
		s.events = s.events[len(s.events)-maxRetained:]
	}
	return nil
}

func (s *InMemoryStore) ListByActor(_ context.Context, actor domain.UserID, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	// Newest first.
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if s.events[i].Actor == actor {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

// Clear resets the store. Tests use it between cases.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
