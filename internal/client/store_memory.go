package client

import (
	"context"
	"sort"
	"strings"
	"sync"

	"ruconnect/pkg/domain"
	"ruconnect/pkg/platform/sentinel"
	"ruconnect/pkg/ruc"
)

// InMemoryStore backs the default self-contained deployment and the
// test suite.
type InMemoryStore struct {
	mu      sync.RWMutex
	clients map[domain.ClientID]*Client
	byRUC   map[ruc.RUC]domain.ClientID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		clients: make(map[domain.ClientID]*Client),
		byRUC:   make(map[ruc.RUC]domain.ClientID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, client *Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byRUC[client.RUC]; exists {
		return sentinel.ErrConflict
	}
	copied := *client
	s.clients[client.ID] = &copied
	s.byRUC[client.RUC] = client.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.ClientID) (*Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *client
	return &copied, nil
}

func (s *InMemoryStore) FindByRUC(_ context.Context, taxID ruc.RUC) (*Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byRUC[taxID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.clients[id]
	return &copied, nil
}

func (s *InMemoryStore) List(_ context.Context, filter ListFilter) ([]*Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*Client, 0, len(s.clients))
	for _, client := range s.clients {
		if !matchesFilter(client, filter) {
			continue
		}
		copied := *client
		matched = append(matched, &copied)
	}
	// Newest first; ties broken by ID for a stable page order.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	if filter.Offset >= len(matched) {
		return []*Client{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *InMemoryStore) Update(_ context.Context, client *Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client.ID]; !ok {
		return sentinel.ErrNotFound
	}
	copied := *client
	s.clients[client.ID] = &copied
	return nil
}

func matchesFilter(client *Client, filter ListFilter) bool {
	if filter.Status != "" && client.Status != filter.Status {
		return false
	}
	if filter.Query != "" {
		q := strings.ToLower(strings.TrimSpace(filter.Query))
		name := strings.ToLower(client.Name)
		if !strings.Contains(name, q) && !strings.Contains(client.RUC.String(), q) {
			return false
		}
	}
	return true
}
