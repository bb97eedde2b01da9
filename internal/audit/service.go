package audit

import (
	"context"

	"ruconnect/pkg/domain"
	dErrors "ruconnect/pkg/domain-errors"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Service answers audit queries for the operator endpoints. Writes go
// through the Publisher and Worker; reads come straight from the store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// ListByActor returns the actor's recent events, newest first.
func (s *Service) ListByActor(ctx context.Context, actor domain.UserID, limit int) ([]Event, error) {
	if actor.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user ID required")
	}
	events, err := s.store.ListByActor(ctx, actor, clampLimit(limit))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events")
	}
	return events, nil
}

// ListRecent returns the most recent events across all actors.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	events, err := s.store.ListRecent(ctx, clampLimit(limit))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events")
	}
	return events, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
