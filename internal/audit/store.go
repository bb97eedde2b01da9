package audit

import (
	"context"

	"ruconnect/pkg/domain"
)

// Store persists audit events. Append must be idempotent on event ID
// so a retried delivery never duplicates a row.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actor domain.UserID, limit int) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
