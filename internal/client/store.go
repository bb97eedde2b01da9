package client

import (
	"context"

	"ruconnect/pkg/domain"
	"ruconnect/pkg/ruc"
)

// ListFilter narrows and pages a client listing. A zero filter lists
// everything, newest first.
type ListFilter struct {
	// Status filters by lifecycle state when non-empty.
	Status ClientStatus
	// Query matches case-insensitively against name and RUC.
	Query  string
	Limit  int
	Offset int
}

// Store persists client-registration records. Implementations return
// sentinel.ErrNotFound for missing records and sentinel.ErrConflict
// when a RUC is already registered.
type Store interface {
	Create(ctx context.Context, client *Client) error
	FindByID(ctx context.Context, id domain.ClientID) (*Client, error)
	FindByRUC(ctx context.Context, taxID ruc.RUC) (*Client, error)
	List(ctx context.Context, filter ListFilter) ([]*Client, error)
	Update(ctx context.Context, client *Client) error
}
