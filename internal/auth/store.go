package auth

import (
	"context"

	"ruconnect/pkg/domain"
)

// UserStore persists local accounts. Implementations return
// sentinel.ErrNotFound for missing records and sentinel.ErrConflict
// when a username is already taken.
type UserStore interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id domain.UserID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
}

// SessionStore persists login sessions.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, id domain.SessionID) (*Session, error)
	ListByUser(ctx context.Context, userID domain.UserID) ([]*Session, error)
	Update(ctx context.Context, session *Session) error
}
