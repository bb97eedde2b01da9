package auth

import (
	"strings"
	"time"

	"ruconnect/internal/validation"
	"ruconnect/pkg/domain"
	dErrors "ruconnect/pkg/domain-errors"
)

// User is a local account. The daemon serves a single operator, so
// there is no tenant dimension; usernames are globally unique.
//
// Invariants:
//   - Username is non-empty after trimming and within 3..50 characters
//   - PasswordHash is a bcrypt hash and is never serialized
type User struct {
	ID           domain.UserID `json:"id"`
	Username     string        `json:"username"`
	Name         string        `json:"name,omitempty"`
	PasswordHash string        `json:"-"` // Never serialize - contains bcrypt hash
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func NewUser(id domain.UserID, username, name, passwordHash string, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username cannot be empty")
	}
	if len(username) < validation.UsernameMinLen || len(username) > validation.UsernameMaxLen {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username length out of bounds")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash cannot be empty")
	}
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user ID cannot be zero")
	}
	return &User{
		ID:           id,
		Username:     username,
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// SessionStatus is derived from the session's revocation and expiry
// state; it is not stored.
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusRevoked SessionStatus = "revoked"
	SessionStatusExpired SessionStatus = "expired"
)

// Session is a server-side login session. The JWT access token
// references it; revoking the session invalidates future logins on it
// while the token revocation list handles the already-issued token.
//
// Invariants:
//   - UserID is immutable after construction
//   - ExpiresAt is after CreatedAt
//   - Status transitions: active → revoked only; expiry is a fact of
//     time, not a transition
type Session struct {
	ID          domain.SessionID `json:"id"`
	UserID      domain.UserID    `json:"user_id"`
	Device      string           `json:"device"`
	Fingerprint string           `json:"-"`
	// TokenID is the jti of the access token issued on this session.
	// Revoking the session pushes it onto the revocation list.
	TokenID   string     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

func NewSession(id domain.SessionID, userID domain.UserID, device, fingerprint string, now time.Time, ttl time.Duration) (*Session, error) {
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session ID cannot be zero")
	}
	if userID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session user ID cannot be zero")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session ttl must be positive")
	}
	return &Session{
		ID:          id,
		UserID:      userID,
		Device:      device,
		Fingerprint: fingerprint,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}, nil
}

// Status derives the session state at the given instant. Revocation
// wins over expiry.
func (s *Session) Status(now time.Time) SessionStatus {
	if s.RevokedAt != nil {
		return SessionStatusRevoked
	}
	if now.After(s.ExpiresAt) {
		return SessionStatusExpired
	}
	return SessionStatusActive
}

// IsActive reports whether the session is neither revoked nor expired.
func (s *Session) IsActive(now time.Time) bool {
	return s.Status(now) == SessionStatusActive
}

// CanRevoke checks if the session can transition to revoked status.
// Returns nil if the transition is valid, or an error if not allowed.
func (s *Session) CanRevoke() error {
	if s.RevokedAt != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "session is already revoked")
	}
	return nil
}

// ApplyRevoke transitions the session to revoked status.
// Must only be called after CanRevoke returns nil.
func (s *Session) ApplyRevoke(now time.Time) {
	t := now
	s.RevokedAt = &t
}

// Revoke validates and applies revocation in one call.
func (s *Session) Revoke(now time.Time) error {
	if err := s.CanRevoke(); err != nil {
		return err
	}
	s.ApplyRevoke(now)
	return nil
}
