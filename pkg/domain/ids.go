// Package domain holds shared domain types used across feature packages.
package domain

import (
	"github.com/google/uuid"

	dErrors "ruconnect/pkg/domain-errors"
)

// Typed identifiers prevent cross-entity assignment at compile time.
// IDs must be valid, non-empty, non-nil UUIDs; ParseXxxID enforces this
// at trust boundaries (HTTP paths, tokens, stored rows).
type (
	// UserID identifies a local account.
	UserID uuid.UUID

	// SessionID identifies an authenticated session.
	SessionID uuid.UUID

	// ClientID identifies a client-registration record.
	ClientID uuid.UUID
)

// NewUserID returns a new random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewSessionID returns a new random SessionID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewClientID returns a new random ClientID.
func NewClientID() ClientID { return ClientID(uuid.New()) }

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id ClientID) String() string  { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id ClientID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }

// The defined types do not inherit uuid.UUID's text marshalling, so it
// is restated here; without it IDs would JSON-encode as byte arrays.

func (id UserID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id SessionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ClientID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(text []byte) error {
	parsed, err := ParseUserID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *SessionID) UnmarshalText(text []byte) error {
	parsed, err := ParseSessionID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ClientID) UnmarshalText(text []byte) error {
	parsed, err := ParseClientID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseUserID parses and validates a UserID from its string form.
func ParseUserID(s string) (UserID, error) {
	u, err := parseStrictUUID(s, "user ID")
	return UserID(u), err
}

// ParseSessionID parses and validates a SessionID from its string form.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseStrictUUID(s, "session ID")
	return SessionID(u), err
}

// ParseClientID parses and validates a ClientID from its string form.
func ParseClientID(s string) (ClientID, error) {
	u, err := parseStrictUUID(s, "client ID")
	return ClientID(u), err
}

// parseStrictUUID rejects empty strings, malformed UUIDs, and the nil
// UUID. uuid.Parse accepts surrounding whitespace and several exotic
// encodings; the length gate keeps the accepted forms to the canonical
// 36-character one.
func parseStrictUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", what)
	}
	if len(s) != 36 {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be the nil UUID", what)
	}
	return u, nil
}
