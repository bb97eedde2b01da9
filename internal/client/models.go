// Package client manages client-registration records: businesses
// identified by their RUC, captured by an operator during a visit.
package client

import (
	"strings"
	"time"

	"ruconnect/internal/validation"
	"ruconnect/pkg/domain"
	dErrors "ruconnect/pkg/domain-errors"
	"ruconnect/pkg/ruc"
)

// ClientStatus is the registration lifecycle state.
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
)

func (s ClientStatus) IsValid() bool {
	return s == ClientStatusActive || s == ClientStatusInactive
}

// CanTransitionTo reports whether the status may move to target.
// Active and inactive flip back and forth; nothing else exists.
func (s ClientStatus) CanTransitionTo(target ClientStatus) bool {
	switch s {
	case ClientStatusActive:
		return target == ClientStatusInactive
	case ClientStatusInactive:
		return target == ClientStatusActive
	default:
		return false
	}
}

// Client is the aggregate root for a client-registration record.
//
// Invariants:
//   - RUC is a valid taxpayer number and unique across records
//   - Name is 2..200 characters after trimming
//   - Status is either active or inactive
//   - Status transitions: active ↔ inactive only
//   - RegisteredBy is immutable after construction
type Client struct {
	ID           domain.ClientID `json:"id"`
	RUC          ruc.RUC         `json:"ruc"`
	Name         string          `json:"name"`
	Email        string          `json:"email,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	RegisteredBy domain.UserID   `json:"registered_by"`
	Status       ClientStatus    `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func NewClient(
	clientID domain.ClientID,
	taxID ruc.RUC,
	name string,
	email string,
	phone string,
	registeredBy domain.UserID,
	now time.Time,
) (*Client, error) {
	if clientID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client ID cannot be zero")
	}
	if !ruc.IsValid(taxID.String()) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client RUC is not valid")
	}
	name = strings.TrimSpace(name)
	if len(name) < validation.ClientNameMinLen {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client name is too short")
	}
	if len(name) > validation.ClientNameMaxLen {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client name is too long")
	}
	if registeredBy.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registering user cannot be zero")
	}
	return &Client{
		ID:           clientID,
		RUC:          taxID,
		Name:         name,
		Email:        strings.TrimSpace(email),
		Phone:        strings.TrimSpace(phone),
		RegisteredBy: registeredBy,
		Status:       ClientStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (c *Client) IsActive() bool {
	return c.Status == ClientStatusActive
}

// UpdateDetails replaces the mutable contact fields. The RUC, status,
// and registering user are not touched.
func (c *Client) UpdateDetails(name, email, phone string, now time.Time) error {
	name = strings.TrimSpace(name)
	if len(name) < validation.ClientNameMinLen {
		return dErrors.New(dErrors.CodeInvariantViolation, "client name is too short")
	}
	if len(name) > validation.ClientNameMaxLen {
		return dErrors.New(dErrors.CodeInvariantViolation, "client name is too long")
	}
	c.Name = name
	c.Email = strings.TrimSpace(email)
	c.Phone = strings.TrimSpace(phone)
	c.UpdatedAt = now
	return nil
}

// CanDeactivate checks if the record can transition to inactive status.
// Returns nil if the transition is valid, or an error if not allowed.
func (c *Client) CanDeactivate() error {
	if !c.Status.CanTransitionTo(ClientStatusInactive) {
		return dErrors.New(dErrors.CodeInvariantViolation, "client is already inactive")
	}
	return nil
}

// ApplyDeactivation transitions the record to inactive status.
// Must only be called after CanDeactivate returns nil.
func (c *Client) ApplyDeactivation(now time.Time) {
	c.Status = ClientStatusInactive
	c.UpdatedAt = now
}

// Deactivate validates and applies deactivation in one call.
func (c *Client) Deactivate(now time.Time) error {
	if err := c.CanDeactivate(); err != nil {
		return err
	}
	c.ApplyDeactivation(now)
	return nil
}

// CanReactivate checks if the record can transition back to active.
// Returns nil if the transition is valid, or an error if not allowed.
func (c *Client) CanReactivate() error {
	if !c.Status.CanTransitionTo(ClientStatusActive) {
		return dErrors.New(dErrors.CodeInvariantViolation, "client is already active")
	}
	return nil
}

// ApplyReactivation transitions the record back to active status.
// Must only be called after CanReactivate returns nil.
func (c *Client) ApplyReactivation(now time.Time) {
	c.Status = ClientStatusActive
	c.UpdatedAt = now
}

// Reactivate validates and applies reactivation in one call.
func (c *Client) Reactivate(now time.Time) error {
	if err := c.CanReactivate(); err != nil {
		return err
	}
	c.ApplyReactivation(now)
	return nil
}
