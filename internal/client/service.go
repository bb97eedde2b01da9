package client

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"ruconnect/internal/audit"
	"ruconnect/internal/platform/metrics"
	"ruconnect/internal/validation"
	"ruconnect/pkg/domain"
	dErrors "ruconnect/pkg/domain-errors"
	"ruconnect/pkg/platform/sentinel"
	"ruconnect/pkg/ruc"
)

var tracer = otel.Tracer("ruconnect/internal/client")

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// AuditPublisher records registration lifecycle events without
// blocking the request path.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// RegisterInput carries the fields for a new registration.
type RegisterInput struct {
	RUC   string
	Name  string
	Email string
	Phone string
}

// UpdateInput carries the mutable contact fields. The RUC identifies a
// business permanently and cannot be changed.
type UpdateInput struct {
	Name  string
	Email string
	Phone string
}

// Service implements client-registration record management.
type Service struct {
	store   Store
	audit   AuditPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	clock   func() time.Time
}

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// WithServiceClock sets the clock function for testability.
func WithServiceClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewService(store Store, auditPublisher AuditPublisher, m *metrics.Metrics, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		audit:   auditPublisher,
		metrics: m,
		logger:  logger,
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Register validates the input and creates a new registration record
// owned by the acting user. The RUC must not be registered already.
func (s *Service) Register(ctx context.Context, actor domain.UserID, input RegisterInput) (*Client, error) {
	ctx, span := tracer.Start(ctx, "client.Register")
	defer span.End()

	if actor.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user ID required")
	}

	rules := validation.ClientName(input.Name)
	rules = append(rules,
		validation.ValidRUC("ruc", input.RUC),
		validation.Email("email", input.Email),
		validation.MaxLen("phone", input.Phone, validation.PhoneMaxLen),
	)
	if err := validation.Apply(rules...); err != nil {
		s.metrics.IncrementRUCValidation("invalid")
		return nil, err
	}
	s.metrics.IncrementRUCValidation("valid")

	taxID, err := ruc.Parse(input.RUC)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid RUC")
	}

	record, err := NewClient(domain.NewClientID(), taxID, input.Name, input.Email, input.Phone, actor, s.clock())
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a client with this RUC is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create client")
	}

	s.metrics.IncrementClientsRegistered()
	s.audit.Emit(ctx, audit.Event{
		Type:    audit.EventClientRegistered,
		Actor:   actor,
		Subject: record.RUC.String(),
		Detail:  map[string]string{"client_id": record.ID.String(), "name": record.Name},
	})
	span.SetAttributes(attribute.String("client_id", record.ID.String()))

	return record, nil
}

// Get loads a single record by its ID.
func (s *Service) Get(ctx context.Context, id domain.ClientID) (*Client, error) {
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "client ID required")
	}
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
	}
	return record, nil
}

// GetByRUC loads a single record by its RUC. The input is validated
// first so a malformed number reads as bad input, not a missing record.
func (s *Service) GetByRUC(ctx context.Context, raw string) (*Client, error) {
	taxID, err := ruc.Parse(raw)
	if err != nil {
		return nil, err
	}
	record, err := s.store.FindByRUC(ctx, taxID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
	}
	return record, nil
}

// List returns records newest first, narrowed by the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Client, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown status %q", filter.Status)
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Limit = clampLimit(filter.Limit)

	records, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list clients")
	}
	return records, nil
}

// Update replaces the mutable contact fields of a record.
func (s *Service) Update(ctx context.Context, actor domain.UserID, id domain.ClientID, input UpdateInput) (*Client, error) {
	ctx, span := tracer.Start(ctx, "client.Update")
	defer span.End()

	if actor.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user ID required")
	}
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "client ID required")
	}

	rules := validation.ClientName(input.Name)
	rules = append(rules,
		validation.Email("email", input.Email),
		validation.MaxLen("phone", input.Phone, validation.PhoneMaxLen),
	)
	if err := validation.Apply(rules...); err != nil {
		return nil, err
	}

	record, err := s.loadForChange(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := record.UpdateDetails(input.Name, input.Email, input.Phone, s.clock()); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update client")
	}

	s.audit.Emit(ctx, audit.Event{
		Type:    audit.EventClientUpdated,
		Actor:   actor,
		Subject: record.RUC.String(),
		Detail:  map[string]string{"client_id": record.ID.String()},
	})
	return record, nil
}

// Deactivate retires an active record. Deactivating an inactive record
// is an invariant violation, surfaced as a conflict at the API.
func (s *Service) Deactivate(ctx context.Context, actor domain.UserID, id domain.ClientID) (*Client, error) {
	ctx, span := tracer.Start(ctx, "client.Deactivate")
	defer span.End()

	record, err := s.transition(ctx, actor, id, audit.EventClientDeactivated,
		func(c *Client) error { return c.Deactivate(s.clock()) })
	return record, err
}

// Reactivate returns an inactive record to service.
func (s *Service) Reactivate(ctx context.Context, actor domain.UserID, id domain.ClientID) (*Client, error) {
	ctx, span := tracer.Start(ctx, "client.Reactivate")
	defer span.End()

	record, err := s.transition(ctx, actor, id, audit.EventClientReactivated,
		func(c *Client) error { return c.Reactivate(s.clock()) })
	return record, err
}

func (s *Service) transition(ctx context.Context, actor domain.UserID, id domain.ClientID, eventType audit.EventType, apply func(*Client) error) (*Client, error) {
	if actor.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user ID required")
	}
	if id.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "client ID required")
	}

	record, err := s.loadForChange(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(record); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update client")
	}

	s.audit.Emit(ctx, audit.Event{
		Type:    eventType,
		Actor:   actor,
		Subject: record.RUC.String(),
		Detail:  map[string]string{"client_id": record.ID.String(), "status": string(record.Status)},
	})
	return record, nil
}

func (s *Service) loadForChange(ctx context.Context, id domain.ClientID) (*Client, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
	}
	return record, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
