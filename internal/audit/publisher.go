package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ruconnect/internal/platform/metrics"
)

// Publisher hands events to the worker through a buffered channel.
// Emit never blocks the calling request: when the buffer is full the
// event is dropped and counted, which keeps audit strictly off the
// request hot path.
type Publisher struct {
	inbox   chan Event
	metrics *metrics.Metrics
	logger  *slog.Logger
	clock   func() time.Time
}

// PublisherOption configures a Publisher instance.
type PublisherOption func(*Publisher)

// WithPublisherClock sets the clock function for testability.
func WithPublisherClock(clock func() time.Time) PublisherOption {
	return func(p *Publisher) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func NewPublisher(buffer int, m *metrics.Metrics, logger *slog.Logger, opts ...PublisherOption) *Publisher {
	if buffer <= 0 {
		buffer = 1
	}
	p := &Publisher{
		inbox:   make(chan Event, buffer),
		metrics: m,
		logger:  logger,
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Emit enqueues an event for the worker. Missing ID and timestamp are
// filled here so callers only describe what happened.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.At.IsZero() {
		event.At = p.clock()
	}
	select {
	case p.inbox <- event:
	default:
		p.metrics.IncrementAuditDropped()
		p.logger.WarnContext(ctx, "audit event dropped, buffer full",
			"event_type", string(event.Type),
		)
	}
}

// Inbox is the worker's end of the channel.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
