package audit

import (
	"context"
	"log/slog"
)

// Sink mirrors persisted events to an external bus. Mirroring is best
// effort; the store remains the local source of truth.
type Sink interface {
	Publish(ctx context.Context, event Event)
}

// Worker consumes audit events from the publisher channel and persists
// them. A store failure is logged and the event skipped rather than
// stopping the daemon; the trail is advisory, not transactional.
type Worker struct {
	store  Store
	inbox  <-chan Event
	sink   Sink // nil when no bus is configured
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, sink Sink, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, sink: sink, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			w.handle(ctx, event)
		}
	}
}

func (w *Worker) handle(ctx context.Context, event Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to append audit event",
			"error", err,
			"event_type", string(event.Type),
			"event_id", event.ID.String(),
		)
		return
	}
	if w.sink != nil {
		w.sink.Publish(ctx, event)
	}
}
