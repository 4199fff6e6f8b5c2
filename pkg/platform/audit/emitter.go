package audit

import (
	"context"
	"log/slog"
	"time"
)

// StoreEmitter is a Publisher that appends directly to a Store, stamping
// timestamps when callers leave them zero. Security events are fail-open:
// a sink failure is logged but never fails the calling operation, because
// denying service on audit backpressure would turn the audit path into an
// availability dependency.
type StoreEmitter struct {
	store  Store
	logger *slog.Logger
}

func NewStoreEmitter(store Store, logger *slog.Logger) *StoreEmitter {
	return &StoreEmitter{store: store, logger: logger}
}

func (e *StoreEmitter) Emit(ctx context.Context, event Event) error {
	if e == nil || e.store == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := e.store.Append(ctx, event); err != nil {
		if event.Category == CategoryCompliance {
			// Compliance events are fail-closed: the caller must fail too.
			return err
		}
		if e.logger != nil {
			e.logger.ErrorContext(ctx, "audit append failed",
				"action", event.Action,
				"category", event.Category,
				"error", err,
			)
		}
	}
	return nil
}

// BufferedEmitter appends compliance events synchronously and hands the
// rest to a background worker over Inbox. Compliance stays fail-closed;
// security and operations events must never block a request, so when the
// buffer is full they are dropped with a log line instead.
type BufferedEmitter struct {
	store  Store
	inbox  chan Event
	logger *slog.Logger
}

func NewBufferedEmitter(store Store, logger *slog.Logger, buffer int) *BufferedEmitter {
	return &BufferedEmitter{
		store:  store,
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Inbox is the channel a worker drains.
func (e *BufferedEmitter) Inbox() <-chan Event {
	return e.inbox
}

func (e *BufferedEmitter) Emit(ctx context.Context, event Event) error {
	if e == nil || e.store == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Category == CategoryCompliance {
		return e.store.Append(ctx, event)
	}
	select {
	case e.inbox <- event:
	default:
		if e.logger != nil {
			e.logger.ErrorContext(ctx, "audit buffer full, event dropped",
				"action", event.Action,
				"category", event.Category,
			)
		}
	}
	return nil
}
