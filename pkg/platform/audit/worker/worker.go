// Package worker moves audit delivery off the request path.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	audit "extid/pkg/platform/audit"
)

// ErrQueueFull is returned by Append when the inbox has no room.
var ErrQueueFull = errors.New("audit queue full")

const drainTimeout = 5 * time.Second

// Worker buffers audit events and persists them to a downstream store from
// a single goroutine. Append never blocks; when the inbox is full the event
// is dropped and counted.
type Worker struct {
	store   audit.Store
	inbox   chan audit.Event
	logger  *slog.Logger
	dropped atomic.Int64
}

// NewWorker creates a worker with an inbox of the given capacity.
func NewWorker(store audit.Store, capacity int, logger *slog.Logger) *Worker {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Worker{store: store, inbox: make(chan audit.Event, capacity), logger: logger}
}

// Append enqueues event. It satisfies audit.Store so a Worker can sit
// between an audit.Publisher and a slow sink.
func (w *Worker) Append(_ context.Context, event audit.Event) error {
	select {
	case w.inbox <- event:
		return nil
	default:
		w.dropped.Add(1)
		return ErrQueueFull
	}
}

// Dropped returns how many events were rejected because the inbox was full.
func (w *Worker) Dropped() int64 {
	return w.dropped.Load()
}

// Run persists events until ctx is done, then drains what is already
// queued. Store failures are logged and the event skipped.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain(context.WithoutCancel(ctx))
			return nil
		case event := <-w.inbox:
			w.persist(ctx, event)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	for {
		select {
		case event := <-w.inbox:
			w.persist(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) persist(ctx context.Context, event audit.Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.WarnContext(ctx, "failed to persist audit event",
			"event", event.Action,
			"identifier", event.Identifier,
			"error", err,
		)
	}
}
