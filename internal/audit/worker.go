package audit

import (
	"context"
	"log/slog"
)

// Worker drains attendance events from a channel and hands them to a
// publisher. It decouples the request path from slow sinks: the service
// drops events when the inbox is full rather than stalling a check-in.
type Worker struct {
	publisher Publisher
	inbox     <-chan Event
	logger    *slog.Logger
}

func NewWorker(publisher Publisher, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

// Run consumes until the context is canceled. Publish failures are logged
// and skipped; the event stream is best-effort, the ledger is the record.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.publisher.Emit(ctx, event); err != nil {
				if w.logger != nil {
					w.logger.ErrorContext(ctx, "failed to publish attendance event",
						slog.String("type", string(event.Type)),
						slog.String("error", err.Error()))
				}
			}
		}
	}
}
