package audit

import (
	"context"
	"log/slog"
)

// Worker drains the Publisher's stream channel and ships each entry to the
// stream publisher. Failures are logged and dropped; the durable store
// already holds the entry, so the stream stays best-effort.
type Worker struct {
	source <-chan Entry
	sink   *StreamPublisher
	logger *slog.Logger
}

func NewWorker(source <-chan Entry, sink *StreamPublisher, logger *slog.Logger) *Worker {
	return &Worker{source: source, sink: sink, logger: logger}
}

// Run blocks until ctx is cancelled, publishing entries as they arrive.
func (w *Worker) Run(ctx context.Context) error {
	if w.sink == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.source:
			if err := w.sink.Publish(ctx, entry); err != nil {
				w.logger.ErrorContext(ctx, "audit stream publish failed",
					"entry_id", entry.ID.String(),
					"error", err,
				)
			}
		}
	}
}
