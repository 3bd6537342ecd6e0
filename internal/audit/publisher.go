package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	id "carelink/pkg/domain"
)

// Publisher appends review entries and fans them out to the optional event
// stream. The store append is synchronous - a decision is not final until its
// audit entry is durable - while streaming rides a buffered channel drained by
// the Worker so a slow broker never blocks a review.
type Publisher struct {
	store  Store
	stream chan Entry
	logger *slog.Logger
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{
		store:  store,
		stream: make(chan Entry, 256),
		logger: logger,
	}
}

// Emit records the entry. ID and Timestamp are filled when absent.
func (p *Publisher) Emit(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, entry); err != nil {
		return err
	}

	select {
	case p.stream <- entry:
	default:
		// Stream backlog full; the durable store already has the entry.
		p.logger.WarnContext(ctx, "audit stream backlog full, dropping stream copy",
			"entry_id", entry.ID.String(),
		)
	}
	return nil
}

// List returns the sitter's entries oldest first.
func (p *Publisher) List(ctx context.Context, sitterID id.UserID) ([]Entry, error) {
	return p.store.ListBySitter(ctx, sitterID)
}

// Stream exposes the fan-out channel for the Worker.
func (p *Publisher) Stream() <-chan Entry {
	return p.stream
}
