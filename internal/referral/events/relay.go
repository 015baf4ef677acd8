package events

import (
	"context"
	"log/slog"
	"time"

	"referrals/internal/referral/models"
	id "referrals/pkg/domain"
)

// OutboxStore is the relay's view of the outbox table.
type OutboxStore interface {
	FetchUnpublished(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, eventIDs []id.EventID, now time.Time) error
}

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 100
)

// Relay polls the outbox and publishes events in occurrence order.
type Relay struct {
	store     OutboxStore
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// RelayOption configures the Relay.
type RelayOption func(*Relay)

func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithPollInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func NewRelay(store OutboxStore, publisher Publisher, opts ...RelayOption) *Relay {
	r := &Relay{
		store:     store,
		publisher: publisher,
		interval:  defaultPollInterval,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drains the outbox until ctx is cancelled. Publish failures are logged
// and retried on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		for {
			n, err := r.RelayOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if r.logger != nil {
					r.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
				}
				break
			}
			if n < r.batchSize {
				break
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RelayOnce publishes one batch and returns how many events were delivered.
// It stops at the first publish failure so ordering is preserved; events
// delivered before the failure are still marked.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	batch, err := r.store.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	published := make([]id.EventID, 0, len(batch))
	var publishErr error
	for _, event := range batch {
		if publishErr = r.publisher.Publish(ctx, event); publishErr != nil {
			break
		}
		published = append(published, event.ID)
	}

	if len(published) > 0 {
		if err := r.store.MarkPublished(ctx, published, r.now()); err != nil {
			return 0, err
		}
	}
	if publishErr != nil {
		return len(published), publishErr
	}
	return len(published), nil
}
