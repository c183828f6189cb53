// Package worker relays audit events from the outbox table to Kafka.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "ipvcore/pkg/platform/audit"
	"ipvcore/pkg/platform/audit/store/postgres"
	"ipvcore/pkg/platform/circuit"
)

// Outbox is the relay's view of the outbox store.
type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]postgres.Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Sink publishes one serialized event.
type Sink interface {
	Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
}

// Worker polls the outbox and publishes entries in order. A publish failure
// stops the current batch so later events never overtake earlier ones.
type Worker struct {
	outbox   Outbox
	sink     Sink
	topics   map[audit.Category]string
	interval time.Duration
	batch    int
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

// Option configures the Worker.
type Option func(*Worker)

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		w.interval = d
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		w.batch = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(w *Worker) {
		w.breaker = b
	}
}

// NewWorker builds a relay. topics maps each category to its Kafka topic;
// categories without a topic use the journey topic.
func NewWorker(outbox Outbox, sink Sink, topics map[audit.Category]string, opts ...Option) *Worker {
	w := &Worker{
		outbox:   outbox,
		sink:     sink,
		topics:   topics,
		interval: time.Second,
		batch:    100,
		breaker:  circuit.New("audit-relay"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.RelayOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.ErrorContext(ctx, "audit relay failed", "error", err)
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many entries were delivered.
func (w *Worker) RelayOnce(ctx context.Context) (int, error) {
	if !w.breaker.Allow() {
		return 0, circuit.ErrOpen
	}
	entries, err := w.outbox.FetchUnpublished(ctx, w.batch)
	if err != nil {
		return 0, err
	}

	var done []uuid.UUID
	var publishErr error
	for _, e := range entries {
		headers := map[string]string{"event_name": string(e.EventName)}
		if err := w.sink.Publish(ctx, w.topicFor(e.Category), e.Key, e.Payload, headers); err != nil {
			if _, change := w.breaker.RecordFailure(); change.Opened {
				w.logger.WarnContext(ctx, "audit relay circuit opened", "error", err)
			}
			publishErr = err
			break
		}
		w.breaker.RecordSuccess()
		done = append(done, e.ID)
	}

	if err := w.outbox.MarkPublished(ctx, done); err != nil {
		return 0, err
	}
	return len(done), publishErr
}

func (w *Worker) topicFor(c audit.Category) string {
	if t, ok := w.topics[c]; ok {
		return t
	}
	return w.topics[audit.CategoryJourney]
}
