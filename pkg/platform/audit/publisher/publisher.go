// Package publisher emits audit events with fail-closed semantics.
//
// Emit blocks until the store accepts the event. If the write fails the
// error is returned and the calling step must fail; nothing is buffered or
// dropped.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "ipvcore/pkg/platform/audit"
	"ipvcore/pkg/platform/middleware/device"
	"ipvcore/pkg/requestcontext"
)

// ErrMissingName is returned for events without a name.
var ErrMissingName = errors.New("audit event requires a name")

// Publisher stamps and persists audit events.
type Publisher struct {
	store       audit.Store
	componentID string
	logger      *slog.Logger
	metrics     *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithComponentID sets the component_id stamped on every event.
func WithComponentID(componentID string) Option {
	return func(p *Publisher) {
		p.componentID = componentID
	}
}

// NewPublisher creates a publisher over store. The store should be
// outbox-backed in production.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit fills the event envelope from the request context and writes it.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Name == "" {
		return ErrMissingName
	}
	start := time.Now()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.ComponentID == "" {
		event.ComponentID = p.componentID
	}
	if event.User.IPAddress == "" {
		event.User.IPAddress = requestcontext.ClientIP(ctx)
	}
	if device := deviceInformation(ctx); device != nil {
		if event.Restricted == nil {
			event.Restricted = make(map[string]any, 1)
		}
		if _, set := event.Restricted["device_information"]; !set {
			event.Restricted["device_information"] = device
		}
	}

	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.IncPersistFailures()
		p.logger.ErrorContext(ctx, "audit event not persisted",
			"event", event.Name,
			"session_id", event.User.SessionID,
			"error", err,
		)
		return fmt.Errorf("persist audit event %s: %w", event.Name, err)
	}

	p.metrics.ObservePersistDuration(time.Since(start).Seconds())
	p.metrics.IncEmitted(string(event.Name))
	return nil
}

// deviceInformation prefers a summary already placed in the context and
// otherwise parses the User-Agent.
func deviceInformation(ctx context.Context) map[string]string {
	if info := requestcontext.DeviceInformation(ctx); info != nil {
		return info
	}
	return device.Parse(requestcontext.UserAgent(ctx))
}
