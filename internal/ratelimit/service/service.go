package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ipvcore/internal/ratelimit/metrics"
	"ipvcore/internal/ratelimit/models"
	"ipvcore/internal/ratelimit/ports"
	dErrors "ipvcore/pkg/domain-errors"
	"ipvcore/pkg/requestcontext"
)

// DefaultLimits are per-IP budgets per minute for each endpoint class.
func DefaultLimits() map[models.EndpointClass]models.Limit {
	return map[models.EndpointClass]models.Limit{
		models.ClassSession:  {Requests: 30, Window: time.Minute},
		models.ClassCallback: {Requests: 30, Window: time.Minute},
		models.ClassJourney:  {Requests: 120, Window: time.Minute},
	}
}

// BucketStore is re-exported for callers wiring a store.
type BucketStore = ports.BucketStore

type Service struct {
	buckets ports.BucketStore
	limits  map[models.EndpointClass]models.Limit
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLimit overrides the budget for one class.
func WithLimit(class models.EndpointClass, limit models.Limit) Option {
	return func(s *Service) {
		s.limits[class] = limit
	}
}

func New(buckets ports.BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("buckets store is required")
	}
	svc := &Service{
		buckets: buckets,
		limits:  DefaultLimits(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckIP consumes one request from the IP's budget for the class.
// A class without a configured limit is denied.
func (s *Service) CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.Result, error) {
	limit, ok := s.limits[class]
	if !ok || limit.Requests <= 0 {
		s.logger.WarnContext(ctx, "rate limit config missing", "endpoint_class", class)
		return &models.Result{
			Allowed:    false,
			ResetAt:    requestcontext.Now(ctx),
			RetryAfter: 60,
		}, nil
	}

	result, err := s.buckets.Allow(ctx, models.Key(class, ip), limit.Requests, limit.Window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}
	if !result.Allowed {
		s.metrics.IncRejection(string(class))
		s.logger.InfoContext(ctx, "ip rate limit exceeded",
			"endpoint_class", class,
			"limit", limit.Requests,
			"window_seconds", int(limit.Window.Seconds()),
		)
	}
	return result, nil
}
