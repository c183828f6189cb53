package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	callbackhandler "ipvcore/internal/callback/handler"
	journeyhandler "ipvcore/internal/journey/handler"
	"ipvcore/internal/platform/flags"
	"ipvcore/internal/platform/httpserver"
	"ipvcore/internal/platform/kafka/producer"
	"ipvcore/internal/platform/metrics"
	"ipvcore/internal/platform/middleware"
	ratelimitmetrics "ipvcore/internal/ratelimit/metrics"
	ratelimitmw "ipvcore/internal/ratelimit/middleware"
	ratelimit "ipvcore/internal/ratelimit/models"
	ratelimitservice "ipvcore/internal/ratelimit/service"
	"ipvcore/internal/ratelimit/store/bucket"
	sessionhandler "ipvcore/internal/session/handler"
	audit "ipvcore/pkg/platform/audit"
	"ipvcore/pkg/platform/audit/worker"
	"ipvcore/pkg/platform/middleware/device"
	"ipvcore/pkg/platform/middleware/metadata"
	"ipvcore/pkg/platform/middleware/requesttime"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the journey API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.cfg.Addr, "addr", opts.cfg.Addr, "listen address")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	router, err := a.router(ctx)
	if err != nil {
		return err
	}
	srv := httpserver.New(a.cfg.Addr, otelhttp.NewHandler(router, "ipvcore"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting ipvcore", "addr", a.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	watcher, err := flags.NewWatcher([]string{a.cfg.FeatureFlagsPath}, a.flags.Reload, a.logger)
	if err != nil {
		a.logger.Warn("feature flag reload disabled", "error", err)
	} else {
		g.Go(func() error { return watcher.Run(ctx) })
	}

	relay, closeRelay, err := a.auditRelay()
	if err != nil {
		return err
	}
	if relay != nil {
		defer closeRelay()
		g.Go(func() error { return relay.Run(ctx) })
	}

	return g.Wait()
}

func (a *app) router(ctx context.Context) (http.Handler, error) {
	callback, err := a.callbackService(ctx)
	if err != nil {
		return nil, err
	}
	m := metrics.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(device.Middleware)
	r.Use(middleware.Logger(a.logger))
	r.Use(middleware.Recovery(a.logger))

	r.Get("/healthcheck", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", metrics.Handler())

	limiter, err := a.rateLimiter()
	if err != nil {
		return nil, err
	}
	r.Group(func(r chi.Router) {
		r.Use(limiter.RateLimit(ratelimit.ClassSession))
		sessionhandler.New(a.sessionService(), a.logger, m).Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(limiter.RateLimit(ratelimit.ClassJourney))
		journeyhandler.New(a.journeyService(), a.logger, m).Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(limiter.RateLimit(ratelimit.ClassCallback))
		callbackhandler.New(callback, a.logger, m).Register(r)
	})
	return r, nil
}

// rateLimiter shares budgets through redis when it is configured.
func (a *app) rateLimiter() (*ratelimitmw.Middleware, error) {
	var buckets ratelimitservice.BucketStore = bucket.NewInMemoryBucketStore()
	if a.redis != nil {
		buckets = bucket.NewRedisStore(a.redis.Client)
	}
	rl := a.cfg.RateLimit
	m := ratelimitmetrics.New()
	svc, err := ratelimitservice.New(buckets,
		ratelimitservice.WithLogger(a.logger),
		ratelimitservice.WithMetrics(m),
		ratelimitservice.WithLimit(ratelimit.ClassSession, ratelimit.Limit{Requests: rl.SessionPerMinute, Window: time.Minute}),
		ratelimitservice.WithLimit(ratelimit.ClassCallback, ratelimit.Limit{Requests: rl.CallbackPerMinute, Window: time.Minute}),
		ratelimitservice.WithLimit(ratelimit.ClassJourney, ratelimit.Limit{Requests: rl.JourneyPerMinute, Window: time.Minute}),
	)
	if err != nil {
		return nil, err
	}
	return ratelimitmw.New(svc, a.logger, ratelimitmw.WithDisabled(rl.Disabled), ratelimitmw.WithMetrics(m)), nil
}

// auditRelay forwards the audit outbox to Kafka. It needs both a database
// and brokers; otherwise events stay in the store they were written to.
func (a *app) auditRelay() (*worker.Worker, func(), error) {
	if a.outbox == nil || len(a.cfg.Kafka.Brokers) == 0 {
		a.logger.Warn("audit relay disabled", "database", a.outbox != nil, "brokers", len(a.cfg.Kafka.Brokers))
		return nil, nil, nil
	}
	sink, err := producer.New(a.cfg.Kafka.Brokers)
	if err != nil {
		return nil, nil, err
	}
	topics := map[audit.Category]string{
		audit.CategoryJourney:    a.cfg.Kafka.AuditJourney,
		audit.CategoryIdentity:   a.cfg.Kafka.AuditIdentity,
		audit.CategoryCredential: a.cfg.Kafka.AuditCred,
	}
	return worker.NewWorker(a.outbox, sink, topics, worker.WithLogger(a.logger.With(slog.String("component", "audit-relay")))), sink.Close, nil
}
