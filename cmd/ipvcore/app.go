package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	callbackservice "ipvcore/internal/callback/service"
	"ipvcore/internal/cimit"
	cimitadapters "ipvcore/internal/cimit/adapters"
	cimitports "ipvcore/internal/cimit/ports"
	"ipvcore/internal/credentials"
	credports "ipvcore/internal/credentials/ports"
	credstore "ipvcore/internal/credentials/store"
	"ipvcore/internal/cri"
	"ipvcore/internal/evidence/vc"
	vcstore "ipvcore/internal/evidence/vc/store"
	"ipvcore/internal/journey/maps"
	journey "ipvcore/internal/journey/models"
	journeyservice "ipvcore/internal/journey/service"
	"ipvcore/internal/journey/statemachine"
	"ipvcore/internal/platform/config"
	"ipvcore/internal/platform/database"
	"ipvcore/internal/platform/flags"
	"ipvcore/internal/platform/logger"
	redisclient "ipvcore/internal/platform/redis"
	"ipvcore/internal/platform/signing"
	sessionports "ipvcore/internal/session/ports"
	sessionservice "ipvcore/internal/session/service"
	sessionstore "ipvcore/internal/session/store"
	audit "ipvcore/pkg/platform/audit"
	"ipvcore/pkg/platform/audit/publisher"
	auditmemory "ipvcore/pkg/platform/audit/store/memory"
	auditpostgres "ipvcore/pkg/platform/audit/store/postgres"
	"ipvcore/pkg/platform/circuit"
	"ipvcore/pkg/platform/tx"
)

// app holds the dependencies shared by every command. Stores fall back to
// in-memory implementations when their backing service is not configured.
type app struct {
	cfg    config.Server
	logger *slog.Logger

	db    *sql.DB
	redis *redisclient.Client

	registry *cri.Registry
	policy   *cimit.Policy
	flags    *flags.Provider
	journeys *statemachine.Registry

	sessions sessionports.Store
	vcs      credports.VcStore
	pending  credports.PendingStore
	ciStore  cimitports.CiStore
	outbox   *auditpostgres.Store
	auditor  *publisher.Publisher

	credentials *credentials.Service
}

func newApp(ctx context.Context, cfg config.Server) (*app, error) {
	a := &app{cfg: cfg, logger: logger.New(cfg.LogLevel)}

	if err := a.loadDomainConfig(); err != nil {
		return nil, err
	}
	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.credentials = credentials.New(a.vcs, a.pending, a.ciStore, a.policy, a.auditor,
		credentials.WithLogger(a.logger),
		credentials.WithMetrics(credentials.NewMetrics()),
		credentials.WithFlags(a.flags),
		credentials.WithAsyncIntake(a.registry, vc.NewValidator()),
		credentials.WithTransactor(a.transactor()),
	)
	return a, nil
}

func (a *app) loadDomainConfig() error {
	registry, digest, err := cri.LoadRegistry(a.cfg.CriConfigPath)
	if err != nil {
		return err
	}
	a.registry = registry
	a.logger.Info("cri registry loaded", "path", a.cfg.CriConfigPath, "digest", digest, "cris", len(registry.IDs()))

	policyCfg, digest, err := cimit.LoadConfig(a.cfg.CiPolicyPath)
	if err != nil {
		return err
	}
	a.policy = cimit.New(policyCfg, cimit.WithLogger(a.logger))
	a.logger.Info("ci policy loaded", "path", a.cfg.CiPolicyPath, "digest", digest, "threshold", policyCfg.Threshold)

	a.flags, err = flags.Load(a.cfg.FeatureFlagsPath, flags.WithLogger(a.logger))
	if err != nil {
		return err
	}

	a.journeys, err = statemachine.NewRegistry(maps.FS,
		statemachine.WithLogger(a.logger),
		statemachine.WithFeatureChecker(cri.NewChecker(a.registry, a.flags)),
	)
	if err != nil {
		return fmt.Errorf("load journey maps: %w", err)
	}
	return nil
}

func (a *app) openStores(ctx context.Context) error {
	var auditStore audit.Store
	if a.cfg.DatabaseURL != "" {
		db, err := database.Open(ctx, database.Config{URL: a.cfg.DatabaseURL})
		if err != nil {
			return err
		}
		a.db = db
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		a.vcs = vcstore.NewPostgres(db)
		a.pending = credstore.NewPostgresPending(db)
		a.outbox = auditpostgres.New(db)
		auditStore = a.outbox
	} else {
		a.logger.Warn("DATABASE_URL not set, using in-memory credential and audit stores")
		a.vcs = vcstore.NewInMemoryStore()
		a.pending = credstore.NewInMemoryPendingStore()
		auditStore = auditmemory.NewInMemoryStore()
	}
	a.auditor = publisher.NewPublisher(auditStore,
		publisher.WithLogger(a.logger),
		publisher.WithMetrics(publisher.NewMetrics()),
		publisher.WithComponentID(a.cfg.ComponentID),
	)

	rc, err := redisclient.New(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		a.redis = rc
		a.sessions = sessionstore.NewRedis(rc.Client,
			sessionstore.WithSessionTTL(a.cfg.SessionTTL),
			sessionstore.WithCriOAuthTTL(a.cfg.CriOAuthTTL),
		)
	} else {
		a.logger.Warn("REDIS_URL not set, using in-memory session store")
		a.sessions = sessionstore.NewInMemoryStore()
	}

	if a.cfg.CiStoreURL != "" {
		a.ciStore = cimitadapters.NewHTTPClient(a.cfg.CiStoreURL,
			cimitadapters.WithLogger(a.logger),
			cimitadapters.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
			cimitadapters.WithBreaker(circuit.New("ci-store")),
		)
	} else {
		a.logger.Warn("CI_STORE_URL not set, using in-memory contra-indicator store")
		a.ciStore = cimitadapters.NewInMemoryStore()
	}
	return nil
}

// signer prefers KMS, then a local PEM key. Without either an ephemeral key
// is generated, which only suits local runs against stub issuers.
func (a *app) signer(ctx context.Context) (signing.Signer, error) {
	switch {
	case a.cfg.KMSKeyID != "":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return signing.NewKMSSigner(kms.NewFromConfig(awsCfg), a.cfg.KMSKeyID, a.cfg.SigningKeyID), nil
	case a.cfg.SigningKeyPath != "":
		return signing.LoadLocalSigner(a.cfg.SigningKeyPath, a.cfg.SigningKeyID)
	default:
		a.logger.Warn("no signing key configured, generating an ephemeral key")
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		return signing.NewLocalSigner(key, a.cfg.SigningKeyID), nil
	}
}

// transactor spans postgres stores; in-memory stores run without one.
func (a *app) transactor() tx.Runner {
	if a.db == nil {
		return tx.Direct{}
	}
	return tx.NewSQLRunner(a.db)
}

func (a *app) sessionService() *sessionservice.Service {
	return sessionservice.New(a.sessions, a.auditor, sessionservice.WithLogger(a.logger))
}

func (a *app) journeyService() *journeyservice.Service {
	return journeyservice.New(a.sessions, a.journeys, a.auditor,
		journeyservice.WithLogger(a.logger),
		journeyservice.WithMetrics(journeyservice.NewMetrics()),
		journeyservice.WithSessionTimeout(a.cfg.BackendSessionTimeout),
		journeyservice.WithProcess(journey.ProcessCheckExistingIdentity, a.credentials.CheckExistingIdentity),
		journeyservice.WithProcess(journey.ProcessEvaluateGpg45Scores, a.credentials.EvaluateGpg45Scores),
	)
}

func (a *app) callbackService(ctx context.Context) (*callbackservice.Service, error) {
	signer, err := a.signer(ctx)
	if err != nil {
		return nil, err
	}
	client := cri.NewClient(signer, a.cfg.ComponentID, a.cfg.CallbackURL, cri.WithLogger(a.logger))
	return callbackservice.New(callbackservice.Dependencies{
		Sessions:  a.sessions,
		Registry:  a.registry,
		Client:    client,
		Validator: vc.NewValidator(),
		Vcs:       a.vcs,
		Pending:   a.pending,
		CiStore:   a.ciStore,
		Policy:    a.policy,
		Auditor:   a.auditor,
	}, callbackservice.WithLogger(a.logger), callbackservice.WithMetrics(callbackservice.NewMetrics()))
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
