// Package credentials decides what a user's stored credentials are worth:
// whether an existing identity can be reused, whether the credentials gathered
// in this journey meet the requested trust level, and what to do with
// credentials delivered asynchronously.
package credentials

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	cimitports "ipvcore/internal/cimit/ports"
	"ipvcore/internal/credentials/ports"
	evidence "ipvcore/internal/evidence/models"
	"ipvcore/internal/evidence/vc"
	id "ipvcore/pkg/domain"
	audit "ipvcore/pkg/platform/audit"
	"ipvcore/pkg/platform/tx"
)

// Feature flags consulted by this package.
const (
	FeatureResetIdentity = "resetIdentity"
)

// CriTicf is the risk-signal issuer whose credentials carry no evidence and
// are never reused.
const CriTicf id.CriID = "ticf"

// ErrUnexpectedAsyncCredential is returned for deliveries that match no
// pending request.
var ErrUnexpectedAsyncCredential = errors.New("unexpected async credential")

var tracer trace.Tracer = otel.Tracer("ipvcore/internal/credentials")

// CiPolicy is the contra-indicator policy as seen by the credential decisions.
type CiPolicy interface {
	IsBreachingThreshold(cis []evidence.ContraIndicator) bool
	BreachOutcome(cis []evidence.ContraIndicator) string
}

// FlagSource answers feature flags with an explicit default.
type FlagSource interface {
	Enabled(ctx context.Context, name string, def bool) bool
}

// Validator checks credentials against an issuer.
type Validator interface {
	ValidateAll(raws []string, issuer vc.Issuer, userID id.UserID) ([]evidence.VerifiableCredential, error)
}

// IssuerRegistry resolves the validator view of an issuer.
type IssuerRegistry interface {
	Issuer(criID id.CriID) (vc.Issuer, error)
}

// Service holds the credential decisions.
type Service struct {
	vcs       ports.VcStore
	pending   ports.PendingStore
	ciStore   cimitports.CiStore
	policy    CiPolicy
	auditor   audit.Emitter
	flags     FlagSource
	issuers   IssuerRegistry
	validator Validator
	tx        tx.Runner
	logger    *slog.Logger
	metrics   *Metrics
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithFlags(flags FlagSource) Option {
	return func(s *Service) {
		s.flags = flags
	}
}

// WithTransactor groups the writes that settle an async delivery.
func WithTransactor(r tx.Runner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

// WithAsyncIntake enables ProcessBatch.
func WithAsyncIntake(issuers IssuerRegistry, validator Validator) Option {
	return func(s *Service) {
		s.issuers = issuers
		s.validator = validator
	}
}

func New(vcs ports.VcStore, pending ports.PendingStore, ciStore cimitports.CiStore, policy CiPolicy, auditor audit.Emitter, opts ...Option) *Service {
	s := &Service{
		vcs:     vcs,
		pending: pending,
		ciStore: ciStore,
		policy:  policy,
		auditor: auditor,
		tx:      tx.Direct{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) flagEnabled(ctx context.Context, name string) bool {
	return s.flags != nil && s.flags.Enabled(ctx, name, false)
}
