// Package service processes the browser return from a credential issuer and
// builds the redirect that sends the user there.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ipvcore/internal/callback/models"
	"ipvcore/internal/callback/ports"
	cimitports "ipvcore/internal/cimit/ports"
	credmodels "ipvcore/internal/credentials/models"
	credports "ipvcore/internal/credentials/ports"
	"ipvcore/internal/cri"
	evidence "ipvcore/internal/evidence/models"
	"ipvcore/internal/evidence/vc"
	"ipvcore/internal/gpg45"
	journey "ipvcore/internal/journey/models"
	"ipvcore/internal/journey/statemachine"
	session "ipvcore/internal/session/models"
	sessionports "ipvcore/internal/session/ports"
	id "ipvcore/pkg/domain"
	dErrors "ipvcore/pkg/domain-errors"
	audit "ipvcore/pkg/platform/audit"
	"ipvcore/pkg/platform/sentinel"
	"ipvcore/pkg/requestcontext"
)

// ErrInvalidOAuthState means the callback state does not match a redirect
// this service started for the same issuer and session.
var ErrInvalidOAuthState = errors.New("invalid oauth state")

var errUserMismatch = errors.New("credential response subject does not match session user")

var tracer trace.Tracer = otel.Tracer("ipvcore/internal/callback")

// Dependencies are the collaborators every callback needs.
type Dependencies struct {
	Sessions  sessionports.Store
	Registry  ports.CriRegistry
	Client    ports.CriClient
	Validator ports.Validator
	Vcs       credports.VcStore
	Pending   credports.PendingStore
	CiStore   cimitports.CiStore
	Policy    ports.CiPolicy
	Auditor   audit.Emitter
}

func (d Dependencies) validate() error {
	switch {
	case d.Sessions == nil:
		return errors.New("session store is required")
	case d.Registry == nil:
		return errors.New("cri registry is required")
	case d.Client == nil:
		return errors.New("cri client is required")
	case d.Validator == nil:
		return errors.New("credential validator is required")
	case d.Vcs == nil || d.Pending == nil:
		return errors.New("credential stores are required")
	case d.CiStore == nil || d.Policy == nil:
		return errors.New("ci store and policy are required")
	case d.Auditor == nil:
		return errors.New("audit emitter is required")
	}
	return nil
}

// Service handles CRI callbacks.
type Service struct {
	deps    Dependencies
	logger  *slog.Logger
	metrics *Metrics
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

func New(deps Dependencies, opts ...Option) (*Service, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	s := &Service{deps: deps, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ProcessCallback turns a CRI redirect into the next journey step. The
// session is saved on every path once it has been loaded.
func (s *Service) ProcessCallback(ctx context.Context, req models.CallbackRequest) (step statemachine.StepResponse, err error) {
	req.Normalize()
	ctx, span := tracer.Start(ctx, "callback.ProcessCallback",
		trace.WithAttributes(attribute.String("cri_id", req.CredentialIssuerID)))
	defer func() {
		outcome := outcomeOf(step, err)
		s.metrics.IncOutcome(req.CredentialIssuerID, outcome)
		span.SetAttributes(attribute.String("outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cri callback failed")
		}
		span.End()
	}()

	cfg, sessionID, err := s.validateRequest(req)
	if err != nil {
		return nil, err
	}

	sess, client, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if saveErr := s.deps.Sessions.SaveIpvSession(ctx, sess); saveErr != nil {
			s.logger.ErrorContext(ctx, "failed to save session after callback",
				"session_id", sess.ID.String(),
				"error", saveErr,
			)
			if err == nil {
				step, err = nil, fail(saveErr, dErrors.CodeInternal, journey.ErrorCodeFailedToSaveSession, "failed to save session")
			}
		}
	}()

	if err := s.checkOAuthState(ctx, req, cfg, sess); err != nil {
		if errors.Is(err, ErrInvalidOAuthState) {
			s.logger.ErrorContext(ctx, "cri callback state rejected",
				"session_id", sess.ID.String(),
				"cri_id", cfg.ID.String(),
				"error", err,
			)
			return statemachine.ErrorResponse{PageID: journey.PageAttemptRecovery, StatusCode: http.StatusBadRequest}, nil
		}
		return nil, err
	}

	user := audit.User{
		UserID:    client.UserID,
		SessionID: sess.ID.String(),
		JourneyID: client.JourneyID,
		IPAddress: requestcontext.ClientIP(ctx),
	}
	if req.HasError() {
		return s.handleCriError(ctx, req, cfg, sess, user)
	}
	return s.collect(ctx, req, cfg, sess, client, user)
}

func (s *Service) validateRequest(req models.CallbackRequest) (*cri.Config, id.SessionID, error) {
	if req.CredentialIssuerID == "" {
		return nil, id.SessionID{}, badRequest(journey.ErrorCodeMissingCredentialIssuerID, "missing credential issuer id")
	}
	cfg, err := s.deps.Registry.Get(id.CriID(req.CredentialIssuerID))
	if err != nil {
		return nil, id.SessionID{}, badRequest(journey.ErrorCodeInvalidCredentialIssuerID, "invalid credential issuer id")
	}
	if !req.HasError() && req.AuthorizationCode == "" {
		return nil, id.SessionID{}, badRequest(journey.ErrorCodeMissingAuthorizationCode, "missing authorization code")
	}
	if req.IpvSessionID == "" {
		return nil, id.SessionID{}, badRequest(journey.ErrorCodeMissingIpvSessionID, "missing ipv session id")
	}
	sessionID, err := id.ParseSessionID(req.IpvSessionID)
	if err != nil {
		return nil, id.SessionID{}, badRequest(journey.ErrorCodeMissingIpvSessionID, "invalid ipv session id")
	}
	if req.State == "" {
		return nil, id.SessionID{}, badRequest(journey.ErrorCodeMissingOAuthState, "missing oauth state")
	}
	return cfg, sessionID, nil
}

func (s *Service) load(ctx context.Context, sessionID id.SessionID) (*session.IpvSession, *session.ClientOAuthSession, error) {
	sess, err := s.deps.Sessions.GetIpvSession(ctx, sessionID)
	if err != nil {
		return nil, nil, sessionError(err, "session not found")
	}
	client, err := s.deps.Sessions.GetClientSession(ctx, sess.ClientOAuthSessionID)
	if err != nil {
		return nil, nil, sessionError(err, "client session not found")
	}
	return sess, client, nil
}

func (s *Service) checkOAuthState(ctx context.Context, req models.CallbackRequest, cfg *cri.Config, sess *session.IpvSession) error {
	record, err := s.deps.Sessions.GetCriOAuthSession(ctx, req.State)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("%w: no redirect recorded for state", ErrInvalidOAuthState)
		}
		return fail(err, dErrors.CodeInternal, journey.ErrorCodeInternal, "failed to load cri oauth session")
	}
	if record.CriID != cfg.ID {
		return fmt.Errorf("%w: state belongs to %s", ErrInvalidOAuthState, record.CriID)
	}
	if record.IpvSessionID != sess.ID {
		return fmt.Errorf("%w: state belongs to another session", ErrInvalidOAuthState)
	}
	return nil
}

// handleCriError records a CRI that returned an OAuth error instead of a code.
func (s *Service) handleCriError(ctx context.Context, req models.CallbackRequest, cfg *cri.Config, sess *session.IpvSession, user audit.User) (statemachine.StepResponse, error) {
	ext := map[string]any{
		"cri_id":            cfg.ID.String(),
		"error_code":        req.Error,
		"error_description": req.ErrorDescription,
	}
	if err := s.deps.Auditor.Emit(ctx, audit.New(audit.EventCriAuthResponseReceived, user, ext)); err != nil {
		return nil, fail(err, dErrors.CodeInternal, journey.ErrorCodeFailedToSendAuditEvent, "failed to record cri response")
	}
	if !models.KnownOAuthError(req.Error) {
		s.logger.WarnContext(ctx, "unknown oauth error code from cri",
			"cri_id", cfg.ID.String(),
			"error_code", req.Error,
		)
	}
	sess.AddVisitedCri(session.VisitedCri{CriID: cfg.ID, OAuthError: req.Error})
	s.logger.InfoContext(ctx, "cri returned an oauth error",
		"session_id", sess.ID.String(),
		"cri_id", cfg.ID.String(),
		"error_code", req.Error,
		"error_description", req.ErrorDescription,
	)

	switch req.Error {
	case models.OAuthErrorAccessDenied:
		return statemachine.JourneyResponse{Event: journey.EventAccessDenied}, nil
	case models.OAuthErrorTemporarilyUnavailable:
		return statemachine.JourneyResponse{Event: journey.EventTemporarilyUnavailable}, nil
	default:
		return statemachine.JourneyResponse{Event: journey.EventError}, nil
	}
}

// collect exchanges the code, fetches and validates the credentials, stores
// them and decides the next step.
func (s *Service) collect(ctx context.Context, req models.CallbackRequest, cfg *cri.Config, sess *session.IpvSession, client *session.ClientOAuthSession, user audit.User) (statemachine.StepResponse, error) {
	token, err := s.deps.Client.ExchangeCode(ctx, cfg, req.AuthorizationCode)
	if err != nil {
		return nil, criError(err, journey.ErrorCodeFailedToExchangeCode, "failed to exchange authorization code")
	}
	resp, err := s.deps.Client.FetchCredential(ctx, cfg, token)
	if err != nil {
		return nil, criError(err, journey.ErrorCodeFailedToFetchCredential, "failed to fetch credential")
	}
	if resp.UserID != client.UserID {
		return nil, fail(errUserMismatch, dErrors.CodeInternal, journey.ErrorCodeFailedToValidateCredential, "failed to validate credential response")
	}

	if resp.Status == evidence.CredentialStatusPending {
		return s.storePending(ctx, req, cfg, sess, client)
	}

	vcs, err := s.deps.Validator.ValidateAll(resp.RawJWTs, cfg.Issuer(), client.UserID)
	if err != nil {
		return nil, fail(err, dErrors.CodeInternal, journey.ErrorCodeFailedToValidateCredential, "failed to validate credential")
	}
	if err := s.storeCreated(ctx, cfg, sess, client, user, vcs); err != nil {
		return nil, err
	}
	return s.checkVcResponse(ctx, sess, client, vcs)
}

func (s *Service) storePending(ctx context.Context, req models.CallbackRequest, cfg *cri.Config, sess *session.IpvSession, client *session.ClientOAuthSession) (statemachine.StepResponse, error) {
	record := credmodels.PendingResponse{
		UserID:     client.UserID,
		CriID:      cfg.ID,
		Status:     credmodels.AsyncStatusPending,
		OAuthState: req.State,
		JourneyID:  client.JourneyID,
	}
	if err := s.deps.Pending.Upsert(ctx, record); err != nil {
		return nil, fail(err, dErrors.CodeInternal, journey.ErrorCodeFailedToSaveCredential, "failed to record pending credential")
	}
	sess.AddVisitedCri(session.VisitedCri{CriID: cfg.ID})
	s.logger.InfoContext(ctx, "cri will deliver credential later",
		"session_id", sess.ID.String(),
		"cri_id", cfg.ID.String(),
	)
	return statemachine.JourneyResponse{Event: journey.EventNext}, nil
}

func (s *Service) storeCreated(ctx context.Context, cfg *cri.Config, sess *session.IpvSession, client *session.ClientOAuthSession, user audit.User, vcs []evidence.VerifiableCredential) error {
	ip := requestcontext.ClientIP(ctx)
	raws := make([]string, 0, len(vcs))
	for _, c := range vcs {
		successful, err := gpg45.IsSuccessful(c)
		if err != nil {
			return fail(err, dErrors.CodeInternal, journey.ErrorCodeFailedToValidateCredential, "failed to read credential evidence")
		}
		ext := map[string]any{
			"iss":        c.Issuer,
			"evidence":   c.Claims.Evidence,
			"successful": successful,
		}
		if err := s.deps.Auditor.Emit(ctx, audit.New(audit.EventVcReceived, user, ext)); err != nil {
			return fail(err, dErrors.CodeInternal, journey.ErrorCodeFailedToSendAuditEvent, "failed to record credential")
		}
		if err := s.deps.CiStore.SubmitVC(ctx, c, client.JourneyID, ip); err != nil {
			return fail(err, dErrors.CodeInternal, journey.ErrorCodeFailedToSaveCredential, "failed to submit credential")
		}
		raws = append(raws, c.Raw)
	}
	if err := s.deps.CiStore.SubmitMitigatingVCs(ctx, client.UserID, raws, client.JourneyID, ip); err != nil {
		return fail(err, dErrors.CodeInternal, journey.ErrorCodeFailedToSaveCredential, "failed to submit mitigating credentials")
	}
	for _, c := range vcs {
		if err := s.deps.Vcs.Save(ctx, c); err != nil {
			return fail(err, dErrors.CodeInternal, journey.ErrorCodeFailedToSaveCredential, "failed to save credential")
		}
	}
	sess.AddVisitedCri(session.VisitedCri{CriID: cfg.ID, ReturnedWithVc: len(vcs) > 0})
	s.logger.InfoContext(ctx, "credentials stored",
		"session_id", sess.ID.String(),
		"cri_id", cfg.ID.String(),
		"count", len(vcs),
	)
	return nil
}

// checkVcResponse decides where the journey goes after new credentials:
// CIs first, then correlation across everything stored, then the new
// credentials' own outcome.
func (s *Service) checkVcResponse(ctx context.Context, sess *session.IpvSession, client *session.ClientOAuthSession, received []evidence.VerifiableCredential) (statemachine.StepResponse, error) {
	stored, err := s.deps.Vcs.ListByUser(ctx, client.UserID)
	if err != nil {
		return nil, fail(err, dErrors.CodeInternal, journey.ErrorCodeInternal, "failed to list stored credentials")
	}
	statuses, err := gpg45.Statuses(stored)
	if err != nil {
		return nil, fail(err, dErrors.CodeInternal, journey.ErrorCodeInternal, "failed to read credential evidence")
	}
	sess.VcStatuses = statuses

	cis, err := s.deps.CiStore.GetContraIndicators(ctx, client.UserID, client.JourneyID, requestcontext.ClientIP(ctx))
	if err != nil {
		return nil, fail(err, dErrors.CodeInternal, journey.ErrorCodeFailedToGetStoredCis, "failed to get contra-indicators")
	}
	event, breached, err := gpg45.GetJourneyResponseForStoredCis(cis, s.deps.Policy)
	if err != nil {
		return nil, fail(err, dErrors.CodeInternal, journey.ErrorCodeInternal, "failed to evaluate contra-indicators")
	}
	if breached {
		sess.CiFail = true
		return statemachine.JourneyResponse{Event: event}, nil
	}
	sess.CiFail = false

	if !vc.AreCorrelated(stored) {
		return statemachine.JourneyResponse{Event: journey.EventPyiNoMatch}, nil
	}
	for _, c := range received {
		ok, err := gpg45.IsSuccessful(c)
		if err != nil {
			return nil, fail(err, dErrors.CodeInternal, journey.ErrorCodeInternal, "failed to read credential evidence")
		}
		if !ok {
			return statemachine.JourneyResponse{Event: journey.EventFailWithNoCI}, nil
		}
	}
	return statemachine.JourneyResponse{Event: journey.EventNext}, nil
}

func fail(err error, code dErrors.Code, journeyCode journey.ErrorCode, msg string) error {
	return journey.WithCode(dErrors.Wrap(err, code, msg), journeyCode)
}

func badRequest(journeyCode journey.ErrorCode, msg string) error {
	return journey.WithCode(dErrors.New(dErrors.CodeBadRequest, msg), journeyCode)
}

func sessionError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return fail(err, dErrors.CodeNotFound, journey.ErrorCodeSessionNotFound, msg)
	}
	return fail(err, dErrors.CodeInternal, journey.ErrorCodeInternal, "failed to load session")
}

// criError keeps issuer outages distinguishable from rejected requests.
func criError(err error, journeyCode journey.ErrorCode, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return fail(err, dErrors.CodeUnavailable, journeyCode, msg)
	}
	return fail(err, dErrors.CodeInternal, journeyCode, msg)
}

func outcomeOf(step statemachine.StepResponse, err error) string {
	switch r := step.(type) {
	case nil:
		if err == nil {
			return "unknown"
		}
		return string(dErrors.CodeOf(err))
	case statemachine.JourneyResponse:
		return r.Event
	case statemachine.ErrorResponse:
		return r.PageID
	default:
		return string(step.Type())
	}
}
