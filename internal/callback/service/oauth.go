package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ipvcore/internal/callback/models"
	"ipvcore/internal/cri"
	journey "ipvcore/internal/journey/models"
	session "ipvcore/internal/session/models"
	dErrors "ipvcore/pkg/domain-errors"
	audit "ipvcore/pkg/platform/audit"
	"ipvcore/pkg/requestcontext"
)

// BuildOAuthRequest records a fresh correlation state for the session and
// returns the issuer's authorize URL carrying a signed request object.
func (s *Service) BuildOAuthRequest(ctx context.Context, in models.OAuthRequestInput) (_ models.OAuthRequest, err error) {
	ctx, span := tracer.Start(ctx, "callback.BuildOAuthRequest",
		trace.WithAttributes(attribute.String("cri_id", in.CriID.String())))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "build oauth request failed")
		}
		span.End()
	}()

	cfg, err := s.deps.Registry.Get(in.CriID)
	if err != nil {
		return models.OAuthRequest{}, badRequest(journey.ErrorCodeInvalidCredentialIssuerID, "invalid credential issuer id")
	}
	if !cfg.Enabled {
		return models.OAuthRequest{}, badRequest(journey.ErrorCodeCriDisabled, "credential issuer is not enabled")
	}

	sess, client, err := s.load(ctx, in.SessionID)
	if err != nil {
		return models.OAuthRequest{}, err
	}

	state := uuid.NewString()
	record := &session.CriOAuthSession{
		State:                state,
		CriID:                cfg.ID,
		IpvSessionID:         sess.ID,
		ClientOAuthSessionID: sess.ClientOAuthSessionID,
		CreatedAt:            requestcontext.Now(ctx),
	}
	if err := s.deps.Sessions.SaveCriOAuthSession(ctx, record); err != nil {
		return models.OAuthRequest{}, fail(err, dErrors.CodeInternal, journey.ErrorCodeFailedToSaveSession, "failed to save cri oauth session")
	}

	redirect, err := s.deps.Client.AuthorizationURL(ctx, cfg, cri.AuthorizationRequest{
		State:     state,
		UserID:    client.UserID,
		JourneyID: client.JourneyID,
		Context:   in.Context,
		Scope:     in.Scope,
	})
	if err != nil {
		return models.OAuthRequest{}, fail(err, dErrors.CodeInternal, journey.ErrorCodeInternal, "failed to build cri redirect")
	}

	sess.CriOAuthSessionID = state
	if err := s.deps.Sessions.SaveIpvSession(ctx, sess); err != nil {
		return models.OAuthRequest{}, fail(err, dErrors.CodeInternal, journey.ErrorCodeFailedToSaveSession, "failed to save session")
	}

	user := audit.User{
		UserID:    client.UserID,
		SessionID: sess.ID.String(),
		JourneyID: client.JourneyID,
		IPAddress: requestcontext.ClientIP(ctx),
	}
	if err := s.deps.Auditor.Emit(ctx, audit.New(audit.EventRedirectToCri, user, map[string]any{"cri_id": cfg.ID.String()})); err != nil {
		return models.OAuthRequest{}, fail(err, dErrors.CodeInternal, journey.ErrorCodeFailedToSendAuditEvent, "failed to record cri redirect")
	}

	s.metrics.IncOAuthRequest(cfg.ID.String())
	s.logger.InfoContext(ctx, "cri redirect built",
		"session_id", sess.ID.String(),
		"cri_id", cfg.ID.String(),
	)
	return models.OAuthRequest{Cri: models.OAuthRedirect{ID: cfg.ID.String(), RedirectURL: redirect}}, nil
}
