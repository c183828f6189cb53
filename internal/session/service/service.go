// Package service starts identity journeys for relying-party requests.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	evidence "ipvcore/internal/evidence/models"
	"ipvcore/internal/session/models"
	"ipvcore/internal/session/ports"
	id "ipvcore/pkg/domain"
	dErrors "ipvcore/pkg/domain-errors"
	audit "ipvcore/pkg/platform/audit"
	"ipvcore/pkg/platform/sentinel"
	platformstrings "ipvcore/pkg/platform/strings"
	"ipvcore/pkg/requestcontext"
)

// InitialiseRequest is the relying party's authorization request after the
// frontend has decrypted and verified it.
type InitialiseRequest struct {
	ClientID        string   `json:"clientId"`
	RedirectURI     string   `json:"redirectUri"`
	State           string   `json:"state"`
	UserID          string   `json:"userId"`
	JourneyID       string   `json:"govukSigninJourneyId"`
	Scope           string   `json:"scope"`
	Vtr             []string `json:"vtr"`
	ReproveIdentity bool     `json:"reproveIdentity"`
}

// Validate normalises the request and checks required fields.
func (r *InitialiseRequest) Validate() error {
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.UserID = strings.TrimSpace(r.UserID)
	r.RedirectURI = strings.TrimSpace(r.RedirectURI)
	r.Vtr = platformstrings.DedupeAndTrim(r.Vtr)
	switch {
	case r.ClientID == "":
		return dErrors.New(dErrors.CodeBadRequest, "clientId is required")
	case r.UserID == "":
		return dErrors.New(dErrors.CodeBadRequest, "userId is required")
	case r.State == "":
		return dErrors.New(dErrors.CodeBadRequest, "state is required")
	}
	if u, err := url.Parse(r.RedirectURI); err != nil || !u.IsAbs() {
		return dErrors.New(dErrors.CodeBadRequest, "redirectUri must be an absolute url")
	}
	if len(r.Vtr) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "vtr is required")
	}
	for _, v := range r.Vtr {
		if _, err := evidence.ParseVot(v); err != nil {
			return dErrors.New(dErrors.CodeBadRequest, "vtr contains an unsupported vector of trust")
		}
	}
	return nil
}

// Service creates sessions.
type Service struct {
	store   ports.Store
	auditor audit.Emitter
	logger  *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store ports.Store, auditor audit.Emitter, opts ...Option) *Service {
	s := &Service{store: store, auditor: auditor, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialise stores the client request, opens a session at the initial
// journey and emits IPV_JOURNEY_START.
func (s *Service) Initialise(ctx context.Context, req InitialiseRequest) (*models.IpvSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	client := &models.ClientOAuthSession{
		ID:              id.NewClientOAuthSessionID(),
		UserID:          id.UserID(req.UserID),
		ClientID:        req.ClientID,
		RedirectURI:     req.RedirectURI,
		State:           req.State,
		Scope:           req.Scope,
		ResponseType:    "code",
		JourneyID:       req.JourneyID,
		Vtr:             append([]string(nil), req.Vtr...),
		ReproveIdentity: req.ReproveIdentity,
		CreatedAt:       now,
	}
	if err := s.store.CreateClientSession(ctx, client); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store client session")
	}

	sess := models.NewIpvSession(client.ID, now)
	sess.FeatureSet = requestcontext.FeatureSet(ctx)
	if err := s.store.CreateIpvSession(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store session")
	}

	event := audit.New(audit.EventJourneyStart, audit.User{
		UserID:    client.UserID,
		SessionID: sess.ID.String(),
		JourneyID: client.JourneyID,
	}, map[string]any{
		"reprove_identity": client.ReproveIdentity,
		"vtr":              client.Vtr,
	})
	if err := s.auditor.Emit(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record journey start")
	}

	s.logger.InfoContext(ctx, "session initialised",
		"session_id", sess.ID.String(),
		"client_id", client.ClientID,
		"journey_id", client.JourneyID,
	)
	return sess, nil
}

// Load returns a session with its client request. A missing session is a
// not-found error the handler can surface as a journey error.
func (s *Service) Load(ctx context.Context, sessionID id.SessionID) (*models.IpvSession, *models.ClientOAuthSession, error) {
	sess, err := s.store.GetIpvSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeNotFound, "session not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	client, err := s.store.GetClientSession(ctx, sess.ClientOAuthSessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeNotFound, "client session not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client session")
	}
	return sess, client, nil
}
