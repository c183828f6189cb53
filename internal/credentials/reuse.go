package credentials

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ipvcore/internal/credentials/models"
	evidence "ipvcore/internal/evidence/models"
	"ipvcore/internal/evidence/vc"
	"ipvcore/internal/gpg45"
	journey "ipvcore/internal/journey/models"
	session "ipvcore/internal/session/models"
	id "ipvcore/pkg/domain"
	audit "ipvcore/pkg/platform/audit"
	"ipvcore/pkg/requestcontext"
)

// CheckExistingIdentity decides whether the user's stored identity can be
// reused for this request. It may set the session's vot and VC statuses.
func (s *Service) CheckExistingIdentity(ctx context.Context, sess *session.IpvSession, client *session.ClientOAuthSession) (event string, err error) {
	ctx, span := tracer.Start(ctx, "credentials.CheckExistingIdentity",
		trace.WithAttributes(attribute.String("session_id", sess.ID.String())))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "check existing identity failed")
		} else {
			span.SetAttributes(attribute.String("event", event))
			s.metrics.IncReuseOutcome(event)
		}
		span.End()
	}()

	user := client.UserID
	auditUser := audit.User{UserID: user, SessionID: sess.ID.String(), JourneyID: client.JourneyID}

	vcs, err := s.vcs.ListByUser(ctx, user)
	if err != nil {
		return "", fmt.Errorf("list stored credentials: %w", err)
	}
	vcs, err = s.evict(ctx, user, vcs)
	if err != nil {
		return "", err
	}

	if client.ReproveIdentity || s.flagEnabled(ctx, FeatureResetIdentity) {
		s.logger.InfoContext(ctx, "identity reset requested",
			"session_id", sess.ID.String(),
			"reprove_identity", client.ReproveIdentity,
		)
		if err := s.vcs.DeleteAll(ctx, user); err != nil {
			return "", fmt.Errorf("delete stored credentials: %w", err)
		}
		return journey.EventResetIdentity, nil
	}

	event, asyncComplete, err := s.pendingOutcome(ctx, user, vcs)
	if err != nil || event != "" {
		return event, err
	}

	cis, err := s.ciStore.GetContraIndicators(ctx, user, client.JourneyID, requestcontext.ClientIP(ctx))
	if err != nil {
		return "", fmt.Errorf("get contra-indicators: %w", err)
	}
	if s.policy.IsBreachingThreshold(cis) {
		sess.CiFail = true
		return s.policy.BreachOutcome(cis), nil
	}

	if len(vcs) == 0 {
		return journey.EventStartFresh, nil
	}

	if vc.AreCorrelated(vcs) {
		vot, profile, matched, err := matchVot(vcs, client.RequestedVots())
		if err != nil {
			return "", err
		}
		if matched {
			if err := s.recordMatch(ctx, sess, auditUser, vcs, vot, profile); err != nil {
				return "", err
			}
			if err := s.auditor.Emit(ctx, audit.New(audit.EventIdentityReuseComplete, auditUser, nil)); err != nil {
				return "", err
			}
			return journey.EventReuse, nil
		}
	} else {
		s.logger.InfoContext(ctx, "stored credentials are not correlated", "session_id", sess.ID.String())
	}

	// Credentials delivered by an async issuer are kept on a failed match.
	if asyncComplete {
		s.logger.InfoContext(ctx, "async credential did not meet a profile", "session_id", sess.ID.String())
		if err := s.auditor.Emit(ctx, audit.New(audit.EventF2FProfileNotMetFail, auditUser, nil)); err != nil {
			return "", err
		}
		return journey.EventF2FFail, nil
	}

	if err := s.vcs.DeleteAll(ctx, user); err != nil {
		return "", fmt.Errorf("delete stored credentials: %w", err)
	}
	if err := s.auditor.Emit(ctx, audit.New(audit.EventIdentityReuseReset, auditUser, nil)); err != nil {
		return "", err
	}
	return journey.EventStartFresh, nil
}

// EvaluateGpg45Scores checks the credentials gathered so far against the
// GPG45 trust levels the client asked for.
func (s *Service) EvaluateGpg45Scores(ctx context.Context, sess *session.IpvSession, client *session.ClientOAuthSession) (string, error) {
	ctx, span := tracer.Start(ctx, "credentials.EvaluateGpg45Scores")
	defer span.End()

	vcs, err := s.vcs.ListByUser(ctx, client.UserID)
	if err != nil {
		return "", fmt.Errorf("list stored credentials: %w", err)
	}
	if !vc.AreCorrelated(vcs) {
		return journey.EventUnmet, nil
	}

	var gpgVots []evidence.Vot
	for _, v := range client.RequestedVots() {
		if v.ProfileType() == evidence.ProfileTypeGPG45 {
			gpgVots = append(gpgVots, v)
		}
	}
	vot, profile, matched, err := matchVot(identityOnly(vcs), gpgVots)
	if err != nil {
		return "", err
	}
	if !matched {
		return journey.EventUnmet, nil
	}
	auditUser := audit.User{UserID: client.UserID, SessionID: sess.ID.String(), JourneyID: client.JourneyID}
	if err := s.recordMatch(ctx, sess, auditUser, vcs, vot, profile); err != nil {
		return "", err
	}
	return journey.EventMet, nil
}

// matchVot tries every supported vot from strongest to weakest, restricted to
// the requested ones. The profile is empty for operational vots.
func matchVot(vcs []evidence.VerifiableCredential, requested []evidence.Vot) (evidence.Vot, *evidence.Profile, bool, error) {
	for _, vot := range evidence.SupportedVotsByStrength {
		if !slices.Contains(requested, vot) {
			continue
		}
		switch vot.ProfileType() {
		case evidence.ProfileTypeGPG45:
			identity := identityOnly(vcs)
			_, failed, err := gpg45.FailedCredentialEvent(identity)
			if err != nil {
				return "", nil, false, err
			}
			if failed {
				continue
			}
			_, profile, ok, err := gpg45.ScoresFor(identity, vot)
			if err != nil {
				return "", nil, false, err
			}
			if ok {
				return vot, &profile, true, nil
			}
		case evidence.ProfileTypeOperational:
			if slices.ContainsFunc(vcs, func(c evidence.VerifiableCredential) bool {
				return c.IsOperational() && c.Vot == vot
			}) {
				return vot, nil, true, nil
			}
		}
	}
	return "", nil, false, nil
}

func identityOnly(vcs []evidence.VerifiableCredential) []evidence.VerifiableCredential {
	out := make([]evidence.VerifiableCredential, 0, len(vcs))
	for _, c := range vcs {
		if !c.IsOperational() {
			out = append(out, c)
		}
	}
	return out
}

func (s *Service) recordMatch(ctx context.Context, sess *session.IpvSession, user audit.User, vcs []evidence.VerifiableCredential, vot evidence.Vot, profile *evidence.Profile) error {
	statuses, err := gpg45.Statuses(vcs)
	if err != nil {
		return err
	}
	sess.Vot = vot
	sess.VcStatuses = statuses

	profileName := ""
	if profile != nil {
		profileName = profile.Name
		scores, err := gpg45.BuildScore(identityOnly(vcs))
		if err != nil {
			return err
		}
		txns := make([]string, 0, len(vcs))
		for _, c := range vcs {
			txns = append(txns, c.Txns()...)
		}
		ext := map[string]any{"gpg45Profile": profile.Name, "gpg45Scores": scores, "vcTxnIds": txns}
		if err := s.auditor.Emit(ctx, audit.New(audit.EventGpg45ProfileMatched, user, ext)); err != nil {
			return err
		}
	}
	s.metrics.IncProfileMatch(string(vot), profileName)
	s.logger.InfoContext(ctx, "trust level matched",
		"session_id", sess.ID.String(),
		"vot", string(vot),
		"profile", profileName,
	)
	return nil
}

// evict deletes expired credentials and evidence-free risk signals so they
// are never counted towards a reused identity.
func (s *Service) evict(ctx context.Context, user id.UserID, vcs []evidence.VerifiableCredential) ([]evidence.VerifiableCredential, error) {
	now := requestcontext.Now(ctx)
	var (
		keep  = make([]evidence.VerifiableCredential, 0, len(vcs))
		stale []id.CriID
	)
	for _, c := range vcs {
		if c.IsExpired(now) || (c.CriID == CriTicf && !c.HasEvidence()) {
			stale = append(stale, c.CriID)
			continue
		}
		keep = append(keep, c)
	}
	if len(stale) == 0 {
		return keep, nil
	}
	if err := s.vcs.Delete(ctx, user, stale); err != nil {
		return nil, fmt.Errorf("evict stale credentials: %w", err)
	}
	s.logger.InfoContext(ctx, "evicted stale credentials", "count", len(stale))
	return keep, nil
}

// pendingOutcome routes users whose async issuer has not delivered yet. A
// record is complete once a credential from its issuer is stored.
func (s *Service) pendingOutcome(ctx context.Context, user id.UserID, vcs []evidence.VerifiableCredential) (event string, complete bool, err error) {
	records, err := s.pending.ListByUser(ctx, user)
	if err != nil {
		return "", false, fmt.Errorf("list pending responses: %w", err)
	}
	var incomplete []models.PendingResponse
	for _, r := range records {
		if slices.ContainsFunc(vcs, func(c evidence.VerifiableCredential) bool { return c.CriID == r.CriID }) {
			complete = true
			continue
		}
		incomplete = append(incomplete, r)
	}
	for _, r := range incomplete {
		if r.Status == models.AsyncStatusPending {
			return journey.EventPending, false, nil
		}
	}
	if len(incomplete) > 0 {
		if r := incomplete[0]; r.Status != models.AsyncStatusError {
			s.logger.WarnContext(ctx, "async issuer record has no credential",
				"cri_id", r.CriID.String(),
				"status", string(r.Status),
			)
		}
		return journey.EventF2FFail, false, nil
	}
	return "", complete, nil
}
