package credentials

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ipvcore/internal/credentials/models"
	evidence "ipvcore/internal/evidence/models"
	audit "ipvcore/pkg/platform/audit"
	"ipvcore/pkg/platform/sentinel"
)

// ProcessBatch handles async deliveries independently and returns the ids of
// the messages that failed. A failure never affects the other messages.
func (s *Service) ProcessBatch(ctx context.Context, msgs []models.AsyncMessage) []string {
	var failed []string
	for _, msg := range msgs {
		if err := s.processAsync(ctx, msg); err != nil {
			s.metrics.IncAsyncResult("failed")
			s.logger.ErrorContext(ctx, "async credential not processed",
				"message_id", msg.ID,
				"cri_id", msg.CriID.String(),
				"error", err,
			)
			failed = append(failed, msg.ID)
			continue
		}
		s.metrics.IncAsyncResult("processed")
	}
	return failed
}

func (s *Service) processAsync(ctx context.Context, msg models.AsyncMessage) (err error) {
	ctx, span := tracer.Start(ctx, "credentials.ProcessAsync", trace.WithAttributes(
		attribute.String("message_id", msg.ID),
		attribute.String("cri_id", msg.CriID.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "async credential failed")
		}
		span.End()
	}()

	if s.validator == nil || s.issuers == nil {
		return errors.New("async intake is not configured")
	}
	if msg.UserID.IsNil() || msg.CriID.IsNil() {
		return fmt.Errorf("%w: message is missing sub or criId", ErrUnexpectedAsyncCredential)
	}

	record, err := s.pending.Get(ctx, msg.UserID, msg.CriID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("%w: no pending request from %s", ErrUnexpectedAsyncCredential, msg.CriID)
		}
		return fmt.Errorf("get pending response: %w", err)
	}
	if record.Status != models.AsyncStatusPending || record.OAuthState != msg.State {
		return fmt.Errorf("%w: state does not match pending request from %s", ErrUnexpectedAsyncCredential, msg.CriID)
	}

	journeyID := msg.JourneyID
	if journeyID == "" {
		journeyID = record.JourneyID
	}
	user := audit.User{UserID: msg.UserID, JourneyID: journeyID}

	if msg.IsError() {
		return s.tx.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.pending.UpdateStatus(ctx, msg.UserID, msg.CriID, models.AsyncStatusError, msg.Error); err != nil {
				return fmt.Errorf("mark pending response errored: %w", err)
			}
			return s.auditor.Emit(ctx, audit.New(audit.EventF2FVcError, user, map[string]any{
				"error":             msg.Error,
				"error_description": msg.ErrorDescription,
			}))
		})
	}

	issuer, err := s.issuers.Issuer(msg.CriID)
	if err != nil {
		return err
	}
	if len(msg.Credentials) == 0 {
		return fmt.Errorf("%w: delivery from %s has no credentials", ErrUnexpectedAsyncCredential, msg.CriID)
	}
	vcs, err := s.validator.ValidateAll(msg.Credentials, issuer, msg.UserID)
	if err != nil {
		return err
	}
	if err := s.auditor.Emit(ctx, audit.New(audit.EventF2FVcReceived, user, map[string]any{"cri_id": msg.CriID.String()})); err != nil {
		return err
	}

	for _, c := range vcs {
		if err := s.ciStore.SubmitVC(ctx, c, journeyID, ""); err != nil {
			return err
		}
	}
	if err := s.ciStore.SubmitMitigatingVCs(ctx, msg.UserID, rawJWTs(vcs), journeyID, ""); err != nil {
		return err
	}
	// Stored credentials, the completed record and the consumed event land together.
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, c := range vcs {
			if err := s.vcs.Save(ctx, c); err != nil {
				return fmt.Errorf("save async credential: %w", err)
			}
		}
		if err := s.pending.UpdateStatus(ctx, msg.UserID, msg.CriID, models.AsyncStatusComplete, ""); err != nil {
			return fmt.Errorf("mark pending response complete: %w", err)
		}
		return s.auditor.Emit(ctx, audit.New(audit.EventF2FVcConsumed, user, nil))
	})
}

func rawJWTs(vcs []evidence.VerifiableCredential) []string {
	out := make([]string, 0, len(vcs))
	for _, c := range vcs {
		out = append(out, c.Raw)
	}
	return out
}
