package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/suite"

	"ipvcore/internal/journey/maps"
	journey "ipvcore/internal/journey/models"
	"ipvcore/internal/journey/statemachine"
	session "ipvcore/internal/session/models"
	sessionstore "ipvcore/internal/session/store"
	id "ipvcore/pkg/domain"
	dErrors "ipvcore/pkg/domain-errors"
	audit "ipvcore/pkg/platform/audit"
	"ipvcore/pkg/platform/audit/publisher"
	auditmemory "ipvcore/pkg/platform/audit/store/memory"
	"ipvcore/pkg/requestcontext"
)

const loopMap = `
name: LOOP
initialState: START
states:
  START:
    events:
      next:
        targetState: FIRST
  FIRST:
    response:
      type: process
      process: first
    events:
      next:
        targetState: SECOND
  SECOND:
    response:
      type: process
      process: second
    events:
      next:
        targetState: FIRST
`

type JourneySuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	sessions *sessionstore.InMemoryStore
	audits   *auditmemory.InMemoryStore
	journeys *statemachine.Registry
	sess     *session.IpvSession
	client   *session.ClientOAuthSession
}

func TestJourneySuite(t *testing.T) {
	suite.Run(t, new(JourneySuite))
}

func (s *JourneySuite) SetupTest() {
	s.reset()
}

func (s *JourneySuite) SetupSubTest() {
	s.reset()
}

func (s *JourneySuite) reset() {
	s.now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontextAt(s.now)
	s.sessions = sessionstore.NewInMemoryStore()
	s.audits = auditmemory.NewInMemoryStore()

	var err error
	s.journeys, err = statemachine.NewRegistry(maps.FS)
	s.Require().NoError(err)

	s.client = &session.ClientOAuthSession{ID: id.NewClientOAuthSessionID(), UserID: "urn:uuid:user-1", JourneyID: "journey-1", Vtr: []string{"P2"}}
	s.Require().NoError(s.sessions.CreateClientSession(s.ctx, s.client))
	s.sess = session.NewIpvSession(s.client.ID, s.now)
	s.sess.CriOAuthSessionID = "state-1"
	s.Require().NoError(s.sessions.CreateIpvSession(s.ctx, s.sess))
}

func (s *JourneySuite) newService(opts ...Option) *Service {
	return New(s.sessions, s.journeys, publisher.NewPublisher(s.audits), opts...)
}

func requestcontextAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func returning(event string, err error) ProcessFunc {
	return func(context.Context, *session.IpvSession, *session.ClientOAuthSession) (string, error) {
		return event, err
	}
}

func (s *JourneySuite) stored() *session.IpvSession {
	got, err := s.sessions.GetIpvSession(s.ctx, s.sess.ID)
	s.Require().NoError(err)
	return got
}

func (s *JourneySuite) audited(name audit.EventName) []audit.Event {
	all, err := s.audits.ListAll(s.ctx)
	s.Require().NoError(err)
	var out []audit.Event
	for _, e := range all {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func (s *JourneySuite) setState(journeyType, state string) {
	s.sess.JourneyType = journeyType
	s.sess.UserState = state
	s.Require().NoError(s.sessions.SaveIpvSession(s.ctx, s.sess))
}

func (s *JourneySuite) TestEndSession() {
	step, err := s.newService().ProcessEvent(s.ctx, id.NewSessionID(), journey.EventEndSession, "")
	s.Require().NoError(err)
	s.Equal(statemachine.JourneyResponse{Event: journey.EventEndSession}, step)
}

func (s *JourneySuite) TestSessionNotFound() {
	_, err := s.newService().ProcessEvent(s.ctx, id.NewSessionID(), journey.EventNext, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Equal(journey.ErrorCodeSessionNotFound, journey.CodeOf(err))
}

func (s *JourneySuite) TestProcessSteps() {
	s.Run("reuse lands on the reuse page", func() {
		svc := s.newService(WithProcess(journey.ProcessCheckExistingIdentity, returning(journey.EventReuse, nil)))

		step, err := svc.ProcessEvent(s.ctx, s.sess.ID, journey.EventNext, "")
		s.Require().NoError(err)
		s.Equal(statemachine.PageResponse{PageID: "page-ipv-reuse"}, step)

		got := s.stored()
		s.Equal("IPV_IDENTITY_REUSE_PAGE", got.UserState)
		s.Equal(maps.InitialJourneySelection, got.JourneyType)
		s.Empty(got.CriOAuthSessionID)
		s.Empty(s.audits.Names())
	})

	s.Run("fresh identity changes journey", func() {
		svc := s.newService(WithProcess(journey.ProcessCheckExistingIdentity, returning(journey.EventStartFresh, nil)))

		step, err := svc.ProcessEvent(s.ctx, s.sess.ID, journey.EventNext, "")
		s.Require().NoError(err)
		s.Equal(statemachine.PageResponse{PageID: "page-ipv-identity-document-start"}, step)

		got := s.stored()
		s.Equal(maps.NewP2Identity, got.JourneyType)
		s.Equal("IDENTITY_START_PAGE", got.UserState)
		starts := s.audited(audit.EventSubjourneyStart)
		s.Require().Len(starts, 1)
		s.Equal(maps.NewP2Identity, starts[0].Extensions["journey_type"])
		s.Equal(s.client.UserID, starts[0].User.UserID)
	})

	s.Run("mitigation is audited once", func() {
		svc := s.newService(WithProcess(journey.ProcessCheckExistingIdentity, returning("mitigation-enhanced-verification", nil)))

		step, err := svc.ProcessEvent(s.ctx, s.sess.ID, journey.EventNext, "")
		s.Require().NoError(err)
		cri, ok := step.(statemachine.CriResponse)
		s.Require().True(ok)
		s.Equal("kbv", cri.CriID)

		s.Equal("MITIGATION_KBV", s.stored().UserState)
		mitigations := s.audited(audit.EventMitigationStart)
		s.Require().Len(mitigations, 1)
		s.Equal("enhanced-verification", mitigations[0].Extensions["mitigation_type"])
	})

	s.Run("failing process routes to the technical error journey", func() {
		svc := s.newService(WithProcess(journey.ProcessCheckExistingIdentity, returning("", errors.New("store down"))))

		step, err := svc.ProcessEvent(s.ctx, s.sess.ID, journey.EventNext, "")
		s.Require().NoError(err)
		s.Equal(statemachine.ErrorResponse{PageID: journey.PageTechnicalError, StatusCode: http.StatusInternalServerError}, step)
		s.Equal(maps.TechnicalError, s.stored().JourneyType)
	})

	s.Run("unregistered process", func() {
		_, err := s.newService().ProcessEvent(s.ctx, s.sess.ID, journey.EventNext, "")
		s.Require().Error(err)
		s.Equal(journey.ErrorCodeProcessFailed, journey.CodeOf(err))
		s.Equal(session.InitialUserState, s.stored().UserState)
	})

	s.Run("process loop is cut off", func() {
		reg, err := statemachine.NewRegistry(fstest.MapFS{"loop.yaml": {Data: []byte(loopMap)}})
		s.Require().NoError(err)
		s.setState("LOOP", "START")
		svc := New(s.sessions, reg, publisher.NewPublisher(s.audits),
			WithMaxHops(3),
			WithProcess("first", returning(journey.EventNext, nil)),
			WithProcess("second", returning(journey.EventNext, nil)),
		)

		_, err = svc.ProcessEvent(s.ctx, s.sess.ID, journey.EventNext, "")
		s.Require().Error(err)
		s.Equal(journey.ErrorCodeProcessFailed, journey.CodeOf(err))
	})
}

func (s *JourneySuite) TestSessionTimeout() {
	s.Run("expired session moves to the timeout journey", func() {
		svc := s.newService(WithSessionTimeout(time.Hour))
		ctx := requestcontextAt(s.now.Add(2 * time.Hour))

		step, err := svc.ProcessEvent(ctx, s.sess.ID, journey.EventNext, "page-ipv-identity-document-start")
		s.Require().NoError(err)
		s.Equal(statemachine.ErrorResponse{PageID: "pyi-timeout-recoverable", StatusCode: http.StatusUnauthorized}, step)

		got := s.stored()
		s.Equal(maps.SessionTimeout, got.JourneyType)
		s.Equal("TIMEOUT_RECOVERABLE_PAGE", got.UserState)
		s.Equal("access_denied", got.ErrorCode)
		s.Len(s.audited(audit.EventSubjourneyStart), 1)
	})

	s.Run("timeout journey proceeds normally", func() {
		s.setState(maps.SessionTimeout, "TIMEOUT_RECOVERABLE_PAGE")
		svc := s.newService(WithSessionTimeout(time.Hour))
		ctx := requestcontextAt(s.now.Add(2 * time.Hour))

		step, err := svc.ProcessEvent(ctx, s.sess.ID, journey.EventNext, "")
		s.Require().NoError(err)
		s.Equal(statemachine.JourneyResponse{Event: journey.EventEndSession}, step)
		s.Empty(s.audited(audit.EventSubjourneyStart))
	})

	s.Run("fresh session is untouched", func() {
		s.setState(maps.NewP2Identity, "IDENTITY_START_PAGE")
		svc := s.newService(WithSessionTimeout(time.Hour))

		step, err := svc.ProcessEvent(s.ctx, s.sess.ID, "end", "")
		s.Require().NoError(err)
		s.Equal(statemachine.PageResponse{PageID: "page-face-to-face-start"}, step)
		s.Equal(maps.NewP2Identity, s.stored().JourneyType)
	})
}

func (s *JourneySuite) TestTransitionErrors() {
	s.Run("unknown event", func() {
		s.setState(maps.NewP2Identity, "IDENTITY_START_PAGE")

		_, err := s.newService().ProcessEvent(s.ctx, s.sess.ID, "not-an-event", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.Equal(journey.ErrorCodeUnknownJourneyEvent, journey.CodeOf(err))
	})

	s.Run("unknown state", func() {
		s.setState(maps.NewP2Identity, "NO_SUCH_STATE")

		_, err := s.newService().ProcessEvent(s.ctx, s.sess.ID, journey.EventNext, "")
		s.Require().Error(err)
		s.Equal(journey.ErrorCodeUnknownJourneyState, journey.CodeOf(err))
	})

	s.Run("page mismatch keeps the state", func() {
		s.setState(maps.NewP2Identity, "IDENTITY_START_PAGE")

		step, err := s.newService().ProcessEvent(s.ctx, s.sess.ID, journey.EventNext, "some-other-page")
		s.Require().NoError(err)
		s.Equal(statemachine.PageResponse{PageID: journey.PageAttemptRecovery}, step)
		s.Equal("IDENTITY_START_PAGE", s.stored().UserState)
	})
}
