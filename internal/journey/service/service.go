// Package service advances a session through the journey maps.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ipvcore/internal/journey/maps"
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

const (
	defaultMaxHops = 8

	accessDenied            = "access_denied"
	accessDeniedDescription = "Access denied by resource owner or authorization server"
)

var (
	errTooManyHops    = errors.New("journey did not settle on a frontend step")
	errUnknownProcess = errors.New("no process registered")
	errUnknownJourney = errors.New("unknown journey type")
	errNoResponse     = errors.New("journey state has no response")
	tracer            = otel.Tracer("ipvcore/internal/journey")
)

// Journeys looks up an initialized machine by journey type.
type Journeys interface {
	Get(journeyType string) (*statemachine.Machine, bool)
}

// ProcessFunc runs a backend step for a session and returns the next event.
// It may mutate the session; the caller persists it.
type ProcessFunc func(ctx context.Context, sess *session.IpvSession, client *session.ClientOAuthSession) (string, error)

// Service resolves journey events for sessions.
type Service struct {
	sessions       sessionports.Store
	journeys       Journeys
	auditor        audit.Emitter
	processes      map[string]ProcessFunc
	sessionTimeout time.Duration
	maxHops        int
	logger         *slog.Logger
	metrics        *Metrics
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

// WithSessionTimeout sets the age after which a session is moved to the
// timeout journey. Zero disables the check.
func WithSessionTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.sessionTimeout = d
	}
}

// WithProcess registers the backend step run when a process state is reached.
func WithProcess(name string, fn ProcessFunc) Option {
	return func(s *Service) {
		s.processes[name] = fn
	}
}

// WithMaxHops bounds how many process states one request may run through.
func WithMaxHops(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxHops = n
		}
	}
}

func New(sessions sessionports.Store, journeys Journeys, auditor audit.Emitter, opts ...Option) *Service {
	s := &Service{
		sessions:  sessions,
		journeys:  journeys,
		auditor:   auditor,
		processes: make(map[string]ProcessFunc),
		maxHops:   defaultMaxHops,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessEvent applies event to the session's current state and returns the
// step the frontend should take. Process states are run in-process until the
// journey reaches a page, CRI, journey or error response.
func (s *Service) ProcessEvent(ctx context.Context, sessionID id.SessionID, event, currentPage string) (step statemachine.StepResponse, err error) {
	ctx, span := tracer.Start(ctx, "journey.ProcessEvent",
		trace.WithAttributes(attribute.String("event", event)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "journey event failed")
		}
		span.End()
	}()

	if event == journey.EventEndSession {
		s.logger.InfoContext(ctx, "returning end session response directly", "session_id", sessionID.String())
		return statemachine.JourneyResponse{Event: journey.EventEndSession}, nil
	}

	sess, client, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	user := audit.User{
		UserID:    client.UserID,
		SessionID: sess.ID.String(),
		JourneyID: client.JourneyID,
		IPAddress: requestcontext.ClientIP(ctx),
	}

	if sess.JourneyType != maps.SessionTimeout && sess.HasTimedOut(requestcontext.Now(ctx), s.sessionTimeout) {
		if err := s.timeout(ctx, sess, user); err != nil {
			return nil, err
		}
		event = journey.EventNext
		currentPage = ""
	}

	step, mitigation, err := s.run(ctx, sess, client, user, event, currentPage)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("journey", sess.JourneyType),
		attribute.String("state", sess.UserState),
	)

	sess.CriOAuthSessionID = ""
	if err := s.sessions.SaveIpvSession(ctx, sess); err != nil {
		return nil, fail(err, dErrors.CodeInternal, journey.ErrorCodeFailedToSaveSession, "failed to save session")
	}

	if mitigation != "" {
		ext := map[string]any{"mitigation_type": mitigation}
		if err := s.auditor.Emit(ctx, audit.New(audit.EventMitigationStart, user, ext)); err != nil {
			return nil, fail(err, dErrors.CodeInternal, journey.ErrorCodeFailedToSendAuditEvent, "failed to record mitigation start")
		}
	}
	return step, nil
}

func (s *Service) load(ctx context.Context, sessionID id.SessionID) (*session.IpvSession, *session.ClientOAuthSession, error) {
	sess, err := s.sessions.GetIpvSession(ctx, sessionID)
	if err != nil {
		return nil, nil, sessionError(err, "session not found")
	}
	client, err := s.sessions.GetClientSession(ctx, sess.ClientOAuthSessionID)
	if err != nil {
		return nil, nil, sessionError(err, "client session not found")
	}
	return sess, client, nil
}

// timeout moves an expired session to the timeout journey.
func (s *Service) timeout(ctx context.Context, sess *session.IpvSession, user audit.User) error {
	s.logger.InfoContext(ctx, "session timed out",
		"session_id", sess.ID.String(),
		"journey", sess.JourneyType,
		"state", sess.UserState,
	)
	sess.SetError(accessDenied, accessDeniedDescription)
	return s.changeJourney(ctx, sess, user, maps.SessionTimeout, maps.SessionTimeoutState)
}

func (s *Service) changeJourney(ctx context.Context, sess *session.IpvSession, user audit.User, journeyType, state string) error {
	sess.JourneyType = journeyType
	sess.UserState = state
	s.metrics.IncJourneyStart(journeyType)
	ext := map[string]any{"journey_type": journeyType}
	if err := s.auditor.Emit(ctx, audit.New(audit.EventSubjourneyStart, user, ext)); err != nil {
		return fail(err, dErrors.CodeInternal, journey.ErrorCodeFailedToSendAuditEvent, "failed to record journey change")
	}
	return nil
}

// run resolves event and then every process state it lands on. It returns
// the final step and the mitigation started along the way, if any.
func (s *Service) run(ctx context.Context, sess *session.IpvSession, client *session.ClientOAuthSession, user audit.User, event, currentPage string) (statemachine.StepResponse, string, error) {
	mitigation := mitigationOf(event)
	for hops := 0; ; hops++ {
		res, err := s.transition(ctx, sess, user, event, currentPage)
		if err != nil {
			return nil, "", err
		}
		if res.Response == nil {
			return nil, "", fail(errNoResponse, dErrors.CodeInternal, journey.ErrorCodeUnknownJourneyState, "journey state "+sess.UserState+" has no response")
		}
		if m := res.Response.MitigationStart(); m != "" {
			mitigation = m
		}
		proc, ok := res.Response.(statemachine.ProcessResponse)
		if !ok || res.Recovery {
			return res.Response, mitigation, nil
		}
		if hops >= s.maxHops {
			return nil, "", fail(errTooManyHops, dErrors.CodeInternal, journey.ErrorCodeProcessFailed, "journey did not settle")
		}
		event, err = s.runProcess(ctx, proc, sess, client)
		if err != nil {
			return nil, "", err
		}
		if m := mitigationOf(event); m != "" {
			mitigation = m
		}
		currentPage = ""
	}
}

// transition resolves one event, following journey changes until a state in
// the session's journey is reached.
func (s *Service) transition(ctx context.Context, sess *session.IpvSession, user audit.User, event, currentPage string) (statemachine.Result, error) {
	machine, err := s.machine(sess.JourneyType)
	if err != nil {
		return statemachine.Result{}, err
	}
	from := sess.UserState
	res, err := machine.Transition(ctx, sess.UserState, event, currentPage)
	if err != nil {
		return statemachine.Result{}, transitionError(err)
	}
	if res.Recovery {
		return res, nil
	}
	s.metrics.IncTransition(sess.JourneyType, event)

	for changes := 0; res.TargetJourney != ""; changes++ {
		if changes >= s.maxHops {
			return statemachine.Result{}, fail(errTooManyHops, dErrors.CodeInternal, journey.ErrorCodeUnknownJourneyState, "journey changes did not settle")
		}
		target, err := s.machine(res.TargetJourney)
		if err != nil {
			return statemachine.Result{}, err
		}
		state := res.State
		if state == "" {
			state = target.InitialState()
		}
		s.logger.InfoContext(ctx, "journey changed",
			"session_id", sess.ID.String(),
			"from_journey", sess.JourneyType,
			"to_journey", res.TargetJourney,
			"state", state,
		)
		if err := s.changeJourney(ctx, sess, user, res.TargetJourney, state); err != nil {
			return statemachine.Result{}, err
		}
		res, err = target.Transition(ctx, state, journey.EventNext, "")
		if err != nil {
			return statemachine.Result{}, transitionError(err)
		}
		s.metrics.IncTransition(sess.JourneyType, journey.EventNext)
	}

	sess.UserState = res.State
	s.logger.InfoContext(ctx, "journey transition",
		"session_id", sess.ID.String(),
		"journey", sess.JourneyType,
		"event", event,
		"from", from,
		"to", res.State,
	)
	return res, nil
}

func (s *Service) machine(journeyType string) (*statemachine.Machine, error) {
	m, ok := s.journeys.Get(journeyType)
	if !ok {
		return nil, fail(errUnknownJourney, dErrors.CodeInternal, journey.ErrorCodeUnknownJourneyState, "unknown journey type "+journeyType)
	}
	return m, nil
}

// runProcess runs a backend step. A failing step becomes the error event so
// the journey maps decide what the user sees.
func (s *Service) runProcess(ctx context.Context, proc statemachine.ProcessResponse, sess *session.IpvSession, client *session.ClientOAuthSession) (string, error) {
	fn, ok := s.processes[proc.Process]
	if !ok {
		return "", fail(errUnknownProcess, dErrors.CodeInternal, journey.ErrorCodeProcessFailed, "unknown process "+proc.Process)
	}
	event, err := fn(ctx, sess, client)
	if err != nil {
		s.logger.ErrorContext(ctx, "journey process failed",
			"session_id", sess.ID.String(),
			"process", proc.Process,
			"error", err,
		)
		event = journey.EventError
	}
	s.metrics.IncProcessRun(proc.Process, event)
	return event, nil
}

func mitigationOf(event string) string {
	if m, ok := strings.CutPrefix(event, journey.MitigationEventPrefix); ok {
		return m
	}
	return ""
}

func transitionError(err error) error {
	switch {
	case errors.Is(err, statemachine.ErrUnknownEvent):
		return fail(err, dErrors.CodeInternal, journey.ErrorCodeUnknownJourneyEvent, "unknown journey event")
	case errors.Is(err, statemachine.ErrUnknownState):
		return fail(err, dErrors.CodeInternal, journey.ErrorCodeUnknownJourneyState, "unknown journey state")
	default:
		return fail(err, dErrors.CodeInternal, journey.ErrorCodeInternal, "journey transition failed")
	}
}

func fail(err error, code dErrors.Code, journeyCode journey.ErrorCode, msg string) error {
	return journey.WithCode(dErrors.Wrap(err, code, msg), journeyCode)
}

func sessionError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return fail(err, dErrors.CodeNotFound, journey.ErrorCodeSessionNotFound, msg)
	}
	return fail(err, dErrors.CodeInternal, journey.ErrorCodeInternal, "failed to load session")
}
