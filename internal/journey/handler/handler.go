package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	journey "ipvcore/internal/journey/models"
	"ipvcore/internal/journey/statemachine"
	"ipvcore/internal/platform/metrics"
	"ipvcore/internal/platform/middleware"
	id "ipvcore/pkg/domain"
	dErrors "ipvcore/pkg/domain-errors"
	"ipvcore/pkg/platform/httputil"
	"ipvcore/pkg/requestcontext"
)

// Service is the journey service as used by the HTTP layer.
type Service interface {
	ProcessEvent(ctx context.Context, sessionID id.SessionID, event, currentPage string) (statemachine.StepResponse, error)
}

// Handler serves the journey event endpoint.
type Handler struct {
	logger  *slog.Logger
	journey Service
	metrics *metrics.Metrics
}

func New(svc Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{logger: logger, journey: svc, metrics: m}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.RequireIpvSession(h.logger))
		r.Post("/journey/{event}", h.handleEvent)
	})
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	sessionID := requestcontext.SessionID(ctx)

	event := chi.URLParam(r, "event")
	if event == "" {
		writeJourneyError(w, journey.WithCode(dErrors.New(dErrors.CodeBadRequest, "missing journey event"), journey.ErrorCodeUnknownJourneyEvent))
		return
	}

	step, err := h.journey.ProcessEvent(ctx, sessionID, event, r.URL.Query().Get("currentPage"))
	if err != nil {
		h.logger.ErrorContext(ctx, "journey event failed",
			"request_id", requestID,
			"session_id", sessionID.String(),
			"event", event,
			"error", err,
		)
		writeJourneyError(w, err)
		return
	}

	status := http.StatusOK
	if e, ok := step.(statemachine.ErrorResponse); ok {
		status = e.StatusCode
	}
	httputil.WriteJSON(w, status, step.Value())
}

func writeJourneyError(w http.ResponseWriter, err error) {
	status, body := journey.ErrorBodyFor(err)
	httputil.WriteJSON(w, status, body)
}
