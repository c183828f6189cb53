package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ipvcore/internal/callback/models"
	journey "ipvcore/internal/journey/models"
	"ipvcore/internal/journey/statemachine"
	"ipvcore/internal/platform/metrics"
	"ipvcore/internal/platform/middleware"
	id "ipvcore/pkg/domain"
	dErrors "ipvcore/pkg/domain-errors"
	"ipvcore/pkg/platform/httputil"
	"ipvcore/pkg/requestcontext"
)

const maxBodyBytes = 1 << 16

// Service is the callback service as used by the HTTP layer.
type Service interface {
	ProcessCallback(ctx context.Context, req models.CallbackRequest) (statemachine.StepResponse, error)
	BuildOAuthRequest(ctx context.Context, in models.OAuthRequestInput) (models.OAuthRequest, error)
}

// Handler serves the CRI callback endpoints.
type Handler struct {
	logger   *slog.Logger
	callback Service
	metrics  *metrics.Metrics
}

func New(callback Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{logger: logger, callback: callback, metrics: m}
}

// Register adds the callback routes. Request id, logging and recovery are
// applied by the root router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Post("/cri/callback", h.handleCallback)
		r.With(middleware.RequireIpvSession(h.logger)).Post("/cri/{criId}/oauth-request", h.handleOAuthRequest)
	})
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req models.CallbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid cri callback body",
			"request_id", requestID,
			"error", err,
		)
		writeJourneyError(w, journey.WithCode(dErrors.New(dErrors.CodeBadRequest, "invalid json payload"), journey.ErrorCodeInvalidRequestBody))
		return
	}

	step, err := h.callback.ProcessCallback(ctx, req)
	if err != nil {
		h.logError(ctx, "cri callback failed", requestID, err)
		writeJourneyError(w, err)
		return
	}
	writeStep(w, step)
}

func (h *Handler) handleOAuthRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	criID, err := id.ParseCriID(chi.URLParam(r, "criId"))
	if err != nil {
		writeJourneyError(w, journey.WithCode(dErrors.New(dErrors.CodeBadRequest, "missing credential issuer id"), journey.ErrorCodeMissingCredentialIssuerID))
		return
	}
	out, err := h.callback.BuildOAuthRequest(ctx, models.OAuthRequestInput{
		SessionID: requestcontext.SessionID(ctx),
		CriID:     criID,
		Context:   r.URL.Query().Get("context"),
		Scope:     r.URL.Query().Get("scope"),
	})
	if err != nil {
		h.logError(ctx, "failed to build cri redirect", requestID, err)
		writeJourneyError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) logError(ctx context.Context, msg, requestID string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeBadRequest {
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
		return
	}
	h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
}

func writeStep(w http.ResponseWriter, step statemachine.StepResponse) {
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
