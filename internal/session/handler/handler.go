package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ipvcore/internal/platform/metrics"
	"ipvcore/internal/platform/middleware"
	"ipvcore/internal/session/models"
	"ipvcore/internal/session/service"
	"ipvcore/pkg/platform/httputil"
	"ipvcore/pkg/requestcontext"
)

// Service is the session service as used by the HTTP layer.
type Service interface {
	Initialise(ctx context.Context, req service.InitialiseRequest) (*models.IpvSession, error)
}

type initialiseResponse struct {
	IpvSessionID string `json:"ipvSessionId"`
}

// Handler serves session creation.
type Handler struct {
	logger  *slog.Logger
	session Service
	metrics *metrics.Metrics
}

func New(svc Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{logger: logger, session: svc, metrics: m}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Post("/session/initialise", h.handleInitialise)
	})
}

func (h *Handler) handleInitialise(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	if fs := r.Header.Get(middleware.HeaderFeatureSet); fs != "" {
		ctx = requestcontext.WithFeatureSet(ctx, fs)
	}

	req, ok := httputil.DecodeAndPrepare[service.InitialiseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	sess, err := h.session.Initialise(ctx, *req)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to initialise session",
			"request_id", requestID,
			"client_id", req.ClientID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, initialiseResponse{IpvSessionID: sess.ID.String()})
}
