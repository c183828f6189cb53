package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	journey "ipvcore/internal/journey/models"
	"ipvcore/internal/journey/statemachine"
	"ipvcore/internal/platform/middleware"
	id "ipvcore/pkg/domain"
	dErrors "ipvcore/pkg/domain-errors"
)

type stubService struct {
	step        statemachine.StepResponse
	err         error
	gotSession  id.SessionID
	gotEvent    string
	currentPage string
}

func (s *stubService) ProcessEvent(_ context.Context, sessionID id.SessionID, event, currentPage string) (statemachine.StepResponse, error) {
	s.gotSession, s.gotEvent, s.currentPage = sessionID, event, currentPage
	return s.step, s.err
}

func do(t *testing.T, svc Service, path string, sessionID *id.SessionID) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), nil).Register(r)

	req := httptest.NewRequest(http.MethodPost, path, nil)
	if sessionID != nil {
		req.Header.Set(middleware.HeaderIpvSessionID, sessionID.String())
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJourneyEvent(t *testing.T) {
	sessionID := id.NewSessionID()

	t.Run("page step", func(t *testing.T) {
		svc := &stubService{step: statemachine.PageResponse{PageID: "page-ipv-reuse"}}
		rec := do(t, svc, "/journey/next?currentPage=page-ipv-identity-document-start", &sessionID)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"page":"page-ipv-reuse"}`, rec.Body.String())
		assert.Equal(t, sessionID, svc.gotSession)
		assert.Equal(t, "next", svc.gotEvent)
		assert.Equal(t, "page-ipv-identity-document-start", svc.currentPage)
	})

	t.Run("cri step", func(t *testing.T) {
		svc := &stubService{step: statemachine.CriResponse{CriID: "ukPassport"}}
		rec := do(t, svc, "/journey/next", &sessionID)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"journey":"/cri/ukPassport/oauth-request"}`, rec.Body.String())
	})

	t.Run("error step carries its status", func(t *testing.T) {
		svc := &stubService{step: statemachine.ErrorResponse{PageID: "pyi-timeout-recoverable", StatusCode: http.StatusUnauthorized}}
		rec := do(t, svc, "/journey/next", &sessionID)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"type":"error","page":"pyi-timeout-recoverable","statusCode":401}`, rec.Body.String())
	})

	t.Run("session not found", func(t *testing.T) {
		svc := &stubService{err: journey.WithCode(dErrors.New(dErrors.CodeNotFound, "session not found"), journey.ErrorCodeSessionNotFound)}
		rec := do(t, svc, "/journey/next", &sessionID)

		require.Equal(t, http.StatusNotFound, rec.Code)
		var body journey.ErrorBody
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, journey.ErrorCodeSessionNotFound, body.Code)
		assert.Equal(t, "/journey/error", body.Journey)
	})

	t.Run("requires a session header", func(t *testing.T) {
		svc := &stubService{}
		rec := do(t, svc, "/journey/next", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.gotEvent)
	})
}
