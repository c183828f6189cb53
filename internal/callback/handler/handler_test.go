package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipvcore/internal/callback/models"
	journey "ipvcore/internal/journey/models"
	"ipvcore/internal/journey/statemachine"
	"ipvcore/internal/platform/middleware"
	id "ipvcore/pkg/domain"
	dErrors "ipvcore/pkg/domain-errors"
	"ipvcore/pkg/requestcontext"
)

type stubService struct {
	step     statemachine.StepResponse
	err      error
	got      models.CallbackRequest
	gotOAuth models.OAuthRequestInput
}

func (s *stubService) ProcessCallback(_ context.Context, req models.CallbackRequest) (statemachine.StepResponse, error) {
	s.got = req
	return s.step, s.err
}

func (s *stubService) BuildOAuthRequest(ctx context.Context, in models.OAuthRequestInput) (models.OAuthRequest, error) {
	s.gotOAuth = in
	if requestcontext.SessionID(ctx) != in.SessionID {
		return models.OAuthRequest{}, dErrors.New(dErrors.CodeInternal, "session id not propagated")
	}
	return models.OAuthRequest{Cri: models.OAuthRedirect{ID: in.CriID.String(), RedirectURL: "https://cri.example/authorize"}}, s.err
}

func newRouter(svc Service) http.Handler {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	r := chi.NewRouter()
	New(svc, logger, nil).Register(r)
	return r
}

func post(t *testing.T, router http.Handler, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCallback(t *testing.T) {
	t.Run("journey step", func(t *testing.T) {
		svc := &stubService{step: statemachine.JourneyResponse{Event: journey.EventNext}}
		rec := post(t, newRouter(svc), "/cri/callback",
			`{"credentialIssuerId":"ukPassport","authorizationCode":"c","state":"s","ipvSessionId":"x"}`, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"journey":"/journey/next"}`, rec.Body.String())
		assert.Equal(t, "ukPassport", svc.got.CredentialIssuerID)
	})

	t.Run("recovery page carries its status", func(t *testing.T) {
		svc := &stubService{step: statemachine.ErrorResponse{PageID: journey.PageAttemptRecovery, StatusCode: http.StatusBadRequest}}
		rec := post(t, newRouter(svc), "/cri/callback", `{}`, nil)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"type":"error","page":"pyi-attempt-recovery","statusCode":400}`, rec.Body.String())
	})

	t.Run("validation error body", func(t *testing.T) {
		svc := &stubService{err: journey.WithCode(dErrors.New(dErrors.CodeBadRequest, "missing oauth state"), journey.ErrorCodeMissingOAuthState)}
		rec := post(t, newRouter(svc), "/cri/callback", `{}`, nil)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var body journey.ErrorBody
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, journey.ErrorBody{Journey: "/journey/error", StatusCode: 400, Code: journey.ErrorCodeMissingOAuthState, Message: "missing oauth state"}, body)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := post(t, newRouter(&stubService{}), "/cri/callback", `{`, nil)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":1003`)
	})
}

func TestOAuthRequest(t *testing.T) {
	t.Run("requires a session header", func(t *testing.T) {
		rec := post(t, newRouter(&stubService{}), "/cri/ukPassport/oauth-request", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("returns the redirect", func(t *testing.T) {
		svc := &stubService{}
		sessionID := id.NewSessionID()
		rec := post(t, newRouter(svc), "/cri/ukPassport/oauth-request?context=international&scope=identityCheck", "",
			map[string]string{middleware.HeaderIpvSessionID: sessionID.String()})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"cri":{"id":"ukPassport","redirectUrl":"https://cri.example/authorize"}}`, rec.Body.String())
		assert.Equal(t, models.OAuthRequestInput{SessionID: sessionID, CriID: "ukPassport", Context: "international", Scope: "identityCheck"}, svc.gotOAuth)
	})
}
