package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ipvcore/internal/cimit/ports"
	"ipvcore/internal/evidence/models"
	id "ipvcore/pkg/domain"
	"ipvcore/pkg/platform/circuit"
	"ipvcore/pkg/platform/sentinel"
)

const (
	headerJourneyID = "govuk-signin-journey-id"
	headerClientIP  = "ip-address"
)

// HTTPClient talks to the CI store over JSON. Timeouts belong to the client;
// callers treat any failure as terminal for the request.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuit.Breaker
	logger     *slog.Logger
}

var _ ports.CiStore = (*HTTPClient)(nil)

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		h.httpClient = c
	}
}

func WithLogger(logger *slog.Logger) HTTPOption {
	return func(h *HTTPClient) {
		h.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) HTTPOption {
	return func(h *HTTPClient) {
		h.breaker = b
	}
}

func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    circuit.New("ci-store"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type contraIndicatorsResponse struct {
	ContraIndicators []models.ContraIndicator `json:"contraIndicators"`
}

func (c *HTTPClient) GetContraIndicators(ctx context.Context, userID id.UserID, journeyID, clientIP string) ([]models.ContraIndicator, error) {
	q := url.Values{}
	q.Set("user_id", userID.String())
	var out contraIndicatorsResponse
	if err := c.do(ctx, http.MethodGet, "/contra-indicators?"+q.Encode(), nil, journeyID, clientIP, &out); err != nil {
		return nil, fmt.Errorf("get contra-indicators: %w", err)
	}
	return out.ContraIndicators, nil
}

func (c *HTTPClient) SubmitVC(ctx context.Context, vc models.VerifiableCredential, journeyID, clientIP string) error {
	body := map[string]string{"signed_jwt": vc.Raw}
	if err := c.do(ctx, http.MethodPost, "/contra-indicators/detect", body, journeyID, clientIP, nil); err != nil {
		return fmt.Errorf("submit vc from %s: %w", vc.CriID, err)
	}
	return nil
}

func (c *HTTPClient) SubmitMitigatingVCs(ctx context.Context, userID id.UserID, rawJWTs []string, journeyID, clientIP string) error {
	if len(rawJWTs) == 0 {
		return nil
	}
	body := map[string]any{"user_id": userID.String(), "signed_jwts": rawJWTs}
	if err := c.do(ctx, http.MethodPost, "/contra-indicators/mitigate", body, journeyID, clientIP, nil); err != nil {
		return fmt.Errorf("submit mitigating vcs: %w", err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any, journeyID, clientIP string, out any) error {
	if !c.breaker.Allow() {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, circuit.ErrOpen)
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerJourneyID, journeyID)
	req.Header.Set(headerClientIP, clientIP)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(ctx)
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		c.recordFailure(ctx)
		return fmt.Errorf("%w: ci store status %d", sentinel.ErrUnavailable, resp.StatusCode)
	}
	c.breaker.RecordSuccess()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("ci store rejected request: status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode ci store response: %w", err)
	}
	return nil
}

func (c *HTTPClient) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "ci store circuit opened", "breaker", c.breaker.Name())
	}
}
