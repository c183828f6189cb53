package cri

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"ipvcore/internal/evidence/models"
	"ipvcore/internal/platform/signing"
	id "ipvcore/pkg/domain"
	"ipvcore/pkg/platform/circuit"
	"ipvcore/pkg/platform/sentinel"
)

const (
	clientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
	assertionTTL        = 5 * time.Minute
	requestObjectTTL    = 15 * time.Minute

	claimCredentialJWT    = "https://vocab.account.gov.uk/v1/credentialJWT"
	claimCredentialStatus = "https://vocab.account.gov.uk/v1/credentialStatus"
)

// ErrCredentialResponse covers credential endpoint payloads that cannot be read.
var ErrCredentialResponse = errors.New("invalid credential response")

var tracer trace.Tracer = otel.Tracer("ipvcore/internal/cri")

// AuthorizationRequest is what goes into the signed request object.
type AuthorizationRequest struct {
	State     string
	UserID    id.UserID
	JourneyID string
	Context   string
	Scope     string
}

// Client speaks OAuth to credential issuers: builds the authorize redirect,
// exchanges the code with a signed client assertion and fetches credentials.
type Client struct {
	httpClient  *http.Client
	signer      signing.Signer
	componentID string
	callbackURL string
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	breakers map[id.CriID]*circuit.Breaker
}

// ClientOption configures the Client.
type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func WithClock(now func() time.Time) ClientOption {
	return func(cl *Client) {
		if now != nil {
			cl.now = now
		}
	}
}

// NewClient signs as componentID and sends callbackURL as the redirect_uri.
func NewClient(signer signing.Signer, componentID, callbackURL string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		signer:      signer,
		componentID: componentID,
		callbackURL: callbackURL,
		logger:      slog.Default(),
		now:         time.Now,
		breakers:    make(map[id.CriID]*circuit.Breaker),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) oauthConfig(cfg *Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    cfg.ClientID,
		RedirectURL: c.callbackURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthorizeURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthorizationURL returns the issuer's authorize URL carrying a signed
// request object.
func (c *Client) AuthorizationURL(ctx context.Context, cfg *Config, req AuthorizationRequest) (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"iss":                     c.componentID,
		"aud":                     cfg.ComponentID,
		"sub":                     req.UserID.String(),
		"client_id":               cfg.ClientID,
		"redirect_uri":            c.callbackURL,
		"response_type":           "code",
		"state":                   req.State,
		"govuk_signin_journey_id": req.JourneyID,
		"iat":                     now.Unix(),
		"nbf":                     now.Unix(),
		"exp":                     now.Add(requestObjectTTL).Unix(),
	}
	if req.Context != "" {
		claims["context"] = req.Context
	}
	if req.Scope != "" {
		claims["scope"] = req.Scope
	}
	requestObject, err := signing.SignClaims(ctx, c.signer, claims)
	if err != nil {
		return "", fmt.Errorf("sign request object for %s: %w", cfg.ID, err)
	}
	return c.oauthConfig(cfg).AuthCodeURL(req.State, oauth2.SetAuthURLParam("request", requestObject)), nil
}

// ExchangeCode swaps an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, cfg *Config, code string) (string, error) {
	ctx, span := tracer.Start(ctx, "cri.ExchangeCode", trace.WithAttributes(attribute.String("cri_id", cfg.ID.String())))
	defer span.End()

	breaker := c.breaker(cfg.ID)
	if !breaker.Allow() {
		return "", fmt.Errorf("%w: %s: %w", sentinel.ErrUnavailable, cfg.ID, circuit.ErrOpen)
	}

	now := c.now()
	assertion, err := signing.SignClaims(ctx, c.signer, jwt.RegisteredClaims{
		Issuer:    cfg.ClientID,
		Subject:   cfg.ClientID,
		Audience:  jwt.ClaimStrings{cfg.ComponentID},
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionTTL)),
	})
	if err != nil {
		return "", fmt.Errorf("sign client assertion for %s: %w", cfg.ID, err)
	}

	token, err := c.oauthConfig(cfg).Exchange(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient), code,
		oauth2.SetAuthURLParam("client_assertion_type", clientAssertionType),
		oauth2.SetAuthURLParam("client_assertion", assertion),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token exchange failed")
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < http.StatusInternalServerError {
			breaker.RecordSuccess()
			return "", fmt.Errorf("token exchange with %s rejected: %w", cfg.ID, err)
		}
		c.recordFailure(ctx, breaker)
		return "", fmt.Errorf("%w: token exchange with %s: %w", sentinel.ErrUnavailable, cfg.ID, err)
	}
	breaker.RecordSuccess()
	return token.AccessToken, nil
}

type credentialBody struct {
	Sub    string   `json:"sub"`
	JWTs   []string `json:"-"`
	Status string   `json:"-"`
}

func (b *credentialBody) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["sub"]; ok {
		if err := json.Unmarshal(v, &b.Sub); err != nil {
			return fmt.Errorf("sub: %w", err)
		}
	}
	if v, ok := raw[claimCredentialJWT]; ok {
		if err := json.Unmarshal(v, &b.JWTs); err != nil {
			return fmt.Errorf("credentialJWT: %w", err)
		}
	}
	if v, ok := raw[claimCredentialStatus]; ok {
		if err := json.Unmarshal(v, &b.Status); err != nil {
			return fmt.Errorf("credentialStatus: %w", err)
		}
	}
	return nil
}

// FetchCredential calls the issuer's credential endpoint. A bare JWT body is
// one created credential; a JSON body may carry several or a pending status.
// Signatures are not checked here.
func (c *Client) FetchCredential(ctx context.Context, cfg *Config, accessToken string) (models.CredentialResponse, error) {
	ctx, span := tracer.Start(ctx, "cri.FetchCredential", trace.WithAttributes(attribute.String("cri_id", cfg.ID.String())))
	defer span.End()

	breaker := c.breaker(cfg.ID)
	if !breaker.Allow() {
		return models.CredentialResponse{}, fmt.Errorf("%w: %s: %w", sentinel.ErrUnavailable, cfg.ID, circuit.ErrOpen)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.CredentialURL, nil)
	if err != nil {
		return models.CredentialResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(ctx, breaker)
		span.RecordError(err)
		return models.CredentialResponse{}, fmt.Errorf("%w: credential request to %s: %w", sentinel.ErrUnavailable, cfg.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		c.recordFailure(ctx, breaker)
		span.SetStatus(codes.Error, resp.Status)
		return models.CredentialResponse{}, fmt.Errorf("%w: %s credential endpoint status %d", sentinel.ErrUnavailable, cfg.ID, resp.StatusCode)
	}
	breaker.RecordSuccess()
	if resp.StatusCode >= http.StatusBadRequest {
		return models.CredentialResponse{}, fmt.Errorf("%w: %s credential endpoint status %d", ErrCredentialResponse, cfg.ID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.CredentialResponse{}, fmt.Errorf("read %s credential response: %w", cfg.ID, err)
	}
	return parseCredentialResponse(resp.Header.Get("Content-Type"), body)
}

func parseCredentialResponse(contentType string, body []byte) (models.CredentialResponse, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/jwt" {
		raw := strings.TrimSpace(string(body))
		var claims jwt.RegisteredClaims
		if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
			return models.CredentialResponse{}, fmt.Errorf("%w: %w", ErrCredentialResponse, err)
		}
		return models.CredentialResponse{
			UserID:  id.UserID(claims.Subject),
			Status:  models.CredentialStatusCreated,
			RawJWTs: []string{raw},
		}, nil
	}

	var parsed credentialBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return models.CredentialResponse{}, fmt.Errorf("%w: %w", ErrCredentialResponse, err)
	}
	if parsed.Sub == "" {
		return models.CredentialResponse{}, fmt.Errorf("%w: missing sub", ErrCredentialResponse)
	}
	// A missing status means the credentials are in the body.
	switch {
	case strings.EqualFold(parsed.Status, string(models.CredentialStatusPending)):
		return models.CredentialResponse{UserID: id.UserID(parsed.Sub), Status: models.CredentialStatusPending}, nil
	case parsed.Status == "", strings.EqualFold(parsed.Status, string(models.CredentialStatusCreated)):
		if len(parsed.JWTs) == 0 {
			return models.CredentialResponse{}, fmt.Errorf("%w: no credentials", ErrCredentialResponse)
		}
		return models.CredentialResponse{UserID: id.UserID(parsed.Sub), Status: models.CredentialStatusCreated, RawJWTs: parsed.JWTs}, nil
	default:
		return models.CredentialResponse{}, fmt.Errorf("%w: unknown status %q", ErrCredentialResponse, parsed.Status)
	}
}

func (c *Client) breaker(criID id.CriID) *circuit.Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.breakers[criID]
	if !ok {
		b = circuit.New("cri-" + criID.String())
		c.breakers[criID] = b
	}
	return b
}

func (c *Client) recordFailure(ctx context.Context, b *circuit.Breaker) {
	if _, change := b.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "cri circuit opened", "breaker", b.Name())
	}
}
