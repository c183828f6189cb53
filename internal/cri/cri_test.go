package cri

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipvcore/internal/evidence/models"
	"ipvcore/internal/evidence/vc/vctest"
	"ipvcore/internal/platform/signing"
	id "ipvcore/pkg/domain"
	"ipvcore/pkg/platform/sentinel"
)

func publicKeyPEM(t *testing.T, key *ecdsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func registryYAML(t *testing.T, key *ecdsa.PrivateKey, baseURL string) []byte {
	t.Helper()
	indented := strings.ReplaceAll(strings.TrimSpace(publicKeyPEM(t, key)), "\n", "\n      ")
	return []byte(fmt.Sprintf(`
credentialIssuers:
  fraud:
    enabled: true
    componentId: https://fraud.example
    clientId: ipv-core
    authorizeUrl: %[1]s/authorize
    tokenUrl: %[1]s/token
    credentialUrl: %[1]s/credential
    signingKey: |
      %[2]s
  f2f:
    enabled: false
    async: true
    componentId: https://f2f.example
    clientId: ipv-core
    authorizeUrl: %[1]s/authorize
    tokenUrl: %[1]s/token
    credentialUrl: %[1]s/credential
    signingKey: |
      %[2]s
`, baseURL, indented))
}

func TestParseRegistry(t *testing.T) {
	key := vctest.NewKey(t)

	t.Run("valid file", func(t *testing.T) {
		r, err := ParseRegistry(registryYAML(t, key, "https://cri.example"))
		require.NoError(t, err)

		assert.Equal(t, []id.CriID{"f2f", "fraud"}, r.IDs())
		assert.True(t, r.Enabled("fraud"))
		assert.False(t, r.Enabled("f2f"))
		assert.False(t, r.Enabled("unknown"))

		cfg, err := r.Get("f2f")
		require.NoError(t, err)
		assert.True(t, cfg.Async)
		issuer := cfg.Issuer()
		assert.Equal(t, "https://f2f.example", issuer.Issuer)
		require.NotNil(t, issuer.PublicKey)
		assert.True(t, issuer.PublicKey.Equal(&key.PublicKey))
	})

	t.Run("unknown cri", func(t *testing.T) {
		r, err := ParseRegistry(registryYAML(t, key, "https://cri.example"))
		require.NoError(t, err)
		_, err = r.Get("dcmaw")
		require.ErrorIs(t, err, ErrUnknownCri)
	})

	t.Run("relative url rejected", func(t *testing.T) {
		_, err := ParseRegistry(registryYAML(t, key, "/relative"))
		require.ErrorContains(t, err, "must be an absolute url")
	})

	t.Run("bad key rejected", func(t *testing.T) {
		data := []byte(`
credentialIssuers:
  address:
    componentId: https://address.example
    clientId: ipv-core
    authorizeUrl: https://a.example/authorize
    tokenUrl: https://a.example/token
    credentialUrl: https://a.example/credential
    signingKey: not a key
`)
		_, err := ParseRegistry(data)
		require.ErrorContains(t, err, "signingKey")
	})
}

type stubFlags map[string]bool

func (s stubFlags) IsEnabled(_ context.Context, feature string) bool {
	v, ok := s[feature]
	return !ok || v
}

func TestChecker(t *testing.T) {
	r, err := ParseRegistry(registryYAML(t, vctest.NewKey(t), "https://cri.example"))
	require.NoError(t, err)

	c := NewChecker(r, stubFlags{"fraud": false, "resetIdentity": false})
	ctx := context.Background()

	assert.False(t, c.IsEnabled(ctx, "fraud"), "flag can switch off an enabled cri")
	assert.False(t, c.IsEnabled(ctx, "f2f"), "disabled cri stays off")
	assert.False(t, c.IsEnabled(ctx, "resetIdentity"))
	assert.True(t, c.IsEnabled(ctx, "kbv"), "unknown names default to enabled")

	assert.True(t, NewChecker(r, nil).IsEnabled(ctx, "fraud"))
}

type criServer struct {
	*httptest.Server
	tokenForm    url.Values
	credentialFn func(w http.ResponseWriter)
	tokenStatus  int
}

func newCriServer(t *testing.T) *criServer {
	s := &criServer{tokenStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		s.tokenForm = r.PostForm
		if s.tokenStatus != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(s.tokenStatus)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at-123", "token_type": "Bearer", "expires_in": 300})
	})
	mux.HandleFunc("/credential", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		s.credentialFn(w)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func TestClient(t *testing.T) {
	criKey := vctest.NewKey(t)
	coreKey := vctest.NewKey(t)
	signer := signing.NewLocalSigner(coreKey, "core-key")
	srv := newCriServer(t)

	r, err := ParseRegistry(registryYAML(t, criKey, srv.URL))
	require.NoError(t, err)
	cfg, err := r.Get("fraud")
	require.NoError(t, err)

	now := time.Now()
	client := NewClient(signer, "https://core.example", "https://core.example/callback",
		WithHTTPClient(srv.Client()), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	t.Run("authorization url carries a signed request object", func(t *testing.T) {
		raw, err := client.AuthorizationURL(ctx, cfg, AuthorizationRequest{State: "st-1", UserID: "urn:uuid:u1", JourneyID: "j1", Scope: "identityCheck"})
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "st-1", q.Get("state"))
		assert.Equal(t, "ipv-core", q.Get("client_id"))
		assert.Equal(t, "code", q.Get("response_type"))

		claims := jwt.MapClaims{}
		_, err = jwt.ParseWithClaims(q.Get("request"), claims, func(*jwt.Token) (any, error) { return &coreKey.PublicKey, nil })
		require.NoError(t, err)
		assert.Equal(t, "urn:uuid:u1", claims["sub"])
		assert.Equal(t, "https://fraud.example", claims["aud"])
		assert.Equal(t, "identityCheck", claims["scope"])
	})

	t.Run("code exchange sends a client assertion", func(t *testing.T) {
		token, err := client.ExchangeCode(ctx, cfg, "code-1")
		require.NoError(t, err)
		assert.Equal(t, "at-123", token)

		assert.Equal(t, "code-1", srv.tokenForm.Get("code"))
		assert.Equal(t, clientAssertionType, srv.tokenForm.Get("client_assertion_type"))
		claims := jwt.RegisteredClaims{}
		_, err = jwt.ParseWithClaims(srv.tokenForm.Get("client_assertion"), &claims,
			func(*jwt.Token) (any, error) { return &coreKey.PublicKey, nil },
			jwt.WithTimeFunc(func() time.Time { return now }))
		require.NoError(t, err)
		assert.Equal(t, "ipv-core", claims.Issuer)
	})

	t.Run("rejected code is not an availability failure", func(t *testing.T) {
		srv.tokenStatus = http.StatusBadRequest
		defer func() { srv.tokenStatus = http.StatusOK }()

		_, err := client.ExchangeCode(ctx, cfg, "bad")
		require.Error(t, err)
		assert.NotErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("jwt credential", func(t *testing.T) {
		vcJWT := vctest.Sign(t, criKey, vctest.Credential{Issuer: "https://fraud.example", Subject: "urn:uuid:u1"})
		srv.credentialFn = func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "application/jwt")
			_, _ = w.Write([]byte(vcJWT))
		}
		resp, err := client.FetchCredential(ctx, cfg, "at-123")
		require.NoError(t, err)
		assert.Equal(t, models.CredentialStatusCreated, resp.Status)
		assert.Equal(t, id.UserID("urn:uuid:u1"), resp.UserID)
		assert.Equal(t, []string{vcJWT}, resp.RawJWTs)
	})

	t.Run("pending credential", func(t *testing.T) {
		srv.credentialFn = func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sub":"urn:uuid:u1","https://vocab.account.gov.uk/v1/credentialStatus":"pending"}`))
		}
		resp, err := client.FetchCredential(ctx, cfg, "at-123")
		require.NoError(t, err)
		assert.Equal(t, models.CredentialStatusPending, resp.Status)
		assert.Empty(t, resp.RawJWTs)
	})

	t.Run("server error is unavailable", func(t *testing.T) {
		srv.credentialFn = func(w http.ResponseWriter) { w.WriteHeader(http.StatusBadGateway) }
		_, err := client.FetchCredential(ctx, cfg, "at-123")
		require.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("garbage body", func(t *testing.T) {
		srv.credentialFn = func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"https://vocab.account.gov.uk/v1/credentialJWT":["x"]}`))
		}
		_, err := client.FetchCredential(ctx, cfg, "at-123")
		require.ErrorIs(t, err, ErrCredentialResponse)
	})

	t.Run("json credentials", func(t *testing.T) {
		srv.credentialFn = func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sub":"urn:uuid:u1","https://vocab.account.gov.uk/v1/credentialStatus":"Created","https://vocab.account.gov.uk/v1/credentialJWT":["a.b.c","d.e.f"]}`))
		}
		resp, err := client.FetchCredential(ctx, cfg, "at-123")
		require.NoError(t, err)
		assert.Equal(t, models.CredentialStatusCreated, resp.Status)
		assert.Equal(t, []string{"a.b.c", "d.e.f"}, resp.RawJWTs)
	})

	for name, body := range map[string]string{
		"created without credentials":  `{"sub":"urn:uuid:u1","https://vocab.account.gov.uk/v1/credentialStatus":"Created"}`,
		"no status and no credentials": `{"sub":"urn:uuid:u1","https://vocab.account.gov.uk/v1/credentialJWT":[]}`,
		"unknown status":               `{"sub":"urn:uuid:u1","https://vocab.account.gov.uk/v1/credentialStatus":"Revoked","https://vocab.account.gov.uk/v1/credentialJWT":["a.b.c"]}`,
	} {
		t.Run(name+" is rejected", func(t *testing.T) {
			srv.credentialFn = func(w http.ResponseWriter) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
			}
			_, err := client.FetchCredential(ctx, cfg, "at-123")
			require.ErrorIs(t, err, ErrCredentialResponse)
		})
	}
}
