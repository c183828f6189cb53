// Package vctest builds signed credentials for tests.
package vctest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ipvcore/internal/evidence/models"
)

// NewKey generates a P-256 key for an issuer.
func NewKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

// Credential describes the claims of a test credential.
type Credential struct {
	Issuer    string
	Subject   string
	Claim     models.VcClaim
	Vot       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Sign returns a compact ES256 JWS for c.
func Sign(t testing.TB, key *ecdsa.PrivateKey, c Credential) string {
	t.Helper()
	issuedAt := c.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now().Add(-time.Minute)
	}
	claims := jwt.MapClaims{
		"iss": c.Issuer,
		"sub": c.Subject,
		"nbf": issuedAt.Unix(),
		"iat": issuedAt.Unix(),
		"vc":  c.Claim,
	}
	if !c.ExpiresAt.IsZero() {
		claims["exp"] = c.ExpiresAt.Unix()
	}
	if c.Vot != "" {
		claims["vot"] = c.Vot
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign credential: %v", err)
	}
	return signed
}

// Score returns a pointer score for evidence literals.
func Score(n int) *models.Score {
	s := models.Score(n)
	return &s
}

// Person builds a credential subject with one name and birth date.
func Person(given, family, birthDate string) models.CredentialSubject {
	return models.CredentialSubject{
		Name: []models.Name{{NameParts: []models.NamePart{
			{Type: "GivenName", Value: given},
			{Type: "FamilyName", Value: family},
		}}},
		BirthDate: []models.BirthDate{{Value: birthDate}},
	}
}
