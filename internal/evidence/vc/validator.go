// Package vc validates credentials returned by CRIs and checks that a set of
// credentials describes one identity.
package vc

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ipvcore/internal/evidence/models"
	id "ipvcore/pkg/domain"
)

// ErrInvalidCredential wraps every signature, issuer, subject or shape failure.
var ErrInvalidCredential = errors.New("invalid verifiable credential")

// Issuer is what the validator needs to know about a CRI.
type Issuer struct {
	CriID     id.CriID
	Issuer    string
	PublicKey *ecdsa.PublicKey
}

type credentialClaims struct {
	jwt.RegisteredClaims
	VC  models.VcClaim `json:"vc"`
	Vot string         `json:"vot,omitempty"`
}

// Validator checks ES256 credentials against the issuing CRI's key.
type Validator struct {
	now    func() time.Time
	leeway time.Duration
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithClock sets the time source used for nbf/exp checks.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithLeeway allows for clock skew between this service and CRIs.
func WithLeeway(d time.Duration) ValidatorOption {
	return func(v *Validator) {
		v.leeway = d
	}
}

func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{now: time.Now, leeway: 30 * time.Second}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate verifies the signature, issuer and subject of raw and decodes it.
func (v *Validator) Validate(raw string, issuer Issuer, userID id.UserID) (models.VerifiableCredential, error) {
	if issuer.PublicKey == nil {
		return models.VerifiableCredential{}, fmt.Errorf("%w: no signing key configured for %s", ErrInvalidCredential, issuer.CriID)
	}

	var claims credentialClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return issuer.PublicKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithIssuer(issuer.Issuer),
		jwt.WithSubject(userID.String()),
		jwt.WithTimeFunc(v.now),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return models.VerifiableCredential{}, fmt.Errorf("%w from %s: %w", ErrInvalidCredential, issuer.CriID, err)
	}

	vc := models.VerifiableCredential{
		CriID:  issuer.CriID,
		UserID: userID,
		Issuer: claims.Issuer,
		Raw:    raw,
		Claims: claims.VC,
	}
	if claims.NotBefore != nil {
		vc.NotBefore = claims.NotBefore.Time
	}
	if claims.ExpiresAt != nil {
		vc.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.Vot != "" {
		vot, err := models.ParseVot(claims.Vot)
		if err != nil {
			return models.VerifiableCredential{}, fmt.Errorf("%w from %s: %w", ErrInvalidCredential, issuer.CriID, err)
		}
		vc.Vot = vot
	}
	return vc, nil
}

// ValidateAll validates every credential; one failure rejects the whole set.
func (v *Validator) ValidateAll(raws []string, issuer Issuer, userID id.UserID) ([]models.VerifiableCredential, error) {
	out := make([]models.VerifiableCredential, 0, len(raws))
	for i, raw := range raws {
		vc, err := v.Validate(raw, issuer, userID)
		if err != nil {
			return nil, fmt.Errorf("credential %d: %w", i, err)
		}
		out = append(out, vc)
	}
	return out, nil
}

// Decode rebuilds a credential from stored raw JWT without verifying the
// signature. Only for credentials that were validated before storage.
func Decode(raw string, criID id.CriID, userID id.UserID) (models.VerifiableCredential, error) {
	var claims credentialClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return models.VerifiableCredential{}, fmt.Errorf("decode stored credential: %w", err)
	}
	vc := models.VerifiableCredential{CriID: criID, UserID: userID, Issuer: claims.Issuer, Raw: raw, Claims: claims.VC}
	if claims.NotBefore != nil {
		vc.NotBefore = claims.NotBefore.Time
	}
	if claims.ExpiresAt != nil {
		vc.ExpiresAt = claims.ExpiresAt.Time
	}
	vc.Vot = models.Vot(claims.Vot)
	return vc, nil
}
