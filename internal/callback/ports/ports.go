//go:generate mockgen -source=ports.go -destination=../mocks/ports.go -package=mocks

package ports

import (
	"context"

	"ipvcore/internal/cri"
	evidence "ipvcore/internal/evidence/models"
	"ipvcore/internal/evidence/vc"
	id "ipvcore/pkg/domain"
)

// CriClient speaks OAuth to a credential issuer.
type CriClient interface {
	AuthorizationURL(ctx context.Context, cfg *cri.Config, req cri.AuthorizationRequest) (string, error)
	// ExchangeCode returns the access token. Transport failures wrap
	// sentinel.ErrUnavailable.
	ExchangeCode(ctx context.Context, cfg *cri.Config, code string) (string, error)
	FetchCredential(ctx context.Context, cfg *cri.Config, accessToken string) (evidence.CredentialResponse, error)
}

// CriRegistry resolves issuer configuration.
type CriRegistry interface {
	Get(criID id.CriID) (*cri.Config, error)
}

// Validator checks a credential set against its issuer.
type Validator interface {
	ValidateAll(raws []string, issuer vc.Issuer, userID id.UserID) ([]evidence.VerifiableCredential, error)
}

// CiPolicy is the contra-indicator policy as seen by the callback decision.
type CiPolicy interface {
	IsBreachingThreshold(cis []evidence.ContraIndicator) bool
	MitigationDestination(cis []evidence.ContraIndicator) (string, bool)
}
