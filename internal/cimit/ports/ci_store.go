//go:generate mockgen -source=ci_store.go -destination=../mocks/ci_store.go -package=mocks CiStore

package ports

import (
	"context"

	"ipvcore/internal/evidence/models"
	id "ipvcore/pkg/domain"
)

// CiStore is the central contra-indicator store. This service never decides
// CIs itself; it submits evidence and reads back what the store holds.
type CiStore interface {
	// GetContraIndicators returns the user's CIs in store order.
	GetContraIndicators(ctx context.Context, userID id.UserID, journeyID, clientIP string) ([]models.ContraIndicator, error)

	// SubmitVC hands a validated credential to the store for CI detection.
	SubmitVC(ctx context.Context, vc models.VerifiableCredential, journeyID, clientIP string) error

	// SubmitMitigatingVCs offers credentials that may mitigate existing CIs.
	SubmitMitigatingVCs(ctx context.Context, userID id.UserID, rawJWTs []string, journeyID, clientIP string) error
}
