//go:generate mockgen -source=ports.go -destination=../mocks/ports.go -package=mocks VcStore,PendingStore

package ports

import (
	"context"

	"ipvcore/internal/credentials/models"
	evidence "ipvcore/internal/evidence/models"
	id "ipvcore/pkg/domain"
)

// VcStore keeps at most one credential per {user, CRI}.
type VcStore interface {
	Save(ctx context.Context, credential evidence.VerifiableCredential) error
	ListByUser(ctx context.Context, userID id.UserID) ([]evidence.VerifiableCredential, error)
	Delete(ctx context.Context, userID id.UserID, criIDs []id.CriID) error
	DeleteAll(ctx context.Context, userID id.UserID) error
}

// PendingStore tracks async issuers that still owe a credential.
type PendingStore interface {
	// Upsert creates or replaces the record for {user, CRI}.
	Upsert(ctx context.Context, record models.PendingResponse) error
	// Get returns sentinel.ErrNotFound when there is no record.
	Get(ctx context.Context, userID id.UserID, criID id.CriID) (*models.PendingResponse, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]models.PendingResponse, error)
	UpdateStatus(ctx context.Context, userID id.UserID, criID id.CriID, status models.AsyncStatus, errorCode string) error
}
