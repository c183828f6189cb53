package ports

import (
	"context"

	"ipvcore/internal/session/models"
	id "ipvcore/pkg/domain"
)

// Store persists session records with a TTL. Missing or expired records
// return sentinel.ErrNotFound.
type Store interface {
	CreateIpvSession(ctx context.Context, s *models.IpvSession) error
	GetIpvSession(ctx context.Context, sessionID id.SessionID) (*models.IpvSession, error)
	// SaveIpvSession overwrites an existing session without extending its TTL.
	SaveIpvSession(ctx context.Context, s *models.IpvSession) error

	// CreateClientSession fails with sentinel.ErrConflict if the id exists.
	CreateClientSession(ctx context.Context, c *models.ClientOAuthSession) error
	GetClientSession(ctx context.Context, clientSessionID id.ClientOAuthSessionID) (*models.ClientOAuthSession, error)

	SaveCriOAuthSession(ctx context.Context, c *models.CriOAuthSession) error
	GetCriOAuthSession(ctx context.Context, state string) (*models.CriOAuthSession, error)
}
