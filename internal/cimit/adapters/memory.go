package adapters

import (
	"context"
	"slices"
	"sync"

	"ipvcore/internal/cimit/ports"
	"ipvcore/internal/evidence/models"
	id "ipvcore/pkg/domain"
)

// InMemoryStore is a local CI store for development runs without a CI
// service. It records the ci codes carried in submitted evidence and never
// mitigates them.
type InMemoryStore struct {
	mu  sync.RWMutex
	cis map[id.UserID][]models.ContraIndicator
}

var _ ports.CiStore = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{cis: make(map[id.UserID][]models.ContraIndicator)}
}

func (s *InMemoryStore) GetContraIndicators(_ context.Context, userID id.UserID, _, _ string) ([]models.ContraIndicator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cis[userID]), nil
}

func (s *InMemoryStore) SubmitVC(_ context.Context, vc models.VerifiableCredential, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range vc.Claims.Evidence {
		for _, code := range ev.CI {
			s.cis[vc.UserID] = append(s.cis[vc.UserID], models.ContraIndicator{
				Code:         code,
				IssuanceDate: vc.NotBefore,
				Txn:          []string{ev.Txn},
			})
		}
	}
	return nil
}

func (s *InMemoryStore) SubmitMitigatingVCs(context.Context, id.UserID, []string, string, string) error {
	return nil
}
