package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"ipvcore/internal/evidence/models"
	id "ipvcore/pkg/domain"
)

type InMemoryStore struct {
	mu          sync.RWMutex
	credentials map[id.UserID]map[id.CriID]models.VerifiableCredential
	clock       func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		credentials: make(map[id.UserID]map[id.CriID]models.VerifiableCredential),
		clock:       time.Now,
	}
}

func (s *InMemoryStore) Save(_ context.Context, credential models.VerifiableCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCri, ok := s.credentials[credential.UserID]
	if !ok {
		byCri = make(map[id.CriID]models.VerifiableCredential)
		s.credentials[credential.UserID] = byCri
	}
	credential.StoredAt = s.clock()
	byCri[credential.CriID] = credential
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]models.VerifiableCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.VerifiableCredential, 0, len(s.credentials[userID]))
	for _, c := range s.credentials[userID] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StoredAt.Equal(out[j].StoredAt) {
			return out[i].CriID < out[j].CriID
		}
		return out[i].StoredAt.Before(out[j].StoredAt)
	})
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID id.UserID, criIDs []id.CriID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range criIDs {
		delete(s.credentials[userID], c)
	}
	return nil
}

func (s *InMemoryStore) DeleteAll(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.credentials, userID)
	return nil
}
