package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"ipvcore/internal/credentials/models"
	id "ipvcore/pkg/domain"
	"ipvcore/pkg/platform/sentinel"
)

type pendingKey struct {
	user id.UserID
	cri  id.CriID
}

type InMemoryPendingStore struct {
	mu      sync.RWMutex
	records map[pendingKey]models.PendingResponse
	clock   func() time.Time
}

func NewInMemoryPendingStore() *InMemoryPendingStore {
	return &InMemoryPendingStore{
		records: make(map[pendingKey]models.PendingResponse),
		clock:   time.Now,
	}
}

func (s *InMemoryPendingStore) Upsert(_ context.Context, record models.PendingResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	key := pendingKey{record.UserID, record.CriID}
	if existing, ok := s.records[key]; ok {
		record.CreatedAt = existing.CreatedAt
	} else {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	s.records[key] = record
	return nil
}

func (s *InMemoryPendingStore) Get(_ context.Context, userID id.UserID, criID id.CriID) (*models.PendingResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[pendingKey{userID, criID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

func (s *InMemoryPendingStore) ListByUser(_ context.Context, userID id.UserID) ([]models.PendingResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.PendingResponse
	for k, r := range s.records {
		if k.user == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CriID < out[j].CriID })
	return out, nil
}

func (s *InMemoryPendingStore) UpdateStatus(_ context.Context, userID id.UserID, criID id.CriID, status models.AsyncStatus, errorCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pendingKey{userID, criID}
	r, ok := s.records[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	r.Status = status
	r.ErrorCode = errorCode
	r.UpdatedAt = s.clock()
	s.records[key] = r
	return nil
}
