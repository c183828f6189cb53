// Package store holds the session store implementations: redis for
// deployments and an in-memory map for tests and local runs.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ipvcore/internal/session/models"
	id "ipvcore/pkg/domain"
	"ipvcore/pkg/platform/sentinel"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// InMemoryStore mirrors RedisStore semantics, including TTL expiry.
// Values are copied in and out so callers never share state with the store.
type InMemoryStore struct {
	mu         sync.RWMutex
	sessions   map[id.SessionID]entry[models.IpvSession]
	clients    map[id.ClientOAuthSessionID]entry[models.ClientOAuthSession]
	criOAuth   map[string]entry[models.CriOAuthSession]
	sessionTTL time.Duration
	criTTL     time.Duration
	clock      func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:   make(map[id.SessionID]entry[models.IpvSession]),
		clients:    make(map[id.ClientOAuthSessionID]entry[models.ClientOAuthSession]),
		criOAuth:   make(map[string]entry[models.CriOAuthSession]),
		sessionTTL: time.Hour,
		criTTL:     time.Hour,
		clock:      time.Now,
	}
}

// WithClock replaces the expiry clock. Returns the store for chaining.
func (s *InMemoryStore) WithClock(clock func() time.Time) *InMemoryStore {
	s.clock = clock
	return s
}

func (s *InMemoryStore) CreateIpvSession(_ context.Context, sess *models.IpvSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[sess.ID]; ok && s.live(e.expiresAt) {
		return fmt.Errorf("session %s: %w", sess.ID, sentinel.ErrConflict)
	}
	s.sessions[sess.ID] = entry[models.IpvSession]{value: cloneSession(*sess), expiresAt: s.clock().Add(s.sessionTTL)}
	return nil
}

func (s *InMemoryStore) GetIpvSession(_ context.Context, sessionID id.SessionID) (*models.IpvSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok || !s.live(e.expiresAt) {
		return nil, fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	v := cloneSession(e.value)
	return &v, nil
}

func (s *InMemoryStore) SaveIpvSession(_ context.Context, sess *models.IpvSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sess.ID]
	if !ok || !s.live(e.expiresAt) {
		return fmt.Errorf("session %s: %w", sess.ID, sentinel.ErrNotFound)
	}
	e.value = cloneSession(*sess)
	s.sessions[sess.ID] = e
	return nil
}

func (s *InMemoryStore) CreateClientSession(_ context.Context, c *models.ClientOAuthSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.clients[c.ID]; ok && s.live(e.expiresAt) {
		return fmt.Errorf("client session %s: %w", c.ID, sentinel.ErrConflict)
	}
	v := *c
	v.Vtr = append([]string(nil), c.Vtr...)
	s.clients[c.ID] = entry[models.ClientOAuthSession]{value: v, expiresAt: s.clock().Add(s.sessionTTL)}
	return nil
}

func (s *InMemoryStore) GetClientSession(_ context.Context, clientSessionID id.ClientOAuthSessionID) (*models.ClientOAuthSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.clients[clientSessionID]
	if !ok || !s.live(e.expiresAt) {
		return nil, fmt.Errorf("client session %s: %w", clientSessionID, sentinel.ErrNotFound)
	}
	v := e.value
	v.Vtr = append([]string(nil), e.value.Vtr...)
	return &v, nil
}

func (s *InMemoryStore) SaveCriOAuthSession(_ context.Context, c *models.CriOAuthSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criOAuth[c.State] = entry[models.CriOAuthSession]{value: *c, expiresAt: s.clock().Add(s.criTTL)}
	return nil
}

func (s *InMemoryStore) GetCriOAuthSession(_ context.Context, state string) (*models.CriOAuthSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.criOAuth[state]
	if !ok || !s.live(e.expiresAt) {
		return nil, fmt.Errorf("cri oauth session: %w", sentinel.ErrNotFound)
	}
	v := e.value
	return &v, nil
}

func (s *InMemoryStore) live(expiresAt time.Time) bool {
	return s.clock().Before(expiresAt)
}

func cloneSession(in models.IpvSession) models.IpvSession {
	in.VisitedCris = append([]models.VisitedCri(nil), in.VisitedCris...)
	in.VcStatuses = append(in.VcStatuses[:0:0], in.VcStatuses...)
	return in
}
