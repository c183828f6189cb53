package memory

import (
	"context"
	"sync"

	id "ipvcore/pkg/domain"
	audit "ipvcore/pkg/platform/audit"
)

// InMemoryStore keeps events in emission order. Used by tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
	err    error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// FailWith makes every following Append return err. Pass nil to recover.
func (s *InMemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.User.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...), nil
}

// Names returns the emitted event names in order.
func (s *InMemoryStore) Names() []audit.EventName {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.EventName, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Name)
	}
	return out
}
