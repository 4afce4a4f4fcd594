package memory

import (
	"context"
	"sync"

	audit "extid/pkg/platform/audit"
)

// InMemoryStore keeps audit events per app and identifier.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]audit.Event
	order  []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]audit.Event)
	s.order = nil
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := eventKey(event.AppID, event.Identifier)
	s.events[key] = append(s.events[key], event)
	s.order = append(s.order, event)
	return nil
}

// ListByIdentifier returns the events recorded for one identifier, oldest first.
func (s *InMemoryStore) ListByIdentifier(_ context.Context, appID, identifier string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[eventKey(appID, identifier)]...), nil
}

// ListAll returns every event in append order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.order...), nil
}

func eventKey(appID, identifier string) string {
	return appID + "\x00" + identifier
}
