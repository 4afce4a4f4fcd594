package memory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"extid/internal/externalid/models"
	"extid/internal/externalid/store"
	"extid/pkg/platform/sentinel"
)

// InMemoryStore implements ports.Store with maps guarded by one lock.
// Guarded saves check and write under the same lock, which gives them the
// same atomicity a conditional write has on a real store.
type InMemoryStore struct {
	mu   sync.RWMutex
	apps map[string]map[string]*models.ExternalID
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		apps: make(map[string]map[string]*models.ExternalID),
	}
}

func (s *InMemoryStore) Get(_ context.Context, appID, identifier string) (*models.ExternalID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.apps[appID][identifier]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *InMemoryStore) Save(_ context.Context, externalID *models.ExternalID, guard models.SaveGuard) error {
	if externalID == nil {
		return errors.New("external ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.apps[externalID.AppID]
	current, exists := records[externalID.Identifier]
	switch guard {
	case models.GuardUnassigned:
		if !exists || current.IsAssigned() {
			return sentinel.ErrConflict
		}
	}

	if records == nil {
		records = make(map[string]*models.ExternalID)
		s.apps[externalID.AppID] = records
	}
	records[externalID.Identifier] = externalID.Clone()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, appID, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.apps[appID], identifier)
	return nil
}

func (s *InMemoryStore) Query(_ context.Context, query models.RangeQuery) (*models.RangePage, error) {
	if query.Limit < 1 {
		return nil, errors.New("query limit must be positive")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.apps[query.AppID]
	keys := make([]string, 0, len(records))
	for key := range records {
		if key > query.StartAfter && strings.HasPrefix(key, query.IDPrefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	page := &models.RangePage{}
	scanned := make([]*models.ExternalID, 0, min(len(keys), query.Limit))
	for _, key := range keys {
		if len(scanned) == query.Limit {
			page.LastEvaluatedKey = scanned[len(scanned)-1].Identifier
			break
		}
		record := records[key]
		scanned = append(scanned, record)
		if query.Assignment.Matches(record) {
			page.Items = append(page.Items, record.Clone())
		}
	}
	page.ScannedCount = len(scanned)
	page.ConsumedCapacity = store.EstimateReadCapacity(scanned)
	return page, nil
}
