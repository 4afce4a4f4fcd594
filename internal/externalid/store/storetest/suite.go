// Package storetest holds the behaviour every ports.Store backend must share.
//
// Backend packages run it from their own tests:
//
//	suite.Run(t, &storetest.StoreSuite{NewStore: func(t *testing.T) ports.Store { ... }})
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"extid/internal/externalid/models"
	"extid/internal/externalid/ports"
	"extid/pkg/platform/sentinel"
)

// StoreSuite exercises a ports.Store. Each test uses a fresh app ID, so
// backends that share state across tests do not need truncation.
type StoreSuite struct {
	suite.Suite
	NewStore func(t *testing.T) ports.Store

	store ports.Store
	ctx   context.Context
	appID string
}

func (s *StoreSuite) SetupTest() {
	s.Require().NotNil(s.NewStore, "NewStore factory is required")
	s.store = s.NewStore(s.T())
	s.ctx = context.Background()
	s.appID = "app-" + uuid.NewString()
}

func (s *StoreSuite) newID(identifier, studyID, healthCode string) *models.ExternalID {
	return &models.ExternalID{AppID: s.appID, Identifier: identifier, StudyID: studyID, HealthCode: healthCode}
}

func (s *StoreSuite) mustSave(records ...*models.ExternalID) {
	for _, r := range records {
		s.Require().NoError(s.store.Save(s.ctx, r, models.GuardNone))
	}
}

func (s *StoreSuite) identifiers(items []*models.ExternalID) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.Identifier)
	}
	return ids
}

func (s *StoreSuite) TestGetAndSave() {
	s.Run("missing record returns ErrNotFound", func() {
		_, err := s.store.Get(s.ctx, s.appID, "missing")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("saved record round trips", func() {
		s.mustSave(s.newID("ext-1", "study-a", ""))

		got, err := s.store.Get(s.ctx, s.appID, "ext-1")
		s.Require().NoError(err)
		s.Equal(s.newID("ext-1", "study-a", ""), got)
	})

	s.Run("unconditional save overwrites and clears health code", func() {
		s.mustSave(s.newID("ext-2", "study-a", "hc-1"))
		s.mustSave(s.newID("ext-2", "study-a", ""))

		got, err := s.store.Get(s.ctx, s.appID, "ext-2")
		s.Require().NoError(err)
		s.False(got.IsAssigned())
	})

	s.Run("records are scoped by app", func() {
		s.mustSave(s.newID("ext-3", "", ""))

		_, err := s.store.Get(s.ctx, "other-"+s.appID, "ext-3")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *StoreSuite) TestGuardedSave() {
	s.Run("unassigned guard binds an unassigned record", func() {
		s.mustSave(s.newID("g-1", "study-a", ""))

		s.Require().NoError(s.store.Save(s.ctx, s.newID("g-1", "study-a", "hc-1"), models.GuardUnassigned))
		got, err := s.store.Get(s.ctx, s.appID, "g-1")
		s.Require().NoError(err)
		s.Equal("hc-1", got.HealthCode)
	})

	s.Run("unassigned guard fails on an assigned record", func() {
		s.mustSave(s.newID("g-2", "", "hc-1"))

		err := s.store.Save(s.ctx, s.newID("g-2", "", "hc-2"), models.GuardUnassigned)
		s.ErrorIs(err, sentinel.ErrConflict)

		got, err := s.store.Get(s.ctx, s.appID, "g-2")
		s.Require().NoError(err)
		s.Equal("hc-1", got.HealthCode)
	})

	s.Run("unassigned guard fails on a missing record and creates nothing", func() {
		err := s.store.Save(s.ctx, s.newID("g-3", "", "hc-1"), models.GuardUnassigned)
		s.ErrorIs(err, sentinel.ErrConflict)

		_, err = s.store.Get(s.ctx, s.appID, "g-3")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("unassigned guard does not resurrect a deleted record", func() {
		s.mustSave(s.newID("g-4", "study-a", ""))
		s.Require().NoError(s.store.Delete(s.ctx, s.appID, "g-4"))

		err := s.store.Save(s.ctx, s.newID("g-4", "study-a", "hc-1"), models.GuardUnassigned)
		s.ErrorIs(err, sentinel.ErrConflict)

		_, err = s.store.Get(s.ctx, s.appID, "g-4")
		s.ErrorIs(err, sentinel.ErrNotFound)
		page, err := s.store.Query(s.ctx, models.RangeQuery{AppID: s.appID, IDPrefix: "g-4", Limit: 10})
		s.Require().NoError(err)
		s.Empty(page.Items)
	})
}

// TestConcurrentGuardedSave races many binds of one identifier; exactly one
// may win.
func (s *StoreSuite) TestConcurrentGuardedSave() {
	s.mustSave(s.newID("race", "study-a", ""))

	const goroutines = 20
	var wg sync.WaitGroup
	var won, lost atomic.Int32
	for i := range goroutines {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := s.store.Save(s.ctx, s.newID("race", "study-a", fmt.Sprintf("hc-%d", n)), models.GuardUnassigned)
			switch {
			case err == nil:
				won.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				lost.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), won.Load())
	s.Equal(int32(goroutines-1), lost.Load())
}

func (s *StoreSuite) TestDelete() {
	s.mustSave(s.newID("d-1", "", "hc-1"))

	s.Require().NoError(s.store.Delete(s.ctx, s.appID, "d-1"))
	_, err := s.store.Get(s.ctx, s.appID, "d-1")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.NoError(s.store.Delete(s.ctx, s.appID, "d-1"), "deleting an absent record is not an error")
}

func (s *StoreSuite) TestQuery() {
	s.mustSave(
		s.newID("b-2", "", "hc-b2"),
		s.newID("a-3", "", ""),
		s.newID("b-1", "study-a", ""),
		s.newID("a-1", "study-a", "hc-a1"),
		s.newID("a-2", "study-b", ""),
		s.newID("b-3", "", ""),
	)

	s.Run("returns all records in ascending order", func() {
		page, err := s.store.Query(s.ctx, models.RangeQuery{AppID: s.appID, Limit: 10})
		s.Require().NoError(err)
		s.Equal([]string{"a-1", "a-2", "a-3", "b-1", "b-2", "b-3"}, s.identifiers(page.Items))
		s.Empty(page.LastEvaluatedKey)
		s.Equal(6, page.ScannedCount)
		s.GreaterOrEqual(page.ConsumedCapacity, 1.0)
	})

	s.Run("prefix restricts the range", func() {
		page, err := s.store.Query(s.ctx, models.RangeQuery{AppID: s.appID, IDPrefix: "b-", Limit: 10})
		s.Require().NoError(err)
		s.Equal([]string{"b-1", "b-2", "b-3"}, s.identifiers(page.Items))
		s.Empty(page.LastEvaluatedKey)
	})

	s.Run("start after is exclusive", func() {
		page, err := s.store.Query(s.ctx, models.RangeQuery{AppID: s.appID, StartAfter: "a-3", Limit: 10})
		s.Require().NoError(err)
		s.Equal([]string{"b-1", "b-2", "b-3"}, s.identifiers(page.Items))
	})

	s.Run("limit declares the last evaluated key", func() {
		page, err := s.store.Query(s.ctx, models.RangeQuery{AppID: s.appID, Limit: 2})
		s.Require().NoError(err)
		s.Equal([]string{"a-1", "a-2"}, s.identifiers(page.Items))
		s.Equal("a-2", page.LastEvaluatedKey)

		next, err := s.store.Query(s.ctx, models.RangeQuery{AppID: s.appID, StartAfter: page.LastEvaluatedKey, Limit: 2})
		s.Require().NoError(err)
		s.Equal([]string{"a-3", "b-1"}, s.identifiers(next.Items))
	})

	s.Run("assignment filter applies after the limit", func() {
		page, err := s.store.Query(s.ctx, models.RangeQuery{
			AppID: s.appID, Assignment: models.AssignmentAssigned, Limit: 3,
		})
		s.Require().NoError(err)
		s.Equal([]string{"a-1"}, s.identifiers(page.Items))
		s.Equal(3, page.ScannedCount)
		s.Equal("a-3", page.LastEvaluatedKey)
	})

	s.Run("unassigned filter with prefix", func() {
		page, err := s.store.Query(s.ctx, models.RangeQuery{
			AppID: s.appID, IDPrefix: "b-", Assignment: models.AssignmentUnassigned, Limit: 10,
		})
		s.Require().NoError(err)
		s.Equal([]string{"b-1", "b-3"}, s.identifiers(page.Items))
		s.Equal("study-a", page.Items[0].StudyID)
	})

	s.Run("empty app returns nothing", func() {
		page, err := s.store.Query(s.ctx, models.RangeQuery{AppID: "empty-" + s.appID, Limit: 10})
		s.Require().NoError(err)
		s.Empty(page.Items)
		s.Empty(page.LastEvaluatedKey)
	})
}
