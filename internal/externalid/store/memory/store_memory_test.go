package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"extid/internal/externalid/models"
	"extid/internal/externalid/ports"
	"extid/internal/externalid/store/storetest"
)

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &storetest.StoreSuite{
		NewStore: func(*testing.T) ports.Store { return NewInMemoryStore() },
	})
}

func TestInMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	record := &models.ExternalID{AppID: "app1", Identifier: "ext-1"}
	require.NoError(t, s.Save(ctx, record, models.GuardNone))

	record.HealthCode = "hc-1"
	got, err := s.Get(ctx, "app1", "ext-1")
	require.NoError(t, err)
	assert.False(t, got.IsAssigned(), "caller mutation must not leak into the store")

	got.HealthCode = "hc-2"
	again, err := s.Get(ctx, "app1", "ext-1")
	require.NoError(t, err)
	assert.False(t, again.IsAssigned(), "returned records are copies")
}

func TestInMemoryStoreRejectsBadInput(t *testing.T) {
	s := NewInMemoryStore()
	assert.Error(t, s.Save(context.Background(), nil, models.GuardNone))

	_, err := s.Query(context.Background(), models.RangeQuery{AppID: "app1"})
	assert.Error(t, err)
}
