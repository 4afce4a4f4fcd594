//go:build integration

package redis_test

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"extid/internal/externalid/models"
	"extid/internal/externalid/ports"
	extidredis "extid/internal/externalid/store/redis"
	"extid/internal/externalid/store/storetest"
	"extid/pkg/testutil/containers"
)

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)
	store := extidredis.New(rc.Client)

	suite.Run(t, &storetest.StoreSuite{
		NewStore: func(*testing.T) ports.Store { return store },
	})
}

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *extidredis.RedisStore
}

func TestRedisStoreSpecifics(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = extidredis.New(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestDeleteRemovesIndexEntry() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, &models.ExternalID{AppID: "app1", Identifier: "ext-1"}, models.GuardNone))
	s.Require().NoError(s.store.Delete(ctx, "app1", "ext-1"))

	n, err := s.redis.Client.ZCard(ctx, "extid:app1:index").Result()
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *RedisStoreSuite) TestOrphanIndexEntryIsSkipped() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, &models.ExternalID{AppID: "app1", Identifier: "ext-1"}, models.GuardNone))
	s.Require().NoError(s.redis.Client.ZAdd(ctx, "extid:app1:index", redisZ("ext-0")).Err())

	page, err := s.store.Query(ctx, models.RangeQuery{AppID: "app1", Limit: 10})
	s.Require().NoError(err)
	s.Len(page.Items, 1)
	s.Equal("ext-1", page.Items[0].Identifier)
}

func redisZ(member string) goredis.Z {
	return goredis.Z{Score: 0, Member: member}
}
