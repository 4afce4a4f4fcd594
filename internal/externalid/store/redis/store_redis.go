// Package redis implements ports.Store on Redis.
//
// Each record is a hash at extid:{appId}:id:{identifier}. Identifiers of an
// app are members of the sorted set extid:{appId}:index, all with score 0, so
// ZRANGE BYLEX walks them in byte order.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"extid/internal/externalid/models"
	"extid/internal/externalid/store"
	"extid/pkg/platform/sentinel"
)

const (
	keyPrefix       = "extid:"
	fieldIdentifier = "identifier"
	fieldStudyID    = "studyId"
	fieldHealthCode = "healthCode"
)

// saveScript checks the guard and writes in one atomic step.
// KEYS: record hash, app index. ARGV: guard, identifier, studyId, healthCode.
var saveScript = redis.NewScript(`
if ARGV[1] == 'unassigned' then
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return 0
	end
	local hc = redis.call('HGET', KEYS[1], 'healthCode')
	if hc and hc ~= '' then
		return 0
	end
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'identifier', ARGV[2])
if ARGV[3] ~= '' then
	redis.call('HSET', KEYS[1], 'studyId', ARGV[3])
end
if ARGV[4] ~= '' then
	redis.call('HSET', KEYS[1], 'healthCode', ARGV[4])
end
redis.call('ZADD', KEYS[2], 0, ARGV[2])
return 1
`)

// RedisStore is a Redis-backed ports.Store.
type RedisStore struct {
	client redis.UniversalClient
}

// New creates a store over client.
func New(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func recordKey(appID, identifier string) string {
	return keyPrefix + appID + ":id:" + identifier
}

func indexKey(appID string) string {
	return keyPrefix + appID + ":index"
}

func fromHash(appID string, fields map[string]string) *models.ExternalID {
	return &models.ExternalID{
		AppID:      appID,
		Identifier: fields[fieldIdentifier],
		StudyID:    fields[fieldStudyID],
		HealthCode: fields[fieldHealthCode],
	}
}

func (s *RedisStore) Get(ctx context.Context, appID, identifier string) (*models.ExternalID, error) {
	fields, err := s.client.HGetAll(ctx, recordKey(appID, identifier)).Result()
	if err != nil {
		return nil, fmt.Errorf("get external id: %w", err)
	}
	if len(fields) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return fromHash(appID, fields), nil
}

func (s *RedisStore) Save(ctx context.Context, externalID *models.ExternalID, guard models.SaveGuard) error {
	if externalID == nil {
		return errors.New("external ID is required")
	}
	guardArg := ""
	if guard != models.GuardNone {
		guardArg = guard.String()
	}
	written, err := saveScript.Run(ctx, s.client,
		[]string{recordKey(externalID.AppID, externalID.Identifier), indexKey(externalID.AppID)},
		guardArg, externalID.Identifier, externalID.StudyID, externalID.HealthCode,
	).Int()
	if err != nil {
		return fmt.Errorf("save external id: %w", err)
	}
	if written == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, appID, identifier string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recordKey(appID, identifier))
		pipe.ZRem(ctx, indexKey(appID), identifier)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete external id: %w", err)
	}
	return nil
}

// Query reads one index entry past the limit to learn whether the range
// continues, then loads the records in a single pipeline.
func (s *RedisStore) Query(ctx context.Context, query models.RangeQuery) (*models.RangePage, error) {
	if query.Limit < 1 {
		return nil, errors.New("query limit must be positive")
	}
	start, stop := lexRange(query.IDPrefix, query.StartAfter)
	ids, err := s.client.ZRangeArgs(ctx, redis.ZRangeArgs{
		Key:    indexKey(query.AppID),
		Start:  start,
		Stop:   stop,
		ByLex:  true,
		Offset: 0,
		Count:  int64(query.Limit) + 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("query external id index: %w", err)
	}

	page := &models.RangePage{}
	if len(ids) > query.Limit {
		ids = ids[:query.Limit]
		page.LastEvaluatedKey = ids[len(ids)-1]
	}
	if len(ids) == 0 {
		page.ConsumedCapacity = store.EstimateReadCapacity(nil)
		return page, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, recordKey(query.AppID, id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load external ids: %w", err)
	}

	scanned := make([]*models.ExternalID, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 || !strings.HasPrefix(ids[i], query.IDPrefix) {
			// deleted between the index read and the load
			continue
		}
		record := fromHash(query.AppID, fields)
		scanned = append(scanned, record)
		if query.Assignment.Matches(record) {
			page.Items = append(page.Items, record)
		}
	}
	page.ScannedCount = len(scanned)
	page.ConsumedCapacity = store.EstimateReadCapacity(scanned)
	return page, nil
}

// lexRange returns ZRANGE BYLEX bounds covering identifiers that start with
// prefix and sort after startAfter. 0xff never occurs in UTF-8, so
// prefix+"\xff" is above every identifier carrying the prefix.
func lexRange(prefix, startAfter string) (start, stop string) {
	switch {
	case startAfter != "" && startAfter >= prefix:
		start = "(" + startAfter
	case prefix != "":
		start = "[" + prefix
	default:
		start = "-"
	}
	stop = "+"
	if prefix != "" {
		stop = "[" + prefix + "\xff"
	}
	return start, stop
}
