package snapshotstore

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps snapshots in a sorted set per originator, scored by
// version, so the latest at-or-before lookup is a single range query.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// GetRedisStore returns a snapshot store over an existing client. prefix
// namespaces the keys; it defaults to "snapshots".
func GetRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "snapshots"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(originatorID string) string {
	return s.prefix + ":" + originatorID
}

// Put implements the Store interface
func (s *RedisStore) Put(ctx context.Context, rec Record) error {
	return s.client.ZAdd(ctx, s.key(rec.OriginatorID), redis.Z{
		Score:  float64(rec.Version),
		Member: string(rec.Data),
	}).Err()
}

// GetLatest implements the Store interface
func (s *RedisStore) GetLatest(ctx context.Context, originatorID string, atOrBefore int) (Record, error) {
	max := "+inf"
	if atOrBefore > 0 {
		max = strconv.Itoa(atOrBefore)
	}

	res, err := s.client.ZRevRangeByScoreWithScores(ctx, s.key(originatorID), &redis.ZRangeBy{
		Min:    "-inf",
		Max:    max,
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return Record{}, err
	}
	if len(res) == 0 {
		return Record{}, ErrNotFound
	}

	member, ok := res[0].Member.(string)
	if !ok {
		return Record{}, ErrNotFound
	}
	return Record{
		OriginatorID: originatorID,
		Version:      int(res[0].Score),
		Data:         []byte(member),
	}, nil
}
