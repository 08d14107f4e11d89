package gate

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyWatermark = "gate:watermark:"
	keySeen      = "gate:seen:"
)

// RedisStore keeps the watermark as a unix-nano string and the seen-set as
// SETNX keys with a TTL, so the set trims itself.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Watermark(ctx context.Context, channel string) (time.Time, error) {
	val, err := s.client.Get(ctx, keyWatermark+channel).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	nanos, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, nanos), nil
}

func (s *RedisStore) SetWatermark(ctx context.Context, channel string, ts time.Time) error {
	return s.client.Set(ctx, keyWatermark+channel, strconv.FormatInt(ts.UnixNano(), 10), 0).Err()
}

func (s *RedisStore) MarkSeen(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, keySeen+id, "1", ttl).Result()
}
