// Package convstate keeps per-user conversation state in Redis. The TTL
// doubles as the idle-timeout eviction: a flow untouched for the TTL
// simply disappears and the next message starts fresh.
package convstate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bettask/backend/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "conv:"

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Get returns nil, nil when the user has no active state (never stored,
// or evicted by the idle TTL).
func (s *RedisStore) Get(ctx context.Context, userID uuid.UUID) (*models.ConversationState, error) {
	val, err := s.client.Get(ctx, keyPrefix+userID.String()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state models.ConversationState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		// A corrupt record behaves like an evicted one.
		_ = s.client.Del(ctx, keyPrefix+userID.String()).Err()
		return nil, nil
	}
	return &state, nil
}

// Save writes the state and resets the idle TTL.
func (s *RedisStore) Save(ctx context.Context, state *models.ConversationState) error {
	state.UpdatedAt = time.Now()
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+state.UserID.String(), data, s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.client.Del(ctx, keyPrefix+userID.String()).Err()
}
