package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const selectionKeyPrefix = "stayops:selection:"

// RedisStore is a SelectionStore backed by Redis with server-side TTL, for
// deployments running more than one API instance.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, sessionID string, sel Selection) error {
	payload, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("marshal selection: %w", err)
	}
	if err := s.client.Set(ctx, selectionKeyPrefix+sessionID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("put selection: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (Selection, error) {
	payload, err := s.client.Get(ctx, selectionKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Selection{}, ErrSelectionNotFound
		}
		return Selection{}, fmt.Errorf("get selection: %w", err)
	}

	var sel Selection
	if err := json.Unmarshal(payload, &sel); err != nil {
		return Selection{}, fmt.Errorf("unmarshal selection: %w", err)
	}
	return sel, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, selectionKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("delete selection: %w", err)
	}
	return nil
}
