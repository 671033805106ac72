package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "relay:session:"

// RedisStore keeps sessions in Redis so several relay processes share them.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a RedisStore. ttl <= 0 keeps sessions forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	return &RedisStore{redis: client, ttl: ttl, prefix: defaultKeyPrefix}
}

// Get returns the session id and slides its expiry forward.
func (s *RedisStore) Get(ctx context.Context, userID string) (string, bool, error) {
	key := s.key(userID)
	id, err := s.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: redis get: %w", err)
	}
	if s.ttl > 0 {
		if err := s.redis.Expire(ctx, key, s.ttl).Err(); err != nil {
			return id, true, fmt.Errorf("session: redis expire: %w", err)
		}
	}
	return id, true, nil
}

// Put writes sessionID with SETNX and returns whichever id ended up stored.
func (s *RedisStore) Put(ctx context.Context, userID, sessionID string) (string, error) {
	key := s.key(userID)
	ok, err := s.redis.SetNX(ctx, key, sessionID, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("session: redis setnx: %w", err)
	}
	if ok {
		return sessionID, nil
	}
	existing, err := s.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; take the slot.
		if err := s.redis.Set(ctx, key, sessionID, s.ttl).Err(); err != nil {
			return "", fmt.Errorf("session: redis set: %w", err)
		}
		return sessionID, nil
	}
	if err != nil {
		return "", fmt.Errorf("session: redis get: %w", err)
	}
	return existing, nil
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}
