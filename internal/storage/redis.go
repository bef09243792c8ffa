package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// redisStore keeps values as plain Redis strings under a namespace.
type redisStore struct {
	rdb       redis.Cmdable
	namespace string
	logger    zerolog.Logger
}

// NewRedisStore creates a Redis-backed store. Keys are stored as namespace+key.
func NewRedisStore(rdb redis.Cmdable, namespace string, logger zerolog.Logger) Store {
	return &redisStore{
		rdb:       rdb,
		namespace: namespace,
		logger:    logger.With().Str("component", "redis-store").Logger(),
	}
}

// Get reads the string under key.
func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}

	value, err := s.rdb.Get(ctx, s.namespace+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		s.logger.Error().Err(err).Str("key", key).Msg("failed to read value from redis")
		return "", false, fmt.Errorf("failed to read %s from redis: %w", key, err)
	}

	return value, true, nil
}

// Set writes the string under key without expiry.
func (s *redisStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}

	if err := s.rdb.Set(ctx, s.namespace+key, value, 0).Err(); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to write value to redis")
		return fmt.Errorf("failed to write %s to redis: %w", key, err)
	}

	return nil
}
