package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisOptions configures NewRedisStore.
type RedisOptions struct {
	// Prefix is prepended to the chat ID to build the key.
	Prefix string
	// TTL bounds the lifetime of a stored value; zero keeps it until cleared.
	TTL time.Duration
}

type redisStore[T any] struct {
	client redis.UniversalClient
	opts   RedisOptions
}

// NewRedisStore constructs a Store that keeps JSON-encoded values in Redis.
func NewRedisStore[T any](client redis.UniversalClient, opts RedisOptions) Store[T] {
	if opts.Prefix == "" {
		opts.Prefix = "state:"
	}
	return &redisStore[T]{client: client, opts: opts}
}

func (s *redisStore[T]) key(chatID int64) string {
	return s.opts.Prefix + strconv.FormatInt(chatID, 10)
}

// Get loads and decodes the value stored for the chat.
func (s *redisStore[T]) Get(ctx context.Context, chatID int64) (T, bool, error) {
	var zero T
	raw, err := s.client.Get(ctx, s.key(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("state: redis get: %w", err)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, fmt.Errorf("state: decode %s: %w", s.key(chatID), err)
	}
	return v, true, nil
}

// Set encodes and stores the value for the chat.
func (s *redisStore[T]) Set(ctx context.Context, chatID int64, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	if err := s.client.Set(ctx, s.key(chatID), raw, s.opts.TTL).Err(); err != nil {
		return fmt.Errorf("state: redis set: %w", err)
	}
	return nil
}

// Clear deletes the key for the chat.
func (s *redisStore[T]) Clear(ctx context.Context, chatID int64) error {
	if err := s.client.Del(ctx, s.key(chatID)).Err(); err != nil {
		return fmt.Errorf("state: redis del: %w", err)
	}
	return nil
}
