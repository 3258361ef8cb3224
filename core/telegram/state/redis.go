package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists values as JSON under prefix+userID with a sliding TTL,
// so that pending records survive restarts and abandoned ones expire.
type RedisStore[T any] struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. A zero ttl keeps keys forever.
func NewRedisStore[T any](client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore[T] {
	return &RedisStore[T]{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore[T]) key(userID int64) string {
	return r.prefix + strconv.FormatInt(userID, 10)
}

func (r *RedisStore[T]) Get(ctx context.Context, userID int64) (T, bool, error) {
	var zero T
	raw, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("%w: get %d: %w", ErrBackend, userID, err)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, fmt.Errorf("%w: decode %d: %w", ErrBackend, userID, err)
	}
	return v, true, nil
}

func (r *RedisStore[T]) Set(ctx context.Context, userID int64, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %d: %w", ErrBackend, userID, err)
	}
	if err := r.client.Set(ctx, r.key(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %d: %w", ErrBackend, userID, err)
	}
	return nil
}

func (r *RedisStore[T]) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: delete %d: %w", ErrBackend, userID, err)
	}
	return nil
}
