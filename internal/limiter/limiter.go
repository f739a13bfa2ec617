package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "admin:login:"

func ConnectRedis(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// Limiter is a fixed-window attempt counter. The window starts with the first
// attempt and every key expires on its own.
type Limiter struct {
	rdb         *redis.Client
	maxAttempts int64
	window      time.Duration
}

func New(rdb *redis.Client, maxAttempts int64, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, maxAttempts: maxAttempts, window: window}
}

// Allow counts an attempt for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	k := keyPrefix + key

	attempts, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count attempt: %w", err)
	}
	if attempts == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set attempt window: %w", err)
		}
	}

	return attempts <= l.maxAttempts, nil
}

func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset attempts: %w", err)
	}
	return nil
}
