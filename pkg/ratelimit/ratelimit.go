package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
	Reset(ctx context.Context, key string) error
}

// FixedWindowLimiter counts requests per key in Redis using fixed time
// windows. Counters are shared across replicas, so the limit holds for
// the whole deployment. With fallback enabled a Redis outage fails
// open: requests are allowed rather than dropped.
type FixedWindowLimiter struct {
	client   *redis.Client
	logger   *zap.Logger
	fallback bool
}

func NewFixedWindowLimiter(client *redis.Client, logger *zap.Logger, fallback bool) *FixedWindowLimiter {
	return &FixedWindowLimiter{client: client, logger: logger, fallback: fallback}
}

// Allow consumes one slot in the current window for key.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	bucketKey := l.bucketKey(key, time.Now(), window)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, bucketKey)
	pipe.Expire(ctx, bucketKey, window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Error("rate limit check failed", zap.String("key", bucketKey), zap.Error(err))
		if l.fallback {
			return true, nil
		}
		return false, fmt.Errorf("rate limit check: %w", err)
	}

	return incr.Val() <= int64(limit), nil
}

// Remaining reports the slots left in the current window for key.
func (l *FixedWindowLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	bucketKey := l.bucketKey(key, time.Now(), window)

	count, err := l.client.Get(ctx, bucketKey).Int64()
	if err == redis.Nil {
		return limit, nil
	}
	if err != nil {
		if l.fallback {
			return limit, nil
		}
		return 0, fmt.Errorf("rate limit read: %w", err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears the current window counter for key.
func (l *FixedWindowLimiter) Reset(ctx context.Context, key string) error {
	pattern := fmt.Sprintf("ratelimit:%s:*", key)
	iter := l.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := l.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("rate limit reset: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("rate limit reset: %w", err)
	}
	return nil
}

func (l *FixedWindowLimiter) bucketKey(key string, now time.Time, window time.Duration) string {
	bucket := now.UnixNano() / int64(window)
	return fmt.Sprintf("ratelimit:%s:%d", key, bucket)
}
