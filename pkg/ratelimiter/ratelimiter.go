package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitError carries how long the caller has to wait.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

func key(subject, action string) string {
	return fmt.Sprintf("rate_limit:%s:%s", subject, action)
}

// CheckAndSet claims the action for subject for the given window. It reports
// false when the subject already acted within the window. A nil client or a
// non-positive window disables limiting.
func CheckAndSet(ctx context.Context, rdb *redis.Client, subject, action string, window time.Duration) (bool, error) {
	if rdb == nil || window <= 0 {
		return true, nil
	}

	wasSet, err := rdb.SetNX(ctx, key(subject, action), "locked", window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	return wasSet, nil
}

func TTL(ctx context.Context, rdb *redis.Client, subject, action string) (time.Duration, error) {
	if rdb == nil {
		return 0, nil
	}
	return rdb.TTL(ctx, key(subject, action)).Result()
}

// Clear releases a claim, used when the guarded action failed.
func Clear(ctx context.Context, rdb *redis.Client, subject, action string) error {
	if rdb == nil {
		return nil
	}
	return rdb.Del(ctx, key(subject, action)).Err()
}

// Enforce combines CheckAndSet and TTL into a RateLimitError.
func Enforce(ctx context.Context, rdb *redis.Client, subject, action string, window time.Duration) error {
	allowed, err := CheckAndSet(ctx, rdb, subject, action, window)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}

	ttl, err := TTL(ctx, rdb, subject, action)
	if err != nil || ttl < 0 {
		ttl = window
	}
	return &RateLimitError{
		Message:    fmt.Sprintf("please wait %d seconds before trying again", int(ttl.Seconds())),
		RetryAfter: ttl,
	}
}
