package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	Prefix string
	Limit  int
	Window time.Duration
}

// Limiter counts attempts per subject in fixed windows.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) (*Limiter, error) {
	if cfg.Prefix == "" {
		return nil, errors.New("rate: prefix required")
	}
	if cfg.Limit <= 0 || cfg.Window <= 0 {
		return nil, errors.New("rate: limit and window must be > 0")
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}, nil
}

// Allow records one attempt for subject and returns [ErrRateLimited] once the
// window budget is exceeded.
func (l *Limiter) Allow(ctx context.Context, subject string) error {
	count, err := l.incrementWithTTL(ctx, l.key(subject), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.Limit) {
		return ErrRateLimited
	}
	return nil
}

// Attempts returns the attempts recorded for subject in the current window.
func (l *Limiter) Attempts(ctx context.Context, subject string) (int, error) {
	count, err := l.redis.Get(ctx, l.key(subject)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// Reset clears the window for subject.
func (l *Limiter) Reset(ctx context.Context, subject string) error {
	if err := l.redis.Del(ctx, l.key(subject)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(subject string) string {
	return l.config.Prefix + ":" + subject
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

// Limit returns the per-window attempt budget.
func (l *Limiter) Limit() int {
	return l.config.Limit
}
