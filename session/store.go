package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned (wrapped) for any Redis transport failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned when no live record exists for the id.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExpired is returned by Save when the record is past its absolute deadline.
var ErrSessionExpired = errors.New("session expired")

// ErrSessionCorrupt is returned when a stored blob cannot be decoded.
var ErrSessionCorrupt = errors.New("session record corrupt")

// ErrRecordEncoding is returned (wrapped) when a record cannot be written: no id,
// or values outside the codec limits.
var ErrRecordEncoding = errors.New("session record encoding failed")

const minSlidingTTL = time.Second

// Store is a Redis-backed record store that handles persistence, absolute expiry and
// sliding idle renewal with optional jitter.
type Store struct {
	redis         redis.UniversalClient
	prefix        string
	sliding       bool
	jitterEnabled bool
	jitterRange   time.Duration
	now           func() time.Time
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace; sliding, jitterEnabled, and jitterRange
// control how the idle TTL is renewed on each Save or Touch.
func NewStore(
	redis redis.UniversalClient,
	prefix string,
	sliding bool,
	jitterEnabled bool,
	jitterRange time.Duration,
) *Store {
	return &Store{
		redis:         redis,
		prefix:        prefix,
		sliding:       sliding,
		jitterEnabled: jitterEnabled,
		jitterRange:   jitterRange,
		now:           time.Now,
	}
}

// WithClock replaces the store clock. Intended for tests and deterministic tooling.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Store) key(id string) string {
	return s.prefix + ":" + id
}

// Load fetches the record for id. A missing, expired or undecodable record yields
// [ErrSessionNotFound] or [ErrSessionCorrupt].
//
//	Performance: 1 Redis GET (+1 DEL when the blob is past its deadline).
func (s *Store) Load(ctx context.Context, id string) (*Record, error) {
	key := s.key(id)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	rec, err := DecodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	rec.ID = id

	if rec.ExpiresAt > 0 && s.now().Unix() >= rec.ExpiresAt {
		if err := s.Delete(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrSessionNotFound
	}

	return rec, nil
}

// Save persists rec. The Redis TTL is the idle timeout (renewed with jitter when
// sliding is enabled) capped by the record's absolute deadline.
//
//	Performance: 1 Redis SET.
func (s *Store) Save(ctx context.Context, rec *Record, idle time.Duration) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("%w: record id required", ErrRecordEncoding)
	}

	data, err := EncodeRecord(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRecordEncoding, err)
	}

	ttl, err := s.ttlFor(rec, idle)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			_ = s.Delete(ctx, rec.ID)
		}
		return err
	}

	if err := s.redis.Set(ctx, s.key(rec.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Touch renews the idle TTL of an unmodified record without rewriting it.
//
//	Performance: 1 Redis EXPIRE.
func (s *Store) Touch(ctx context.Context, rec *Record, idle time.Duration) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("%w: record id required", ErrRecordEncoding)
	}

	ttl, err := s.ttlFor(rec, idle)
	if err != nil {
		return err
	}

	ok, err := s.redis.Expire(ctx, s.key(rec.ID), ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// Delete removes the record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Exists reports whether a record is stored for id.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// EstimateActiveSessions scans the store prefix and counts records. Nested keys
// under the prefix ("prefix:component:...") are not sessions and are skipped.
// This is an admin-only O(n) operation and must not be used in request hot paths.
func (s *Store) EstimateActiveSessions(ctx context.Context) (int, error) {
	pattern := s.prefix + ":*"
	var (
		cursor uint64
		total  int
	)

	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		for _, key := range keys {
			// Session ids never contain ':'; deeper keys belong to other
			// components sharing the prefix (e.g. rate limiters).
			if !strings.Contains(key[len(s.prefix)+1:], ":") {
				total++
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return total, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) ttlFor(rec *Record, idle time.Duration) (time.Duration, error) {
	now := s.now()

	remainingAbsolute := time.Duration(math.MaxInt64)
	if rec.ExpiresAt > 0 {
		remainingAbsolute = time.Unix(rec.ExpiresAt, 0).Sub(now)
		if remainingAbsolute <= 0 {
			return 0, ErrSessionExpired
		}
	}

	if idle <= 0 {
		if rec.ExpiresAt == 0 {
			return 0, nil
		}
		return remainingAbsolute, nil
	}

	if !s.sliding {
		if idle > remainingAbsolute {
			return remainingAbsolute, nil
		}
		return idle, nil
	}

	return s.nextSlidingTTL(idle, remainingAbsolute)
}

func (s *Store) nextSlidingTTL(idle, remainingAbsolute time.Duration) (time.Duration, error) {
	nextTTL := idle

	if s.jitterEnabled && s.jitterRange > 0 {
		jitter, err := randomJitter(s.jitterRange)
		if err != nil {
			return 0, err
		}
		nextTTL += jitter
	}

	if nextTTL > remainingAbsolute {
		nextTTL = remainingAbsolute
	}

	minTTL := minSlidingTTL
	if remainingAbsolute < minTTL {
		minTTL = remainingAbsolute
	}
	if nextTTL < minTTL {
		nextTTL = minTTL
	}

	return nextTTL, nil
}

func randomJitter(jitterRange time.Duration) (time.Duration, error) {
	if jitterRange <= 0 {
		return 0, nil
	}

	max := jitterRange.Nanoseconds()
	if max > (math.MaxInt64-1)/2 {
		return 0, errors.New("jitter range too large")
	}
	span := max*2 + 1

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return 0, err
	}

	return time.Duration(n.Int64() - max), nil
}
