package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sentry/internal/core"
)

const redisPrefix = "inbox-sentry"

// RedisStore is a Redis implementation of the core.Store interface.
// Markers and counters expire on their own after the retention window.
type RedisStore struct {
	rdb       *redis.Client
	logger    *zap.Logger
	retention time.Duration
}

// NewRedisStore creates a new Redis store
func NewRedisStore(addr, password string, db int, logger *zap.Logger, retention time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(rdb, logger, retention), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(rdb *redis.Client, logger *zap.Logger, retention time.Duration) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{rdb: rdb, logger: logger, retention: retention}
}

func markerKey(user, day, key string) string {
	return fmt.Sprintf("%s:marker:%s:%s:%s", redisPrefix, user, day, key)
}

func countersKey(user, day string) string {
	return fmt.Sprintf("%s:counters:%s:%s", redisPrefix, user, day)
}

func settingKey(name string) string {
	return fmt.Sprintf("%s:settings:%s", redisPrefix, name)
}

// MarkOnce sets a dedup marker and reports whether it was newly set
func (s *RedisStore) MarkOnce(ctx context.Context, user, day, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, markerKey(user, day, key), 1, s.retention).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set marker: %w", err)
	}
	return ok, nil
}

// IsMarked reports whether a dedup marker exists
func (s *RedisStore) IsMarked(ctx context.Context, user, day, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, markerKey(user, day, key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check marker: %w", err)
	}
	return n == 1, nil
}

// Increment adds one to a named counter
func (s *RedisStore) Increment(ctx context.Context, user, day, counter string) (int64, error) {
	key := countersKey(user, day)
	value, err := s.rdb.HIncrBy(ctx, key, counter, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	// Set expiration on first increment
	if value == 1 && s.retention > 0 {
		if err := s.rdb.Expire(ctx, key, s.retention).Err(); err != nil {
			s.logger.Warn("Failed to set counter expiry", zap.String("key", key), zap.Error(err))
		}
	}
	return value, nil
}

// Stats returns the counters of one day
func (s *RedisStore) Stats(ctx context.Context, user, day string) (*core.DailyStats, error) {
	values, err := s.rdb.HGetAll(ctx, countersKey(user, day)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read counters: %w", err)
	}

	stats := &core.DailyStats{User: user, Day: day}
	for counter, raw := range values {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.logger.Warn("Ignoring malformed counter", zap.String("counter", counter), zap.String("value", raw))
			continue
		}
		applyCounter(stats, counter, value)
	}
	return stats, nil
}

// Active reports whether scanning is enabled; true until set otherwise
func (s *RedisStore) Active(ctx context.Context) (bool, error) {
	raw, err := s.rdb.Get(ctx, settingKey(settingActive)).Result()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("failed to read setting: %w", err)
	}
	return strconv.ParseBool(raw)
}

// SetActive persists the toggle
func (s *RedisStore) SetActive(ctx context.Context, active bool) error {
	if err := s.rdb.Set(ctx, settingKey(settingActive), strconv.FormatBool(active), 0).Err(); err != nil {
		return fmt.Errorf("failed to store setting: %w", err)
	}
	return nil
}

// Cleanup is a no-op: keys carry their own expiry
func (s *RedisStore) Cleanup(ctx context.Context) error {
	return nil
}

// Stop closes the Redis client
func (s *RedisStore) Stop() {
	if err := s.rdb.Close(); err != nil {
		s.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
