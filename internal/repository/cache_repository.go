package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/retzius/attendance-api/pkg/errors"
)

// attendanceKeyPrefix namespaces every cached attendance history entry.
// Keys follow attendance:<subjectID>:<from>:<to> with empty bounds for an
// unbounded query, so one subject's entries share a deletable prefix.
const attendanceKeyPrefix = "attendance:"

// AttendanceHistoryKey builds the cache key for a subject's attendance
// history bounded by the given inclusive dates.
func AttendanceHistoryKey(subjectID string, from, to *time.Time) string {
	lower, upper := "", ""
	if from != nil {
		lower = from.Format("2006-01-02")
	}
	if to != nil {
		upper = to.Format("2006-01-02")
	}
	return fmt.Sprintf("%s%s:%s:%s", attendanceKeyPrefix, subjectID, lower, upper)
}

// CacheRepository provides helpers around Redis for caching attendance
// history payloads. A nil client degrades to a no-op cache.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}

	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// InvalidateAttendance drops every cached history entry for a subject.
func (r *CacheRepository) InvalidateAttendance(ctx context.Context, subjectID string) error {
	return r.deleteByPattern(ctx, attendanceKeyPrefix+subjectID+":*")
}

func (r *CacheRepository) deleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}

	return nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
