package repo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ImportLimiter bounds how many imports a user may start per hour. A
// sliding window of import timestamps is kept per user in Redis.
type ImportLimiter struct {
	redis redis.UniversalClient
	limit int64
}

// NewImportLimiter creates a new import rate limiter.
func NewImportLimiter(client redis.UniversalClient, perHour int) *ImportLimiter {
	return &ImportLimiter{redis: client, limit: int64(perHour)}
}

// Allow records one import attempt and reports whether it is within the
// hourly budget for the user.
func (l *ImportLimiter) Allow(ctx context.Context, userID uuid.UUID) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	key := fmt.Sprintf("ratelimit:import:%s", userID.String())
	now := time.Now()
	windowStart := now.Add(-time.Hour)

	pipe := l.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("check import limit: %w", err)
	}

	if countCmd.Val() >= l.limit {
		return false, nil
	}

	pipe = l.redis.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, key, time.Hour+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("record import attempt: %w", err)
	}

	return true, nil
}
