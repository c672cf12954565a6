package repo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportLimiterDisabled(t *testing.T) {
	limiter := NewImportLimiter(nil, 0)

	allowed, err := limiter.Allow(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestImportLimiterWindow(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer client.Close()

	limiter := NewImportLimiter(client, 3)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(context.Background(), userID)
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d should be within budget", i+1)
	}

	allowed, err := limiter.Allow(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, allowed)

	// A different user has an independent budget.
	allowed, err = limiter.Allow(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, allowed)
}
