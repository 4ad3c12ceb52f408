package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterWindow(t *testing.T) {
	// Arrange
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(2, time.Minute)
	limiter.now = func() time.Time { return clock }
	ctx := context.Background()

	// Act
	first, _ := limiter.Allow(ctx, "1.2.3.4")
	second, _ := limiter.Allow(ctx, "1.2.3.4")
	third, _ := limiter.Allow(ctx, "1.2.3.4")
	other, _ := limiter.Allow(ctx, "5.6.7.8")
	clock = clock.Add(time.Minute)
	afterReset, err := limiter.Allow(ctx, "1.2.3.4")

	// Assert
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)
	assert.True(t, second.Allowed)
	assert.False(t, third.Allowed)
	assert.Equal(t, 0, third.Remaining)
	assert.Equal(t, 2, third.Limit)
	assert.True(t, other.Allowed)
	assert.True(t, afterReset.Allowed)
	assert.Equal(t, clock.Add(time.Minute), afterReset.ResetAt)
}

func TestMemoryLimiterSweepsExpiredKeys(t *testing.T) {
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(1, time.Second)
	limiter.now = func() time.Time { return clock }
	for i := 0; i < sweepThreshold; i++ {
		_, _ = limiter.Allow(context.Background(), fmt.Sprintf("k%d", i))
	}

	clock = clock.Add(2 * time.Second)
	_, _ = limiter.Allow(context.Background(), "fresh")

	assert.Len(t, limiter.windows, 1)
}

// TestRedisLimiterReportsBackendErrors lets callers fail open.
func TestRedisLimiterReportsBackendErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	limiter := NewRedisLimiter(client, "test:", 10, time.Minute)

	result, err := limiter.Allow(context.Background(), "1.2.3.4")

	assert.Error(t, err)
	assert.Nil(t, result)
}
