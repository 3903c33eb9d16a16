package ratelimit_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/flowengine/common/ratelimit"
)

type noopLogger struct{}

func (noopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Debug(msg string, keysAndValues ...interface{}) {}

func newLimiter(t *testing.T) *ratelimit.Limiter {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return ratelimit.New(client, noopLogger{})
}

func TestCheckOrgAllowsRequestsWithinLimit(t *testing.T) {
	l := newLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.CheckOrg(ctx, "org-1", 5, 60)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(i+1), res.CurrentCount)
	}
}

func TestCheckOrgRejectsOverLimit(t *testing.T) {
	l := newLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := l.CheckOrg(ctx, "org-1", 2, 60)
		require.NoError(t, err)
	}

	res, err := l.CheckOrg(ctx, "org-1", 2, 60)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(2), res.Limit)
}

func TestCheckOrgTracksOrgsIndependently(t *testing.T) {
	l := newLimiter(t)
	ctx := context.Background()

	_, err := l.CheckOrg(ctx, "org-1", 1, 60)
	require.NoError(t, err)

	res, err := l.CheckOrg(ctx, "org-2", 1, 60)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "org-2's count must be independent of org-1's")
}
