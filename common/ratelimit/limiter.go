// Package ratelimit enforces a per-organization request budget on
// workflow execution, independent of and in addition to the compute-cost
// monthly budget enforced by internal/usage. Where usage.Accounter stops
// an organization from spending more compute than it's paid for, this
// package stops a single organization from drowning out every other
// tenant's requests in a short burst.
package ratelimit

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/redis/go-redis/v9"
)

//go:embed rate_limit.lua
var rateLimitScript string

// Logger is the minimal logging surface this package depends on.
type Logger interface {
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed           bool
	CurrentCount      int64
	Limit             int64
	RetryAfterSeconds int64
}

// Limiter enforces a fixed-window request count per key using Redis+Lua.
type Limiter struct {
	redis  *redis.Client
	script *redis.Script
	logger Logger
}

// New creates a limiter backed by the given Redis client.
func New(redisClient *redis.Client, logger Logger) *Limiter {
	return &Limiter{
		redis:  redisClient,
		script: redis.NewScript(rateLimitScript),
		logger: logger,
	}
}

// CheckOrg checks and increments the request count for orgID against limit
// requests per fixed window of windowSec seconds.
func (l *Limiter) CheckOrg(ctx context.Context, orgID string, limit int64, windowSec int) (*Result, error) {
	key := fmt.Sprintf("rate_limit:org:%s", orgID)
	result, err := l.script.Run(ctx, l.redis, []string{key}, limit, windowSec).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) != 4 {
		return nil, fmt.Errorf("unexpected rate limit script result format")
	}

	res := &Result{
		Allowed:           resultArray[0].(int64) == 1,
		CurrentCount:      resultArray[1].(int64),
		Limit:             resultArray[2].(int64),
		RetryAfterSeconds: resultArray[3].(int64),
	}

	if !res.Allowed {
		l.logger.Warn("org rate limit exceeded", "org_id", orgID, "current", res.CurrentCount, "limit", limit)
	} else {
		l.logger.Debug("org rate limit check passed", "org_id", orgID, "current", res.CurrentCount, "limit", limit)
	}

	return res, nil
}
