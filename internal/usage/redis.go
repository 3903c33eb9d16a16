package usage

import (
	"context"
	"fmt"
	"strconv"

	redisclient "github.com/lyzr/flowengine/common/redis"
	"github.com/redis/go-redis/v9"
)

// chargeScript atomically checks an organization's monthly spend against
// its budget and, if the charge fits, applies it to both the org's running
// spend and the execution's running total in one round trip. This mirrors
// the teacher's sdk.SDK.ApplyDelta Lua script pattern
// (cmd/workflow-runner/sdk/sdk.go): without the script, a
// read-then-conditionally-write from Go would race two node completions
// charging the same organization concurrently and let spend exceed budget.
var chargeScript = redis.NewScript(`
local spend = tonumber(redis.call('HGET', KEYS[1], 'spend') or '0')
local budget = redis.call('HGET', KEYS[1], 'budget')
if budget then
  budget = tonumber(budget)
else
  budget = tonumber(ARGV[2])
end
local cost = tonumber(ARGV[1])
if spend + cost > budget then
  return 0
end
redis.call('HINCRBY', KEYS[1], 'spend', cost)
redis.call('HINCRBY', KEYS[2], 'total', cost)
return 1
`)

// RedisAccounter is a Redis-backed Accounter keyed by organization and
// execution hashes.
type RedisAccounter struct {
	client        *redisclient.Client
	defaultBudget int64
}

// NewRedisAccounter creates an accounter using the given default monthly
// budget for organizations with no explicit SetBudget call.
func NewRedisAccounter(client *redisclient.Client, defaultBudget int64) *RedisAccounter {
	return &RedisAccounter{client: client, defaultBudget: defaultBudget}
}

func orgKey(orgID string) string {
	return fmt.Sprintf("usage:org:%s", orgID)
}

func executionKey(executionID string) string {
	return fmt.Sprintf("usage:execution:%s", executionID)
}

func (a *RedisAccounter) Charge(ctx context.Context, orgID, executionID string, cost int64) (bool, error) {
	res, err := a.client.RunScript(ctx, chargeScript,
		[]string{orgKey(orgID), executionKey(executionID)},
		cost, a.defaultBudget)
	if err != nil {
		return false, fmt.Errorf("usage: charge: %w", err)
	}
	n, ok := res.(int64)
	if !ok {
		return false, fmt.Errorf("usage: unexpected script result %T", res)
	}
	return n == 1, nil
}

// Refund reverses a charge applied via Charge, used when a node's
// pre-flight budget reservation has to be backed out after the node fails
// to run to completion.
func (a *RedisAccounter) Refund(ctx context.Context, orgID, executionID string, cost int64) error {
	if _, err := a.client.IncrementHash(ctx, orgKey(orgID), "spend", -cost); err != nil {
		return fmt.Errorf("usage: refund org spend: %w", err)
	}
	if _, err := a.client.IncrementHash(ctx, executionKey(executionID), "total", -cost); err != nil {
		return fmt.Errorf("usage: refund execution total: %w", err)
	}
	return nil
}

// Remaining reads orgID's current spend and budget without mutating
// either, for callers (e.g. the execute endpoint) that need to reject a
// request before any node is ever dispatched.
func (a *RedisAccounter) Remaining(ctx context.Context, orgID string) (int64, error) {
	var spend int64
	if raw, err := a.client.GetHash(ctx, orgKey(orgID), "spend"); err == nil {
		spend, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("usage: parse spend: %w", err)
		}
	}

	budget := a.defaultBudget
	if raw, err := a.client.GetHash(ctx, orgKey(orgID), "budget"); err == nil {
		budget, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("usage: parse budget: %w", err)
		}
	}

	return budget - spend, nil
}

func (a *RedisAccounter) ExecutionTotal(ctx context.Context, executionID string) (int64, error) {
	raw, err := a.client.GetHash(ctx, executionKey(executionID), "total")
	if err != nil {
		return 0, nil
	}
	total, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("usage: parse total: %w", err)
	}
	return total, nil
}

func (a *RedisAccounter) SetBudget(ctx context.Context, orgID string, monthlyBudget int64) error {
	return a.client.SetHash(ctx, orgKey(orgID), "budget", strconv.FormatInt(monthlyBudget, 10))
}
