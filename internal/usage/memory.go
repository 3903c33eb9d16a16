package usage

import (
	"context"
	"sync"
)

// MemoryAccounter is an in-process, mutex-protected accounter for tests and
// local/dev runs.
type MemoryAccounter struct {
	mu             sync.Mutex
	defaultBudget  int64
	budgets        map[string]int64
	orgSpend       map[string]int64
	executionSpend map[string]int64
}

// NewMemoryAccounter creates an accounter with the given default monthly
// budget for organizations that never called SetBudget.
func NewMemoryAccounter(defaultBudget int64) *MemoryAccounter {
	return &MemoryAccounter{
		defaultBudget:  defaultBudget,
		budgets:        make(map[string]int64),
		orgSpend:       make(map[string]int64),
		executionSpend: make(map[string]int64),
	}
}

func (a *MemoryAccounter) Charge(ctx context.Context, orgID, executionID string, cost int64) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	budget, ok := a.budgets[orgID]
	if !ok {
		budget = a.defaultBudget
	}
	if a.orgSpend[orgID]+cost > budget {
		return false, nil
	}
	a.orgSpend[orgID] += cost
	a.executionSpend[executionID] += cost
	return true, nil
}

func (a *MemoryAccounter) Refund(ctx context.Context, orgID, executionID string, cost int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.orgSpend[orgID] -= cost
	a.executionSpend[executionID] -= cost
	return nil
}

func (a *MemoryAccounter) Remaining(ctx context.Context, orgID string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	budget, ok := a.budgets[orgID]
	if !ok {
		budget = a.defaultBudget
	}
	return budget - a.orgSpend[orgID], nil
}

func (a *MemoryAccounter) ExecutionTotal(ctx context.Context, executionID string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.executionSpend[executionID], nil
}

func (a *MemoryAccounter) SetBudget(ctx context.Context, orgID string, monthlyBudget int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.budgets[orgID] = monthlyBudget
	return nil
}
