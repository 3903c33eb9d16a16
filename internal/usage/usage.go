// Package usage implements per-execution compute-cost accounting and
// per-organization monthly budget enforcement.
package usage

import (
	"context"
	"fmt"
)

// Accounter tracks compute cost spent by executions against an
// organization's monthly budget.
type Accounter interface {
	// Charge attempts to add cost to execution's running total and to
	// orgID's monthly spend. It returns ok=false without mutating state if
	// the charge would put the organization over its monthly budget.
	Charge(ctx context.Context, orgID, executionID string, cost int64) (ok bool, err error)

	// Refund reverses a previously applied Charge of the same cost,
	// subtracting it back out of both the execution's running total and
	// orgID's monthly spend. Used when a node was charged as a pre-flight
	// reservation but then failed to run to completion.
	Refund(ctx context.Context, orgID, executionID string, cost int64) error

	// Remaining returns orgID's monthly budget minus its spend so far. A
	// non-positive result means the organization has no budget left.
	Remaining(ctx context.Context, orgID string) (int64, error)

	// ExecutionTotal returns the compute cost accumulated so far for one
	// execution.
	ExecutionTotal(ctx context.Context, executionID string) (int64, error)

	// SetBudget sets an organization's monthly budget. Organizations
	// without an explicit budget use the configured default.
	SetBudget(ctx context.Context, orgID string, monthlyBudget int64) error
}

// DefaultComputeCost is charged for a node that completes successfully
// without a registry descriptor ComputeCost override.
const DefaultComputeCost int64 = 1
