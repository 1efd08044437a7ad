package allocationservice

import "errors"

// Precondition errors. Allocation-quality issues (reuse, collision) are never
// errors; they travel as conflict entries on successful results.
var (
	ErrAllocationNotFound = errors.New("allocation not found")
	ErrRoundNotFound      = errors.New("round not found")
	ErrTableNotFound      = errors.New("table not found")

	// ErrSameAllocation rejects a no-op swap before any state is touched.
	ErrSameAllocation = errors.New("cannot swap an allocation with itself")

	// ErrCrossRoundSwap rejects swaps across rounds; tables are round-scoped.
	ErrCrossRoundSwap = errors.New("allocations must be in the same round")
)
