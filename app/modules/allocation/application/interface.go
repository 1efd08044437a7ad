package allocationservice

import (
	"context"

	"github.com/google/uuid"

	allocationdomain "github.com/crossed-lances/tablemaster/app/modules/allocation/domain"
	allocationdb "github.com/crossed-lances/tablemaster/app/modules/allocation/infrastructure/repositories"
	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

// Service is the allocation engine's boundary to the request-handling layer.
type Service interface {
	// GenerateAllocations runs the assignment algorithm for one round without
	// touching storage. The sole computation entry point.
	GenerateAllocations(ctx context.Context, pairings []allocationdomain.Pairing, tables []allocationdomain.Table, roundNumber sharedtypes.RoundNumber, history *allocationdomain.TournamentHistory) (allocationdomain.AllocationResult, error)

	// GenerateForRound replaces the round's allocations with a fresh
	// generation run and persists the outcome.
	GenerateForRound(ctx context.Context, roundID uuid.UUID, pairings []allocationdomain.Pairing) (*RoundAllocations, error)

	// GetRoundAllocations returns the round's persisted seating chart.
	GetRoundAllocations(ctx context.Context, roundID uuid.UUID) ([]*allocationdb.Allocation, error)

	// EditTableAssignment moves one allocation to a new table, re-validating
	// conflicts. A collision with another allocation is reported, not refused.
	EditTableAssignment(ctx context.Context, allocationID, newTableID uuid.UUID) (*EditResult, error)

	// SwapTables exchanges the table references of two allocations in the
	// same round atomically.
	SwapTables(ctx context.Context, allocationID1, allocationID2 uuid.UUID) (*SwapResult, error)
}
