package allocationdb

import (
	"context"

	"github.com/google/uuid"

	allocationdomain "github.com/crossed-lances/tablemaster/app/modules/allocation/domain"
	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

// Repository defines the contract for allocation persistence.
//
// Lookup methods return (nil, nil) when the record does not exist.
// UpdateAssignments commits all given updates in one transaction; a swap must
// move both allocations or neither.
type Repository interface {
	// CreateMany inserts a generation run's allocations.
	CreateMany(ctx context.Context, allocations []*Allocation) error

	GetByID(ctx context.Context, allocationID uuid.UUID) (*Allocation, error)

	// GetByRound returns a round's allocations, table assignments first in
	// table-number order, byes last.
	GetByRound(ctx context.Context, roundID uuid.UUID) ([]*Allocation, error)

	// DeleteForRound removes all allocations of a round ahead of a re-import.
	DeleteForRound(ctx context.Context, roundID uuid.UUID) error

	// FindByRoundAndTable returns the allocation occupying the table in the
	// round, excluding the given allocation ID.
	FindByRoundAndTable(ctx context.Context, roundID, tableID, excludeAllocationID uuid.UUID) (*Allocation, error)

	// UpdateAssignments persists table reference and reason blob changes for
	// the given allocations atomically.
	UpdateAssignments(ctx context.Context, allocations ...*Allocation) error

	// PlayerExposure serves the tournament history lookups.
	PlayerExposure(ctx context.Context, tournamentID uuid.UUID, playerID sharedtypes.PlayerID, beforeRound sharedtypes.RoundNumber) (allocationdomain.PlayerExposure, error)
}
