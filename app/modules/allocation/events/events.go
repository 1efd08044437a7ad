package allocationevents

import (
	"github.com/google/uuid"

	allocationdomain "github.com/crossed-lances/tablemaster/app/modules/allocation/domain"
	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

// Topics published by the allocation module.
const (
	AllocationsGeneratedTopic = "allocation.generated.v1"
	AllocationEditedTopic     = "allocation.edited.v1"
	AllocationsSwappedTopic   = "allocation.swapped.v1"
)

// AllocationsGeneratedPayload announces a completed generation run.
type AllocationsGeneratedPayload struct {
	TournamentID uuid.UUID                   `json:"tournament_id"`
	RoundID      uuid.UUID                   `json:"round_id"`
	RoundNumber  sharedtypes.RoundNumber     `json:"round_number"`
	Allocations  int                         `json:"allocations"`
	Byes         int                         `json:"byes"`
	Conflicts    []allocationdomain.Conflict `json:"conflicts,omitempty"`
	Summary      string                      `json:"summary"`
}

// AllocationEditedPayload announces a single table reassignment.
type AllocationEditedPayload struct {
	AllocationID uuid.UUID                   `json:"allocation_id"`
	RoundID      uuid.UUID                   `json:"round_id"`
	NewTableID   uuid.UUID                   `json:"new_table_id"`
	Conflicts    []allocationdomain.Conflict `json:"conflicts,omitempty"`
}

// AllocationsSwappedPayload announces a two-way table swap.
type AllocationsSwappedPayload struct {
	RoundID       uuid.UUID `json:"round_id"`
	AllocationID1 uuid.UUID `json:"allocation_id_1"`
	AllocationID2 uuid.UUID `json:"allocation_id_2"`
}
