package allocationdomain

import "github.com/google/uuid"

// ConflictType classifies a degraded-but-successful allocation outcome.
type ConflictType string

const (
	ConflictTableReuse     ConflictType = "TABLE_REUSE"
	ConflictTerrainReuse   ConflictType = "TERRAIN_REUSE"
	ConflictTableCollision ConflictType = "TABLE_COLLISION"
)

// Conflict annotates an allocation that could not avoid repeat exposure or a
// table collision. Conflicts are data for human review, never errors: the
// engine always produces a usable seating chart.
type Conflict struct {
	Type    ConflictType `json:"type"`
	Message string       `json:"message"`

	// OtherAllocationID references the allocation already occupying the table
	// for TABLE_COLLISION conflicts raised by edits.
	OtherAllocationID *uuid.UUID `json:"other_allocation_id,omitempty"`
}
