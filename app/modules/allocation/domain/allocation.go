package allocationdomain

import (
	"time"

	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

// ByeReason is the single reason recorded on bye allocations.
const ByeReason = "no opponent this round"

// AllocationReason is the audit trail attached to every allocation. It is
// persisted as a jsonb blob and rewritten whenever an edit re-evaluates the
// allocation.
type AllocationReason struct {
	Timestamp time.Time     `json:"timestamp"`
	TotalCost int           `json:"total_cost"`
	Breakdown CostBreakdown `json:"breakdown"`
	Reasons   []string      `json:"reasons"`

	// AlternativesConsidered records the cost of every candidate table that
	// was not chosen, keyed by table number.
	AlternativesConsidered map[sharedtypes.TableNumber]int `json:"alternatives_considered,omitempty"`

	IsRound1  bool       `json:"is_round1"`
	IsBye     bool       `json:"is_bye"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// Allocation is one table assignment produced by a generation run, before
// persistence. Table is nil for byes.
type Allocation struct {
	Table   *Table
	Pairing Pairing
	Reason  AllocationReason
}

// AllocationResult is the full outcome of one generation run.
type AllocationResult struct {
	Allocations []Allocation
	Conflicts   []Conflict
	Summary     string
}
