package allocationservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	allocationdomain "github.com/crossed-lances/tablemaster/app/modules/allocation/domain"
	allocationevents "github.com/crossed-lances/tablemaster/app/modules/allocation/events"
	allocationdb "github.com/crossed-lances/tablemaster/app/modules/allocation/infrastructure/repositories"
	tournamentdb "github.com/crossed-lances/tablemaster/app/modules/tournament/infrastructure/repositories"
)

// EditResult is the outcome of a single table reassignment.
type EditResult struct {
	Success      bool                        `json:"success"`
	AllocationID uuid.UUID                   `json:"allocation_id"`
	NewTableID   uuid.UUID                   `json:"new_table_id"`
	Conflicts    []allocationdomain.Conflict `json:"conflicts,omitempty"`
}

// SwapResult is the outcome of a two-way table swap.
type SwapResult struct {
	Success     bool                     `json:"success"`
	Allocation1 *allocationdb.Allocation `json:"allocation1"`
	Allocation2 *allocationdb.Allocation `json:"allocation2"`
}

// EditTableAssignment moves an allocation to a new table and rebuilds its
// audit trail. A table already occupied by another allocation in the round is
// not a blocking error: the edit proceeds and the collision is recorded as a
// conflict referencing the occupant. Round 1 allocations stay editable; the
// edit never reverts to verbatim mode.
func (s *AllocationService) EditTableAssignment(ctx context.Context, allocationID, newTableID uuid.UUID) (*EditResult, error) {
	allocation, err := s.repo.GetByID(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	if allocation == nil {
		return nil, ErrAllocationNotFound
	}

	round, err := s.tournamentRepo.GetRound(ctx, allocation.RoundID)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, ErrRoundNotFound
	}

	table, err := s.tournamentRepo.GetTable(ctx, newTableID)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, ErrTableNotFound
	}

	var conflicts []allocationdomain.Conflict

	occupant, err := s.repo.FindByRoundAndTable(ctx, round.ID, newTableID, allocationID)
	if err != nil {
		return nil, err
	}
	if occupant != nil {
		occupantID := occupant.ID
		conflicts = append(conflicts, allocationdomain.Conflict{
			Type: allocationdomain.ConflictTableCollision,
			Message: fmt.Sprintf("table %d is already assigned to another pairing this round",
				table.Number),
			OtherAllocationID: &occupantID,
		})
	}

	history := allocationdomain.NewTournamentHistory(s.repo, round.TournamentID, round.RoundNumber)
	reason, reuseConflicts, err := s.evaluateAssignment(ctx, allocation, table, history)
	if err != nil {
		return nil, err
	}
	conflicts = append(conflicts, reuseConflicts...)
	reason.Conflicts = conflicts

	tableID := table.ID
	number := table.Number
	allocation.TableID = &tableID
	allocation.TableNumber = &number
	allocation.TerrainTypeID = table.TerrainTypeID
	allocation.Reason = reason

	if err := s.repo.UpdateAssignments(ctx, allocation); err != nil {
		return nil, err
	}

	s.metrics.RecordEdit("reassign")
	for _, conflict := range conflicts {
		s.metrics.RecordConflict(string(conflict.Type))
	}
	s.logger.InfoContext(ctx, "Allocation reassigned",
		slog.String("allocation_id", allocationID.String()),
		slog.String("new_table_id", newTableID.String()),
		slog.Int("conflicts", len(conflicts)),
	)

	s.publishEvent(ctx, allocationevents.AllocationEditedTopic, allocationevents.AllocationEditedPayload{
		AllocationID: allocationID,
		RoundID:      round.ID,
		NewTableID:   newTableID,
		Conflicts:    conflicts,
	})

	return &EditResult{
		Success:      true,
		AllocationID: allocationID,
		NewTableID:   newTableID,
		Conflicts:    conflicts,
	}, nil
}

// SwapTables exchanges the table references of two allocations in the same
// round. Each allocation's cost and conflicts are re-evaluated independently
// against its new table; both updates commit in one transaction or not at
// all.
func (s *AllocationService) SwapTables(ctx context.Context, allocationID1, allocationID2 uuid.UUID) (*SwapResult, error) {
	if allocationID1 == allocationID2 {
		return nil, ErrSameAllocation
	}

	allocation1, err := s.repo.GetByID(ctx, allocationID1)
	if err != nil {
		return nil, err
	}
	if allocation1 == nil {
		return nil, fmt.Errorf("%w: %s", ErrAllocationNotFound, allocationID1)
	}

	allocation2, err := s.repo.GetByID(ctx, allocationID2)
	if err != nil {
		return nil, err
	}
	if allocation2 == nil {
		return nil, fmt.Errorf("%w: %s", ErrAllocationNotFound, allocationID2)
	}

	if allocation1.RoundID != allocation2.RoundID {
		return nil, ErrCrossRoundSwap
	}

	round, err := s.tournamentRepo.GetRound(ctx, allocation1.RoundID)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, ErrRoundNotFound
	}

	allocation1.TableID, allocation2.TableID = allocation2.TableID, allocation1.TableID
	allocation1.TableNumber, allocation2.TableNumber = allocation2.TableNumber, allocation1.TableNumber
	allocation1.TerrainTypeID, allocation2.TerrainTypeID = allocation2.TerrainTypeID, allocation1.TerrainTypeID

	history := allocationdomain.NewTournamentHistory(s.repo, round.TournamentID, round.RoundNumber)
	for _, allocation := range []*allocationdb.Allocation{allocation1, allocation2} {
		if err := s.reevaluateAfterSwap(ctx, allocation, history); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateAssignments(ctx, allocation1, allocation2); err != nil {
		return nil, err
	}

	s.metrics.RecordEdit("swap")
	s.logger.InfoContext(ctx, "Allocations swapped",
		slog.String("allocation_id_1", allocationID1.String()),
		slog.String("allocation_id_2", allocationID2.String()),
		slog.String("round_id", round.ID.String()),
	)

	s.publishEvent(ctx, allocationevents.AllocationsSwappedTopic, allocationevents.AllocationsSwappedPayload{
		RoundID:       round.ID,
		AllocationID1: allocationID1,
		AllocationID2: allocationID2,
	})

	return &SwapResult{
		Success:     true,
		Allocation1: allocation1,
		Allocation2: allocation2,
	}, nil
}

// evaluateAssignment recomputes the cost breakdown of seating an allocation's
// players at a table and returns the rebuilt reason blob plus any reuse
// conflicts.
func (s *AllocationService) evaluateAssignment(
	ctx context.Context,
	allocation *allocationdb.Allocation,
	table *tournamentdb.Table,
	history *allocationdomain.TournamentHistory,
) (allocationdomain.AllocationReason, []allocationdomain.Conflict, error) {
	domainTable := allocationdomain.Table{
		ID:              table.ID,
		Number:          table.Number,
		TerrainTypeID:   table.TerrainTypeID,
		TerrainTypeName: table.TerrainTypeName,
	}

	cost, err := s.calculator.Calculate(ctx, allocation.Players(), domainTable, history)
	if err != nil {
		return allocationdomain.AllocationReason{}, nil, err
	}

	reason := allocationdomain.AllocationReason{
		Timestamp: time.Now().UTC(),
		TotalCost: cost.TotalCost,
		Breakdown: cost.Breakdown,
		Reasons: append([]string{fmt.Sprintf("manually reassigned to table %d", table.Number)},
			cost.Reasons...),
		IsBye: allocation.IsBye(),
	}

	var conflicts []allocationdomain.Conflict
	for _, player := range cost.TableReuses {
		conflicts = append(conflicts, allocationdomain.Conflict{
			Type:    allocationdomain.ConflictTableReuse,
			Message: fmt.Sprintf("%s has already played on table %d", player.Name, table.Number),
		})
	}
	for _, player := range cost.TerrainReuses {
		conflicts = append(conflicts, allocationdomain.Conflict{
			Type:    allocationdomain.ConflictTerrainReuse,
			Message: fmt.Sprintf("%s has already played on %s terrain", player.Name, table.TerrainTypeName),
		})
	}

	return reason, conflicts, nil
}

// reevaluateAfterSwap rebuilds an allocation's reason blob against its
// post-swap table reference.
func (s *AllocationService) reevaluateAfterSwap(ctx context.Context, allocation *allocationdb.Allocation, history *allocationdomain.TournamentHistory) error {
	if allocation.TableID == nil {
		allocation.Reason = allocationdomain.AllocationReason{
			Timestamp: time.Now().UTC(),
			Reasons:   []string{"no table assigned after swap"},
			IsBye:     allocation.IsBye(),
		}
		return nil
	}

	table, err := s.tournamentRepo.GetTable(ctx, *allocation.TableID)
	if err != nil {
		return err
	}
	if table == nil {
		return ErrTableNotFound
	}

	reason, conflicts, err := s.evaluateAssignment(ctx, allocation, table, history)
	if err != nil {
		return err
	}
	reason.Reasons[0] = fmt.Sprintf("swapped to table %d", table.Number)
	reason.Conflicts = conflicts
	allocation.Reason = reason

	for _, conflict := range conflicts {
		s.metrics.RecordConflict(string(conflict.Type))
	}
	return nil
}
