package allocationservice

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	allocationdomain "github.com/crossed-lances/tablemaster/app/modules/allocation/domain"
	allocationevents "github.com/crossed-lances/tablemaster/app/modules/allocation/events"
	allocationdb "github.com/crossed-lances/tablemaster/app/modules/allocation/infrastructure/repositories"
	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

// RoundAllocations is the persisted outcome of GenerateForRound.
type RoundAllocations struct {
	RoundID     uuid.UUID                   `json:"round_id"`
	RoundNumber sharedtypes.RoundNumber     `json:"round_number"`
	Allocations []*allocationdb.Allocation  `json:"allocations"`
	Conflicts   []allocationdomain.Conflict `json:"conflicts,omitempty"`
	Summary     string                      `json:"summary"`
}

// GenerateAllocations assigns each pairing to a table for the round.
//
// Regular pairings are placed in descending combined-total-score order
// (stronger pairings pick first), ties broken by the pairing's tie-break key
// so equal inputs always produce identical output. Round 1 trusts the pairing
// source's own table layout: a pairing with an origin table hint is assigned
// that table verbatim with no cost search. A round-1 pairing without a hint
// falls through to the greedy search for that pairing only; that search draws
// from the full remaining pool, so it can claim a table a lower-priority
// pairing is hinted to. The hint is still honored verbatim and the double
// booking surfaces as a TABLE_COLLISION conflict.
//
// The greedy search scores every table still in the pool and takes the
// cheapest, lowest number winning ties. When more pairings remain than unused
// tables, the search falls back to the full table list so every pairing still
// receives a table; the resulting double-booking is flagged as a
// TABLE_COLLISION conflict rather than an error.
func (s *AllocationService) GenerateAllocations(
	ctx context.Context,
	pairings []allocationdomain.Pairing,
	tables []allocationdomain.Table,
	roundNumber sharedtypes.RoundNumber,
	history *allocationdomain.TournamentHistory,
) (allocationdomain.AllocationResult, error) {
	var regular, byes []allocationdomain.Pairing
	for _, pairing := range pairings {
		if pairing.IsBye() {
			byes = append(byes, pairing)
		} else {
			regular = append(regular, pairing)
		}
	}

	slices.SortStableFunc(regular, func(a, b allocationdomain.Pairing) int {
		if a.CombinedTotalScore() != b.CombinedTotalScore() {
			if a.CombinedTotalScore() > b.CombinedTotalScore() {
				return -1
			}
			return 1
		}
		if a.TieBreakKey() < b.TieBreakKey() {
			return -1
		}
		if a.TieBreakKey() > b.TieBreakKey() {
			return 1
		}
		return 0
	})

	allTables := slices.Clone(tables)
	slices.SortFunc(allTables, func(a, b allocationdomain.Table) int {
		return int(a.Number) - int(b.Number)
	})

	byNumber := make(map[sharedtypes.TableNumber]allocationdomain.Table, len(allTables))
	for _, table := range allTables {
		byNumber[table.Number] = table
	}

	pool := slices.Clone(allTables)
	assigned := make(map[sharedtypes.TableNumber]bool, len(allTables))

	var result allocationdomain.AllocationResult

	for _, pairing := range regular {
		var allocation allocationdomain.Allocation
		var err error

		origin, hasOrigin := pairing.OriginTable()
		originTable, originExists := byNumber[origin]

		if roundNumber == 1 && hasOrigin && originExists {
			allocation = s.assignVerbatim(pairing, originTable, assigned)
		} else {
			allocation, err = s.assignGreedy(ctx, pairing, pool, allTables, assigned, history)
			if err != nil {
				return allocationdomain.AllocationResult{}, err
			}
		}

		if allocation.Table != nil {
			if idx := slices.IndexFunc(pool, func(t allocationdomain.Table) bool {
				return t.Number == allocation.Table.Number
			}); idx >= 0 {
				pool = slices.Delete(pool, idx, idx+1)
			}
			assigned[allocation.Table.Number] = true
		}

		result.Conflicts = append(result.Conflicts, allocation.Reason.Conflicts...)
		result.Allocations = append(result.Allocations, allocation)
	}

	for _, pairing := range byes {
		result.Allocations = append(result.Allocations, allocationdomain.Allocation{
			Pairing: pairing,
			Reason: allocationdomain.AllocationReason{
				Timestamp: time.Now().UTC(),
				Reasons:   []string{allocationdomain.ByeReason},
				IsBye:     true,
			},
		})
	}

	for _, conflict := range result.Conflicts {
		s.metrics.RecordConflict(string(conflict.Type))
	}

	result.Summary = fmt.Sprintf("%d table assignments, %d byes, %d conflicts",
		len(regular), len(byes), len(result.Conflicts))

	return result, nil
}

// assignVerbatim places a round-1 pairing on its origin table with no cost
// search. A duplicated hint still honors the source but is flagged as a
// collision.
func (s *AllocationService) assignVerbatim(
	pairing allocationdomain.Pairing,
	table allocationdomain.Table,
	assigned map[sharedtypes.TableNumber]bool,
) allocationdomain.Allocation {
	reason := allocationdomain.AllocationReason{
		Timestamp: time.Now().UTC(),
		TotalCost: 0,
		Reasons:   []string{fmt.Sprintf("table %d assigned verbatim from the round 1 pairing source", table.Number)},
		IsRound1:  true,
	}

	if assigned[table.Number] {
		reason.Conflicts = append(reason.Conflicts, allocationdomain.Conflict{
			Type:    allocationdomain.ConflictTableCollision,
			Message: fmt.Sprintf("table %d is assigned to multiple pairings this round", table.Number),
		})
	}

	return allocationdomain.Allocation{
		Table:   &table,
		Pairing: pairing,
		Reason:  reason,
	}
}

// assignGreedy scores every candidate table and takes the cheapest.
func (s *AllocationService) assignGreedy(
	ctx context.Context,
	pairing allocationdomain.Pairing,
	pool []allocationdomain.Table,
	allTables []allocationdomain.Table,
	assigned map[sharedtypes.TableNumber]bool,
	history *allocationdomain.TournamentHistory,
) (allocationdomain.Allocation, error) {
	candidates := pool
	if len(candidates) == 0 {
		// More pairings than tables: consider every table so the pairing
		// still gets a seat.
		candidates = allTables
	}
	if len(candidates) == 0 {
		return allocationdomain.Allocation{}, fmt.Errorf("no tables available for allocation")
	}

	players := pairing.Players()

	bestIdx := -1
	var bestCost allocationdomain.CostResult
	costs := make([]allocationdomain.CostResult, len(candidates))

	for i, candidate := range candidates {
		cost, err := s.calculator.Calculate(ctx, players, candidate, history)
		if err != nil {
			return allocationdomain.Allocation{}, err
		}
		costs[i] = cost
		// Candidates are in ascending table-number order, so a strict
		// comparison keeps the lowest-numbered table on ties.
		if bestIdx < 0 || cost.TotalCost < bestCost.TotalCost {
			bestIdx = i
			bestCost = cost
		}
	}

	best := candidates[bestIdx]

	alternatives := make(map[sharedtypes.TableNumber]int, len(candidates)-1)
	for i, candidate := range candidates {
		if i == bestIdx {
			continue
		}
		alternatives[candidate.Number] = costs[i].TotalCost
	}

	reason := allocationdomain.AllocationReason{
		Timestamp:              time.Now().UTC(),
		TotalCost:              bestCost.TotalCost,
		Breakdown:              bestCost.Breakdown,
		Reasons:                bestCost.Reasons,
		AlternativesConsidered: alternatives,
	}

	for _, player := range bestCost.TableReuses {
		reason.Conflicts = append(reason.Conflicts, allocationdomain.Conflict{
			Type:    allocationdomain.ConflictTableReuse,
			Message: fmt.Sprintf("%s has already played on table %d", player.Name, best.Number),
		})
	}
	for _, player := range bestCost.TerrainReuses {
		reason.Conflicts = append(reason.Conflicts, allocationdomain.Conflict{
			Type:    allocationdomain.ConflictTerrainReuse,
			Message: fmt.Sprintf("%s has already played on %s terrain", player.Name, best.TerrainTypeName),
		})
	}
	if assigned[best.Number] {
		reason.Conflicts = append(reason.Conflicts, allocationdomain.Conflict{
			Type:    allocationdomain.ConflictTableCollision,
			Message: fmt.Sprintf("table %d is assigned to multiple pairings this round", best.Number),
		})
	}

	return allocationdomain.Allocation{
		Table:   &best,
		Pairing: pairing,
		Reason:  reason,
	}, nil
}

// GenerateForRound runs the engine for a persisted round, replacing any
// allocations from an earlier import of the same round.
func (s *AllocationService) GenerateForRound(ctx context.Context, roundID uuid.UUID, pairings []allocationdomain.Pairing) (*RoundAllocations, error) {
	round, err := s.tournamentRepo.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, ErrRoundNotFound
	}

	dbTables, err := s.tournamentRepo.ListTables(ctx, round.TournamentID)
	if err != nil {
		return nil, err
	}
	tables := make([]allocationdomain.Table, 0, len(dbTables))
	for _, table := range dbTables {
		tables = append(tables, allocationdomain.Table{
			ID:              table.ID,
			Number:          table.Number,
			TerrainTypeID:   table.TerrainTypeID,
			TerrainTypeName: table.TerrainTypeName,
		})
	}

	history := allocationdomain.NewTournamentHistory(s.repo, round.TournamentID, round.RoundNumber)

	start := time.Now()
	result, err := s.GenerateAllocations(ctx, pairings, tables, round.RoundNumber, history)
	if err != nil {
		s.logger.ErrorContext(ctx, "Allocation generation failed",
			slog.String("round_id", roundID.String()),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to generate allocations: %w", err)
	}

	records := make([]*allocationdb.Allocation, 0, len(result.Allocations))
	byes := 0
	for _, allocation := range result.Allocations {
		record := toRecord(roundID, allocation)
		if record.IsBye() {
			byes++
		}
		records = append(records, record)
	}

	// Re-import semantics: the previous generation for this round is
	// destroyed wholesale before the new one lands.
	if err := s.repo.DeleteForRound(ctx, roundID); err != nil {
		return nil, err
	}
	if err := s.repo.CreateMany(ctx, records); err != nil {
		return nil, err
	}

	s.metrics.RecordGeneration(len(records), time.Since(start))
	s.logger.InfoContext(ctx, "Allocations generated",
		slog.String("round_id", roundID.String()),
		slog.Int("round_number", int(round.RoundNumber)),
		slog.Int("allocations", len(records)),
		slog.Int("conflicts", len(result.Conflicts)),
	)

	s.publishEvent(ctx, allocationevents.AllocationsGeneratedTopic, allocationevents.AllocationsGeneratedPayload{
		TournamentID: round.TournamentID,
		RoundID:      roundID,
		RoundNumber:  round.RoundNumber,
		Allocations:  len(records),
		Byes:         byes,
		Conflicts:    result.Conflicts,
		Summary:      result.Summary,
	})

	return &RoundAllocations{
		RoundID:     roundID,
		RoundNumber: round.RoundNumber,
		Allocations: records,
		Conflicts:   result.Conflicts,
		Summary:     result.Summary,
	}, nil
}

// GetRoundAllocations returns the round's persisted seating chart.
func (s *AllocationService) GetRoundAllocations(ctx context.Context, roundID uuid.UUID) ([]*allocationdb.Allocation, error) {
	round, err := s.tournamentRepo.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, ErrRoundNotFound
	}
	return s.repo.GetByRound(ctx, roundID)
}

// toRecord maps a transient allocation to its persistence model.
func toRecord(roundID uuid.UUID, allocation allocationdomain.Allocation) *allocationdb.Allocation {
	record := &allocationdb.Allocation{
		ID:      uuid.New(),
		RoundID: roundID,
		Reason:  allocation.Reason,
	}

	if allocation.Table != nil {
		tableID := allocation.Table.ID
		number := allocation.Table.Number
		record.TableID = &tableID
		record.TableNumber = &number
		record.TerrainTypeID = allocation.Table.TerrainTypeID
	}

	p1 := allocation.Pairing.Player1()
	record.Player1ID = p1.ID
	record.Player1Name = p1.Name
	record.Player1RoundScore = p1.RoundScore
	record.Player1TotalScore = p1.TotalScore

	if p2, ok := allocation.Pairing.Player2(); ok {
		id := p2.ID
		name := p2.Name
		roundScore := p2.RoundScore
		totalScore := p2.TotalScore
		record.Player2ID = &id
		record.Player2Name = &name
		record.Player2RoundScore = &roundScore
		record.Player2TotalScore = &totalScore
	}

	return record
}
