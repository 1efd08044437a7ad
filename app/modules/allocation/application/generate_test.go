package allocationservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	allocationdomain "github.com/crossed-lances/tablemaster/app/modules/allocation/domain"
	allocationevents "github.com/crossed-lances/tablemaster/app/modules/allocation/events"
	allocationmetrics "github.com/crossed-lances/tablemaster/app/modules/allocation/infrastructure/metrics"
	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

func newTestService(repo *fakeAllocationRepo, tournamentRepo *fakeTournamentRepo) (*AllocationService, *fakeEventBus) {
	bus := &fakeEventBus{}
	service := NewAllocationService(
		repo,
		tournamentRepo,
		bus,
		slog.New(slog.DiscardHandler),
		allocationmetrics.NoOpMetrics{},
	)
	return service, bus
}

type placement struct {
	Key   sharedtypes.PlayerID
	Table sharedtypes.TableNumber
	Bye   bool
}

func placements(result allocationdomain.AllocationResult) []placement {
	out := make([]placement, 0, len(result.Allocations))
	for _, allocation := range result.Allocations {
		p := placement{Key: allocation.Pairing.TieBreakKey(), Bye: allocation.Pairing.IsBye()}
		if allocation.Table != nil {
			p.Table = allocation.Table.Number
		}
		out = append(out, p)
	}
	return out
}

// Spec scenario: four pairings, four tables, round 2, one player previously
// played table 2. That player's pairing must not receive table 2 while fresh
// tables remain.
func TestGenerateAllocations_Round2AvoidsUsedTable(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAllocationRepo()
	repo.setExposure("b1", []sharedtypes.TableNumber{2}, nil)
	service, _ := newTestService(repo, newFakeTournamentRepo())

	tables := domainTables(1, 2, 3, 4)
	pairings := []allocationdomain.Pairing{
		regularPairing("a1", "a2", 5, 5), // combined 10, picks first
		regularPairing("b1", "b2", 4, 4), // combined 8, b1 has history on table 2
		regularPairing("c1", "c2", 3, 3),
		regularPairing("d1", "d2", 2, 2),
	}

	history := allocationdomain.NewTournamentHistory(repo, uuid.New(), 2)
	result, err := service.GenerateAllocations(ctx, pairings, tables, 2, history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []placement{
		{Key: "a1", Table: 1},
		{Key: "b1", Table: 3}, // table 2 avoided: reuse cost dominates
		{Key: "c1", Table: 2},
		{Key: "d1", Table: 4},
	}
	if diff := cmp.Diff(want, placements(result)); diff != "" {
		t.Errorf("placements mismatch (-want +got):\n%s", diff)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %v", result.Conflicts)
	}
}

func TestGenerateAllocations_ReuseFlaggedWhenUnavoidable(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAllocationRepo()
	repo.setExposure("b1", []sharedtypes.TableNumber{1, 2}, nil)
	service, _ := newTestService(repo, newFakeTournamentRepo())

	tables := domainTables(1, 2)
	pairings := []allocationdomain.Pairing{
		regularPairing("a1", "a2", 9, 9),
		regularPairing("b1", "b2", 1, 1), // b1 has seen every table
	}

	history := allocationdomain.NewTournamentHistory(repo, uuid.New(), 3)
	result, err := service.GenerateAllocations(ctx, pairings, tables, 3, history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d: %v", len(result.Conflicts), result.Conflicts)
	}
	if result.Conflicts[0].Type != allocationdomain.ConflictTableReuse {
		t.Errorf("expected TABLE_REUSE conflict, got %s", result.Conflicts[0].Type)
	}

	// The degraded pairing still got the least-bad table (2, since table 1
	// went to the higher-priority pairing).
	b1Allocation := result.Allocations[1]
	if b1Allocation.Table == nil || b1Allocation.Table.Number != 2 {
		t.Errorf("expected b1 pairing on table 2, got %+v", b1Allocation.Table)
	}
	if b1Allocation.Reason.TotalCost < allocationdomain.CostTableReuse {
		t.Errorf("expected reuse-tier cost, got %d", b1Allocation.Reason.TotalCost)
	}
}

func TestGenerateAllocations_TerrainReuseFlaggedWhenUnavoidable(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAllocationRepo()

	forestID := uuid.New()
	repo.setExposure("a1", nil, []uuid.UUID{forestID})
	service, _ := newTestService(repo, newFakeTournamentRepo())

	// The only table carries the terrain a1 has already experienced.
	tables := []allocationdomain.Table{{
		ID:              uuid.New(),
		Number:          1,
		TerrainTypeID:   &forestID,
		TerrainTypeName: "Forest",
	}}
	pairings := []allocationdomain.Pairing{regularPairing("a1", "a2", 2, 2)}

	history := allocationdomain.NewTournamentHistory(repo, uuid.New(), 2)
	result, err := service.GenerateAllocations(ctx, pairings, tables, 2, history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d: %v", len(result.Conflicts), result.Conflicts)
	}
	conflict := result.Conflicts[0]
	if conflict.Type != allocationdomain.ConflictTerrainReuse {
		t.Errorf("expected TERRAIN_REUSE conflict, got %s", conflict.Type)
	}
	if !strings.Contains(conflict.Message, "Forest terrain") {
		t.Errorf("expected terrain name in message, got %q", conflict.Message)
	}

	allocation := result.Allocations[0]
	if allocation.Reason.Breakdown.TerrainReuse != allocationdomain.CostTerrainReuse {
		t.Errorf("expected terrain-tier cost in breakdown, got %+v", allocation.Reason.Breakdown)
	}
	if allocation.Reason.TotalCost >= allocationdomain.CostTableReuse {
		t.Errorf("terrain reuse must stay below the table-reuse tier, got %d", allocation.Reason.TotalCost)
	}
	if diff := cmp.Diff(result.Conflicts, allocation.Reason.Conflicts); diff != "" {
		t.Errorf("conflict missing from allocation reason (-result +reason):\n%s", diff)
	}
}

func TestGenerateAllocations_Round1Verbatim(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAllocationRepo()
	service, _ := newTestService(repo, newFakeTournamentRepo())

	tables := domainTables(1, 2, 3)
	p1 := allocationdomain.NewRegularPairing(
		allocationdomain.Player{ID: "a1", Name: "A1", TotalScore: 2},
		allocationdomain.Player{ID: "a2", Name: "A2", TotalScore: 2},
		tableNumberPtr(3),
	)
	p2 := allocationdomain.NewRegularPairing(
		allocationdomain.Player{ID: "b1", Name: "B1"},
		allocationdomain.Player{ID: "b2", Name: "B2"},
		tableNumberPtr(1),
	)

	history := allocationdomain.NewTournamentHistory(repo, uuid.New(), 1)
	result, err := service.GenerateAllocations(ctx, []allocationdomain.Pairing{p1, p2}, tables, 1, history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []placement{
		{Key: "a1", Table: 3},
		{Key: "b1", Table: 1},
	}
	if diff := cmp.Diff(want, placements(result)); diff != "" {
		t.Errorf("placements mismatch (-want +got):\n%s", diff)
	}
	for _, allocation := range result.Allocations {
		if !allocation.Reason.IsRound1 {
			t.Errorf("expected IsRound1 for %s", allocation.Pairing.TieBreakKey())
		}
		if len(allocation.Reason.AlternativesConsidered) != 0 {
			t.Errorf("expected no alternatives for verbatim assignment, got %v",
				allocation.Reason.AlternativesConsidered)
		}
	}
}

// A round-1 pairing without an origin hint falls through to the greedy search
// for that pairing only; its siblings stay verbatim.
func TestGenerateAllocations_Round1MissingOriginFallsBack(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAllocationRepo()
	service, _ := newTestService(repo, newFakeTournamentRepo())

	tables := domainTables(1, 2, 3)
	hinted := allocationdomain.NewRegularPairing(
		allocationdomain.Player{ID: "a1", Name: "A1", TotalScore: 5},
		allocationdomain.Player{ID: "a2", Name: "A2", TotalScore: 5},
		tableNumberPtr(2),
	)
	hintless := regularPairing("b1", "b2", 0, 0)

	history := allocationdomain.NewTournamentHistory(repo, uuid.New(), 1)
	result, err := service.GenerateAllocations(ctx, []allocationdomain.Pairing{hinted, hintless}, tables, 1, history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []placement{
		{Key: "a1", Table: 2},
		{Key: "b1", Table: 1}, // greedy: lowest-numbered remaining table
	}
	if diff := cmp.Diff(want, placements(result)); diff != "" {
		t.Errorf("placements mismatch (-want +got):\n%s", diff)
	}

	hintedAllocation, hintlessAllocation := result.Allocations[0], result.Allocations[1]
	if !hintedAllocation.Reason.IsRound1 {
		t.Error("expected hinted pairing to keep verbatim provenance")
	}
	if hintlessAllocation.Reason.IsRound1 {
		t.Error("expected hintless pairing to carry greedy provenance")
	}
	if len(hintlessAllocation.Reason.AlternativesConsidered) != 1 {
		t.Errorf("expected 1 alternative (table 3), got %v",
			hintlessAllocation.Reason.AlternativesConsidered)
	}
}

// A round-1 greedy fallback can take a table that a lower-priority hinted
// pairing claims verbatim afterwards. Both keep their tables and the double
// booking is flagged, not repaired.
func TestGenerateAllocations_Round1HintCollisionFlagged(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAllocationRepo()
	service, _ := newTestService(repo, newFakeTournamentRepo())

	tables := domainTables(1, 2)
	hintless := regularPairing("a1", "a2", 5, 5) // picks first, greedy takes table 1
	hinted := allocationdomain.NewRegularPairing(
		allocationdomain.Player{ID: "b1", Name: "B1"},
		allocationdomain.Player{ID: "b2", Name: "B2"},
		tableNumberPtr(1),
	)

	history := allocationdomain.NewTournamentHistory(repo, uuid.New(), 1)
	result, err := service.GenerateAllocations(ctx, []allocationdomain.Pairing{hintless, hinted}, tables, 1, history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []placement{
		{Key: "a1", Table: 1},
		{Key: "b1", Table: 1},
	}
	if diff := cmp.Diff(want, placements(result)); diff != "" {
		t.Errorf("placements mismatch (-want +got):\n%s", diff)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].Type != allocationdomain.ConflictTableCollision {
		t.Errorf("expected a TABLE_COLLISION conflict, got %v", result.Conflicts)
	}
}

func TestGenerateAllocations_ByeIsolation(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAllocationRepo()
	service, _ := newTestService(repo, newFakeTournamentRepo())

	tables := domainTables(1, 2)
	pairings := []allocationdomain.Pairing{
		regularPairing("a1", "a2", 3, 3),
		allocationdomain.NewByePairing(allocationdomain.Player{ID: "solo", Name: "Solo", TotalScore: 99}),
		regularPairing("b1", "b2", 1, 1),
	}

	history := allocationdomain.NewTournamentHistory(repo, uuid.New(), 2)
	result, err := service.GenerateAllocations(ctx, pairings, tables, 2, history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Conflicts) != 0 {
		t.Errorf("byes must not contribute conflicts, got %v", result.Conflicts)
	}

	var bye *allocationdomain.Allocation
	tablesSeen := map[sharedtypes.TableNumber]bool{}
	for i := range result.Allocations {
		allocation := &result.Allocations[i]
		if allocation.Pairing.IsBye() {
			bye = allocation
			continue
		}
		if allocation.Table == nil {
			t.Fatalf("regular pairing %s missing table", allocation.Pairing.TieBreakKey())
		}
		tablesSeen[allocation.Table.Number] = true
	}

	if bye == nil {
		t.Fatal("bye allocation missing from result")
	}
	if bye.Table != nil {
		t.Errorf("bye must not hold a table, got %d", bye.Table.Number)
	}
	if bye.Reason.TotalCost != 0 {
		t.Errorf("bye must have zero cost, got %d", bye.Reason.TotalCost)
	}
	if !bye.Reason.IsBye {
		t.Error("bye allocation must be flagged IsBye")
	}
	if diff := cmp.Diff([]string{allocationdomain.ByeReason}, bye.Reason.Reasons); diff != "" {
		t.Errorf("bye reasons mismatch (-want +got):\n%s", diff)
	}
	// The bye consumed no table: both regular pairings are seated.
	if len(tablesSeen) != 2 {
		t.Errorf("expected both tables used by regular pairings, got %v", tablesSeen)
	}
}

func TestGenerateAllocations_PoolExhaustionDegradesGracefully(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAllocationRepo()
	service, _ := newTestService(repo, newFakeTournamentRepo())

	tables := domainTables(1, 2)
	pairings := []allocationdomain.Pairing{
		regularPairing("a1", "a2", 6, 6),
		regularPairing("b1", "b2", 4, 4),
		regularPairing("c1", "c2", 2, 2), // no table left for this one
	}

	history := allocationdomain.NewTournamentHistory(repo, uuid.New(), 2)
	result, err := service.GenerateAllocations(ctx, pairings, tables, 2, history)
	if err != nil {
		t.Fatalf("pool exhaustion must degrade, not fail: %v", err)
	}

	last := result.Allocations[2]
	if last.Table == nil {
		t.Fatal("exhausted pairing must still receive a table")
	}

	foundCollision := false
	for _, conflict := range result.Conflicts {
		if conflict.Type == allocationdomain.ConflictTableCollision {
			foundCollision = true
		}
	}
	if !foundCollision {
		t.Errorf("expected a TABLE_COLLISION conflict, got %v", result.Conflicts)
	}
}

// No silent table loss: with enough tables, assigned table numbers are
// unique.
func TestGenerateAllocations_NoDuplicateTablesWhenEnough(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAllocationRepo()
	service, _ := newTestService(repo, newFakeTournamentRepo())

	faker := gofakeit.New(7)
	tables := domainTables(1, 2, 3, 4, 5, 6)
	var pairings []allocationdomain.Pairing
	for i := 0; i < 5; i++ {
		pairings = append(pairings, allocationdomain.NewRegularPairing(
			allocationdomain.Player{
				ID:         sharedtypes.PlayerID(fmt.Sprintf("p%d-1", i)),
				Name:       sharedtypes.PlayerName(faker.Name()),
				TotalScore: sharedtypes.Score(faker.Number(0, 10)),
			},
			allocationdomain.Player{
				ID:         sharedtypes.PlayerID(fmt.Sprintf("p%d-2", i)),
				Name:       sharedtypes.PlayerName(faker.Name()),
				TotalScore: sharedtypes.Score(faker.Number(0, 10)),
			},
			nil,
		))
	}

	history := allocationdomain.NewTournamentHistory(repo, uuid.New(), 2)
	result, err := service.GenerateAllocations(ctx, pairings, tables, 2, history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := map[sharedtypes.TableNumber]bool{}
	for _, allocation := range result.Allocations {
		if allocation.Table == nil {
			continue
		}
		if seen[allocation.Table.Number] {
			t.Errorf("table %d assigned twice", allocation.Table.Number)
		}
		seen[allocation.Table.Number] = true
	}
}

// Equal-score pairings must resolve to the same order and the same tables on
// every run.
func TestGenerateAllocations_Deterministic(t *testing.T) {
	ctx := context.Background()

	run := func() []placement {
		repo := newFakeAllocationRepo()
		service, _ := newTestService(repo, newFakeTournamentRepo())
		tables := []allocationdomain.Table{
			{ID: uuid.New(), Number: 3},
			{ID: uuid.New(), Number: 1},
			{ID: uuid.New(), Number: 2},
		}
		pairings := []allocationdomain.Pairing{
			regularPairing("mike", "nina", 4, 4),
			regularPairing("zoe", "abe", 4, 4),
			regularPairing("kim", "lee", 4, 4),
		}
		history := allocationdomain.NewTournamentHistory(repo, uuid.New(), 2)
		result, err := service.GenerateAllocations(ctx, pairings, tables, 2, history)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return placements(result)
	}

	first, second := run(), run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("generation is not deterministic (-first +second):\n%s", diff)
	}

	// Tie-break order is ascending by the pairing's smaller player ID.
	wantOrder := []sharedtypes.PlayerID{"abe", "kim", "mike"}
	for i, want := range wantOrder {
		if first[i].Key != want {
			t.Errorf("position %d: got %q, want %q", i, first[i].Key, want)
		}
	}
}

func TestGenerateForRound(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAllocationRepo()
	tournamentRepo := newFakeTournamentRepo()

	tournamentID := uuid.New()
	round := tournamentRepo.addRound(tournamentID, 2)
	tournamentRepo.addTable(tournamentID, 1, nil, "")
	tournamentRepo.addTable(tournamentID, 2, nil, "")

	service, bus := newTestService(repo, tournamentRepo)

	pairings := []allocationdomain.Pairing{
		regularPairing("a1", "a2", 3, 3),
		allocationdomain.NewByePairing(allocationdomain.Player{ID: "solo", Name: "Solo"}),
	}

	result, err := service.GenerateForRound(ctx, round.ID, pairings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Allocations) != 2 {
		t.Fatalf("expected 2 persisted allocations, got %d", len(result.Allocations))
	}
	if len(repo.allocations) != 2 {
		t.Errorf("expected 2 allocations in store, got %d", len(repo.allocations))
	}
	if len(repo.deletedRounds) != 1 || repo.deletedRounds[0] != round.ID {
		t.Errorf("expected existing allocations deleted for round, got %v", repo.deletedRounds)
	}
	if diff := cmp.Diff([]string{allocationevents.AllocationsGeneratedTopic}, bus.published); diff != "" {
		t.Errorf("published topics mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateForRound_RoundNotFound(t *testing.T) {
	service, _ := newTestService(newFakeAllocationRepo(), newFakeTournamentRepo())

	_, err := service.GenerateForRound(context.Background(), uuid.New(), nil)
	if err != ErrRoundNotFound {
		t.Errorf("expected ErrRoundNotFound, got %v", err)
	}
}

// Regeneration for the same round replaces, not appends.
func TestGenerateForRound_ReimportReplacesAllocations(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAllocationRepo()
	tournamentRepo := newFakeTournamentRepo()

	tournamentID := uuid.New()
	round := tournamentRepo.addRound(tournamentID, 3)
	tournamentRepo.addTable(tournamentID, 1, nil, "")

	service, _ := newTestService(repo, tournamentRepo)

	pairings := []allocationdomain.Pairing{regularPairing("a1", "a2", 1, 1)}
	if _, err := service.GenerateForRound(ctx, round.ID, pairings); err != nil {
		t.Fatalf("first generation failed: %v", err)
	}
	if _, err := service.GenerateForRound(ctx, round.ID, pairings); err != nil {
		t.Fatalf("second generation failed: %v", err)
	}

	if len(repo.allocations) != 1 {
		t.Errorf("expected re-import to replace allocations, store holds %d", len(repo.allocations))
	}
}
