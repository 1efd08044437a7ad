package allocationservice

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	allocationdomain "github.com/crossed-lances/tablemaster/app/modules/allocation/domain"
	allocationdb "github.com/crossed-lances/tablemaster/app/modules/allocation/infrastructure/repositories"
	tournamentdb "github.com/crossed-lances/tablemaster/app/modules/tournament/infrastructure/repositories"
	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

// ------------------------
// Fake allocation repository
// ------------------------

// fakeAllocationRepo is an in-memory allocationdb.Repository with
// programmable exposure data and call tracing.
type fakeAllocationRepo struct {
	allocations map[uuid.UUID]*allocationdb.Allocation
	exposures   map[sharedtypes.PlayerID]allocationdomain.PlayerExposure

	exposureQueries map[sharedtypes.PlayerID]int
	updateBatches   [][]uuid.UUID
	deletedRounds   []uuid.UUID

	err error
}

func newFakeAllocationRepo() *fakeAllocationRepo {
	return &fakeAllocationRepo{
		allocations:     map[uuid.UUID]*allocationdb.Allocation{},
		exposures:       map[sharedtypes.PlayerID]allocationdomain.PlayerExposure{},
		exposureQueries: map[sharedtypes.PlayerID]int{},
	}
}

func (f *fakeAllocationRepo) setExposure(playerID sharedtypes.PlayerID, tables []sharedtypes.TableNumber, terrains []uuid.UUID) {
	exposure := allocationdomain.PlayerExposure{
		Tables:   map[sharedtypes.TableNumber]struct{}{},
		Terrains: map[uuid.UUID]struct{}{},
	}
	for _, n := range tables {
		exposure.Tables[n] = struct{}{}
	}
	for _, id := range terrains {
		exposure.Terrains[id] = struct{}{}
	}
	f.exposures[playerID] = exposure
}

func (f *fakeAllocationRepo) CreateMany(_ context.Context, allocations []*allocationdb.Allocation) error {
	if f.err != nil {
		return f.err
	}
	for _, allocation := range allocations {
		f.allocations[allocation.ID] = allocation
	}
	return nil
}

func (f *fakeAllocationRepo) GetByID(_ context.Context, allocationID uuid.UUID) (*allocationdb.Allocation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.allocations[allocationID], nil
}

func (f *fakeAllocationRepo) GetByRound(_ context.Context, roundID uuid.UUID) ([]*allocationdb.Allocation, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*allocationdb.Allocation
	for _, allocation := range f.allocations {
		if allocation.RoundID == roundID {
			out = append(out, allocation)
		}
	}
	return out, nil
}

func (f *fakeAllocationRepo) DeleteForRound(_ context.Context, roundID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.deletedRounds = append(f.deletedRounds, roundID)
	for id, allocation := range f.allocations {
		if allocation.RoundID == roundID {
			delete(f.allocations, id)
		}
	}
	return nil
}

func (f *fakeAllocationRepo) FindByRoundAndTable(_ context.Context, roundID, tableID, excludeAllocationID uuid.UUID) (*allocationdb.Allocation, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, allocation := range f.allocations {
		if allocation.RoundID == roundID &&
			allocation.TableID != nil && *allocation.TableID == tableID &&
			allocation.ID != excludeAllocationID {
			return allocation, nil
		}
	}
	return nil, nil
}

func (f *fakeAllocationRepo) UpdateAssignments(_ context.Context, allocations ...*allocationdb.Allocation) error {
	if f.err != nil {
		return f.err
	}
	batch := make([]uuid.UUID, 0, len(allocations))
	for _, allocation := range allocations {
		f.allocations[allocation.ID] = allocation
		batch = append(batch, allocation.ID)
	}
	f.updateBatches = append(f.updateBatches, batch)
	return nil
}

func (f *fakeAllocationRepo) PlayerExposure(_ context.Context, _ uuid.UUID, playerID sharedtypes.PlayerID, _ sharedtypes.RoundNumber) (allocationdomain.PlayerExposure, error) {
	if f.err != nil {
		return allocationdomain.PlayerExposure{}, f.err
	}
	f.exposureQueries[playerID]++
	return f.exposures[playerID], nil
}

var _ allocationdb.Repository = (*fakeAllocationRepo)(nil)

// ------------------------
// Fake tournament repository
// ------------------------

type fakeTournamentRepo struct {
	tournaments map[uuid.UUID]*tournamentdb.Tournament
	rounds      map[uuid.UUID]*tournamentdb.Round
	tables      map[uuid.UUID]*tournamentdb.Table
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{
		tournaments: map[uuid.UUID]*tournamentdb.Tournament{},
		rounds:      map[uuid.UUID]*tournamentdb.Round{},
		tables:      map[uuid.UUID]*tournamentdb.Table{},
	}
}

func (f *fakeTournamentRepo) addRound(tournamentID uuid.UUID, number sharedtypes.RoundNumber) *tournamentdb.Round {
	round := &tournamentdb.Round{
		ID:           uuid.New(),
		TournamentID: tournamentID,
		RoundNumber:  number,
		State:        tournamentdb.RoundStateDraft,
	}
	f.rounds[round.ID] = round
	return round
}

func (f *fakeTournamentRepo) addTable(tournamentID uuid.UUID, number sharedtypes.TableNumber, terrainID *uuid.UUID, terrainName sharedtypes.TerrainTypeName) *tournamentdb.Table {
	table := &tournamentdb.Table{
		ID:              uuid.New(),
		TournamentID:    tournamentID,
		Number:          number,
		TerrainTypeID:   terrainID,
		TerrainTypeName: terrainName,
	}
	f.tables[table.ID] = table
	return table
}

func (f *fakeTournamentRepo) GetTournament(_ context.Context, tournamentID uuid.UUID) (*tournamentdb.Tournament, error) {
	return f.tournaments[tournamentID], nil
}

func (f *fakeTournamentRepo) GetRound(_ context.Context, roundID uuid.UUID) (*tournamentdb.Round, error) {
	return f.rounds[roundID], nil
}

func (f *fakeTournamentRepo) ListTables(_ context.Context, tournamentID uuid.UUID) ([]*tournamentdb.Table, error) {
	var out []*tournamentdb.Table
	for _, table := range f.tables {
		if table.TournamentID == tournamentID {
			out = append(out, table)
		}
	}
	return out, nil
}

func (f *fakeTournamentRepo) GetTable(_ context.Context, tableID uuid.UUID) (*tournamentdb.Table, error) {
	return f.tables[tableID], nil
}

var _ tournamentdb.Repository = (*fakeTournamentRepo)(nil)

// ------------------------
// Fake event bus
// ------------------------

type fakeEventBus struct {
	published []string
}

func (f *fakeEventBus) Publish(topic string, _ ...*message.Message) error {
	f.published = append(f.published, topic)
	return nil
}

func (f *fakeEventBus) Close() error { return nil }

// ------------------------
// Test helpers
// ------------------------

func tableNumberPtr(n sharedtypes.TableNumber) *sharedtypes.TableNumber {
	return &n
}

func domainTables(numbers ...sharedtypes.TableNumber) []allocationdomain.Table {
	tables := make([]allocationdomain.Table, 0, len(numbers))
	for _, n := range numbers {
		terrainID := uuid.New()
		tables = append(tables, allocationdomain.Table{
			ID:              uuid.New(),
			Number:          n,
			TerrainTypeID:   &terrainID,
			TerrainTypeName: sharedtypes.TerrainTypeName(fmt.Sprintf("Terrain %d", n)),
		})
	}
	return tables
}

func regularPairing(id1, id2 string, total1, total2 sharedtypes.Score) allocationdomain.Pairing {
	return allocationdomain.NewRegularPairing(
		allocationdomain.Player{ID: sharedtypes.PlayerID(id1), Name: sharedtypes.PlayerName(id1), TotalScore: total1},
		allocationdomain.Player{ID: sharedtypes.PlayerID(id2), Name: sharedtypes.PlayerName(id2), TotalScore: total2},
		nil,
	)
}
