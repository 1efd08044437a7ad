package allocationdomain

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

// PlayerExposure is everything a player has already seen in rounds before the
// history cutoff: the set of table numbers they played on and the set of
// terrain types they experienced.
type PlayerExposure struct {
	Tables   map[sharedtypes.TableNumber]struct{}
	Terrains map[uuid.UUID]struct{}
}

// ExposureStore answers exposure lookups from persisted allocations.
type ExposureStore interface {
	// PlayerExposure returns the player's table and terrain exposure across
	// all rounds of the tournament with a round number strictly below
	// beforeRound.
	PlayerExposure(ctx context.Context, tournamentID uuid.UUID, playerID sharedtypes.PlayerID, beforeRound sharedtypes.RoundNumber) (PlayerExposure, error)
}

// TournamentHistory caches per-player exposure for a single generation or
// edit call. The cutoff round is fixed at construction, so an instance must
// never outlive the computation it was built for.
//
// Each distinct player hits the store at most once: the engine asks about
// every (pairing, candidate table) combination, so without the cache the
// store would be queried players-times-tables times per generation instead of
// once per player.
type TournamentHistory struct {
	store        ExposureStore
	tournamentID uuid.UUID
	currentRound sharedtypes.RoundNumber

	exposure map[sharedtypes.PlayerID]PlayerExposure
}

// NewTournamentHistory creates a history scoped to rounds strictly before
// currentRound of the given tournament.
func NewTournamentHistory(store ExposureStore, tournamentID uuid.UUID, currentRound sharedtypes.RoundNumber) *TournamentHistory {
	return &TournamentHistory{
		store:        store,
		tournamentID: tournamentID,
		currentRound: currentRound,
		exposure:     make(map[sharedtypes.PlayerID]PlayerExposure),
	}
}

// HasPlayerUsedTable reports whether the player played on the table number in
// any round before the cutoff.
func (h *TournamentHistory) HasPlayerUsedTable(ctx context.Context, playerID sharedtypes.PlayerID, tableNumber sharedtypes.TableNumber) (bool, error) {
	exposure, err := h.playerExposure(ctx, playerID)
	if err != nil {
		return false, err
	}
	_, used := exposure.Tables[tableNumber]
	return used, nil
}

// HasPlayerExperiencedTerrain reports whether the player played on the
// terrain type in any round before the cutoff. A nil terrain type returns
// false without touching the store.
func (h *TournamentHistory) HasPlayerExperiencedTerrain(ctx context.Context, playerID sharedtypes.PlayerID, terrainTypeID *uuid.UUID) (bool, error) {
	if terrainTypeID == nil {
		return false, nil
	}
	exposure, err := h.playerExposure(ctx, playerID)
	if err != nil {
		return false, err
	}
	_, experienced := exposure.Terrains[*terrainTypeID]
	return experienced, nil
}

func (h *TournamentHistory) playerExposure(ctx context.Context, playerID sharedtypes.PlayerID) (PlayerExposure, error) {
	if exposure, ok := h.exposure[playerID]; ok {
		return exposure, nil
	}

	exposure, err := h.store.PlayerExposure(ctx, h.tournamentID, playerID, h.currentRound)
	if err != nil {
		return PlayerExposure{}, fmt.Errorf("failed to load exposure for player %s: %w", playerID, err)
	}
	if exposure.Tables == nil {
		exposure.Tables = map[sharedtypes.TableNumber]struct{}{}
	}
	if exposure.Terrains == nil {
		exposure.Terrains = map[uuid.UUID]struct{}{}
	}

	h.exposure[playerID] = exposure
	return exposure, nil
}
