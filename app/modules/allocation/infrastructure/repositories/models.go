package allocationdb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	allocationdomain "github.com/crossed-lances/tablemaster/app/modules/allocation/domain"
	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

// Allocation is one table assignment within a round. Table columns are nil
// for byes. TableNumber and TerrainTypeID are denormalized from the table so
// history queries never need a join against tables.
type Allocation struct {
	bun.BaseModel `bun:"table:allocations,alias:a"`

	ID      uuid.UUID `bun:"id,pk,type:uuid"`
	RoundID uuid.UUID `bun:"round_id,notnull,type:uuid"`

	TableID       *uuid.UUID               `bun:"table_id,type:uuid"`
	TableNumber   *sharedtypes.TableNumber `bun:"table_number"`
	TerrainTypeID *uuid.UUID               `bun:"terrain_type_id,type:uuid"`

	Player1ID         sharedtypes.PlayerID   `bun:"player1_id,notnull"`
	Player1Name       sharedtypes.PlayerName `bun:"player1_name,notnull"`
	Player1RoundScore sharedtypes.Score      `bun:"player1_round_score,notnull,default:0"`
	Player1TotalScore sharedtypes.Score      `bun:"player1_total_score,notnull,default:0"`

	Player2ID         *sharedtypes.PlayerID   `bun:"player2_id"`
	Player2Name       *sharedtypes.PlayerName `bun:"player2_name"`
	Player2RoundScore *sharedtypes.Score      `bun:"player2_round_score"`
	Player2TotalScore *sharedtypes.Score      `bun:"player2_total_score"`

	Reason allocationdomain.AllocationReason `bun:"allocation_reason,type:jsonb"`

	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// IsBye reports whether the allocation belongs to a pairing with no opponent.
func (a *Allocation) IsBye() bool {
	return a.Player2ID == nil || *a.Player2ID == ""
}

// Players returns the players referenced by the allocation as domain values,
// one entry for a bye.
func (a *Allocation) Players() []allocationdomain.Player {
	players := []allocationdomain.Player{{
		ID:         a.Player1ID,
		Name:       a.Player1Name,
		RoundScore: a.Player1RoundScore,
		TotalScore: a.Player1TotalScore,
	}}
	if a.IsBye() {
		return players
	}
	p2 := allocationdomain.Player{ID: *a.Player2ID}
	if a.Player2Name != nil {
		p2.Name = *a.Player2Name
	}
	if a.Player2RoundScore != nil {
		p2.RoundScore = *a.Player2RoundScore
	}
	if a.Player2TotalScore != nil {
		p2.TotalScore = *a.Player2TotalScore
	}
	return append(players, p2)
}
