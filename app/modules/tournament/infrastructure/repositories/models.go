package tournamentdb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

// Tournament represents a multi-round event.
type Tournament struct {
	bun.BaseModel `bun:"table:tournaments,alias:t"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Name      string    `bun:"name,notnull"`
	Location  string    `bun:"location,nullzero"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// RoundState represents the lifecycle state of a round.
type RoundState string

const (
	RoundStateDraft     RoundState = "DRAFT"
	RoundStatePublished RoundState = "PUBLISHED"
)

// Round represents a single round in a tournament. Allocations reference
// rounds; round_number drives the history cutoff.
type Round struct {
	bun.BaseModel `bun:"table:rounds,alias:r"`

	ID           uuid.UUID               `bun:"id,pk,type:uuid"`
	TournamentID uuid.UUID               `bun:"tournament_id,notnull,type:uuid"`
	RoundNumber  sharedtypes.RoundNumber `bun:"round_number,notnull"`
	State        RoundState              `bun:"state,notnull,default:'DRAFT'"`
	CreatedAt    time.Time               `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time               `bun:",nullzero,notnull,default:current_timestamp"`
}

// Table represents a physical table with an optional terrain configuration.
type Table struct {
	bun.BaseModel `bun:"table:tables,alias:tb"`

	ID              uuid.UUID                   `bun:"id,pk,type:uuid"`
	TournamentID    uuid.UUID                   `bun:"tournament_id,notnull,type:uuid"`
	Number          sharedtypes.TableNumber     `bun:"number,notnull"`
	TerrainTypeID   *uuid.UUID                  `bun:"terrain_type_id,type:uuid"`
	TerrainTypeName sharedtypes.TerrainTypeName `bun:"terrain_type_name,nullzero"`
	CreatedAt       time.Time                   `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time                   `bun:",nullzero,notnull,default:current_timestamp"`
}
