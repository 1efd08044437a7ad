package tournamentdb

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the contract for tournament, round, and table lookups.
//
// Lookup methods return (nil, nil) when the record does not exist; callers
// decide whether absence is an error.
type Repository interface {
	GetTournament(ctx context.Context, tournamentID uuid.UUID) (*Tournament, error)

	GetRound(ctx context.Context, roundID uuid.UUID) (*Round, error)

	// ListTables returns all tables of a tournament ordered by table number.
	ListTables(ctx context.Context, tournamentID uuid.UUID) ([]*Table, error)

	GetTable(ctx context.Context, tableID uuid.UUID) (*Table, error)
}
