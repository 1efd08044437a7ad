package tournamentdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TournamentDBImpl is the concrete implementation of the Repository interface
// using bun.
type TournamentDBImpl struct {
	DB *bun.DB
}

func (db *TournamentDBImpl) GetTournament(ctx context.Context, tournamentID uuid.UUID) (*Tournament, error) {
	tournament := new(Tournament)
	err := db.DB.NewSelect().
		Model(tournament).
		Where("id = ?", tournamentID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch tournament: %w", err)
	}
	return tournament, nil
}

func (db *TournamentDBImpl) GetRound(ctx context.Context, roundID uuid.UUID) (*Round, error) {
	round := new(Round)
	err := db.DB.NewSelect().
		Model(round).
		Where("id = ?", roundID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch round: %w", err)
	}
	return round, nil
}

func (db *TournamentDBImpl) ListTables(ctx context.Context, tournamentID uuid.UUID) ([]*Table, error) {
	var tables []*Table
	err := db.DB.NewSelect().
		Model(&tables).
		Where("tournament_id = ?", tournamentID).
		Order("number ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tables: %w", err)
	}
	return tables, nil
}

func (db *TournamentDBImpl) GetTable(ctx context.Context, tableID uuid.UUID) (*Table, error) {
	table := new(Table)
	err := db.DB.NewSelect().
		Model(table).
		Where("id = ?", tableID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch table: %w", err)
	}
	return table, nil
}

var _ Repository = (*TournamentDBImpl)(nil)
