package allocationdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	allocationdomain "github.com/crossed-lances/tablemaster/app/modules/allocation/domain"
	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

// AllocationDBImpl is the concrete implementation of the Repository
// interface using bun.
type AllocationDBImpl struct {
	DB *bun.DB
}

func (db *AllocationDBImpl) CreateMany(ctx context.Context, allocations []*Allocation) error {
	if len(allocations) == 0 {
		return nil
	}
	_, err := db.DB.NewInsert().
		Model(&allocations).
		Exec(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to insert allocations", slog.String("error", err.Error()))
		return fmt.Errorf("failed to insert allocations: %w", err)
	}
	slog.InfoContext(ctx, "Allocations created", slog.Int("count", len(allocations)))
	return nil
}

func (db *AllocationDBImpl) GetByID(ctx context.Context, allocationID uuid.UUID) (*Allocation, error) {
	allocation := new(Allocation)
	err := db.DB.NewSelect().
		Model(allocation).
		Where("id = ?", allocationID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch allocation: %w", err)
	}
	return allocation, nil
}

func (db *AllocationDBImpl) GetByRound(ctx context.Context, roundID uuid.UUID) ([]*Allocation, error) {
	var allocations []*Allocation
	err := db.DB.NewSelect().
		Model(&allocations).
		Where("round_id = ?", roundID).
		OrderExpr("table_number ASC NULLS LAST").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch allocations for round: %w", err)
	}
	return allocations, nil
}

func (db *AllocationDBImpl) DeleteForRound(ctx context.Context, roundID uuid.UUID) error {
	res, err := db.DB.NewDelete().
		Model((*Allocation)(nil)).
		Where("round_id = ?", roundID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete allocations for round: %w", err)
	}
	if deleted, err := res.RowsAffected(); err == nil && deleted > 0 {
		slog.InfoContext(ctx, "Deleted existing allocations for round",
			slog.String("round_id", roundID.String()),
			slog.Int64("count", deleted),
		)
	}
	return nil
}

func (db *AllocationDBImpl) FindByRoundAndTable(ctx context.Context, roundID, tableID, excludeAllocationID uuid.UUID) (*Allocation, error) {
	allocation := new(Allocation)
	err := db.DB.NewSelect().
		Model(allocation).
		Where("round_id = ?", roundID).
		Where("table_id = ?", tableID).
		Where("id != ?", excludeAllocationID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch allocation by table: %w", err)
	}
	return allocation, nil
}

// UpdateAssignments writes the table reference and reason blob of each
// allocation inside a single transaction. A swap passes both allocations
// here; a partial swap would corrupt the round's table invariant.
func (db *AllocationDBImpl) UpdateAssignments(ctx context.Context, allocations ...*Allocation) error {
	return db.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, allocation := range allocations {
			allocation.UpdatedAt = time.Now().UTC()
			_, err := tx.NewUpdate().
				Model(allocation).
				Column("table_id", "table_number", "terrain_type_id", "allocation_reason", "updated_at").
				Where("id = ?", allocation.ID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to update allocation %s: %w", allocation.ID, err)
			}
		}
		return nil
	})
}

// exposureRow is the projection used by PlayerExposure.
type exposureRow struct {
	TableNumber   *sharedtypes.TableNumber `bun:"table_number"`
	TerrainTypeID *uuid.UUID               `bun:"terrain_type_id"`
}

// PlayerExposure collects the table numbers and terrain types a player has
// seen in rounds strictly before beforeRound. One query per call; the
// per-generation caching lives in allocationdomain.TournamentHistory.
func (db *AllocationDBImpl) PlayerExposure(ctx context.Context, tournamentID uuid.UUID, playerID sharedtypes.PlayerID, beforeRound sharedtypes.RoundNumber) (allocationdomain.PlayerExposure, error) {
	var rows []exposureRow
	err := db.DB.NewSelect().
		Model((*Allocation)(nil)).
		Column("a.table_number", "a.terrain_type_id").
		Join("JOIN rounds AS r ON r.id = a.round_id").
		Where("r.tournament_id = ?", tournamentID).
		Where("r.round_number < ?", beforeRound).
		Where("(a.player1_id = ? OR a.player2_id = ?)", playerID, playerID).
		Where("a.table_number IS NOT NULL").
		Scan(ctx, &rows)
	if err != nil {
		return allocationdomain.PlayerExposure{}, fmt.Errorf("failed to fetch player exposure: %w", err)
	}

	exposure := allocationdomain.PlayerExposure{
		Tables:   make(map[sharedtypes.TableNumber]struct{}, len(rows)),
		Terrains: make(map[uuid.UUID]struct{}, len(rows)),
	}
	for _, row := range rows {
		if row.TableNumber != nil {
			exposure.Tables[*row.TableNumber] = struct{}{}
		}
		if row.TerrainTypeID != nil {
			exposure.Terrains[*row.TerrainTypeID] = struct{}{}
		}
	}
	return exposure, nil
}

var _ Repository = (*AllocationDBImpl)(nil)
