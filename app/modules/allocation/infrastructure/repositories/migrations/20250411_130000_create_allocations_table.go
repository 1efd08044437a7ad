package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	allocationdb "github.com/crossed-lances/tablemaster/app/modules/allocation/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating allocations table...")
			if _, err := db.NewCreateTable().Model((*allocationdb.Allocation)(nil)).IfNotExists().Exec(ctx); err != nil {
				return err
			}
			if _, err := db.NewCreateIndex().
				Model((*allocationdb.Allocation)(nil)).
				Index("idx_allocations_round_id").
				Column("round_id").
				IfNotExists().
				Exec(ctx); err != nil {
				return err
			}
			if _, err := db.NewCreateIndex().
				Model((*allocationdb.Allocation)(nil)).
				Index("idx_allocations_players").
				Column("player1_id", "player2_id").
				IfNotExists().
				Exec(ctx); err != nil {
				return err
			}
			fmt.Println("allocations table created successfully!")
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping allocations table...")
			if _, err := db.NewDropTable().Model((*allocationdb.Allocation)(nil)).IfExists().Cascade().Exec(ctx); err != nil {
				return err
			}
			fmt.Println("allocations table dropped successfully!")
			return nil
		},
	)
}
