package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	tournamentdb "github.com/crossed-lances/tablemaster/app/modules/tournament/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating tournaments, rounds, and tables tables...")
			for _, model := range []interface{}{
				(*tournamentdb.Tournament)(nil),
				(*tournamentdb.Round)(nil),
				(*tournamentdb.Table)(nil),
			} {
				if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
					return err
				}
			}
			fmt.Println("tournament tables created successfully!")
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping tournaments, rounds, and tables tables...")
			for _, model := range []interface{}{
				(*tournamentdb.Table)(nil),
				(*tournamentdb.Round)(nil),
				(*tournamentdb.Tournament)(nil),
			} {
				if _, err := db.NewDropTable().Model(model).IfExists().Cascade().Exec(ctx); err != nil {
					return err
				}
			}
			fmt.Println("tournament tables dropped successfully!")
			return nil
		},
	)
}
