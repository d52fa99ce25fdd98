package migrations

import (
	"context"
	"fmt"

	"github.com/rolewarden/rolewarden/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.Guild)(nil),
			(*types.GuildChannels)(nil),
			(*types.TrackedRole)(nil),
			(*types.TempBan)(nil),
		}

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.TempBan)(nil),
			(*types.TrackedRole)(nil),
			(*types.GuildChannels)(nil),
			(*types.Guild)(nil),
		}

		for _, model := range models {
			_, err := db.NewDropTable().
				Model(model).
				IfExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table for %T: %w", model, err)
			}
		}

		return nil
	})
}
