package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			// One active entry per tracked-role key; deactivated rows may repeat.
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_tracked_roles_active_key
				ON tracked_roles (guild_id, source_guild_id, source_role_id)
				WHERE active`,
			`CREATE INDEX IF NOT EXISTS idx_tracked_roles_guild_active
				ON tracked_roles (guild_id)
				WHERE active`,
			`CREATE INDEX IF NOT EXISTS idx_tracked_roles_local_role
				ON tracked_roles (local_role_id)
				WHERE active`,
			// One in-force ban per (guild, user).
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_temp_bans_active_member
				ON temp_bans (guild_id, user_id)
				WHERE NOT unbanned`,
			// Sweep scans by expiry across all guilds.
			`CREATE INDEX IF NOT EXISTS idx_temp_bans_expiry
				ON temp_bans (unban_at)
				WHERE NOT unbanned`,
		}

		for _, index := range indexes {
			if _, err := db.ExecContext(ctx, index); err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"DROP INDEX IF EXISTS idx_tracked_roles_active_key",
			"DROP INDEX IF EXISTS idx_tracked_roles_guild_active",
			"DROP INDEX IF EXISTS idx_tracked_roles_local_role",
			"DROP INDEX IF EXISTS idx_temp_bans_active_member",
			"DROP INDEX IF EXISTS idx_temp_bans_expiry",
		}

		for _, index := range indexes {
			if _, err := db.ExecContext(ctx, index); err != nil {
				return fmt.Errorf("failed to drop index: %w", err)
			}
		}

		return nil
	})
}
