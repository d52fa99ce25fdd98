package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rolewarden/rolewarden/internal/database/dbretry"
	"github.com/rolewarden/rolewarden/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// TrackedRoleModel handles database operations for tracked-role entries.
type TrackedRoleModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewTrackedRole creates a new tracked role model instance.
func NewTrackedRole(db *bun.DB, logger *zap.Logger) *TrackedRoleModel {
	return &TrackedRoleModel{
		db:     db,
		logger: logger.Named("db_tracked_role"),
	}
}

// upsertAction is how an add request maps onto existing rows.
type upsertAction int

const (
	upsertReuse upsertAction = iota
	upsertReactivate
	upsertInsert
)

// planUpsert decides the write for a tracked-role add. An active row is
// reused as is, a deactivated row is revived under its original ID, and
// only a missing key produces a new record.
func planUpsert(
	existing *types.TrackedRole, guildID, sourceGuildID, sourceRoleID uint64, now time.Time,
) (*types.TrackedRole, upsertAction) {
	switch {
	case existing == nil:
		return &types.TrackedRole{
			GuildID:       guildID,
			SourceGuildID: sourceGuildID,
			SourceRoleID:  sourceRoleID,
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}, upsertInsert

	case existing.Active:
		return existing, upsertReuse

	default:
		existing.Active = true
		existing.UpdatedAt = now

		return existing, upsertReactivate
	}
}

// Upsert inserts a tracked-role entry or revives an existing one with the
// same key. Re-adding an active key returns the existing record unchanged;
// re-adding a deactivated key reactivates it instead of duplicating.
func (m *TrackedRoleModel) Upsert(
	ctx context.Context, guildID, sourceGuildID, sourceRoleID uint64,
) (*types.TrackedRole, error) {
	var result *types.TrackedRole

	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		var existing types.TrackedRole

		err := tx.NewSelect().
			Model(&existing).
			Where("guild_id = ?", guildID).
			Where("source_guild_id = ?", sourceGuildID).
			Where("source_role_id = ?", sourceRoleID).
			Order("created_at DESC").
			Limit(1).
			Scan(ctx)

		found := err == nil
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to look up tracked role: %w", err)
		}

		var match *types.TrackedRole
		if found {
			match = &existing
		}

		entry, action := planUpsert(match, guildID, sourceGuildID, sourceRoleID, time.Now())

		switch action {
		case upsertInsert:
			_, err = tx.NewInsert().
				Model(entry).
				Returning("id").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to insert tracked role: %w", err)
			}

			m.logger.Debug("Inserted tracked role",
				zap.Uint64("trackedRoleID", entry.ID),
				zap.Uint64("guildID", guildID),
				zap.Uint64("sourceGuildID", sourceGuildID),
				zap.Uint64("sourceRoleID", sourceRoleID))

		case upsertReactivate:
			_, err = tx.NewUpdate().
				Model(entry).
				Column("active", "updated_at").
				WherePK().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to reactivate tracked role: %w", err)
			}

			m.logger.Debug("Reactivated tracked role",
				zap.Uint64("trackedRoleID", entry.ID),
				zap.Uint64("guildID", guildID))

		case upsertReuse:
		}

		result = entry

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ResolveTargetRole records which local role a tracked entry maps to.
// Until resolved, the entry contributes no access.
func (m *TrackedRoleModel) ResolveTargetRole(ctx context.Context, trackedRoleID, localRoleID uint64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.TrackedRole)(nil)).
			Set("local_role_id = ?", localRoleID).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", trackedRoleID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve tracked role target: %w", err)
		}

		return nil
	})
}

// GetByID returns a tracked-role entry by its primary key, or nil if none exists.
func (m *TrackedRoleModel) GetByID(ctx context.Context, trackedRoleID uint64) (*types.TrackedRole, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.TrackedRole, error) {
		var entry types.TrackedRole

		err := m.db.NewSelect().
			Model(&entry).
			Where("id = ?", trackedRoleID).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get tracked role: %w", err)
		}

		return &entry, nil
	})
}

// GetActiveByGuild returns all active entries for a guild, newest first.
func (m *TrackedRoleModel) GetActiveByGuild(ctx context.Context, guildID uint64) ([]*types.TrackedRole, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.TrackedRole, error) {
		var entries []*types.TrackedRole

		err := m.db.NewSelect().
			Model(&entries).
			Where("guild_id = ?", guildID).
			Where("active").
			Order("created_at DESC", "id DESC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get active tracked roles: %w", err)
		}

		return entries, nil
	})
}

// Deactivate sets active=false on an entry. Revoking the local role from
// current holders is the caller's responsibility.
func (m *TrackedRoleModel) Deactivate(ctx context.Context, trackedRoleID uint64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.TrackedRole)(nil)).
			Set("active = FALSE").
			Set("updated_at = ?", time.Now()).
			Where("id = ?", trackedRoleID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to deactivate tracked role: %w", err)
		}

		m.logger.Debug("Deactivated tracked role", zap.Uint64("trackedRoleID", trackedRoleID))

		return nil
	})
}

// CountUsages returns how many active entries still resolve to the given
// local role. A count of zero means the local role is orphaned.
func (m *TrackedRoleModel) CountUsages(ctx context.Context, localRoleID uint64) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := m.db.NewSelect().
			Model((*types.TrackedRole)(nil)).
			Where("local_role_id = ?", localRoleID).
			Where("active").
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count tracked role usages: %w", err)
		}

		return count, nil
	})
}

// GetGuildsWithActive returns the IDs of guilds that have at least one
// active tracked role.
func (m *TrackedRoleModel) GetGuildsWithActive(ctx context.Context) ([]uint64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]uint64, error) {
		var guildIDs []uint64

		err := m.db.NewSelect().
			Model((*types.TrackedRole)(nil)).
			ColumnExpr("DISTINCT guild_id").
			Where("active").
			Order("guild_id ASC").
			Scan(ctx, &guildIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to get guilds with active tracked roles: %w", err)
		}

		return guildIDs, nil
	})
}
