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

// BanModel handles database operations for temporary bans.
type BanModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewBan creates a new ban model instance.
func NewBan(db *bun.DB, logger *zap.Logger) *BanModel {
	return &BanModel{
		db:     db,
		logger: logger.Named("db_ban"),
	}
}

// Insert stores a new temporary ban. The partial unique index on
// (guild_id, user_id) WHERE NOT unbanned makes a concurrent double-ban a
// no-op rather than a duplicate row.
func (m *BanModel) Insert(ctx context.Context, ban *types.TempBan) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(ban).
			On("CONFLICT (guild_id, user_id) WHERE NOT unbanned DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert temp ban: %w", err)
		}

		m.logger.Debug("Inserted temp ban",
			zap.Uint64("guildID", ban.GuildID),
			zap.Uint64("userID", ban.UserID),
			zap.Time("unbanAt", ban.UnbanAt))

		return nil
	})
}

// GetActive returns the in-force ban for a member, or nil if none exists.
func (m *BanModel) GetActive(ctx context.Context, guildID, userID uint64) (*types.TempBan, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.TempBan, error) {
		var ban types.TempBan

		err := m.db.NewSelect().
			Model(&ban).
			Where("guild_id = ?", guildID).
			Where("user_id = ?", userID).
			Where("NOT unbanned").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get active temp ban: %w", err)
		}

		return &ban, nil
	})
}

// GetExpired returns in-force bans whose cooldown has elapsed, oldest first,
// across all guilds.
func (m *BanModel) GetExpired(ctx context.Context, now time.Time, limit int) ([]*types.TempBan, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.TempBan, error) {
		var bans []*types.TempBan

		err := m.db.NewSelect().
			Model(&bans).
			Where("NOT unbanned").
			Where("unban_at <= ?", now).
			Order("unban_at ASC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get expired temp bans: %w", err)
		}

		return bans, nil
	})
}

// MarkUnbanned clears a ban row after the platform unban has succeeded.
func (m *BanModel) MarkUnbanned(ctx context.Context, banID uint64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.TempBan)(nil)).
			Set("unbanned = TRUE").
			Set("updated_at = ?", time.Now()).
			Where("id = ?", banID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark temp ban unbanned: %w", err)
		}

		return nil
	})
}

// MarkUnbannedByMember clears the in-force ban for a member, if any.
// Returns whether a row was updated.
func (m *BanModel) MarkUnbannedByMember(ctx context.Context, guildID, userID uint64) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		res, err := m.db.NewUpdate().
			Model((*types.TempBan)(nil)).
			Set("unbanned = TRUE").
			Set("updated_at = ?", time.Now()).
			Where("guild_id = ?", guildID).
			Where("user_id = ?", userID).
			Where("NOT unbanned").
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to mark member unbanned: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to read affected rows: %w", err)
		}

		return affected > 0, nil
	})
}

// CountActive returns how many bans are currently in force for a guild.
func (m *BanModel) CountActive(ctx context.Context, guildID uint64) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := m.db.NewSelect().
			Model((*types.TempBan)(nil)).
			Where("guild_id = ?", guildID).
			Where("NOT unbanned").
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count active temp bans: %w", err)
		}

		return count, nil
	})
}
