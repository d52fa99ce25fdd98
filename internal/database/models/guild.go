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

// GuildModel handles database operations for managed guilds.
type GuildModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewGuild creates a new guild model instance.
func NewGuild(db *bun.DB, logger *zap.Logger) *GuildModel {
	return &GuildModel{
		db:     db,
		logger: logger.Named("db_guild"),
	}
}

// Upsert creates or refreshes a guild record. Guilds are created lazily on
// first reference and never deleted.
func (m *GuildModel) Upsert(ctx context.Context, guild *types.Guild) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(guild).
			On("CONFLICT (id) DO UPDATE").
			Set("name = EXCLUDED.name").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert guild: %w", err)
		}

		return nil
	})
}

// Get returns the guild record for the given ID, or nil if none exists.
func (m *GuildModel) Get(ctx context.Context, guildID uint64) (*types.Guild, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Guild, error) {
		var guild types.Guild

		err := m.db.NewSelect().
			Model(&guild).
			Where("id = ?", guildID).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get guild: %w", err)
		}

		return &guild, nil
	})
}

// MarkSetupDone records that the guild's server layout has been provisioned.
func (m *GuildModel) MarkSetupDone(ctx context.Context, guildID uint64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Guild)(nil)).
			Set("setup_done = TRUE").
			Set("updated_at = ?", time.Now()).
			Where("id = ?", guildID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark guild setup done: %w", err)
		}

		m.logger.Debug("Marked guild setup done", zap.Uint64("guildID", guildID))

		return nil
	})
}

// GetAll returns every managed guild.
func (m *GuildModel) GetAll(ctx context.Context) ([]*types.Guild, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Guild, error) {
		var guilds []*types.Guild

		err := m.db.NewSelect().
			Model(&guilds).
			Order("id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get guilds: %w", err)
		}

		return guilds, nil
	})
}
