package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rolewarden/rolewarden/internal/database/dbretry"
	"github.com/rolewarden/rolewarden/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ChannelModel handles database operations for provisioned channel layouts.
type ChannelModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewChannel creates a new channel model instance.
func NewChannel(db *bun.DB, logger *zap.Logger) *ChannelModel {
	return &ChannelModel{
		db:     db,
		logger: logger.Named("db_channel"),
	}
}

// Upsert stores the channel and role IDs created during guild setup.
func (m *ChannelModel) Upsert(ctx context.Context, channels *types.GuildChannels) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(channels).
			On("CONFLICT (guild_id) DO UPDATE").
			Set("news_id = EXCLUDED.news_id").
			Set("flood_id = EXCLUDED.flood_id").
			Set("tags_id = EXCLUDED.tags_id").
			Set("media_id = EXCLUDED.media_id").
			Set("logs_id = EXCLUDED.logs_id").
			Set("high_flood_id = EXCLUDED.high_flood_id").
			Set("voice_ids = EXCLUDED.voice_ids").
			Set("admin_role_ids = EXCLUDED.admin_role_ids").
			Set("member_role_ids = EXCLUDED.member_role_ids").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert guild channels: %w", err)
		}

		m.logger.Debug("Upserted guild channels", zap.Uint64("guildID", channels.GuildID))

		return nil
	})
}

// Get returns the provisioned channel layout for a guild, or nil if the
// guild has not been set up yet.
func (m *ChannelModel) Get(ctx context.Context, guildID uint64) (*types.GuildChannels, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.GuildChannels, error) {
		var channels types.GuildChannels

		err := m.db.NewSelect().
			Model(&channels).
			Where("guild_id = ?", guildID).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		if err != nil {
			return nil, fmt.Errorf("failed to get guild channels: %w", err)
		}

		return &channels, nil
	})
}
