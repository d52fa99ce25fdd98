package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/rolewarden/rolewarden/internal/database/types"
	"go.uber.org/zap"
)

// HandleSetup provisions the managed server layout and persists the created
// role and channel IDs. Running it twice warns instead of duplicating the
// layout.
func (h *Handler) HandleSetup(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	guildID := uint64(*event.GuildID())

	existing, err := h.db.Model().Guild().Get(ctx, guildID)
	if err != nil {
		h.logger.Error("Failed to load guild record", zap.Uint64("guildID", guildID), zap.Error(err))
		h.Respond(event, "Failed to check setup state.")

		return
	}

	if existing != nil && existing.SetupDone {
		h.Respond(event, "This server is already set up. Remove the created roles and channels manually before running setup again.")
		return
	}

	channels, err := h.provisioner.ProvisionGuild(ctx, guildID)
	if err != nil {
		h.logger.Error("Failed to provision guild layout", zap.Uint64("guildID", guildID), zap.Error(err))
		h.Respond(event, "Failed to provision the server layout. Check that the bot has the Administrator permission.")

		return
	}

	guildName := ""
	if guild, err := event.Client().Rest().GetGuild(snowflake.ID(guildID), false, rest.WithCtx(ctx)); err == nil {
		guildName = guild.Name
	}

	guild := &types.Guild{
		ID:        guildID,
		Name:      guildName,
		SetupDone: true,
		UpdatedAt: time.Now(),
	}
	if err := h.db.Model().Guild().Upsert(ctx, guild); err != nil {
		h.logger.Error("Failed to store guild record", zap.Uint64("guildID", guildID), zap.Error(err))
		h.Respond(event, "Layout created but saving the guild record failed.")

		return
	}

	if err := h.db.Model().Channel().Upsert(ctx, channels); err != nil {
		h.logger.Error("Failed to store channel layout", zap.Uint64("guildID", guildID), zap.Error(err))
		h.Respond(event, "Layout created but saving the channel record failed.")

		return
	}

	if err := h.db.Model().Guild().MarkSetupDone(ctx, guildID); err != nil {
		h.logger.Error("Failed to mark setup done", zap.Uint64("guildID", guildID), zap.Error(err))
	}

	h.Respond(event, fmt.Sprintf(
		"Server setup complete.\n"+
			"Roles: <@&%d>, <@&%d> (admin), <@&%d>, <@&%d> (member)\n"+
			"Channels: <#%d> <#%d> <#%d> <#%d>\n"+
			"Admin only: <#%d> <#%d>\n"+
			"Voice channels: %d",
		channels.AdminRoleIDs[0], channels.AdminRoleIDs[1],
		channels.MemberRoleIDs[0], channels.MemberRoleIDs[1],
		channels.NewsID, channels.FloodID, channels.TagsID, channels.MediaID,
		channels.LogsID, channels.HighFloodID,
		len(channels.VoiceIDs)))
}
