package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/events"
	"github.com/rolewarden/rolewarden/internal/bot/constants"
	"github.com/rolewarden/rolewarden/internal/database/service"
	"go.uber.org/zap"
)

// HandleUnban lifts a member's ban ahead of its cooldown. The platform unban
// runs first so the record is only cleared once the user can actually rejoin.
func (h *Handler) HandleUnban(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	guildID := uint64(*event.GuildID())
	userID := uint64(data.Snowflake(constants.OptionUser))

	if err := h.actuator.UnbanMember(ctx, guildID, userID); err != nil {
		h.logger.Error("Failed to unban member",
			zap.Uint64("guildID", guildID),
			zap.Uint64("userID", userID),
			zap.Error(err))
		h.Respond(event, fmt.Sprintf("Failed to unban <@%d>.", userID))

		return
	}

	if err := h.db.Service().Ban().LiftMember(ctx, guildID, userID); err != nil {
		if errors.Is(err, service.ErrNoActiveBan) {
			h.Respond(event, fmt.Sprintf("<@%d> has no recorded ban. Any platform ban has been cleared.", userID))
			return
		}

		h.logger.Error("Failed to clear ban record",
			zap.Uint64("guildID", guildID),
			zap.Uint64("userID", userID),
			zap.Error(err))
		h.Respond(event, fmt.Sprintf("<@%d> was unbanned but clearing the record failed. The sweep will retry.", userID))

		return
	}

	h.Respond(event, fmt.Sprintf("Unbanned <@%d>.", userID))
}
