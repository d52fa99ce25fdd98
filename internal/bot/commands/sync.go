package commands

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/events"
	"github.com/rolewarden/rolewarden/internal/bot/constants"
	"go.uber.org/zap"
)

// HandleSync forces an immediate reconciliation of one member instead of
// waiting for their slot in the batch rotation.
func (h *Handler) HandleSync(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	if h.worker == nil {
		h.Respond(event, "The reconciler is not running yet. Try again shortly.")
		return
	}

	data := event.SlashCommandInteractionData()
	guildID := uint64(*event.GuildID())
	userID := uint64(data.Snowflake(constants.OptionUser))

	if err := h.worker.Engine().SyncMember(ctx, guildID, userID); err != nil {
		h.logger.Error("Failed to sync member",
			zap.Uint64("guildID", guildID),
			zap.Uint64("userID", userID),
			zap.Error(err))
		h.Respond(event, fmt.Sprintf("Failed to sync <@%d>.", userID))

		return
	}

	h.Respond(event, fmt.Sprintf("Synced <@%d> against all tracked roles.", userID))
}
