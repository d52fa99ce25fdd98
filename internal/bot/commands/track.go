package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/rolewarden/rolewarden/internal/bot/constants"
	"github.com/rolewarden/rolewarden/internal/database/service"
	"go.uber.org/zap"
)

// HandleTrackAdd registers a source role for tracking. Entries that share a
// source guild gate one local role; the first entry of a group creates that
// role, later ones reuse it.
func (h *Handler) HandleTrackAdd(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	guildID := uint64(*event.GuildID())

	sourceGuildID, err := snowflake.Parse(data.String(constants.OptionSourceGuildID))
	if err != nil {
		h.Respond(event, "Invalid source server ID.")
		return
	}

	sourceRoleID, err := snowflake.Parse(data.String(constants.OptionSourceRoleID))
	if err != nil {
		h.Respond(event, "Invalid source role ID.")
		return
	}

	entry, err := h.db.Service().Tracking().AddTrackedRole(
		ctx, guildID, uint64(sourceGuildID), uint64(sourceRoleID))
	if err != nil {
		h.logger.Error("Failed to add tracked role",
			zap.Uint64("guildID", guildID),
			zap.Uint64("sourceGuildID", uint64(sourceGuildID)),
			zap.Uint64("sourceRoleID", uint64(sourceRoleID)),
			zap.Error(err))
		h.Respond(event, "Failed to register the tracked role.")

		return
	}

	// First entry of its group: create the local role it will gate.
	if !entry.Resolved() {
		channels, err := h.db.Model().Channel().Get(ctx, guildID)
		if err != nil {
			h.logger.Error("Failed to load channel layout", zap.Uint64("guildID", guildID), zap.Error(err))
			h.Respond(event, "Tracked role registered but loading the channel layout failed.")

			return
		}

		name, ok := data.OptString(constants.OptionRoleName)
		if !ok || name == "" {
			name = fmt.Sprintf("linked-%d", sourceGuildID)
		}

		roleID, err := h.provisioner.CreateTrackedRole(ctx, guildID, name, channels)
		if err != nil {
			h.logger.Error("Failed to create local role",
				zap.Uint64("guildID", guildID),
				zap.Error(err))
			h.Respond(event, "Tracked role registered but creating the local role failed. Re-run the command to retry.")

			return
		}

		if err := h.db.Service().Tracking().ResolveTargetRole(ctx, entry.ID, roleID); err != nil {
			h.logger.Error("Failed to resolve local role",
				zap.Uint64("trackedRoleID", entry.ID),
				zap.Uint64("roleID", roleID),
				zap.Error(err))
			h.Respond(event, "Local role created but linking it failed. Re-run the command to retry.")

			return
		}

		entry.LocalRoleID = roleID
	}

	h.Respond(event, fmt.Sprintf(
		"Tracking role `%d` from server `%d` as entry #%d, gating <@&%d>.",
		sourceRoleID, sourceGuildID, entry.ID, entry.LocalRoleID))
}

// HandleTrackRemove deactivates a tracked entry, strips the local role from
// current holders and deletes the role when no other entry still uses it.
func (h *Handler) HandleTrackRemove(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()
	guildID := uint64(*event.GuildID())

	trackedRoleID := uint64(data.Int(constants.OptionTrackedRoleID))

	entry, err := h.db.Service().Tracking().GetByID(ctx, trackedRoleID)
	if err != nil {
		h.logger.Error("Failed to load tracked role", zap.Uint64("trackedRoleID", trackedRoleID), zap.Error(err))
		h.Respond(event, "Failed to look up the tracked role.")

		return
	}

	if entry == nil || entry.GuildID != guildID {
		h.Respond(event, fmt.Sprintf("No tracked role entry #%d exists in this server.", trackedRoleID))
		return
	}

	entry, orphaned, err := h.db.Service().Tracking().Deactivate(ctx, trackedRoleID)
	if err != nil {
		if errors.Is(err, service.ErrTrackedRoleNotFound) {
			h.Respond(event, fmt.Sprintf("Tracked role entry #%d is not active.", trackedRoleID))
			return
		}

		h.logger.Error("Failed to deactivate tracked role", zap.Uint64("trackedRoleID", trackedRoleID), zap.Error(err))
		h.Respond(event, "Failed to remove the tracked role.")

		return
	}

	if !entry.Resolved() {
		h.Respond(event, fmt.Sprintf("Stopped tracking entry #%d.", trackedRoleID))
		return
	}

	revoked, err := h.actuator.RevokeRoleFromHolders(ctx, guildID, entry.LocalRoleID)
	if err != nil {
		h.logger.Error("Failed to revoke role from holders",
			zap.Uint64("guildID", guildID),
			zap.Uint64("roleID", entry.LocalRoleID),
			zap.Error(err))
	}

	if orphaned {
		if err := h.actuator.DeleteRole(ctx, guildID, entry.LocalRoleID); err != nil {
			h.logger.Error("Failed to delete orphaned role",
				zap.Uint64("guildID", guildID),
				zap.Uint64("roleID", entry.LocalRoleID),
				zap.Error(err))
			h.Respond(event, fmt.Sprintf(
				"Stopped tracking entry #%d and revoked the role from %d members, but deleting the role failed.",
				trackedRoleID, revoked))

			return
		}

		h.Respond(event, fmt.Sprintf(
			"Stopped tracking entry #%d, revoked the role from %d members and deleted the now unused role.",
			trackedRoleID, revoked))

		return
	}

	h.Respond(event, fmt.Sprintf(
		"Stopped tracking entry #%d and revoked the role from %d members. The role is still gated by other entries.",
		trackedRoleID, revoked))
}

// HandleTrackList shows the guild's active tracked entries, newest first.
func (h *Handler) HandleTrackList(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	guildID := uint64(*event.GuildID())

	entries, err := h.db.Service().Tracking().ListActive(ctx, guildID)
	if err != nil {
		h.logger.Error("Failed to list tracked roles", zap.Uint64("guildID", guildID), zap.Error(err))
		h.Respond(event, "Failed to list tracked roles.")

		return
	}

	if len(entries) == 0 {
		h.Respond(event, "No roles are being tracked in this server.")
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Tracking %d role(s):\n", len(entries)))

	for _, entry := range entries {
		if entry.Resolved() {
			sb.WriteString(fmt.Sprintf("#%d: role `%d` in server `%d` gates <@&%d>\n",
				entry.ID, entry.SourceRoleID, entry.SourceGuildID, entry.LocalRoleID))
		} else {
			sb.WriteString(fmt.Sprintf("#%d: role `%d` in server `%d` (local role pending)\n",
				entry.ID, entry.SourceRoleID, entry.SourceGuildID))
		}
	}

	h.Respond(event, sb.String())
}
