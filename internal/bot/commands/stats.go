package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/events"
	"github.com/rolewarden/rolewarden/internal/worker/core"
	"go.uber.org/zap"
)

// HandleStats reports the guild's tracking and ban counters, the time of the
// last reconciliation tick and the health of the background workers.
func (h *Handler) HandleStats(ctx context.Context, event *events.ApplicationCommandInteractionCreate) {
	guildID := uint64(*event.GuildID())

	entries, err := h.db.Service().Tracking().ListActive(ctx, guildID)
	if err != nil {
		h.logger.Error("Failed to count tracked roles", zap.Uint64("guildID", guildID), zap.Error(err))
		h.Respond(event, "Failed to gather statistics.")

		return
	}

	activeBans, err := h.db.Service().Ban().CountActive(ctx, guildID)
	if err != nil {
		h.logger.Error("Failed to count active bans", zap.Uint64("guildID", guildID), zap.Error(err))
		h.Respond(event, "Failed to gather statistics.")

		return
	}

	guilds, err := h.db.Model().Guild().GetAll(ctx)
	if err != nil {
		h.logger.Error("Failed to list managed guilds", zap.Error(err))
		h.Respond(event, "Failed to gather statistics.")

		return
	}

	lastTick := "never"
	if h.worker != nil {
		if t := h.worker.LastTick(); !t.IsZero() {
			lastTick = fmt.Sprintf("<t:%d:R>", t.Unix())
		}
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Tracked roles: %d\nActive temporary bans: %d\nManaged servers: %d\nLast reconciliation: %s",
		len(entries), activeBans, len(guilds), lastTick)

	if h.monitor != nil {
		statuses, err := h.monitor.GetAllStatuses(ctx)
		if err != nil {
			h.logger.Error("Failed to get worker statuses", zap.Error(err))
		} else {
			b.WriteString("\n")
			b.WriteString(formatWorkerStatuses(statuses))
		}
	}

	h.Respond(event, b.String())
}

// formatWorkerStatuses renders the heartbeat lines shown by the stats
// command. Workers whose TTL expired simply disappear from the list.
func formatWorkerStatuses(statuses []core.Status) string {
	if len(statuses) == 0 {
		return "Workers: none reporting"
	}

	var b strings.Builder

	b.WriteString("Workers:")

	for _, status := range statuses {
		health := "healthy"
		if !status.IsHealthy {
			health = "unhealthy"
		}

		fmt.Fprintf(&b, "\n- %s (%s): %s", status.WorkerType, health, status.CurrentTask)
	}

	return b.String()
}
