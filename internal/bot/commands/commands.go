// Package commands implements the admin slash command handlers.
package commands

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/rolewarden/rolewarden/internal/database"
	rwdiscord "github.com/rolewarden/rolewarden/internal/discord"
	"github.com/rolewarden/rolewarden/internal/worker/core"
	"github.com/rolewarden/rolewarden/internal/worker/reconcile"
	"go.uber.org/zap"
)

// Handler executes the admin command surface. Every handler runs after the
// interaction has been deferred and responds by editing the deferred message.
type Handler struct {
	db          database.Client
	provisioner *rwdiscord.Provisioner
	actuator    *rwdiscord.Actuator
	worker      *reconcile.Worker
	monitor     *core.Monitor
	logger      *zap.Logger
}

// NewHandler creates the command handler.
func NewHandler(
	db database.Client,
	provisioner *rwdiscord.Provisioner,
	actuator *rwdiscord.Actuator,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		db:          db,
		provisioner: provisioner,
		actuator:    actuator,
		logger:      logger.Named("commands"),
	}
}

// SetWorker links the reconciliation worker once it has been constructed.
// The sync and stats commands report "not ready" until then.
func (h *Handler) SetWorker(worker *reconcile.Worker) {
	h.worker = worker
}

// SetMonitor links the worker status monitor so the stats command can show
// heartbeat health.
func (h *Handler) SetMonitor(monitor *core.Monitor) {
	h.monitor = monitor
}

// Respond edits the deferred interaction response with the given content.
func (h *Handler) Respond(event *events.ApplicationCommandInteractionCreate, content string) {
	_, err := event.Client().Rest().UpdateInteractionResponse(
		event.ApplicationID(), event.Token(),
		discord.NewMessageUpdateBuilder().SetContent(content).Build())
	if err != nil {
		h.logger.Error("Failed to respond to interaction", zap.Error(err))
	}
}
