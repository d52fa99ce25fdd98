// Package bot owns the Discord client and routes admin slash commands.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/json"
	"go.uber.org/zap"

	"github.com/rolewarden/rolewarden/internal/bot/commands"
	"github.com/rolewarden/rolewarden/internal/bot/constants"
	"github.com/rolewarden/rolewarden/internal/database"
	"github.com/rolewarden/rolewarden/internal/database/types"
	rwdiscord "github.com/rolewarden/rolewarden/internal/discord"
	"github.com/rolewarden/rolewarden/internal/worker/core"
	"github.com/rolewarden/rolewarden/internal/worker/reconcile"
)

// commandTimeout bounds a single command execution. Setup creates sixteen
// roles and channels, so this is generous.
const commandTimeout = 2 * time.Minute

// Bot wires the Discord gateway connection to the command handlers.
type Bot struct {
	db      database.Client
	client  bot.Client
	handler *commands.Handler
	logger  *zap.Logger
}

// New creates the Discord client with its gateway intents and event
// listeners and builds the command handlers on top of its REST client.
func New(token string, db database.Client, logger *zap.Logger) (*Bot, error) {
	b := &Bot{
		db:     db,
		logger: logger.Named("bot"),
	}

	client, err := disgo.New(token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(gateway.IntentGuilds),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnApplicationCommandInteraction: b.handleApplicationCommandInteraction,
			OnGuildJoin:                     b.handleGuildJoin,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}

	b.client = client
	b.handler = commands.NewHandler(db,
		rwdiscord.NewProvisioner(client.Rest(), logger),
		rwdiscord.NewActuator(client.Rest(), logger),
		logger)

	return b, nil
}

// Rest exposes the client's REST layer so the reconciliation collaborators
// share one rate-limited client with the command handlers.
func (b *Bot) Rest() rest.Rest {
	return b.client.Rest()
}

// SetWorker links the reconciliation worker once it has been constructed.
func (b *Bot) SetWorker(worker *reconcile.Worker) {
	b.handler.SetWorker(worker)
}

// SetMonitor links the worker status monitor for the stats command.
func (b *Bot) SetMonitor(monitor *core.Monitor) {
	b.handler.SetMonitor(monitor)
}

// Start registers the global commands and opens the gateway connection.
func (b *Bot) Start() error {
	b.logger.Info("Registering commands")

	_, err := b.client.Rest().SetGlobalCommands(b.client.ApplicationID(), commandCreates())
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	b.logger.Info("Starting bot")

	return b.client.OpenGateway(context.Background())
}

// Close gracefully shuts down the gateway connection.
func (b *Bot) Close() {
	b.logger.Info("Closing bot")
	b.client.Close(context.Background())
}

// handleApplicationCommandInteraction defers the response, enforces the
// guild-only and administrator requirements, then dispatches to the handler.
func (b *Bot) handleApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	go func() {
		if err := event.DeferCreateMessage(true); err != nil {
			b.logger.Error("Failed to defer create message", zap.Error(err))
			return
		}

		data := event.SlashCommandInteractionData()

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in command handler", zap.Any("panic", r))
				b.handler.Respond(event, "Internal error. Please report this to an administrator.")
			}

			b.logger.Debug("Command handled",
				zap.String("command", data.CommandName()),
				zap.Duration("duration", time.Since(start)))
		}()

		// Ping is a plain liveness check, open to everyone.
		if data.CommandName() == constants.PingCommandName {
			b.handler.HandlePing(event)
			return
		}

		if event.GuildID() == nil {
			b.handler.Respond(event, "Commands can only be used inside a server.")
			return
		}

		member := event.Member()
		if member == nil || !member.Permissions.Has(discord.PermissionAdministrator) {
			b.handler.Respond(event, "You need the Administrator permission to use this command.")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		switch data.CommandName() {
		case constants.SetupCommandName:
			b.handler.HandleSetup(ctx, event)

		case constants.TrackCommandName:
			sub := ""
			if data.SubCommandName != nil {
				sub = *data.SubCommandName
			}

			switch sub {
			case constants.TrackAddSubcommand:
				b.handler.HandleTrackAdd(ctx, event)
			case constants.TrackRemoveSubcommand:
				b.handler.HandleTrackRemove(ctx, event)
			case constants.TrackListSubcommand:
				b.handler.HandleTrackList(ctx, event)
			default:
				b.handler.Respond(event, "This command is not available.")
			}

		case constants.SyncCommandName:
			b.handler.HandleSync(ctx, event)

		case constants.UnbanCommandName:
			b.handler.HandleUnban(ctx, event)

		case constants.StatsCommandName:
			b.handler.HandleStats(ctx, event)

		default:
			b.handler.Respond(event, "This command is not available.")
		}
	}()
}

// handleGuildJoin records the guild so its name shows up in management
// tooling even before setup runs.
func (b *Bot) handleGuildJoin(event *events.GuildJoin) {
	b.logger.Info("Joined guild",
		zap.String("guildID", event.Guild.ID.String()),
		zap.String("guild_name", event.Guild.Name))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	guild := &types.Guild{
		ID:        uint64(event.Guild.ID),
		Name:      event.Guild.Name,
		UpdatedAt: time.Now(),
	}
	if err := b.db.Model().Guild().Upsert(ctx, guild); err != nil {
		b.logger.Error("Failed to record joined guild",
			zap.String("guildID", event.Guild.ID.String()),
			zap.Error(err))
	}
}

// commandCreates declares the admin command surface.
func commandCreates() []discord.ApplicationCommandCreate {
	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:         constants.SetupCommandName,
			Description:  "Provision the managed roles and channels",
			DMPermission: json.Ptr(false),
		},
		discord.SlashCommandCreate{
			Name:         constants.TrackCommandName,
			Description:  "Manage roles tracked from other servers",
			DMPermission: json.Ptr(false),
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionSubCommand{
					Name:        constants.TrackAddSubcommand,
					Description: "Track a role from another server",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionString{
							Name:        constants.OptionSourceGuildID,
							Description: "ID of the source server",
							Required:    true,
						},
						discord.ApplicationCommandOptionString{
							Name:        constants.OptionSourceRoleID,
							Description: "ID of the role in the source server",
							Required:    true,
						},
						discord.ApplicationCommandOptionString{
							Name:        constants.OptionRoleName,
							Description: "Name for the local role (first tracked role of a server only)",
						},
					},
				},
				discord.ApplicationCommandOptionSubCommand{
					Name:        constants.TrackRemoveSubcommand,
					Description: "Stop tracking a role",
					Options: []discord.ApplicationCommandOption{
						discord.ApplicationCommandOptionInt{
							Name:        constants.OptionTrackedRoleID,
							Description: "Entry number shown by /track list",
							Required:    true,
						},
					},
				},
				discord.ApplicationCommandOptionSubCommand{
					Name:        constants.TrackListSubcommand,
					Description: "List tracked roles",
				},
			},
		},
		discord.SlashCommandCreate{
			Name:         constants.SyncCommandName,
			Description:  "Reconcile one member right now",
			DMPermission: json.Ptr(false),
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        constants.OptionUser,
					Description: "Member to reconcile",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:         constants.UnbanCommandName,
			Description:  "Lift a temporary ban ahead of its cooldown",
			DMPermission: json.Ptr(false),
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        constants.OptionUser,
					Description: "User to unban",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:         constants.StatsCommandName,
			Description:  "Show tracking and ban statistics",
			DMPermission: json.Ptr(false),
		},
		discord.SlashCommandCreate{
			Name:         constants.PingCommandName,
			Description:  "Check that the bot is responsive",
			DMPermission: json.Ptr(false),
		},
	}
}
