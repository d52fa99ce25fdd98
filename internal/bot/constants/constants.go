package constants

const (
	// Command names registered with Discord.
	SetupCommandName = "setup"
	TrackCommandName = "track"
	SyncCommandName  = "sync"
	UnbanCommandName = "unban"
	StatsCommandName = "stats"
	PingCommandName  = "ping"

	// /track subcommands.
	TrackAddSubcommand    = "add"
	TrackRemoveSubcommand = "remove"
	TrackListSubcommand   = "list"

	// Option names.
	OptionSourceGuildID = "source_guild_id"
	OptionSourceRoleID  = "source_role_id"
	OptionRoleName      = "role_name"
	OptionTrackedRoleID = "tracked_role_id"
	OptionUser          = "user"
)
