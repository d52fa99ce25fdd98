package types

import "time"

// Guild represents a Discord server managed by the bot.
// Rows are created lazily on first reference and never deleted.
type Guild struct {
	ID        uint64    `bun:",pk"`      // Discord guild ID
	Name      string    `bun:",notnull"` // Guild display name
	SetupDone bool      `bun:",notnull"` // Whether the server layout has been provisioned
	UpdatedAt time.Time `bun:",notnull"` // When the record was last updated
}

// GuildChannels stores the channel and role IDs provisioned for a guild.
// Used to apply default permission overwrites when a new tracked role is created.
type GuildChannels struct {
	GuildID       uint64    `bun:",pk"`       // Discord guild ID
	NewsID        uint64    `bun:",notnull"`  // Read-only announcements channel
	FloodID       uint64    `bun:",notnull"`  // General chat channel
	TagsID        uint64    `bun:",notnull"`  // Admin-written tags channel
	MediaID       uint64    `bun:",notnull"`  // Media channel with attachments
	LogsID        uint64    `bun:",notnull"`  // Admin-only log channel
	HighFloodID   uint64    `bun:",notnull"`  // Admin-only chat channel
	VoiceIDs      []uint64  `bun:",array"`    // Voice channels
	AdminRoleIDs  []uint64  `bun:",array"`    // Administrator roles created at setup
	MemberRoleIDs []uint64  `bun:",array"`    // Member roles created at setup
	UpdatedAt     time.Time `bun:",notnull"`  // When the record was last updated
}

// TextChannelIDs returns the provisioned text channels that tracked roles
// should be granted access to by default.
func (c *GuildChannels) TextChannelIDs() []uint64 {
	return []uint64{c.NewsID, c.FloodID, c.TagsID, c.MediaID}
}
