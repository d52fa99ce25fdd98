package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
	"github.com/rolewarden/rolewarden/internal/database/types"
	"go.uber.org/zap"
)

const (
	colorRed    = 0xE74C3C
	colorBlue   = 0x3498DB
	colorGreen  = 0x2ECC71
	colorOrange = 0xE67E22

	provisionReason = "Server layout provisioning"

	memberPermissions = discord.PermissionViewChannel |
		discord.PermissionSendMessages |
		discord.PermissionConnect |
		discord.PermissionSpeak
)

// Provisioner creates the managed server layout: two admin roles, two member
// roles, the public text channels (news, flood, tags, media), the admin-only
// channels (logs, high-flood) and four voice channels, all with permission
// overwrites that hide them from everyone else.
type Provisioner struct {
	rest   rest.Rest
	logger *zap.Logger
}

// NewProvisioner creates a provisioner backed by the Discord REST API.
func NewProvisioner(restClient rest.Rest, logger *zap.Logger) *Provisioner {
	return &Provisioner{
		rest:   restClient,
		logger: logger.Named("provision"),
	}
}

// ProvisionGuild builds the full layout in the guild and returns the created
// role and channel IDs for persistence.
func (p *Provisioner) ProvisionGuild(ctx context.Context, guildID uint64) (*types.GuildChannels, error) {
	adminRed, err := p.createRole(ctx, guildID, "Admin-1", discord.PermissionAdministrator, colorRed)
	if err != nil {
		return nil, fmt.Errorf("failed to create first admin role: %w", err)
	}

	adminBlue, err := p.createRole(ctx, guildID, "Admin-2", discord.PermissionAdministrator, colorBlue)
	if err != nil {
		return nil, fmt.Errorf("failed to create second admin role: %w", err)
	}

	memberGreen, err := p.createRole(ctx, guildID, "Member-1", memberPermissions, colorGreen)
	if err != nil {
		return nil, fmt.Errorf("failed to create first member role: %w", err)
	}

	memberOrange, err := p.createRole(ctx, guildID, "Member-2", memberPermissions, colorOrange)
	if err != nil {
		return nil, fmt.Errorf("failed to create second member role: %w", err)
	}

	p.logger.Info("Created layout roles", zap.Uint64("guildID", guildID))

	adminIDs := []uint64{adminRed, adminBlue}
	memberIDs := []uint64{memberGreen, memberOrange}

	// Members can see news and tags but only admins post there.
	readOnly := layoutOverwrites(guildID, adminIDs, memberIDs,
		discord.PermissionViewChannel,
		discord.PermissionSendMessages)

	// Flood is open to everyone with a member role.
	open := layoutOverwrites(guildID, adminIDs, memberIDs,
		discord.PermissionViewChannel|discord.PermissionSendMessages,
		discord.PermissionsNone)

	// Media additionally allows file uploads.
	media := layoutOverwrites(guildID, adminIDs, memberIDs,
		discord.PermissionViewChannel|discord.PermissionSendMessages|discord.PermissionAttachFiles,
		discord.PermissionsNone)

	// Logs and high-flood are hidden from member roles entirely.
	adminOnly := layoutOverwrites(guildID, adminIDs, nil,
		discord.PermissionsNone,
		discord.PermissionsNone)

	voice := layoutOverwrites(guildID, adminIDs, memberIDs,
		discord.PermissionViewChannel|discord.PermissionConnect|discord.PermissionSpeak,
		discord.PermissionsNone)

	newsID, err := p.createTextChannel(ctx, guildID, "news", "Server announcements (read only)", readOnly)
	if err != nil {
		return nil, err
	}

	floodID, err := p.createTextChannel(ctx, guildID, "flood", "General chat for everyone", open)
	if err != nil {
		return nil, err
	}

	tagsID, err := p.createTextChannel(ctx, guildID, "tags", "Tags (admins post, members read)", readOnly)
	if err != nil {
		return nil, err
	}

	mediaID, err := p.createTextChannel(ctx, guildID, "media", "Media content", media)
	if err != nil {
		return nil, err
	}

	logsID, err := p.createTextChannel(ctx, guildID, "logs", "Server logs (admins only)", adminOnly)
	if err != nil {
		return nil, err
	}

	highFloodID, err := p.createTextChannel(ctx, guildID, "high-flood", "Staff chat (admins only)", adminOnly)
	if err != nil {
		return nil, err
	}

	voiceIDs := make([]uint64, 0, 4)
	for i := 1; i <= 4; i++ {
		voiceID, err := p.createVoiceChannel(ctx, guildID, fmt.Sprintf("Voice-%d", i), voice)
		if err != nil {
			return nil, err
		}

		voiceIDs = append(voiceIDs, voiceID)
	}

	p.logger.Info("Created layout channels",
		zap.Uint64("guildID", guildID),
		zap.Int("textChannels", 6),
		zap.Int("voiceChannels", len(voiceIDs)))

	return &types.GuildChannels{
		GuildID:       guildID,
		NewsID:        newsID,
		FloodID:       floodID,
		TagsID:        tagsID,
		MediaID:       mediaID,
		LogsID:        logsID,
		HighFloodID:   highFloodID,
		VoiceIDs:      voiceIDs,
		AdminRoleIDs:  adminIDs,
		MemberRoleIDs: memberIDs,
		UpdatedAt:     time.Now(),
	}, nil
}

// CreateTrackedRole creates the local role gated by a tracked-role group and
// grants it access to the provisioned channels. A guild that never ran setup
// gets the role without channel overwrites.
func (p *Provisioner) CreateTrackedRole(
	ctx context.Context, guildID uint64, name string, channels *types.GuildChannels,
) (uint64, error) {
	roleID, err := p.createRole(ctx, guildID, name, memberPermissions, colorGreen)
	if err != nil {
		return 0, fmt.Errorf("failed to create tracked role: %w", err)
	}

	if channels == nil {
		return roleID, nil
	}

	for _, channelID := range channels.TextChannelIDs() {
		allow := discord.PermissionViewChannel | discord.PermissionSendMessages
		deny := discord.PermissionsNone

		switch channelID {
		case channels.NewsID, channels.TagsID:
			// Members read these channels; only admins post.
			allow = discord.PermissionViewChannel
			deny = discord.PermissionSendMessages
		case channels.MediaID:
			allow |= discord.PermissionAttachFiles
		}

		p.applyRoleOverwrite(ctx, guildID, channelID, roleID, allow, deny)
	}

	voiceAllow := discord.PermissionViewChannel | discord.PermissionConnect | discord.PermissionSpeak
	for _, voiceID := range channels.VoiceIDs {
		p.applyRoleOverwrite(ctx, guildID, voiceID, roleID, voiceAllow, discord.PermissionsNone)
	}

	return roleID, nil
}

// applyRoleOverwrite grants the role access to one channel. Failures are
// logged and skipped; the admin can fix channel permissions by hand.
func (p *Provisioner) applyRoleOverwrite(
	ctx context.Context, guildID, channelID, roleID uint64, allow, deny discord.Permissions,
) {
	if channelID == 0 {
		return
	}

	err := p.rest.UpdatePermissionOverwrite(
		snowflake.ID(channelID), snowflake.ID(roleID),
		discord.RolePermissionOverwriteUpdate{
			Allow: json.Ptr(allow),
			Deny:  json.Ptr(deny),
		},
		rest.WithCtx(ctx), rest.WithReason(provisionReason))
	if err != nil {
		p.logger.Warn("Failed to apply channel overwrite for tracked role",
			zap.Uint64("guildID", guildID),
			zap.Uint64("channelID", channelID),
			zap.Uint64("roleID", roleID),
			zap.Error(err))
	}
}

func (p *Provisioner) createRole(
	ctx context.Context, guildID uint64, name string, permissions discord.Permissions, color int,
) (uint64, error) {
	role, err := p.rest.CreateRole(snowflake.ID(guildID), discord.RoleCreate{
		Name:        name,
		Permissions: json.Ptr(permissions),
		Color:       color,
	}, rest.WithCtx(ctx), rest.WithReason(provisionReason))
	if err != nil {
		return 0, err
	}

	return uint64(role.ID), nil
}

func (p *Provisioner) createTextChannel(
	ctx context.Context, guildID uint64, name, topic string, overwrites []discord.PermissionOverwrite,
) (uint64, error) {
	channel, err := p.rest.CreateGuildChannel(snowflake.ID(guildID), discord.GuildTextChannelCreate{
		Name:                 name,
		Topic:                topic,
		PermissionOverwrites: overwrites,
	}, rest.WithCtx(ctx), rest.WithReason(provisionReason))
	if err != nil {
		return 0, fmt.Errorf("failed to create text channel %s: %w", name, err)
	}

	return uint64(channel.ID()), nil
}

func (p *Provisioner) createVoiceChannel(
	ctx context.Context, guildID uint64, name string, overwrites []discord.PermissionOverwrite,
) (uint64, error) {
	channel, err := p.rest.CreateGuildChannel(snowflake.ID(guildID), discord.GuildVoiceChannelCreate{
		Name:                 name,
		PermissionOverwrites: overwrites,
	}, rest.WithCtx(ctx), rest.WithReason(provisionReason))
	if err != nil {
		return 0, fmt.Errorf("failed to create voice channel %s: %w", name, err)
	}

	return uint64(channel.ID()), nil
}

// layoutOverwrites hides the channel from @everyone, gives admin roles full
// view access and applies memberAllow/memberDeny to each member role. The
// @everyone role ID equals the guild ID.
func layoutOverwrites(
	guildID uint64, adminRoleIDs, memberRoleIDs []uint64,
	memberAllow, memberDeny discord.Permissions,
) []discord.PermissionOverwrite {
	overwrites := []discord.PermissionOverwrite{
		discord.RolePermissionOverwrite{
			RoleID: snowflake.ID(guildID),
			Deny:   discord.PermissionViewChannel,
		},
	}

	for _, id := range adminRoleIDs {
		overwrites = append(overwrites, discord.RolePermissionOverwrite{
			RoleID: snowflake.ID(id),
			Allow:  discord.PermissionViewChannel,
		})
	}

	for _, id := range memberRoleIDs {
		overwrites = append(overwrites, discord.RolePermissionOverwrite{
			RoleID: snowflake.ID(id),
			Allow:  memberAllow,
			Deny:   memberDeny,
		})
	}

	return overwrites
}
