package discord

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// Actuator performs role and ban mutations against the platform. All
// operations are idempotent on the Discord side: granting a held role,
// revoking an unheld one, and banning an already-banned or absent user
// (ban-by-id) all succeed.
type Actuator struct {
	rest   rest.Rest
	logger *zap.Logger
}

// NewActuator creates a role actuator backed by the Discord REST API.
func NewActuator(restClient rest.Rest, logger *zap.Logger) *Actuator {
	return &Actuator{
		rest:   restClient,
		logger: logger.Named("actuator"),
	}
}

// GrantRole adds the local role to the member.
func (a *Actuator) GrantRole(ctx context.Context, guildID, userID, roleID uint64) error {
	err := a.rest.AddMemberRole(
		snowflake.ID(guildID), snowflake.ID(userID), snowflake.ID(roleID),
		rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to add member role: %w", err)
	}

	return nil
}

// RevokeRole removes the local role from the member.
func (a *Actuator) RevokeRole(ctx context.Context, guildID, userID, roleID uint64) error {
	err := a.rest.RemoveMemberRole(
		snowflake.ID(guildID), snowflake.ID(userID), snowflake.ID(roleID),
		rest.WithCtx(ctx))
	if err != nil {
		// Revoking a role the member no longer holds is a no-op.
		if isNotFound(err) {
			return nil
		}

		return fmt.Errorf("failed to remove member role: %w", err)
	}

	return nil
}

// BanMember bans the user from the guild. Ban-by-id works for users that
// already left, which keeps absent non-compliant members trackable for
// auto-unban.
func (a *Actuator) BanMember(ctx context.Context, guildID, userID uint64, reason string) error {
	err := a.rest.AddBan(
		snowflake.ID(guildID), snowflake.ID(userID), 0,
		rest.WithCtx(ctx), rest.WithReason(reason))
	if err != nil {
		return fmt.Errorf("failed to ban member: %w", err)
	}

	return nil
}

// UnbanMember lifts the user's guild ban. An already-lifted ban is a no-op.
func (a *Actuator) UnbanMember(ctx context.Context, guildID, userID uint64) error {
	err := a.rest.DeleteBan(snowflake.ID(guildID), snowflake.ID(userID), rest.WithCtx(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil
		}

		return fmt.Errorf("failed to unban member: %w", err)
	}

	return nil
}

// DeleteRole removes an orphaned local role, which also clears its channel
// permission overwrites.
func (a *Actuator) DeleteRole(ctx context.Context, guildID, roleID uint64) error {
	err := a.rest.DeleteRole(snowflake.ID(guildID), snowflake.ID(roleID), rest.WithCtx(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil
		}

		return fmt.Errorf("failed to delete role: %w", err)
	}

	return nil
}

// RevokeRoleFromHolders removes the role from every present member that
// holds it. Used when a tracked role is deactivated.
func (a *Actuator) RevokeRoleFromHolders(ctx context.Context, guildID, roleID uint64) (int, error) {
	revoked := 0
	after := snowflake.ID(0)

	for {
		members, err := a.rest.GetMembers(snowflake.ID(guildID), memberPageSize, after, rest.WithCtx(ctx))
		if err != nil {
			return revoked, fmt.Errorf("failed to list members: %w", err)
		}

		for i := range members {
			member := members[i]

			holds := false
			for _, id := range member.RoleIDs {
				if uint64(id) == roleID {
					holds = true
					break
				}
			}

			if !holds {
				continue
			}

			if err := a.RevokeRole(ctx, guildID, uint64(member.User.ID), roleID); err != nil {
				a.logger.Warn("Failed to revoke role from holder",
					zap.Uint64("guildID", guildID),
					zap.Uint64("userID", uint64(member.User.ID)),
					zap.Error(err))

				continue
			}

			revoked++
		}

		if len(members) < memberPageSize {
			return revoked, nil
		}

		after = members[len(members)-1].User.ID
	}
}
