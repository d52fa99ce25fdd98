package discord

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/rolewarden/rolewarden/internal/worker/reconcile"
)

// memberPageSize is the maximum page size the guild members endpoint allows.
const memberPageSize = 1000

// MemberSource pages guild members from the Discord REST API.
type MemberSource struct {
	rest rest.Rest
}

// NewMemberSource creates a member source backed by the Discord REST API.
func NewMemberSource(restClient rest.Rest) *MemberSource {
	return &MemberSource{rest: restClient}
}

// ListMembers returns up to limit members with user IDs strictly greater than
// afterUserID, in ascending user ID order.
func (m *MemberSource) ListMembers(
	ctx context.Context, guildID uint64, limit int, afterUserID uint64,
) ([]reconcile.Member, error) {
	if limit > memberPageSize {
		limit = memberPageSize
	}

	members, err := m.rest.GetMembers(
		snowflake.ID(guildID), limit, snowflake.ID(afterUserID), rest.WithCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list guild members: %w", err)
	}

	result := make([]reconcile.Member, 0, len(members))
	for i := range members {
		result = append(result, toMember(members[i]))
	}

	return result, nil
}

// GetMember returns the member, or nil if the user is not in the guild.
func (m *MemberSource) GetMember(ctx context.Context, guildID, userID uint64) (*reconcile.Member, error) {
	member, err := m.rest.GetMember(snowflake.ID(guildID), snowflake.ID(userID), rest.WithCtx(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get guild member: %w", err)
	}

	converted := toMember(*member)

	return &converted, nil
}

func toMember(member discord.Member) reconcile.Member {
	roleIDs := make([]uint64, 0, len(member.RoleIDs))
	for _, id := range member.RoleIDs {
		roleIDs = append(roleIDs, uint64(id))
	}

	return reconcile.Member{
		UserID:  uint64(member.User.ID),
		Bot:     member.User.Bot,
		RoleIDs: roleIDs,
	}
}
