package reconcile

import (
	"context"
	"time"

	"github.com/rolewarden/rolewarden/internal/database/types"
)

// Member is a user currently present in a managed guild.
type Member struct {
	UserID  uint64
	Bot     bool
	RoleIDs []uint64
}

// HasRole reports whether the member currently holds the given local role.
func (m *Member) HasRole(roleID uint64) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}

	return false
}

// Oracle answers whether a user currently holds a role in a source guild.
// Implementations must treat "guild unknown to this process" and "user not
// a member" as plain false, not errors.
type Oracle interface {
	HasRole(ctx context.Context, guildID, userID, roleID uint64) (bool, error)
}

// Actuator performs idempotent role and ban mutations against the platform.
// Granting an already-held role, revoking an unheld one, and re-banning or
// re-unbanning must all succeed without error.
type Actuator interface {
	GrantRole(ctx context.Context, guildID, userID, roleID uint64) error
	RevokeRole(ctx context.Context, guildID, userID, roleID uint64) error
	BanMember(ctx context.Context, guildID, userID uint64, reason string) error
	UnbanMember(ctx context.Context, guildID, userID uint64) error
}

// MemberSource lists users currently present in a managed guild.
type MemberSource interface {
	// ListMembers returns up to limit members with user IDs greater than
	// afterUserID, in ascending ID order.
	ListMembers(ctx context.Context, guildID uint64, limit int, afterUserID uint64) ([]Member, error)
	// GetMember returns the member, or nil if the user is not present.
	GetMember(ctx context.Context, guildID, userID uint64) (*Member, error)
}

// Store is the persisted state the engine reads and writes each tick.
type Store interface {
	GuildsWithActive(ctx context.Context) ([]uint64, error)
	ActiveGroups(ctx context.Context, guildID uint64) ([]*types.TrackedGroup, error)
	ActiveBan(ctx context.Context, guildID, userID uint64) (*types.TempBan, error)
	BanIfAbsent(
		ctx context.Context, guildID, userID uint64, reason string, cooldown time.Duration,
	) (*types.TempBan, bool, error)
	SweepCandidates(ctx context.Context, now time.Time, limit int) ([]*types.TempBan, error)
	Lift(ctx context.Context, banID uint64) error
}
