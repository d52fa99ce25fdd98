package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rolewarden/rolewarden/internal/database/types"
	"github.com/rolewarden/rolewarden/internal/setup/config"
	"go.uber.org/zap"
)

// BanReason is attached to bans issued by the engine.
const BanReason = "holds no tracked role in any source server"

// Engine evaluates tracked-role compliance for every member of every
// managed guild and converges the platform state: grant missing local
// roles, revoke stale ones, ban members that hold no tracked role anywhere,
// and lift bans whose cooldown has elapsed.
//
// The engine holds no mutable shared state besides per-guild member
// cursors; all persisted state lives in the Store.
type Engine struct {
	store    Store
	oracle   Oracle
	actuator Actuator
	members  MemberSource
	limiter  *memberRateLimiter
	config   *config.Reconcile
	logger   *zap.Logger
	cursors  map[uint64]uint64 // per-guild member pagination cursor
}

// NewEngine creates a reconciliation engine.
func NewEngine(
	store Store,
	oracle Oracle,
	actuator Actuator,
	members MemberSource,
	cfg *config.Reconcile,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		store:    store,
		oracle:   oracle,
		actuator: actuator,
		members:  members,
		limiter: newMemberRateLimiter(
			time.Duration(cfg.MemberDelayMillis)*time.Millisecond,
			time.Duration(cfg.MemberJitterMillis)*time.Millisecond,
		),
		config:  cfg,
		logger:  logger.Named("reconcile"),
		cursors: make(map[uint64]uint64),
	}
}

// RunTick performs one reconciliation pass: the unban sweep first, then a
// bounded batch of member evaluations per managed guild. Individual member
// failures are logged and never abort the tick.
func (e *Engine) RunTick(ctx context.Context) error {
	e.sweepExpiredBans(ctx)

	guildIDs, err := e.store.GuildsWithActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list guilds with tracked roles: %w", err)
	}

	for _, guildID := range guildIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := e.processGuild(ctx, guildID); err != nil {
			e.logger.Error("Failed to process guild",
				zap.Uint64("guildID", guildID),
				zap.Error(err))
		}
	}

	return nil
}

// sweepExpiredBans lifts every ban whose cooldown has elapsed, across all
// guilds. The unit of work is one row: the record is only marked unbanned
// after the platform unban succeeds, so a failed call is retried next tick.
func (e *Engine) sweepExpiredBans(ctx context.Context) {
	now := time.Now()

	bans, err := e.store.SweepCandidates(ctx, now, e.config.SweepBatchSize)
	if err != nil {
		e.logger.Error("Failed to query expired bans", zap.Error(err))
		return
	}

	for _, ban := range bans {
		if ctx.Err() != nil {
			return
		}

		callCtx, cancel := e.callContext(ctx)
		err := e.actuator.UnbanMember(callCtx, ban.GuildID, ban.UserID)

		cancel()

		if err != nil {
			e.logger.Error("Failed to unban member, will retry next sweep",
				zap.Uint64("guildID", ban.GuildID),
				zap.Uint64("userID", ban.UserID),
				zap.Error(err))

			continue
		}

		if err := e.store.Lift(ctx, ban.ID); err != nil {
			e.logger.Error("Failed to mark ban unbanned",
				zap.Uint64("banID", ban.ID),
				zap.Error(err))

			continue
		}

		e.logger.Info("Lifted expired ban",
			zap.Uint64("guildID", ban.GuildID),
			zap.Uint64("userID", ban.UserID),
			zap.Time("bannedAt", ban.BannedAt))
	}
}

// processGuild evaluates a bounded batch of the guild's members against its
// tracked-role groups, advancing a rotating cursor so every member is
// eventually covered over successive ticks.
func (e *Engine) processGuild(ctx context.Context, guildID uint64) error {
	groups, err := e.store.ActiveGroups(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to load tracked groups: %w", err)
	}

	// Unresolved groups contribute no access; an admin may still be in the
	// middle of configuring them, so they are skipped for this tick.
	resolved := make([]*types.TrackedGroup, 0, len(groups))
	for _, group := range groups {
		if group.Resolved() {
			resolved = append(resolved, group)
		}
	}

	if len(resolved) == 0 {
		return nil
	}

	cursor := e.cursors[guildID]

	members, err := e.members.ListMembers(ctx, guildID, e.config.MembersPerTick, cursor)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}

	// Wrap the cursor once the member list is exhausted.
	if len(members) < e.config.MembersPerTick {
		e.cursors[guildID] = 0
	} else {
		e.cursors[guildID] = members[len(members)-1].UserID
	}

	processed := 0
	failed := 0

	for i := range members {
		member := &members[i]
		if member.Bot {
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		e.limiter.wait(ctx)

		if err := e.syncMember(ctx, guildID, member, resolved); err != nil {
			failed++

			e.logger.Warn("Failed to reconcile member",
				zap.Uint64("guildID", guildID),
				zap.Uint64("userID", member.UserID),
				zap.Error(err))

			continue
		}

		processed++
	}

	e.logger.Debug("Processed guild batch",
		zap.Uint64("guildID", guildID),
		zap.Int("processed", processed),
		zap.Int("failed", failed),
		zap.Uint64("next_cursor", e.cursors[guildID]))

	return nil
}

// SyncMember reconciles a single present member immediately, outside the
// regular batch rotation. Used by the force-sync command.
func (e *Engine) SyncMember(ctx context.Context, guildID, userID uint64) error {
	groups, err := e.store.ActiveGroups(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to load tracked groups: %w", err)
	}

	resolved := make([]*types.TrackedGroup, 0, len(groups))
	for _, group := range groups {
		if group.Resolved() {
			resolved = append(resolved, group)
		}
	}

	if len(resolved) == 0 {
		return nil
	}

	member, err := e.members.GetMember(ctx, guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch member: %w", err)
	}

	if member == nil || member.Bot {
		return nil
	}

	return e.syncMember(ctx, guildID, member, resolved)
}

// syncMember applies the per-member state machine: grant-if-missing and
// revoke-if-present per group, then the global ban check. Each member is an
// independent unit; an error here never corrupts another member's state.
func (e *Engine) syncMember(
	ctx context.Context, guildID uint64, member *Member, groups []*types.TrackedGroup,
) error {
	compliant := false

	for _, group := range groups {
		holdsRemote, err := e.groupHeld(ctx, member.UserID, group)
		if err != nil {
			return err
		}

		if holdsRemote {
			compliant = true
		}

		holdsLocal := member.HasRole(group.LocalRoleID)

		switch {
		case holdsRemote && !holdsLocal:
			callCtx, cancel := e.callContext(ctx)
			err := e.actuator.GrantRole(callCtx, guildID, member.UserID, group.LocalRoleID)

			cancel()

			if err != nil {
				return fmt.Errorf("failed to grant role %d: %w", group.LocalRoleID, err)
			}

			e.logger.Info("Granted tracked role",
				zap.Uint64("guildID", guildID),
				zap.Uint64("userID", member.UserID),
				zap.Uint64("roleID", group.LocalRoleID))

		case !holdsRemote && holdsLocal:
			callCtx, cancel := e.callContext(ctx)
			err := e.actuator.RevokeRole(callCtx, guildID, member.UserID, group.LocalRoleID)

			cancel()

			if err != nil {
				return fmt.Errorf("failed to revoke role %d: %w", group.LocalRoleID, err)
			}

			e.logger.Info("Revoked tracked role",
				zap.Uint64("guildID", guildID),
				zap.Uint64("userID", member.UserID),
				zap.Uint64("roleID", group.LocalRoleID))
		}
	}

	if compliant {
		return nil
	}

	return e.banNonCompliant(ctx, guildID, member.UserID)
}

// banNonCompliant issues a temporary ban for a member that failed every
// group. A continuing non-compliance episode keeps a single ban record: a
// member with an active row is never re-recorded, but since this path only
// runs for members still present in the guild, an active row here means the
// platform ban never landed, so it is reissued against the same cooldown.
func (e *Engine) banNonCompliant(ctx context.Context, guildID, userID uint64) error {
	existing, err := e.store.ActiveBan(ctx, guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to check active ban: %w", err)
	}

	if existing != nil {
		callCtx, cancel := e.callContext(ctx)
		err := e.actuator.BanMember(callCtx, guildID, userID, existing.Reason)

		cancel()

		if err != nil {
			return fmt.Errorf("failed to reissue ban: %w", err)
		}

		e.logger.Info("Reissued recorded ban for member still present",
			zap.Uint64("guildID", guildID),
			zap.Uint64("userID", userID),
			zap.Time("unbanAt", existing.UnbanAt))

		return nil
	}

	cooldown := time.Duration(e.config.BanCooldownSeconds) * time.Second

	ban, created, err := e.store.BanIfAbsent(ctx, guildID, userID, BanReason, cooldown)
	if err != nil {
		return fmt.Errorf("failed to record ban: %w", err)
	}

	if !created {
		return nil
	}

	callCtx, cancel := e.callContext(ctx)
	err = e.actuator.BanMember(callCtx, guildID, userID, BanReason)

	cancel()

	if err != nil {
		return fmt.Errorf("failed to ban member: %w", err)
	}

	e.logger.Info("Banned non-compliant member",
		zap.Uint64("guildID", guildID),
		zap.Uint64("userID", userID),
		zap.Time("unbanAt", ban.UnbanAt))

	return nil
}

// groupHeld ORs the oracle across every entry in the group: holding any one
// of the grouped remote roles grants the group's local role.
func (e *Engine) groupHeld(ctx context.Context, userID uint64, group *types.TrackedGroup) (bool, error) {
	for _, entry := range group.Entries {
		callCtx, cancel := e.callContext(ctx)
		held, err := e.oracle.HasRole(callCtx, entry.SourceGuildID, userID, entry.SourceRoleID)

		cancel()

		if err != nil {
			return false, fmt.Errorf("oracle lookup failed for source role %d: %w", entry.SourceRoleID, err)
		}

		if held {
			return true, nil
		}
	}

	return false, nil
}

// callContext bounds a single platform call so a stuck request fails that
// member only instead of stalling the tick.
func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(e.config.RequestTimeoutSeconds) * time.Second

	return context.WithTimeout(ctx, timeout)
}
