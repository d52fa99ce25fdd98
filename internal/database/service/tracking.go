package service

import (
	"context"
	"fmt"

	"github.com/rolewarden/rolewarden/internal/database/models"
	"github.com/rolewarden/rolewarden/internal/database/types"
	"go.uber.org/zap"
)

// TrackingService is the tracked-role registry. It owns the grouping rules:
// entries sharing a source guild gate one local role, and removal decides
// whether that local role is now orphaned.
type TrackingService struct {
	model  *models.TrackedRoleModel
	logger *zap.Logger
}

// NewTracking creates a new tracking service.
func NewTracking(model *models.TrackedRoleModel, logger *zap.Logger) *TrackingService {
	return &TrackingService{
		model:  model,
		logger: logger.Named("tracking_service"),
	}
}

// AddTrackedRole registers a tracked role. Re-adding an active key is a
// no-op returning the existing entry; a deactivated identical key is
// reactivated under its original ID.
func (t *TrackingService) AddTrackedRole(
	ctx context.Context, guildID, sourceGuildID, sourceRoleID uint64,
) (*types.TrackedRole, error) {
	entry, err := t.model.Upsert(ctx, guildID, sourceGuildID, sourceRoleID)
	if err != nil {
		return nil, err
	}

	// A new entry joining an already-resolved group inherits the group's
	// local role so the group keeps mapping to exactly one role.
	if !entry.Resolved() {
		groupRole, err := t.GroupLocalRole(ctx, guildID, sourceGuildID)
		if err != nil {
			return nil, err
		}

		if groupRole != 0 {
			if err := t.model.ResolveTargetRole(ctx, entry.ID, groupRole); err != nil {
				return nil, err
			}

			entry.LocalRoleID = groupRole
		}
	}

	return entry, nil
}

// ResolveTargetRole records which local role a tracked entry maps to.
func (t *TrackingService) ResolveTargetRole(ctx context.Context, trackedRoleID, localRoleID uint64) error {
	return t.model.ResolveTargetRole(ctx, trackedRoleID, localRoleID)
}

// GroupLocalRole returns the local role already resolved for the group of
// the given source guild, or 0 if the group has no resolved entry yet.
func (t *TrackingService) GroupLocalRole(ctx context.Context, guildID, sourceGuildID uint64) (uint64, error) {
	entries, err := t.model.GetActiveByGuild(ctx, guildID)
	if err != nil {
		return 0, err
	}

	for _, entry := range entries {
		if entry.SourceGuildID == sourceGuildID && entry.Resolved() {
			return entry.LocalRoleID, nil
		}
	}

	return 0, nil
}

// ListActive returns all active entries for a guild, newest first.
func (t *TrackingService) ListActive(ctx context.Context, guildID uint64) ([]*types.TrackedRole, error) {
	return t.model.GetActiveByGuild(ctx, guildID)
}

// ActiveGroups returns the active entries for a guild bucketed into
// evaluation groups.
func (t *TrackingService) ActiveGroups(ctx context.Context, guildID uint64) ([]*types.TrackedGroup, error) {
	entries, err := t.model.GetActiveByGuild(ctx, guildID)
	if err != nil {
		return nil, err
	}

	return types.GroupTrackedRoles(entries), nil
}

// GetByID returns a tracked entry by ID, or nil if none exists.
func (t *TrackingService) GetByID(ctx context.Context, trackedRoleID uint64) (*types.TrackedRole, error) {
	return t.model.GetByID(ctx, trackedRoleID)
}

// Deactivate removes an entry from sync and reports whether its local role
// is now orphaned (no remaining active entry resolves to it). The caller is
// responsible for revoking the role from current holders.
func (t *TrackingService) Deactivate(ctx context.Context, trackedRoleID uint64) (*types.TrackedRole, bool, error) {
	entry, err := t.model.GetByID(ctx, trackedRoleID)
	if err != nil {
		return nil, false, err
	}

	if entry == nil || !entry.Active {
		return nil, false, fmt.Errorf("%w: %d", ErrTrackedRoleNotFound, trackedRoleID)
	}

	if err := t.model.Deactivate(ctx, trackedRoleID); err != nil {
		return nil, false, err
	}

	orphaned := false

	if entry.Resolved() {
		usages, err := t.model.CountUsages(ctx, entry.LocalRoleID)
		if err != nil {
			return nil, false, err
		}

		orphaned = usages == 0
	}

	t.logger.Info("Deactivated tracked role",
		zap.Uint64("trackedRoleID", trackedRoleID),
		zap.Uint64("guildID", entry.GuildID),
		zap.Bool("local_role_orphaned", orphaned))

	return entry, orphaned, nil
}

// GuildsWithActive returns the IDs of guilds with at least one active entry.
func (t *TrackingService) GuildsWithActive(ctx context.Context) ([]uint64, error) {
	return t.model.GetGuildsWithActive(ctx)
}
