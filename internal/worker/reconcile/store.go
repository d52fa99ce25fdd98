package reconcile

import (
	"context"
	"time"

	"github.com/rolewarden/rolewarden/internal/database"
	"github.com/rolewarden/rolewarden/internal/database/types"
)

// dbStore adapts the database client to the engine's Store interface.
type dbStore struct {
	db database.Client
}

// NewStore wraps the database client for use by the engine.
func NewStore(db database.Client) Store {
	return &dbStore{db: db}
}

func (s *dbStore) GuildsWithActive(ctx context.Context) ([]uint64, error) {
	return s.db.Service().Tracking().GuildsWithActive(ctx)
}

func (s *dbStore) ActiveGroups(ctx context.Context, guildID uint64) ([]*types.TrackedGroup, error) {
	return s.db.Service().Tracking().ActiveGroups(ctx, guildID)
}

func (s *dbStore) ActiveBan(ctx context.Context, guildID, userID uint64) (*types.TempBan, error) {
	return s.db.Service().Ban().ActiveBan(ctx, guildID, userID)
}

func (s *dbStore) BanIfAbsent(
	ctx context.Context, guildID, userID uint64, reason string, cooldown time.Duration,
) (*types.TempBan, bool, error) {
	return s.db.Service().Ban().BanIfAbsent(ctx, guildID, userID, reason, cooldown)
}

func (s *dbStore) SweepCandidates(ctx context.Context, now time.Time, limit int) ([]*types.TempBan, error) {
	return s.db.Service().Ban().SweepCandidates(ctx, now, limit)
}

func (s *dbStore) Lift(ctx context.Context, banID uint64) error {
	return s.db.Service().Ban().Lift(ctx, banID)
}
