package service

import (
	"context"
	"time"

	"github.com/rolewarden/rolewarden/internal/database/models"
	"github.com/rolewarden/rolewarden/internal/database/types"
	"go.uber.org/zap"
)

// BanService handles the temporary-ban lifecycle.
type BanService struct {
	model  *models.BanModel
	logger *zap.Logger
}

// NewBan creates a new ban service.
func NewBan(model *models.BanModel, logger *zap.Logger) *BanService {
	return &BanService{
		model:  model,
		logger: logger.Named("ban_service"),
	}
}

// BanIfAbsent creates a ban row for the member unless one is already in
// force. Returns the row and whether it was newly created, so a member is
// banned exactly once per non-compliance episode.
func (b *BanService) BanIfAbsent(
	ctx context.Context, guildID, userID uint64, reason string, cooldown time.Duration,
) (*types.TempBan, bool, error) {
	existing, err := b.model.GetActive(ctx, guildID, userID)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		return existing, false, nil
	}

	now := time.Now()
	ban := &types.TempBan{
		GuildID:   guildID,
		UserID:    userID,
		Reason:    reason,
		BannedAt:  now,
		UnbanAt:   now.Add(cooldown),
		Unbanned:  false,
		UpdatedAt: now,
	}

	if err := b.model.Insert(ctx, ban); err != nil {
		return nil, false, err
	}

	b.logger.Info("Created temp ban",
		zap.Uint64("guildID", guildID),
		zap.Uint64("userID", userID),
		zap.Time("unbanAt", ban.UnbanAt))

	return ban, true, nil
}

// ActiveBan returns the in-force ban for a member, or nil if none exists.
func (b *BanService) ActiveBan(ctx context.Context, guildID, userID uint64) (*types.TempBan, error) {
	return b.model.GetActive(ctx, guildID, userID)
}

// SweepCandidates returns in-force bans whose cooldown has elapsed.
func (b *BanService) SweepCandidates(ctx context.Context, now time.Time, limit int) ([]*types.TempBan, error) {
	return b.model.GetExpired(ctx, now, limit)
}

// Lift marks a single ban row unbanned. Called only after the platform
// unban has succeeded so a failed unban is retried next sweep.
func (b *BanService) Lift(ctx context.Context, banID uint64) error {
	return b.model.MarkUnbanned(ctx, banID)
}

// LiftMember clears the in-force ban for a member following an explicit
// administrator unban.
func (b *BanService) LiftMember(ctx context.Context, guildID, userID uint64) error {
	lifted, err := b.model.MarkUnbannedByMember(ctx, guildID, userID)
	if err != nil {
		return err
	}

	if !lifted {
		return ErrNoActiveBan
	}

	return nil
}

// CountActive returns how many bans are in force for a guild.
func (b *BanService) CountActive(ctx context.Context, guildID uint64) (int, error) {
	return b.model.CountActive(ctx, guildID)
}
