package database

import (
	"github.com/rolewarden/rolewarden/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	guild       *models.GuildModel
	channel     *models.ChannelModel
	trackedRole *models.TrackedRoleModel
	ban         *models.BanModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		guild:       models.NewGuild(db, logger),
		channel:     models.NewChannel(db, logger),
		trackedRole: models.NewTrackedRole(db, logger),
		ban:         models.NewBan(db, logger),
	}
}

// Guild returns the guild model repository.
func (r *Repository) Guild() *models.GuildModel {
	return r.guild
}

// Channel returns the channel model repository.
func (r *Repository) Channel() *models.ChannelModel {
	return r.channel
}

// TrackedRole returns the tracked role model repository.
func (r *Repository) TrackedRole() *models.TrackedRoleModel {
	return r.trackedRole
}

// Ban returns the ban model repository.
func (r *Repository) Ban() *models.BanModel {
	return r.ban
}
