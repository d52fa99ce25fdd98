package database

import (
	"github.com/rolewarden/rolewarden/internal/database/service"
	"go.uber.org/zap"
)

// Service provides access to all business logic services.
type Service struct {
	tracking *service.TrackingService
	ban      *service.BanService
}

// NewService creates a new service instance with all services.
func NewService(repository *Repository, logger *zap.Logger) *Service {
	return &Service{
		tracking: service.NewTracking(repository.TrackedRole(), logger),
		ban:      service.NewBan(repository.Ban(), logger),
	}
}

// Tracking returns the tracked-role registry service.
func (s *Service) Tracking() *service.TrackingService {
	return s.tracking
}

// Ban returns the ban lifecycle service.
func (s *Service) Ban() *service.BanService {
	return s.ban
}
