// Package setup performs the shared application bootstrap.
package setup

import (
	"context"
	"log"

	"github.com/rolewarden/rolewarden/internal/database"
	"github.com/rolewarden/rolewarden/internal/redis"
	"github.com/rolewarden/rolewarden/internal/setup/config"
	"github.com/rolewarden/rolewarden/internal/setup/logger"
	"go.uber.org/zap"
)

// App contains the components shared by every binary.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	DB           database.Client
	RedisManager *redis.Manager
}

// InitializeApp loads configuration and connects the shared backends.
// autoMigrate controls whether pending database migrations run on connect;
// the management CLI owns migrations itself and passes false.
func InitializeApp(ctx context.Context, autoMigrate bool) (*App, error) {
	cfg, configPath, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	zapLogger, err := logger.New(&cfg.Debug)
	if err != nil {
		return nil, err
	}

	zapLogger.Info("Loaded configuration", zap.String("path", configPath))

	redisManager := redis.NewManager(&cfg.Redis, zapLogger)

	db, err := database.NewConnection(ctx, &cfg.PostgreSQL, zapLogger, autoMigrate)
	if err != nil {
		zapLogger.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	return &App{
		Config:       cfg,
		Logger:       zapLogger,
		DB:           db,
		RedisManager: redisManager,
	}, nil
}

// CleanupApp releases the shared backends in reverse initialization order.
func (a *App) CleanupApp() {
	if err := a.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	a.RedisManager.Close()

	if err := a.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}
}
