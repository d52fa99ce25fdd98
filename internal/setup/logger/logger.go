package logger

import (
	"fmt"

	"github.com/rolewarden/rolewarden/internal/setup/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger from the debug configuration.
// Development encoding keeps console output readable; the level comes from
// the config so production runs can silence debug noise.
func New(debug *config.Debug) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(debug.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", debug.LogLevel, err)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}
