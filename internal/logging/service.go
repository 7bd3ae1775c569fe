package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vigil-live-go/internal/config"
	"vigil-live-go/internal/models"
)

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("console_id", cfg.ConsoleID).Str("service", service).Logger()
}

func WithMode(base zerolog.Logger, mode models.DetectionMode) zerolog.Logger {
	return base.With().Str("mode", string(mode)).Logger()
}

func WithGeneration(base zerolog.Logger, mode models.DetectionMode, generation uint64) zerolog.Logger {
	return base.With().Str("mode", string(mode)).Uint64("generation", generation).Logger()
}
