package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vigil-live-go/internal/api/handlers"
	"vigil-live-go/internal/config"
	"vigil-live-go/internal/logging"
	"vigil-live-go/internal/services"
)

type Server struct {
	config   *config.Config
	router   *gin.Engine
	server   *http.Server
	services *services.ServiceContainer
	logger   zerolog.Logger

	healthHandler *handlers.HealthHandler
	liveHandler   *handlers.LiveHandler
	alertHandler  *handlers.AlertHandler
	systemHandler *handlers.SystemHandler
}

func NewServer(cfg *config.Config, sc *services.ServiceContainer) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		config:        cfg,
		router:        gin.New(),
		services:      sc,
		logger:        logging.NewServiceLogger(cfg, "api"),
		healthHandler: handlers.NewHealthHandler(cfg.ConsoleID, cfg.Version),
		liveHandler:   handlers.NewLiveHandler(sc.Session),
		alertHandler:  handlers.NewAlertHandler(sc.Session, cfg.ConfirmTimeout),
		systemHandler: handlers.NewSystemHandler(cfg.ConsoleID, sc.Manager),
	}
}

func (s *Server) Setup() error {
	s.setupMiddleware()

	s.setupRoutes()

	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	return nil
}

func (s *Server) Start() error {
	s.logger.Info().Int("port", s.config.Port).Msg("Starting Vigil Live API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then tears down the live session
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Stopping Vigil Live API")

	var httpErr error
	if s.server != nil {
		httpErr = s.server.Shutdown(ctx)
	}
	if err := s.services.Shutdown(ctx); err != nil {
		return err
	}
	return httpErr
}

func (s *Server) Handler() http.Handler {
	return s.router
}
