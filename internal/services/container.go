package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"vigil-live-go/internal/config"
	"vigil-live-go/internal/logging"
	"vigil-live-go/internal/metrics"
	"vigil-live-go/internal/services/alertfeed"
	"vigil-live-go/internal/services/channel"
	"vigil-live-go/internal/services/framepump"
	"vigil-live-go/internal/services/incidents"
	"vigil-live-go/internal/services/live"
	"vigil-live-go/internal/services/messaging"
	"vigil-live-go/internal/services/mjpeg"
)

// SourceCloser is a frame source that holds a device or file open
type SourceCloser interface {
	framepump.Source
	Close() error
}

// ServiceContainer holds all services
type ServiceContainer struct {
	Config    *config.Config
	Metrics   *metrics.Metrics
	Manager   *channel.Manager
	Feed      *alertfeed.Feed
	Session   *live.Session
	Messaging *messaging.Service
	Stream    *mjpeg.Publisher

	source SourceCloser
	logger zerolog.Logger
}

// NewServiceContainer wires the live session around source
func NewServiceContainer(ctx context.Context, cfg *config.Config, source SourceCloser) (*ServiceContainer, error) {
	logger := logging.NewServiceLogger(cfg, "container")
	m := metrics.New()

	manager := channel.NewManager(channel.Options{
		Resolve:          cfg.EndpointFor,
		Path:             cfg.SocketIOPath,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}, m)

	recorder := &incidents.MultiRecorder{Primary: incidents.NewSocketRecorder(manager)}

	var msgSvc *messaging.Service
	if cfg.NatsEnabled {
		svc, err := messaging.NewService(cfg)
		if err != nil {
			manager.Close()
			return nil, err
		}
		msgSvc = svc
		recorder.Mirrors = append(recorder.Mirrors, incidents.NewNATSMirror(svc, cfg.NatsIncidentsSubject, cfg.ConsoleID))
	}

	if cfg.MinioEnabled {
		archive, err := incidents.NewMinioArchive(ctx, cfg)
		if err != nil {
			logger.Warn().Err(err).Str("endpoint", cfg.MinioEndpoint).Msg("Snapshot archive unavailable")
		} else {
			recorder.Mirrors = append(recorder.Mirrors, archive)
		}
	}

	feed := alertfeed.New(recorder, alertfeed.Options{SuppressionWindow: cfg.AlertSuppressionWindow}, m)
	pump := framepump.New(source, manager, framepump.NewEncoder(cfg.FrameMaxWidth, cfg.FrameQuality), m)

	stream := mjpeg.NewPublisher(0)
	session := live.New(manager, pump, feed, m, live.Options{
		InitialMode:      cfg.Mode(),
		AutoPlay:         cfg.AutoPlay,
		InferenceTimeout: cfg.InferenceTimeout,
		Frames:           stream,
	})
	if err := session.Start(ctx); err != nil {
		manager.Close()
		return nil, fmt.Errorf("start live session: %w", err)
	}

	if msgSvc != nil {
		if err := msgSvc.Subscribe(cfg.NatsControlSubject, session.HandleControl); err != nil {
			logger.Warn().Err(err).Msg("Remote mode control disabled")
		}
	}

	logger.Info().
		Str("mode", string(cfg.Mode())).
		Str("inference_url", cfg.InferenceURL).
		Int("mirrors", len(recorder.Mirrors)).
		Msg("Services initialized")

	return &ServiceContainer{
		Config:    cfg,
		Metrics:   m,
		Manager:   manager,
		Feed:      feed,
		Session:   session,
		Messaging: msgSvc,
		Stream:    stream,
		source:    source,
		logger:    logger,
	}, nil
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	if sc.Session != nil {
		if err := sc.Session.Shutdown(ctx); err != nil {
			return err
		}
	}

	if sc.Messaging != nil {
		if err := sc.Messaging.Shutdown(ctx); err != nil {
			sc.logger.Warn().Err(err).Msg("Failed to drain NATS connection")
		}
	}

	if sc.source != nil {
		if err := sc.source.Close(); err != nil {
			sc.logger.Warn().Err(err).Msg("Failed to close video source")
		}
	}

	return nil
}
