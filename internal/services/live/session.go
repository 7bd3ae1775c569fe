package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vigil-live-go/internal/helpers"
	"vigil-live-go/internal/logging"
	"vigil-live-go/internal/metrics"
	"vigil-live-go/internal/models"
	"vigil-live-go/internal/services/alertfeed"
	"vigil-live-go/internal/services/channel"
	"vigil-live-go/internal/services/framepump"
	"vigil-live-go/internal/services/normalizer"
)

// ErrNoFrame is returned before the first annotated frame has arrived
var ErrNoFrame = errors.New("no annotated frame yet")

// FrameSink receives each annotated JPEG as it arrives
type FrameSink interface {
	Publish(jpeg []byte)
	Reset()
}

// Options configures a Session
type Options struct {
	InitialMode      models.DetectionMode
	AutoPlay         bool
	InferenceTimeout time.Duration
	Frames           FrameSink // optional
}

// Status is the live view as an operator sees it
type Status struct {
	Mode           models.DetectionMode    `json:"mode"`
	Label          string                  `json:"label"`
	Generation     uint64                  `json:"generation"`
	Connection     models.ConnState        `json:"connection"`
	ConnectionText string                  `json:"connection_text"`
	StateSince     time.Time               `json:"state_since"`
	Endpoint       string                  `json:"endpoint,omitempty"`
	Detection      models.NormalizedStatus `json:"detection"`
	LastResultAt   *time.Time              `json:"last_result_at,omitempty"`
	Stalled        bool                    `json:"stalled"`
	LastError      string                  `json:"last_error,omitempty"`
	Playback       framepump.State         `json:"playback"`
	PendingAlerts  int                     `json:"pending_alerts"`
}

// Session owns one console's channel manager, frame pump, normalizer and alert feed
type Session struct {
	manager    *channel.Manager
	pump       *framepump.Pump
	normalizer *normalizer.Normalizer
	feed       *alertfeed.Feed
	metrics    *metrics.Metrics
	opts       Options
	logger     zerolog.Logger

	modeMu sync.Mutex // serialises SetMode

	mu           sync.Mutex
	mode         models.DetectionMode
	generation   uint64 // results from any other generation are stale
	latestImage  string
	lastResultAt time.Time
	stateSince   time.Time
	stalled      bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a session; Start connects it
func New(manager *channel.Manager, pump *framepump.Pump, feed *alertfeed.Feed, m *metrics.Metrics, opts Options) *Session {
	if !opts.InitialMode.Valid() {
		opts.InitialMode = models.DetectionModeSmoking
	}
	return &Session{
		manager:    manager,
		pump:       pump,
		normalizer: normalizer.New(opts.InitialMode),
		feed:       feed,
		metrics:    m,
		opts:       opts,
		logger:     log.With().Str("component", "live_session").Logger(),
		mode:       opts.InitialMode,
	}
}

// Start opens the channel for the initial mode and starts the result consumer
func (s *Session) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.consume(ctx)

	if s.opts.InferenceTimeout > 0 {
		s.wg.Add(1)
		go s.watchdog(ctx)
	}

	if err := s.SetMode(s.opts.InitialMode); err != nil {
		return err
	}

	if s.opts.AutoPlay {
		if err := s.pump.Play(); err != nil {
			s.logger.Warn().Err(err).Msg("Auto-play failed")
		}
	}

	s.logger.Info().
		Str("mode", string(s.opts.InitialMode)).
		Bool("auto_play", s.opts.AutoPlay).
		Dur("inference_timeout", s.opts.InferenceTimeout).
		Msg("Live session started")
	return nil
}

// SetMode switches detection mode: sampling stops, the old channel is closed,
// a new channel is opened, normalized state and alerts are reset, and sampling
// resumes if it was running. The last call wins.
func (s *Session) SetMode(mode models.DetectionMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", models.ErrUnknownMode, mode)
	}

	s.modeMu.Lock()
	defer s.modeMu.Unlock()

	// nothing is applied while the switch is in progress
	s.mu.Lock()
	previous := s.mode
	s.generation = 0
	s.mu.Unlock()

	wasPlaying := s.pump.Stop()

	gen, err := s.manager.SetMode(mode)
	if err != nil {
		// the manager kept its current channel, so its results apply again
		s.mu.Lock()
		s.generation = s.manager.Generation()
		s.mu.Unlock()
		if wasPlaying {
			_ = s.pump.Play()
		}
		s.logger.Error().Err(err).Str("mode", string(mode)).Str("kept", string(previous)).Msg("Mode switch failed")
		return fmt.Errorf("switch to %s: %w", mode, err)
	}

	s.mu.Lock()
	s.mode = mode
	s.generation = gen
	s.latestImage = ""
	s.lastResultAt = time.Time{}
	s.stateSince = time.Now()
	s.stalled = false
	s.normalizer.Reset(mode)
	s.feed.Reset()
	if s.opts.Frames != nil {
		s.opts.Frames.Reset()
	}
	s.mu.Unlock()
	s.metrics.Stalled.Set(0)

	if wasPlaying {
		if err := s.pump.Play(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to resume frame pump after mode switch")
		}
	}

	l := logging.WithMode(s.logger, mode)
	l.Info().
		Str("from", string(previous)).
		Uint64("generation", gen).
		Msg("Detection mode switched")
	return nil
}

func (s *Session) consume(ctx context.Context) {
	defer s.wg.Done()

	results := s.manager.Results()
	states := s.manager.States()
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-results:
			s.apply(res)
		case ev := <-states:
			s.mu.Lock()
			if ev.Generation == s.generation {
				s.stateSince = ev.At
			}
			s.mu.Unlock()
		}
	}
}

// apply updates the live status and alert feed with a result from the current channel
func (s *Session) apply(res models.DetectionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if res.Generation != s.generation || res.Mode != s.mode {
		s.metrics.ResultsStale.Inc()
		s.logger.Debug().
			Uint64("result_generation", res.Generation).
			Uint64("generation", s.generation).
			Msg("Discarding stale result")
		return
	}

	status, ok := s.normalizer.Apply(res)
	if !ok {
		s.metrics.ResultsStale.Inc()
		return
	}
	s.metrics.ResultsApplied.WithLabelValues(string(res.Mode)).Inc()

	s.lastResultAt = res.ReceivedAt
	if s.stalled {
		s.stalled = false
		s.metrics.Stalled.Set(0)
		s.logger.Info().Msg("Inference results resumed")
	}

	// alerts need a snapshot
	if res.Image == "" {
		return
	}
	s.latestImage = res.Image
	s.publishFrame(res.Image)
	s.feed.Observe(res.Mode, status, res.Image)
}

func (s *Session) publishFrame(dataURL string) {
	if s.opts.Frames == nil {
		return
	}
	data, mediaType, err := helpers.DecodeDataURL(dataURL)
	if err != nil || mediaType != "image/jpeg" {
		s.logger.Debug().Err(err).Str("media_type", mediaType).Msg("Annotated frame not streamable")
		return
	}
	s.opts.Frames.Publish(data)
}

// watchdog flags the session stalled when a sent frame goes unanswered past the timeout
func (s *Session) watchdog(ctx context.Context) {
	defer s.wg.Done()

	interval := s.opts.InferenceTimeout / 4
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			gen := s.generation
			s.mu.Unlock()
			if gen == 0 {
				continue
			}
			s.markStalled(gen, s.manager.Stalled(s.opts.InferenceTimeout))
		}
	}
}

// markStalled records a stall computed for generation gen. It is dropped when a
// mode switch happened meanwhile. It reports whether the flag changed.
func (s *Session) markStalled(gen uint64, stalled bool) bool {
	s.mu.Lock()
	if gen != s.generation || stalled == s.stalled {
		s.mu.Unlock()
		return false
	}
	s.stalled = stalled
	s.mu.Unlock()

	if stalled {
		s.metrics.Stalled.Set(1)
		s.logger.Warn().Dur("timeout", s.opts.InferenceTimeout).Msg("Inference stalled, no result within timeout")
	} else {
		s.metrics.Stalled.Set(0)
	}
	return true
}

// Status returns a snapshot of the live view
func (s *Session) Status() Status {
	ch := s.manager.Status()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Mode:          s.mode,
		Label:         s.mode.Label(),
		Generation:    ch.Generation,
		Connection:    ch.State,
		StateSince:    s.stateSince,
		Endpoint:      ch.Namespace,
		Detection:     s.normalizer.Status(),
		Stalled:       s.stalled,
		LastError:     ch.LastError,
		Playback:      s.pump.State(),
		PendingAlerts: s.feed.Len(),
	}
	st.ConnectionText = st.Connection.DisplayText()
	if !s.lastResultAt.IsZero() {
		t := s.lastResultAt
		st.LastResultAt = &t
	}
	return st
}

// LatestFrame returns the most recent annotated frame as image bytes and media type
func (s *Session) LatestFrame() ([]byte, string, error) {
	s.mu.Lock()
	image := s.latestImage
	s.mu.Unlock()

	if image == "" {
		return nil, "", ErrNoFrame
	}
	return helpers.DecodeDataURL(image)
}

// Alerts returns pending alerts, newest first
func (s *Session) Alerts() []models.Alert {
	return s.feed.List()
}

// ConfirmAlert forwards the alert as an incident; it stays pending if delivery fails
func (s *Session) ConfirmAlert(ctx context.Context, id int64) error {
	return s.feed.Confirm(ctx, id)
}

// DismissAlert drops the alert
func (s *Session) DismissAlert(id int64) error {
	return s.feed.Dismiss(id)
}

// Play resumes frame sampling
func (s *Session) Play() error {
	return s.pump.Play()
}

// Pause suspends frame sampling
func (s *Session) Pause() {
	s.pump.Pause()
}

// Mode returns the active detection mode
func (s *Session) Mode() models.DetectionMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// HandleControl applies a remote {"mode": "<name>"} command
func (s *Session) HandleControl(data []byte) {
	var cmd struct {
		Mode string `json:"mode"`
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		s.logger.Warn().Err(err).Msg("Ignoring malformed control message")
		return
	}

	mode, err := models.ParseDetectionMode(cmd.Mode)
	if err != nil {
		s.logger.Warn().Err(err).Str("mode", cmd.Mode).Msg("Ignoring control message")
		return
	}
	if err := s.SetMode(mode); err != nil {
		s.logger.Error().Err(err).Msg("Remote mode switch failed")
	}
}

// Shutdown stops sampling, closes the channel and waits for background work
func (s *Session) Shutdown(ctx context.Context) error {
	s.pump.Stop()
	s.manager.Close()
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Live session stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
