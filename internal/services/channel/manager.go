package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vigil-live-go/internal/logging"
	"vigil-live-go/internal/metrics"
	"vigil-live-go/internal/models"
	"vigil-live-go/internal/socketio"
)

// Resolver maps a detection mode to the inference base URL and namespace
type Resolver func(mode models.DetectionMode) (baseURL, namespace string)

// Options configures a Manager
type Options struct {
	Resolve          Resolver
	Path             string // Engine.IO path, defaults to /socket.io/
	HandshakeTimeout time.Duration
	ResultBuffer     int
}

// Status is a snapshot of the current channel
type Status struct {
	Mode       models.DetectionMode `json:"mode"`
	Generation uint64               `json:"generation"`
	State      models.ConnState     `json:"state"`
	URL        string               `json:"url,omitempty"`
	Namespace  string               `json:"namespace,omitempty"`
	LastError  string               `json:"last_error,omitempty"`
}

// Manager owns the single active channel to the inference service.
// Switching modes closes the previous channel before the next one is
// created, so at most one channel is ever Open.
type Manager struct {
	opts    Options
	dialer  *websocket.Dialer
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu         sync.Mutex
	current    *Channel
	generation uint64
	closed     bool

	results chan models.DetectionResult
	states  chan StateEvent
}

// NewManager creates a manager with no channel; call SetMode to connect
func NewManager(opts Options, m *metrics.Metrics) *Manager {
	if opts.Path == "" {
		opts.Path = socketio.DefaultPath
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.ResultBuffer <= 0 {
		opts.ResultBuffer = 16
	}

	return &Manager{
		opts: opts,
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		metrics: m,
		logger:  log.With().Str("component", "channel_manager").Logger(),
		results: make(chan models.DetectionResult, opts.ResultBuffer),
		states:  make(chan StateEvent, 32),
	}
}

// SetMode closes the current channel, waits for it to stop, and starts a new
// channel for mode. It returns the generation of the new channel.
func (m *Manager) SetMode(mode models.DetectionMode) (uint64, error) {
	if !mode.Valid() {
		return 0, fmt.Errorf("%w: %q", models.ErrUnknownMode, mode)
	}

	baseURL, namespace := m.opts.Resolve(mode)
	url, err := socketio.WebsocketURL(baseURL, m.opts.Path)
	if err != nil {
		return 0, fmt.Errorf("resolve %s endpoint: %w", mode, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, fmt.Errorf("channel manager is closed")
	}

	if m.current != nil {
		m.current.Close()
	}

	m.generation++
	gen := m.generation

	ch := &Channel{
		mode:       mode,
		generation: gen,
		url:        url,
		namespace:  namespace,
		dialer:     m.dialer,
		state:      models.ConnStateConnecting,
		log: logging.WithGeneration(m.logger, mode, gen).With().
			Str("namespace", namespace).
			Logger(),
		onState:  m.publishState,
		onResult: m.deliver,
		onDecode: func(error) { m.metrics.DecodeErrors.Inc() },
	}
	m.current = ch

	m.metrics.ModeSwitches.Inc()
	m.publishState(StateEvent{Mode: mode, Generation: gen, State: models.ConnStateConnecting, At: time.Now()})

	ch.log.Info().Str("url", url).Msg("Opening detection channel")
	ch.start()

	return gen, nil
}

// Send emits an encoded frame on the current channel. The frame is dropped,
// not queued, when the channel is not Open. It reports whether the frame was sent.
func (m *Manager) Send(frame models.Frame) bool {
	ch := m.channel()
	if ch == nil {
		m.metrics.FramesDropped.Inc()
		return false
	}

	if err := ch.emit(EventMessage, frame.DataURL()); err != nil {
		m.metrics.FramesDropped.Inc()
		if err != ErrChannelNotOpen {
			ch.log.Debug().Err(err).Int64("seq", frame.Seq).Msg("Frame send failed")
		}
		return false
	}

	m.metrics.FramesSent.Inc()
	return true
}

// Emit sends an arbitrary event on the current channel
func (m *Manager) Emit(event string, payload interface{}) error {
	ch := m.channel()
	if ch == nil {
		return ErrChannelNotOpen
	}
	return ch.emit(event, payload)
}

// Results delivers detection results in arrival order, tagged with the
// generation of the channel they arrived on
func (m *Manager) Results() <-chan models.DetectionResult {
	return m.results
}

// States delivers channel lifecycle transitions. Events are dropped if the
// consumer falls behind; Status always reflects the latest state.
func (m *Manager) States() <-chan StateEvent {
	return m.states
}

// Generation returns the generation of the current channel
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Status returns a snapshot of the current channel
func (m *Manager) Status() Status {
	ch := m.channel()
	if ch == nil {
		return Status{State: models.ConnStateClosed}
	}

	st := Status{
		Mode:       ch.mode,
		Generation: ch.generation,
		State:      ch.State(),
		URL:        ch.url,
		Namespace:  ch.namespace,
	}
	if err := ch.LastError(); err != nil {
		st.LastError = err.Error()
	}
	return st
}

// Stalled reports whether the current channel has an unanswered frame older than timeout
func (m *Manager) Stalled(timeout time.Duration) bool {
	ch := m.channel()
	return ch != nil && ch.Stalled(time.Now(), timeout)
}

// Close closes the current channel; the manager cannot be reused
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	if m.current != nil {
		m.current.Close()
	}
	m.logger.Info().Msg("Channel manager closed")
}

func (m *Manager) channel() *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) deliver(ctx context.Context, result models.DetectionResult) {
	select {
	case m.results <- result:
	case <-ctx.Done():
	}
}

func (m *Manager) publishState(ev StateEvent) {
	m.metrics.SetChannelState(ev.State)
	select {
	case m.states <- ev:
	default:
		m.logger.Debug().Str("state", string(ev.State)).Msg("State event dropped, consumer is behind")
	}
}
