package framepump

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vigil-live-go/internal/metrics"
	"vigil-live-go/internal/models"
)

const maxConsecutiveErrors = 10

// ErrEnded is returned by Play once the source has reached its end
var ErrEnded = errors.New("video source has ended")

// State is the playback state of the pump
type State string

const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
)

// Source yields decoded video frames at the source's own cadence.
// Next returns io.EOF once no more frames will be produced.
type Source interface {
	Next(ctx context.Context) (image.Image, error)
}

// Sender accepts encoded frames; it may drop them
type Sender interface {
	Send(frame models.Frame) bool
}

// Pump samples every frame the source renders while playing and forwards it,
// bounded and encoded, to the sender
type Pump struct {
	source  Source
	sender  Sender
	encoder Encoder
	metrics *metrics.Metrics
	logger  zerolog.Logger

	opMu sync.Mutex // serialises Play, Pause and Stop

	mu      sync.Mutex
	state   State
	seq     int64
	lastErr error
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates an idle pump
func New(source Source, sender Sender, encoder Encoder, m *metrics.Metrics) *Pump {
	return &Pump{
		source:  source,
		sender:  sender,
		encoder: encoder,
		metrics: m,
		logger:  log.With().Str("component", "frame_pump").Logger(),
		state:   StateIdle,
	}
}

// Play starts the sampling loop. It is a no-op while already playing.
func (p *Pump) Play() error {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StatePlaying:
		return nil
	case StateEnded:
		return ErrEnded
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.state = StatePlaying

	go p.run(ctx, done)

	p.logger.Info().Msg("Frame pump playing")
	return nil
}

// Pause suspends sampling; it returns once the loop has exited
func (p *Pump) Pause() {
	p.halt(StatePaused)
}

// Stop cancels sampling and returns once the loop has exited. No frame is sent
// after Stop returns. It reports whether the pump was playing.
func (p *Pump) Stop() bool {
	return p.halt(StateIdle)
}

func (p *Pump) halt(next State) bool {
	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.mu.Lock()
	wasPlaying := p.state == StatePlaying
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	if p.state != StateEnded {
		p.state = next
	}
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if wasPlaying {
		p.logger.Info().Str("state", string(next)).Msg("Frame pump halted")
	}
	return wasPlaying
}

// State returns the current playback state
func (p *Pump) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastError returns the error that ended the stream, if any
func (p *Pump) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Pump) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	consecutiveErrors := 0
	for {
		img, err := p.source.Next(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.end(done, nil)
				return
			}

			consecutiveErrors++
			p.logger.Warn().Err(err).Int("consecutive_errors", consecutiveErrors).Msg("Failed to read frame")
			if consecutiveErrors >= maxConsecutiveErrors {
				p.end(done, err)
				return
			}
			continue
		}
		consecutiveErrors = 0
		p.metrics.FramesSampled.Inc()

		frame, err := p.encoder.Encode(img)
		if err != nil {
			p.metrics.EncodeErrors.Inc()
			p.logger.Debug().Err(err).Msg("Failed to encode frame")
			continue
		}

		p.mu.Lock()
		p.seq++
		frame.Seq = p.seq
		p.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		p.sender.Send(frame)
	}
}

// end marks the stream ended if the loop identified by done is still the current one
func (p *Pump) end(done chan struct{}, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != done {
		return
	}
	p.state = StateEnded
	p.lastErr = err
	p.cancel()
	p.cancel, p.done = nil, nil

	ev := p.logger.Info()
	if err != nil {
		ev = p.logger.Error().Err(err)
	}
	ev.Int64("frames", p.seq).Msg("Video source ended")
}
