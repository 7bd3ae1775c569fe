package framepump

import (
	"context"
	"image"
	"io"
	"time"
)

// Pacer spaces calls to Wait at a fixed interval, catching up without bursting
// when the caller falls behind
type Pacer struct {
	interval time.Duration
	next     time.Time
}

// NewPacer returns a pacer for fps frames per second; fps <= 0 disables pacing
func NewPacer(fps float64) *Pacer {
	if fps <= 0 {
		return &Pacer{}
	}
	return &Pacer{interval: time.Duration(float64(time.Second) / fps)}
}

// Wait blocks until the next frame is due or ctx is done
func (p *Pacer) Wait(ctx context.Context) error {
	if p.interval <= 0 {
		return ctx.Err()
	}

	now := time.Now()
	if p.next.Before(now) {
		p.next = now
	}
	delay := p.next.Sub(now)
	p.next = p.next.Add(p.interval)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Reset forgets the schedule, used when playback resumes after a pause
func (p *Pacer) Reset() {
	p.next = time.Time{}
}

// StillSource repeats one image at a fixed rate. Limit > 0 ends the stream
// after that many frames. It stands in for a camera in tests and demos.
type StillSource struct {
	Image image.Image
	Limit int

	pacer *Pacer
	count int
}

// NewStillSource creates a source that renders img fps times per second
func NewStillSource(img image.Image, fps float64, limit int) *StillSource {
	return &StillSource{Image: img, Limit: limit, pacer: NewPacer(fps)}
}

func (s *StillSource) Next(ctx context.Context) (image.Image, error) {
	if s.Limit > 0 && s.count >= s.Limit {
		return nil, io.EOF
	}
	if err := s.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	s.count++
	return s.Image, nil
}
