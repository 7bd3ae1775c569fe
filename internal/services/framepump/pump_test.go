package framepump

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"vigil-live-go/internal/helpers"
	"vigil-live-go/internal/metrics"
	"vigil-live-go/internal/models"
)

type recordingSender struct {
	mu     sync.Mutex
	frames []models.Frame
}

func (s *recordingSender) Send(frame models.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
	return true
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *recordingSender) first() models.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[0]
}

type failingSource struct{}

func (failingSource) Next(ctx context.Context) (image.Image, error) {
	return nil, errors.New("decoder error")
}

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 8 {
		for x := 0; x < w; x += 8 {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return img
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestEncoderBoundsFullHDFrame(t *testing.T) {
	enc := NewEncoder(640, 50)
	frame, err := enc.Encode(solidImage(1920, 1080))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if frame.Width != 640 || frame.Height != 360 {
		t.Fatalf("Expected 640x360, got %dx%d", frame.Width, frame.Height)
	}
	if !helpers.IsJPEGData(frame.Data) {
		t.Fatal("Expected JPEG output")
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame.Data))
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}
	if cfg.Width != 640 || cfg.Height != 360 {
		t.Errorf("Encoded JPEG is %dx%d", cfg.Width, cfg.Height)
	}
}

func TestEncoderKeepsSmallFrames(t *testing.T) {
	frame, err := NewEncoder(0, 0).Encode(solidImage(320, 240))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if frame.Width != 320 || frame.Height != 240 {
		t.Errorf("Expected frame left at 320x240, got %dx%d", frame.Width, frame.Height)
	}
	if frame.Quality != helpers.DefaultQuality {
		t.Errorf("Expected default quality, got %d", frame.Quality)
	}
}

func TestPumpSendsBoundedFrames(t *testing.T) {
	sender := &recordingSender{}
	p := New(NewStillSource(solidImage(1920, 1080), 200, 0), sender, NewEncoder(640, 50), metrics.New())

	if err := p.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	waitFor(t, func() bool { return sender.count() >= 3 }, "Pump never sent frames")
	p.Stop()

	f := sender.first()
	if f.Width != 640 || f.Height != 360 {
		t.Errorf("Expected 640x360 frames, got %dx%d", f.Width, f.Height)
	}
	if f.Seq != 1 {
		t.Errorf("Expected first sequence number 1, got %d", f.Seq)
	}
}

func TestNoFrameAfterStop(t *testing.T) {
	sender := &recordingSender{}
	p := New(NewStillSource(solidImage(64, 48), 0, 0), sender, NewEncoder(640, 50), metrics.New())

	if err := p.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	waitFor(t, func() bool { return sender.count() > 0 }, "Pump never sent frames")

	if !p.Stop() {
		t.Error("Expected Stop to report the pump was playing")
	}
	stopped := sender.count()
	time.Sleep(50 * time.Millisecond)
	if n := sender.count(); n != stopped {
		t.Fatalf("Frames sent after Stop returned: %d -> %d", stopped, n)
	}
	if p.State() != StateIdle {
		t.Errorf("Expected idle, got %s", p.State())
	}
}

func TestPauseAndResume(t *testing.T) {
	sender := &recordingSender{}
	p := New(NewStillSource(solidImage(64, 48), 500, 0), sender, NewEncoder(640, 50), metrics.New())

	if err := p.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	waitFor(t, func() bool { return sender.count() > 0 }, "Pump never sent frames")

	p.Pause()
	if p.State() != StatePaused {
		t.Fatalf("Expected paused, got %s", p.State())
	}
	paused := sender.count()
	time.Sleep(30 * time.Millisecond)
	if sender.count() != paused {
		t.Fatal("Pump kept sampling while paused")
	}

	if err := p.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	waitFor(t, func() bool { return sender.count() > paused }, "Pump did not resume")
	p.Stop()
}

func TestPumpEndsWithSource(t *testing.T) {
	sender := &recordingSender{}
	p := New(NewStillSource(solidImage(64, 48), 0, 3), sender, NewEncoder(640, 50), metrics.New())

	if err := p.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	waitFor(t, func() bool { return p.State() == StateEnded }, "Pump never ended")

	if n := sender.count(); n != 3 {
		t.Errorf("Expected 3 frames, got %d", n)
	}
	if err := p.Play(); !errors.Is(err, ErrEnded) {
		t.Errorf("Expected ErrEnded, got %v", err)
	}
	if p.LastError() != nil {
		t.Errorf("Expected clean end, got %v", p.LastError())
	}
}

func TestPumpEndsAfterRepeatedReadErrors(t *testing.T) {
	sender := &recordingSender{}
	p := New(failingSource{}, sender, NewEncoder(640, 50), metrics.New())

	if err := p.Play(); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	waitFor(t, func() bool { return p.State() == StateEnded }, "Pump never gave up")
	if p.LastError() == nil {
		t.Error("Expected the read error to be kept")
	}
	if sender.count() != 0 {
		t.Error("Expected no frames from a failing source")
	}
}

func TestPacerSpacesFrames(t *testing.T) {
	pacer := NewPacer(100)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := pacer.Wait(ctx); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("Expected about 30ms for 4 frames at 100fps, got %v", elapsed)
	}

	slow := NewPacer(1)
	if err := slow.Wait(ctx); err != nil {
		t.Fatalf("First frame should be due immediately: %v", err)
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := slow.Wait(cancelled); err == nil {
		t.Error("Expected cancelled context to interrupt the wait")
	}
}
