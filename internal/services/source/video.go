// Package source reads frames from a video file or capture device with OpenCV.
package source

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"vigil-live-go/internal/services/framepump"
)

const defaultFPS = 30

// VideoSource plays a file or device at its native frame rate
type VideoSource struct {
	uri  string
	loop bool

	mu      sync.Mutex
	capture *gocv.VideoCapture
	mat     gocv.Mat
	pacer   *framepump.Pacer
	frames  int64
	closed  bool
}

// Open opens uri, which may be a file path, a stream URL or a device index such as "0".
// With loop set, a file restarts from its first frame instead of ending.
func Open(uri string, loop bool) (*VideoSource, error) {
	capture, err := gocv.OpenVideoCapture(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open video source %s: %w", uri, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("video source %s is not opened", uri)
	}

	fps := capture.Get(gocv.VideoCaptureFPS)
	if fps <= 0 || fps > 120 {
		fps = defaultFPS
	}

	log.Info().
		Str("source", uri).
		Float64("fps", fps).
		Float64("width", capture.Get(gocv.VideoCaptureFrameWidth)).
		Float64("height", capture.Get(gocv.VideoCaptureFrameHeight)).
		Bool("loop", loop).
		Msg("Video source opened")

	return &VideoSource{
		uri:     uri,
		loop:    loop,
		capture: capture,
		mat:     gocv.NewMat(),
		pacer:   framepump.NewPacer(fps),
	}, nil
}

// Next waits for the next frame time and decodes one frame
func (s *VideoSource) Next(ctx context.Context) (image.Image, error) {
	if err := s.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, io.EOF
	}

	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		if !s.loop || s.frames == 0 {
			return nil, io.EOF
		}
		log.Debug().Str("source", s.uri).Int64("frames", s.frames).Msg("Rewinding video source")
		s.capture.Set(gocv.VideoCapturePosFrames, 0)
		if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
			return nil, io.EOF
		}
	}
	s.frames++

	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame %d: %w", s.frames, err)
	}
	return img, nil
}

// Close releases the capture device
func (s *VideoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.mat.Close()
	return s.capture.Close()
}
