package mjpeg

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	boundary         = "frame"
	defaultKeepalive = 2 * time.Second
)

// Publisher fans the latest annotated JPEG out to any number of
// multipart/x-mixed-replace viewers
type Publisher struct {
	jpegMutex sync.RWMutex
	latest    []byte

	notifyMutex sync.Mutex
	viewers     map[chan struct{}]struct{}

	keepalive time.Duration
}

func NewPublisher(keepalive time.Duration) *Publisher {
	if keepalive <= 0 {
		keepalive = defaultKeepalive
	}
	return &Publisher{
		viewers:   make(map[chan struct{}]struct{}),
		keepalive: keepalive,
	}
}

// Publish replaces the latest frame and wakes every viewer
func (p *Publisher) Publish(jpeg []byte) {
	frame := make([]byte, len(jpeg))
	copy(frame, jpeg)

	p.jpegMutex.Lock()
	p.latest = frame
	p.jpegMutex.Unlock()

	p.notifyMutex.Lock()
	for notify := range p.viewers {
		select {
		case notify <- struct{}{}:
		default:
		}
	}
	p.notifyMutex.Unlock()
}

// Reset drops the latest frame; viewers keep their connection and wait for the next one
func (p *Publisher) Reset() {
	p.jpegMutex.Lock()
	p.latest = nil
	p.jpegMutex.Unlock()
}

func (p *Publisher) Latest() []byte {
	p.jpegMutex.RLock()
	defer p.jpegMutex.RUnlock()
	return p.latest
}

func (p *Publisher) Viewers() int {
	p.notifyMutex.Lock()
	defer p.notifyMutex.Unlock()
	return len(p.viewers)
}

func (p *Publisher) subscribe() chan struct{} {
	notify := make(chan struct{}, 1)
	p.notifyMutex.Lock()
	p.viewers[notify] = struct{}{}
	p.notifyMutex.Unlock()
	return notify
}

func (p *Publisher) unsubscribe(notify chan struct{}) {
	p.notifyMutex.Lock()
	delete(p.viewers, notify)
	p.notifyMutex.Unlock()
}

func (p *Publisher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	notify := p.subscribe()
	defer p.unsubscribe(notify)

	writePart := func(jpeg []byte) bool {
		if _, err := io.WriteString(w, "--"+boundary+"\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "Content-Type: image/jpeg\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, fmt.Sprintf("Content-Length: %d\r\n\r\n", len(jpeg))); err != nil {
			return false
		}
		if _, err := w.Write(jpeg); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	flusher.Flush()
	if first := p.Latest(); len(first) > 0 {
		if !writePart(first) {
			return
		}
	}

	keepaliveTicker := time.NewTicker(p.keepalive)
	defer keepaliveTicker.Stop()

	log.Debug().Str("remote", r.RemoteAddr).Msg("MJPEG viewer attached")
	defer log.Debug().Str("remote", r.RemoteAddr).Msg("MJPEG viewer detached")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-notify:
		case <-keepaliveTicker.C:
		}
		if buf := p.Latest(); len(buf) > 0 {
			if !writePart(buf) {
				return
			}
		}
	}
}
