package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"vigil-live-go/internal/models"
	"vigil-live-go/internal/socketio"
)

const (
	EventMessage         = "message"
	EventResponse        = "response"
	EventError           = "error"
	EventConfirmIncident = "confirm_incident"

	writeTimeout = 10 * time.Second
)

// ErrChannelNotOpen is returned when emitting on a channel that is not Open
var ErrChannelNotOpen = errors.New("channel is not open")

// StateEvent reports a lifecycle transition of one channel
type StateEvent struct {
	Mode       models.DetectionMode
	Generation uint64
	State      models.ConnState
	Err        error
	At         time.Time
}

// Channel is one Socket.IO connection bound to a single detection mode.
// It is created Connecting, becomes Open once the namespace CONNECT is
// acknowledged, and ends Closed or Errored. It is never reopened.
type Channel struct {
	mode       models.DetectionMode
	generation uint64
	url        string
	namespace  string
	dialer     *websocket.Dialer
	log        zerolog.Logger

	onState  func(StateEvent)
	onResult func(context.Context, models.DetectionResult)
	onDecode func(error)

	mu           sync.Mutex
	conn         *websocket.Conn
	state        models.ConnState
	lastErr      error
	closed       bool
	pendingSince time.Time // first send not yet answered by a result

	writeMu sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

func (c *Channel) start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx)
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.fail(fmt.Errorf("dial %s: %w", c.url, err))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	if err := c.handshake(conn); err != nil {
		c.fail(err)
		return
	}

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.setState(models.ConnStateClosed, nil)
				return
			}
			c.fail(fmt.Errorf("read: %w", err))
			return
		}

		if stop := c.handleFrame(ctx, frame); stop {
			return
		}
	}
}

// handshake waits for the Engine.IO open packet and requests the namespace
func (c *Channel) handshake(conn *websocket.Conn) error {
	_, frame, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read open packet: %w", err)
	}
	t, data, err := socketio.DecodeEngine(frame)
	if err != nil {
		return fmt.Errorf("decode open packet: %w", err)
	}
	if t != socketio.EngineOpen {
		return fmt.Errorf("expected open packet, got %q", t)
	}

	var open socketio.OpenPayload
	if err := json.Unmarshal(data, &open); err != nil {
		return fmt.Errorf("parse open payload: %w", err)
	}
	c.log.Debug().
		Str("sid", open.SID).
		Int("ping_interval_ms", open.PingInterval).
		Msg("Engine.IO handshake received")

	return c.write(socketio.EncodeConnect(c.namespace))
}

// handleFrame processes one inbound frame and reports whether the read loop should stop
func (c *Channel) handleFrame(ctx context.Context, frame []byte) bool {
	t, data, err := socketio.DecodeEngine(frame)
	if err != nil {
		c.decodeFailed(err)
		return false
	}

	switch t {
	case socketio.EnginePing:
		if err := c.write(socketio.EncodeEngine(socketio.EnginePong, data)); err != nil {
			c.log.Warn().Err(err).Msg("Failed to answer ping")
		}
		return false
	case socketio.EngineClose:
		c.setState(models.ConnStateClosed, nil)
		return true
	case socketio.EngineMessage:
	default:
		return false
	}

	p, err := socketio.Decode(data)
	if err != nil {
		c.decodeFailed(err)
		return false
	}
	if p.Namespace != c.namespace {
		return false
	}

	switch p.Type {
	case socketio.PacketConnect:
		c.setState(models.ConnStateOpen, nil)
	case socketio.PacketConnectError:
		c.fail(fmt.Errorf("namespace %s refused: %s", c.namespace, p.ErrorMessage()))
		return true
	case socketio.PacketDisconnect:
		c.setState(models.ConnStateClosed, nil)
		return true
	case socketio.PacketEvent:
		c.handleEvent(ctx, p)
	}
	return false
}

func (c *Channel) handleEvent(ctx context.Context, p socketio.Packet) {
	name, args, err := p.Event()
	if err != nil {
		c.decodeFailed(err)
		return
	}

	switch name {
	case EventResponse:
		if len(args) == 0 {
			c.decodeFailed(fmt.Errorf("response event without payload"))
			return
		}
		result, err := models.DecodeResponse(c.mode, args[0])
		if err != nil {
			c.decodeFailed(err)
			return
		}
		result.Generation = c.generation

		c.mu.Lock()
		c.pendingSince = time.Time{}
		c.mu.Unlock()

		if c.onResult != nil {
			c.onResult(ctx, result)
		}
	case EventError:
		var body struct {
			Message string `json:"message"`
		}
		if len(args) > 0 {
			_ = json.Unmarshal(args[0], &body)
		}
		c.mu.Lock()
		c.lastErr = fmt.Errorf("inference error: %s", body.Message)
		c.mu.Unlock()
		c.log.Warn().Str("message", body.Message).Msg("Inference service reported an error")
	default:
		c.log.Debug().Str("event", name).Msg("Ignoring unknown event")
	}
}

// emit sends an event if the channel is Open
func (c *Channel) emit(event string, args ...interface{}) error {
	frame, err := socketio.EncodeEvent(c.namespace, event, args...)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	if c.state != models.ConnStateOpen || c.closed {
		c.mu.Unlock()
		return ErrChannelNotOpen
	}
	conn := c.conn
	if event == EventMessage && c.pendingSince.IsZero() {
		c.pendingSince = time.Now()
	}
	c.mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write %s: %w", event, err)
	}
	return nil
}

func (c *Channel) write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrChannelNotOpen
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

// Close tears the channel down and waits for its reader to exit.
// After Close returns the channel emits nothing and delivers no results.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.done
		return
	}
	c.closed = true
	wasOpen := c.state == models.ConnStateOpen
	prev := c.state
	c.state = models.ConnStateClosed
	c.mu.Unlock()

	c.cancel()

	c.writeMu.Lock()
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		if wasOpen {
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			_ = conn.WriteMessage(websocket.TextMessage, socketio.EncodeDisconnect(c.namespace))
		}
		conn.Close()
	}
	c.writeMu.Unlock()

	<-c.done

	if prev != models.ConnStateClosed && c.onState != nil {
		c.onState(StateEvent{Mode: c.mode, Generation: c.generation, State: models.ConnStateClosed, At: time.Now()})
	}
}

func (c *Channel) fail(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.setState(models.ConnStateErrored, err)
}

func (c *Channel) setState(state models.ConnState, err error) {
	c.mu.Lock()
	if c.closed || c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	if err != nil {
		c.lastErr = err
	}
	c.mu.Unlock()

	ev := c.log.Info()
	if err != nil {
		ev = c.log.Warn().Err(err)
	}
	ev.Str("state", string(state)).Msg("Channel state changed")

	if c.onState != nil {
		c.onState(StateEvent{Mode: c.mode, Generation: c.generation, State: state, Err: err, At: time.Now()})
	}
}

func (c *Channel) decodeFailed(err error) {
	c.log.Debug().Err(err).Msg("Dropping undecodable packet")
	if c.onDecode != nil {
		c.onDecode(err)
	}
}

func (c *Channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// State returns the current lifecycle state
func (c *Channel) State() models.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the most recent connection or inference error
func (c *Channel) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Stalled reports whether a sent frame has gone unanswered for longer than timeout
func (c *Channel) Stalled(now time.Time, timeout time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return timeout > 0 &&
		c.state == models.ConnStateOpen &&
		!c.pendingSince.IsZero() &&
		now.Sub(c.pendingSince) > timeout
}
