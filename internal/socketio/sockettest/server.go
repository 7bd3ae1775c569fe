// Package sockettest provides an in-process Socket.IO server for tests.
package sockettest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"vigil-live-go/internal/socketio"
)

// Event is an event a client emitted to the server
type Event struct {
	Namespace string
	Name      string
	Args      []json.RawMessage
}

// Responder produces the payload the server answers a client event with.
// Returning ok=false sends nothing.
type Responder func(namespace string, ev Event) (reply string, payload interface{}, ok bool)

type conn struct {
	ws        *websocket.Conn
	namespace string
	mu        sync.Mutex
}

func (c *conn) send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

// Server speaks enough Engine.IO v4 / Socket.IO v5 to stand in for the inference service
type Server struct {
	*httptest.Server

	upgrader websocket.Upgrader

	mu        sync.Mutex
	respond   Responder
	refuse    map[string]string
	silent    map[string]bool
	conns     map[*conn]struct{}
	connected int
	received  []Event

	events      chan Event
	connects    chan string
	disconnects chan string
	pongs       chan struct{}
}

// NewServer starts a server; close it with Close
func NewServer() *Server {
	s := &Server{
		refuse:      make(map[string]string),
		silent:      make(map[string]bool),
		conns:       make(map[*conn]struct{}),
		events:      make(chan Event, 64),
		connects:    make(chan string, 16),
		disconnects: make(chan string, 16),
		pongs:       make(chan struct{}, 16),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// OnEvent sets how the server answers client events
func (s *Server) OnEvent(r Responder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respond = r
}

// Refuse makes namespace CONNECT requests fail with message
func (s *Server) Refuse(namespace, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refuse[namespace] = message
}

// Silence makes the server never acknowledge CONNECT for namespace
func (s *Server) Silence(namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silent[namespace] = true
}

// Events returns client events in arrival order. Events are dropped from
// this stream once its buffer is full; Received keeps all of them.
func (s *Server) Events() <-chan Event { return s.events }

// Received returns every event named name received so far
func (s *Server) Received(name string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, ev := range s.received {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// WaitFor polls until an event named name has been received or timeout elapses
func (s *Server) WaitFor(name string, timeout time.Duration) (Event, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if evs := s.Received(name); len(evs) > 0 {
			return evs[0], true
		}
		if time.Now().After(deadline) {
			return Event{}, false
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Connects returns the namespaces clients joined
func (s *Server) Connects() <-chan string { return s.connects }

// Disconnects returns the namespaces whose client connection ended
func (s *Server) Disconnects() <-chan string { return s.disconnects }

// Pongs signals each pong received
func (s *Server) Pongs() <-chan struct{} { return s.pongs }

// Connected returns the number of currently joined connections
func (s *Server) Connected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Push emits an event to every client joined to namespace
func (s *Server) Push(namespace, event string, payload interface{}) error {
	frame, err := socketio.EncodeEvent(namespace, event, payload)
	if err != nil {
		return err
	}
	for _, c := range s.joined(namespace) {
		if err := c.send(frame); err != nil {
			return err
		}
	}
	return nil
}

// Ping sends an Engine.IO ping to every joined client
func (s *Server) Ping() {
	for _, c := range s.joined("") {
		_ = c.send(socketio.EncodeEngine(socketio.EnginePing, nil))
	}
}

func (s *Server) joined(namespace string) []*conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*conn
	for c := range s.conns {
		if c.namespace != "" && (namespace == "" || c.namespace == namespace) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
		http.Error(w, "unsupported transport", http.StatusBadRequest)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &conn{ws: ws}

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		ws.Close()
		s.mu.Lock()
		delete(s.conns, c)
		joined := c.namespace != ""
		if joined {
			s.connected--
		}
		s.mu.Unlock()
		if joined {
			notify(s.disconnects, c.namespace)
		}
	}()

	open := fmt.Sprintf(`{"sid":"test-%p","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`, c)
	if err := c.send(socketio.EncodeEngine(socketio.EngineOpen, []byte(open))); err != nil {
		return
	}

	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			return
		}
		t, data, err := socketio.DecodeEngine(frame)
		if err != nil {
			continue
		}
		switch t {
		case socketio.EnginePong:
			notify(s.pongs, struct{}{})
			continue
		case socketio.EngineMessage:
		default:
			continue
		}

		p, err := socketio.Decode(data)
		if err != nil {
			continue
		}
		switch p.Type {
		case socketio.PacketConnect:
			s.join(c, p.Namespace)
		case socketio.PacketDisconnect:
			return
		case socketio.PacketEvent:
			s.dispatch(c, p)
		}
	}
}

func (s *Server) join(c *conn, namespace string) {
	s.mu.Lock()
	refusal, refused := s.refuse[namespace]
	silent := s.silent[namespace]
	s.mu.Unlock()

	if silent {
		return
	}
	if refused {
		body, _ := json.Marshal(map[string]string{"message": refusal})
		_ = c.send(socketio.EncodeEngine(socketio.EngineMessage, socketio.Encode(socketio.Packet{
			Type: socketio.PacketConnectError, Namespace: namespace, Data: body,
		})))
		return
	}

	body, _ := json.Marshal(map[string]string{"sid": fmt.Sprintf("ns-%p", c)})
	s.mu.Lock()
	c.namespace = namespace
	s.connected++
	s.mu.Unlock()

	_ = c.send(socketio.EncodeEngine(socketio.EngineMessage, socketio.Encode(socketio.Packet{
		Type: socketio.PacketConnect, Namespace: namespace, Data: body,
	})))
	notify(s.connects, namespace)
}

func (s *Server) dispatch(c *conn, p socketio.Packet) {
	name, args, err := p.Event()
	if err != nil {
		return
	}
	ev := Event{Namespace: p.Namespace, Name: name, Args: args}
	select {
	case s.events <- ev:
	default:
	}

	s.mu.Lock()
	s.received = append(s.received, ev)
	respond := s.respond
	s.mu.Unlock()
	if respond == nil {
		return
	}

	reply, payload, ok := respond(p.Namespace, ev)
	if !ok {
		return
	}
	frame, err := socketio.EncodeEvent(p.Namespace, reply, payload)
	if err != nil {
		return
	}
	_ = c.send(frame)
}

func notify[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}
