// Package socketio implements the text framing of Engine.IO v4 and Socket.IO v5,
// enough for a websocket-only client that emits and receives JSON events.
package socketio

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// EnginePacketType is the leading digit of every Engine.IO frame
type EnginePacketType byte

const (
	EngineOpen    EnginePacketType = '0'
	EngineClose   EnginePacketType = '1'
	EnginePing    EnginePacketType = '2'
	EnginePong    EnginePacketType = '3'
	EngineMessage EnginePacketType = '4'
	EngineUpgrade EnginePacketType = '5'
	EngineNoop    EnginePacketType = '6'
)

// PacketType is the Socket.IO packet type carried inside an Engine.IO message
type PacketType byte

const (
	PacketConnect      PacketType = '0'
	PacketDisconnect   PacketType = '1'
	PacketEvent        PacketType = '2'
	PacketAck          PacketType = '3'
	PacketConnectError PacketType = '4'
	PacketBinaryEvent  PacketType = '5'
	PacketBinaryAck    PacketType = '6'
)

const (
	DefaultNamespace = "/"
	DefaultPath      = "/socket.io/"
)

var (
	ErrEmptyFrame     = errors.New("empty frame")
	ErrMalformedEvent = errors.New("malformed event")
)

// OpenPayload is the handshake the server sends in the Engine.IO open packet
type OpenPayload struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

// Packet is a decoded Socket.IO packet
type Packet struct {
	Type      PacketType
	Namespace string
	AckID     *int
	Data      json.RawMessage
}

// Event returns the event name and raw arguments of an EVENT packet
func (p Packet) Event() (string, []json.RawMessage, error) {
	if p.Type != PacketEvent && p.Type != PacketBinaryEvent {
		return "", nil, fmt.Errorf("%w: packet type %q", ErrMalformedEvent, p.Type)
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(p.Data, &parts); err != nil || len(parts) == 0 {
		return "", nil, ErrMalformedEvent
	}
	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, fmt.Errorf("%w: event name: %v", ErrMalformedEvent, err)
	}
	return name, parts[1:], nil
}

// ErrorMessage extracts the message of a CONNECT_ERROR packet
func (p Packet) ErrorMessage() string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(p.Data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return strings.Trim(string(p.Data), `"`)
}

// WebsocketURL turns an http(s) base URL into the Engine.IO websocket endpoint
func WebsocketURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", base, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if path == "" {
		path = DefaultPath
	}
	u.Path = path
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DecodeEngine splits an Engine.IO text frame into its type and data
func DecodeEngine(frame []byte) (EnginePacketType, []byte, error) {
	if len(frame) == 0 {
		return 0, nil, ErrEmptyFrame
	}
	t := EnginePacketType(frame[0])
	if t < EngineOpen || t > EngineNoop {
		return 0, nil, fmt.Errorf("unknown engine packet type %q", frame[0])
	}
	return t, frame[1:], nil
}

// EncodeEngine builds an Engine.IO text frame
func EncodeEngine(t EnginePacketType, data []byte) []byte {
	out := make([]byte, 0, len(data)+1)
	out = append(out, byte(t))
	return append(out, data...)
}

// Decode parses a Socket.IO packet (the payload of an Engine.IO message)
func Decode(data []byte) (Packet, error) {
	if len(data) == 0 {
		return Packet{}, ErrEmptyFrame
	}
	p := Packet{Type: PacketType(data[0]), Namespace: DefaultNamespace}
	if p.Type < PacketConnect || p.Type > PacketBinaryAck {
		return Packet{}, fmt.Errorf("unknown packet type %q", data[0])
	}
	rest := data[1:]

	// binary packets carry "<attachments>-"; attachments are not supported
	if p.Type == PacketBinaryEvent || p.Type == PacketBinaryAck {
		i := strings.IndexByte(string(rest), '-')
		if i < 0 {
			return Packet{}, fmt.Errorf("binary packet without attachment count")
		}
		rest = rest[i+1:]
	}

	if len(rest) > 0 && rest[0] == '/' {
		i := strings.IndexByte(string(rest), ',')
		if i < 0 {
			p.Namespace = string(rest)
			rest = nil
		} else {
			p.Namespace = string(rest[:i])
			rest = rest[i+1:]
		}
	}

	n := 0
	for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
		n++
	}
	if n > 0 {
		id, err := strconv.Atoi(string(rest[:n]))
		if err != nil {
			return Packet{}, fmt.Errorf("parse ack id: %w", err)
		}
		p.AckID = &id
		rest = rest[n:]
	}

	if len(rest) > 0 {
		p.Data = json.RawMessage(rest)
	}
	return p, nil
}

// Encode serialises a Socket.IO packet
func Encode(p Packet) []byte {
	var b strings.Builder
	b.WriteByte(byte(p.Type))
	if p.Namespace != "" && p.Namespace != DefaultNamespace {
		b.WriteString(p.Namespace)
		b.WriteByte(',')
	}
	if p.AckID != nil {
		b.WriteString(strconv.Itoa(*p.AckID))
	}
	b.Write(p.Data)
	return []byte(b.String())
}

// EncodeEvent builds an Engine.IO message frame carrying a Socket.IO EVENT
func EncodeEvent(namespace, event string, args ...interface{}) ([]byte, error) {
	parts := make([]interface{}, 0, len(args)+1)
	parts = append(parts, event)
	parts = append(parts, args...)
	data, err := json.Marshal(parts)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event, err)
	}
	return EncodeEngine(EngineMessage, Encode(Packet{Type: PacketEvent, Namespace: namespace, Data: data})), nil
}

// EncodeConnect builds the namespace CONNECT frame a client sends after the handshake
func EncodeConnect(namespace string) []byte {
	return EncodeEngine(EngineMessage, Encode(Packet{Type: PacketConnect, Namespace: namespace}))
}

// EncodeDisconnect builds the namespace DISCONNECT frame
func EncodeDisconnect(namespace string) []byte {
	return EncodeEngine(EngineMessage, Encode(Packet{Type: PacketDisconnect, Namespace: namespace}))
}
