package socketio

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeEventWithNamespace(t *testing.T) {
	frame := []byte(`42/ws/damage_feed,["response",{"image":"data:image/jpeg;base64,AA==","detections":{"is_danger":true}}]`)

	et, data, err := DecodeEngine(frame)
	if err != nil {
		t.Fatalf("DecodeEngine failed: %v", err)
	}
	if et != EngineMessage {
		t.Fatalf("Expected engine message, got %q", et)
	}

	p, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p.Type != PacketEvent {
		t.Errorf("Expected EVENT, got %q", p.Type)
	}
	if p.Namespace != "/ws/damage_feed" {
		t.Errorf("Expected namespace /ws/damage_feed, got %q", p.Namespace)
	}

	name, args, err := p.Event()
	if err != nil {
		t.Fatalf("Event failed: %v", err)
	}
	if name != "response" {
		t.Errorf("Expected event response, got %q", name)
	}
	if len(args) != 1 {
		t.Fatalf("Expected 1 argument, got %d", len(args))
	}

	var body struct {
		Detections struct {
			IsDanger bool `json:"is_danger"`
		} `json:"detections"`
	}
	if err := json.Unmarshal(args[0], &body); err != nil {
		t.Fatalf("Unmarshal argument failed: %v", err)
	}
	if !body.Detections.IsDanger {
		t.Error("Expected is_danger to survive decoding")
	}
}

func TestDecodeDefaultNamespaceWithAck(t *testing.T) {
	p, err := Decode([]byte(`212["ping"]`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p.Namespace != DefaultNamespace {
		t.Errorf("Expected default namespace, got %q", p.Namespace)
	}
	if p.AckID == nil || *p.AckID != 12 {
		t.Fatalf("Expected ack id 12, got %v", p.AckID)
	}
	if string(p.Data) != `["ping"]` {
		t.Errorf("Unexpected data %s", p.Data)
	}
}

func TestDecodeConnectAckAndError(t *testing.T) {
	ack, err := Decode([]byte(`0/ws/fire_feed,{"sid":"abc"}`))
	if err != nil {
		t.Fatalf("Decode ack failed: %v", err)
	}
	if ack.Type != PacketConnect || ack.Namespace != "/ws/fire_feed" {
		t.Errorf("Unexpected ack packet %+v", ack)
	}

	cerr, err := Decode([]byte(`4/ws/fire_feed,{"message":"Unauthorized"}`))
	if err != nil {
		t.Fatalf("Decode connect error failed: %v", err)
	}
	if cerr.Type != PacketConnectError {
		t.Errorf("Expected CONNECT_ERROR, got %q", cerr.Type)
	}
	if msg := cerr.ErrorMessage(); msg != "Unauthorized" {
		t.Errorf("Expected Unauthorized, got %q", msg)
	}
}

func TestDecodeNamespaceOnly(t *testing.T) {
	p, err := Decode([]byte(`1/ws/video_feed`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p.Type != PacketDisconnect || p.Namespace != "/ws/video_feed" || p.Data != nil {
		t.Errorf("Unexpected packet %+v", p)
	}
}

func TestEncodeEvent(t *testing.T) {
	frame, err := EncodeEvent("/ws/video_feed", "message", "data:image/jpeg;base64,AA==")
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	want := `42/ws/video_feed,["message","data:image/jpeg;base64,AA=="]`
	if string(frame) != want {
		t.Errorf("Expected %s, got %s", want, frame)
	}

	frame, err = EncodeEvent(DefaultNamespace, "message", 1)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	if string(frame) != `42["message",1]` {
		t.Errorf("Default namespace should be omitted, got %s", frame)
	}
}

func TestEncodeConnectDisconnect(t *testing.T) {
	if got := string(EncodeConnect("/ws/weak_feed")); got != "40/ws/weak_feed," {
		t.Errorf("Unexpected connect frame %q", got)
	}
	if got := string(EncodeDisconnect("/ws/weak_feed")); got != "41/ws/weak_feed," {
		t.Errorf("Unexpected disconnect frame %q", got)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeEngine(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("Expected ErrEmptyFrame, got %v", err)
	}
	if _, _, err := DecodeEngine([]byte("9")); err == nil {
		t.Error("Expected error for unknown engine type")
	}
	if _, err := Decode([]byte("x")); err == nil {
		t.Error("Expected error for unknown packet type")
	}
	p, err := Decode([]byte(`2/ns,{"not":"array"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, _, err := p.Event(); !errors.Is(err, ErrMalformedEvent) {
		t.Errorf("Expected ErrMalformedEvent, got %v", err)
	}
}

func TestWebsocketURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:5000":      "ws://localhost:5000/socket.io/?EIO=4&transport=websocket",
		"https://infer.example.com/": "wss://infer.example.com/socket.io/?EIO=4&transport=websocket",
	}
	for base, want := range cases {
		got, err := WebsocketURL(base, "")
		if err != nil {
			t.Fatalf("WebsocketURL(%q) failed: %v", base, err)
		}
		if got != want {
			t.Errorf("WebsocketURL(%q) = %q, want %q", base, got, want)
		}
	}

	if _, err := WebsocketURL("ftp://host", ""); err == nil {
		t.Error("Expected error for unsupported scheme")
	}
}
