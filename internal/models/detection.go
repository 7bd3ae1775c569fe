package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"vigil-live-go/internal/helpers"
)

// DetectionMode represents the anomaly category the live view is monitoring
type DetectionMode string

const (
	DetectionModeSmoking    DetectionMode = "smoking"
	DetectionModeAbandoned  DetectionMode = "abandoned"
	DetectionModeDamage     DetectionMode = "damage"
	DetectionModeViolence   DetectionMode = "violence"
	DetectionModeVulnerable DetectionMode = "vulnerable"
	DetectionModeFire       DetectionMode = "fire"
)

// ErrUnknownMode is returned when a mode name does not match any detection mode
var ErrUnknownMode = errors.New("unknown detection mode")

// AllModes lists the detection modes in the order the console presents them
var AllModes = []DetectionMode{
	DetectionModeSmoking,
	DetectionModeAbandoned,
	DetectionModeDamage,
	DetectionModeViolence,
	DetectionModeVulnerable,
	DetectionModeFire,
}

type modeInfo struct {
	label     string
	namespace string
	detected  string
	clear     string
}

var modeTable = map[DetectionMode]modeInfo{
	DetectionModeSmoking:    {label: "흡연 감지", namespace: "/ws/video_feed"},
	DetectionModeAbandoned:  {label: "유기물 감지", namespace: "/ws/abandoned_feed", detected: "유기물 감지됨!", clear: "유기물 없음"},
	DetectionModeDamage:     {label: "파손 감지", namespace: "/ws/damage_feed", detected: "파손 감지됨!", clear: "파손 없음"},
	DetectionModeViolence:   {label: "폭행 감지", namespace: "/ws/violence_feed", detected: "폭행 감지됨!", clear: "폭행 없음"},
	DetectionModeVulnerable: {label: "교통약자 감지", namespace: "/ws/weak_feed", detected: "교통약자 감지됨!", clear: "교통약자 없음"},
	DetectionModeFire:       {label: "화재 감지", namespace: "/ws/fire_feed", detected: "화재 감지됨!", clear: "화재 없음"},
}

// ParseDetectionMode parses a mode name. The legacy wire name "weak" maps to vulnerable.
func ParseDetectionMode(s string) (DetectionMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "weak" {
		return DetectionModeVulnerable, nil
	}
	mode := DetectionMode(name)
	if _, ok := modeTable[mode]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return mode, nil
}

// Valid reports whether m is one of the known modes
func (m DetectionMode) Valid() bool {
	_, ok := modeTable[m]
	return ok
}

// Label returns the operator-facing label, e.g. "흡연 감지"
func (m DetectionMode) Label() string {
	if info, ok := modeTable[m]; ok {
		return info.label
	}
	return "모드 전환"
}

// Namespace returns the default Socket.IO namespace of the inference endpoint
func (m DetectionMode) Namespace() string {
	return modeTable[m].namespace
}

// DetectedText is the status shown when the server flags a detection without a message
func (m DetectionMode) DetectedText() string {
	return modeTable[m].detected
}

// ClearText is the status shown when the server reports nothing without a message
func (m DetectionMode) ClearText() string {
	return modeTable[m].clear
}

// ConnState is the lifecycle state of a single channel
type ConnState string

const (
	ConnStateConnecting ConnState = "connecting"
	ConnStateOpen       ConnState = "open"
	ConnStateClosed     ConnState = "closed"
	ConnStateErrored    ConnState = "errored"
)

// DisplayText is the placeholder the live view shows for the state
func (s ConnState) DisplayText() string {
	switch s {
	case ConnStateOpen:
		return "Waiting for video stream..."
	case ConnStateErrored:
		return "Connection failed"
	default:
		return "Connecting..."
	}
}

// Frame is one encoded still sampled from the video source
type Frame struct {
	Seq        int64
	Width      int
	Height     int
	Quality    int
	Data       []byte
	CapturedAt time.Time
}

// DataURL renders the frame the way the inference server expects it
func (f Frame) DataURL() string {
	return helpers.EncodeDataURL(f.Data)
}

// Detections is the mode-specific part of a detection result.
// Exactly one implementation exists per DetectionMode.
type Detections interface {
	DetectionMode() DetectionMode
}

type SmokingDetections struct {
	Prediction string `json:"prediction"`
}

type AbandonedDetections struct {
	StatusMessage  string            `json:"status_message,omitempty"`
	AbandonedItems []json.RawMessage `json:"abandoned_items"`
}

type DamageDetections struct {
	StatusMessage string `json:"status_message,omitempty"`
	IsDanger      bool   `json:"is_danger"`
}

type ViolenceDetections struct {
	StatusMessage string `json:"status_message,omitempty"`
	IsViolence    bool   `json:"is_violence"`
}

type VulnerableDetections struct {
	StatusMessage string `json:"status_message,omitempty"`
	IsWeak        bool   `json:"is_weak"`
}

type FireDetections struct {
	StatusMessage string `json:"status_message,omitempty"`
	IsFire        bool   `json:"is_fire"`
}

func (SmokingDetections) DetectionMode() DetectionMode    { return DetectionModeSmoking }
func (AbandonedDetections) DetectionMode() DetectionMode  { return DetectionModeAbandoned }
func (DamageDetections) DetectionMode() DetectionMode     { return DetectionModeDamage }
func (ViolenceDetections) DetectionMode() DetectionMode   { return DetectionModeViolence }
func (VulnerableDetections) DetectionMode() DetectionMode { return DetectionModeVulnerable }
func (FireDetections) DetectionMode() DetectionMode       { return DetectionModeFire }

// DetectionResult is one annotated response from the inference service
type DetectionResult struct {
	Mode       DetectionMode
	Generation uint64 // channel generation the result arrived on
	Image      string // data URL of the annotated frame
	Detections Detections
	ReceivedAt time.Time
}

// responsePayload is the wire shape of the "response" event
type responsePayload struct {
	Image      string          `json:"image"`
	Prediction *string         `json:"prediction,omitempty"`
	Detections json.RawMessage `json:"detections,omitempty"`
}

// DecodeResponse builds a DetectionResult for mode from a raw "response" payload.
// Fields that do not belong to mode are ignored.
func DecodeResponse(mode DetectionMode, raw []byte) (DetectionResult, error) {
	var payload responsePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return DetectionResult{}, fmt.Errorf("decode response payload: %w", err)
	}

	result := DetectionResult{
		Mode:       mode,
		Image:      payload.Image,
		ReceivedAt: time.Now(),
	}

	var err error
	switch mode {
	case DetectionModeSmoking:
		det := SmokingDetections{}
		if payload.Prediction != nil {
			det.Prediction = *payload.Prediction
		}
		result.Detections = det
	case DetectionModeAbandoned:
		det := AbandonedDetections{}
		err = decodeDetections(payload.Detections, &det)
		result.Detections = det
	case DetectionModeDamage:
		det := DamageDetections{}
		err = decodeDetections(payload.Detections, &det)
		result.Detections = det
	case DetectionModeViolence:
		det := ViolenceDetections{}
		err = decodeDetections(payload.Detections, &det)
		result.Detections = det
	case DetectionModeVulnerable:
		det := VulnerableDetections{}
		err = decodeDetections(payload.Detections, &det)
		result.Detections = det
	case DetectionModeFire:
		det := FireDetections{}
		err = decodeDetections(payload.Detections, &det)
		result.Detections = det
	default:
		return DetectionResult{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if err != nil {
		return DetectionResult{}, fmt.Errorf("decode %s detections: %w", mode, err)
	}

	return result, nil
}

func decodeDetections(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// NormalizedStatus is the mode-agnostic view of a detection result
type NormalizedStatus struct {
	IsDetected bool   `json:"is_detected"`
	StatusText string `json:"status_text"`
}

// Alert is a positive detection awaiting operator disposition
type Alert struct {
	ID        int64         `json:"id"` // creation time in unix milliseconds
	Mode      DetectionMode `json:"detection_mode"`
	Label     string        `json:"mode"`
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	CreatedAt time.Time     `json:"created_at"`
	Image     string        `json:"image"`
}

// IncidentRecord is the payload of the confirm_incident event
type IncidentRecord struct {
	Mode          string        `json:"mode"`
	DetectionMode DetectionMode `json:"detectionMode"`
	Timestamp     string        `json:"timestamp"`
	Status        string        `json:"status"`
	Image         string        `json:"image"`
}

// NewIncidentRecord snapshots the alert fields forwarded on confirmation
func NewIncidentRecord(a Alert) IncidentRecord {
	return IncidentRecord{
		Mode:          a.Label,
		DetectionMode: a.Mode,
		Timestamp:     a.Timestamp,
		Status:        a.Status,
		Image:         a.Image,
	}
}

// AlertOutcome describes what the feed did with an observed status
type AlertOutcome string

const (
	AlertOutcomeCreated    AlertOutcome = "created"
	AlertOutcomeSuppressed AlertOutcome = "suppressed"
	AlertOutcomeIgnored    AlertOutcome = "ignored"
	AlertOutcomeConfirmed  AlertOutcome = "confirmed"
	AlertOutcomeDismissed  AlertOutcome = "dismissed"
)
