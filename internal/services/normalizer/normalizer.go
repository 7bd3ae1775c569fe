package normalizer

import (
	"fmt"
	"strings"
	"sync"

	"vigil-live-go/internal/models"
)

// PlaceholderText is shown while the active mode has no result
const PlaceholderText = "정상"

// Normalize maps a mode-specific result into the uniform status view.
// A nil result, or one produced for another mode, yields the placeholder status.
func Normalize(mode models.DetectionMode, result *models.DetectionResult) models.NormalizedStatus {
	if result == nil || result.Mode != mode || result.Detections == nil ||
		result.Detections.DetectionMode() != mode {
		return models.NormalizedStatus{IsDetected: false, StatusText: PlaceholderText}
	}

	switch det := result.Detections.(type) {
	case models.SmokingDetections:
		label := strings.TrimSpace(det.Prediction)
		if label == "" {
			return models.NormalizedStatus{IsDetected: false, StatusText: PlaceholderText}
		}
		return models.NormalizedStatus{IsDetected: true, StatusText: label}

	case models.AbandonedDetections:
		n := len(det.AbandonedItems)
		derived := mode.ClearText()
		if n > 0 {
			derived = fmt.Sprintf("%s (%d)", mode.DetectedText(), n)
		}
		return status(n > 0, det.StatusMessage, derived)

	case models.DamageDetections:
		return flagStatus(det.IsDanger, det.StatusMessage, mode)
	case models.ViolenceDetections:
		return flagStatus(det.IsViolence, det.StatusMessage, mode)
	case models.VulnerableDetections:
		return flagStatus(det.IsWeak, det.StatusMessage, mode)
	case models.FireDetections:
		return flagStatus(det.IsFire, det.StatusMessage, mode)
	}

	return models.NormalizedStatus{IsDetected: false, StatusText: PlaceholderText}
}

func flagStatus(flag bool, message string, mode models.DetectionMode) models.NormalizedStatus {
	derived := mode.ClearText()
	if flag {
		derived = mode.DetectedText()
	}
	return status(flag, message, derived)
}

// status prefers the server's explicit message over the derived text
func status(detected bool, message, derived string) models.NormalizedStatus {
	text := strings.TrimSpace(message)
	if text == "" {
		text = derived
	}
	if text == "" {
		text = PlaceholderText
	}
	return models.NormalizedStatus{IsDetected: detected, StatusText: text}
}

// Normalizer holds the latest result and status for the active mode
type Normalizer struct {
	mu     sync.RWMutex
	mode   models.DetectionMode
	latest *models.DetectionResult
	status models.NormalizedStatus
}

// New creates a normalizer for mode with no result yet
func New(mode models.DetectionMode) *Normalizer {
	n := &Normalizer{}
	n.Reset(mode)
	return n
}

// Reset drops the current result and binds the normalizer to mode
func (n *Normalizer) Reset(mode models.DetectionMode) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mode = mode
	n.latest = nil
	n.status = Normalize(mode, nil)
}

// Apply records result if it belongs to the active mode and returns the new status.
// Results for any other mode are rejected and leave the state unchanged.
func (n *Normalizer) Apply(result models.DetectionResult) (models.NormalizedStatus, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if result.Mode != n.mode {
		return n.status, false
	}
	n.latest = &result
	n.status = Normalize(n.mode, n.latest)
	return n.status, true
}

// Mode returns the active mode
func (n *Normalizer) Mode() models.DetectionMode {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.mode
}

// Status returns the status of the latest result
func (n *Normalizer) Status() models.NormalizedStatus {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

// Latest returns the latest applied result
func (n *Normalizer) Latest() (models.DetectionResult, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.latest == nil {
		return models.DetectionResult{}, false
	}
	return *n.latest, true
}
