package models

import (
	"errors"
	"testing"
)

func TestParseDetectionMode(t *testing.T) {
	tests := []struct {
		in   string
		want DetectionMode
	}{
		{"smoking", DetectionModeSmoking},
		{" Fire ", DetectionModeFire},
		{"weak", DetectionModeVulnerable},
		{"vulnerable", DetectionModeVulnerable},
	}
	for _, tt := range tests {
		got, err := ParseDetectionMode(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseDetectionMode(%q) = %q, %v", tt.in, got, err)
		}
	}

	if _, err := ParseDetectionMode("parking"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("unknown mode err = %v", err)
	}
}

func TestEveryModeHasNamespace(t *testing.T) {
	for _, m := range AllModes {
		if !m.Valid() || m.Namespace() == "" || m.Label() == "" {
			t.Errorf("mode %q incomplete", m)
		}
	}
	if DetectionModeVulnerable.Namespace() != "/ws/weak_feed" {
		t.Errorf("vulnerable namespace = %q", DetectionModeVulnerable.Namespace())
	}
}

func TestDecodeResponse(t *testing.T) {
	t.Run("smoking prediction", func(t *testing.T) {
		res, err := DecodeResponse(DetectionModeSmoking, []byte(`{"image":"data:image/jpeg;base64,AA==","prediction":"smoking"}`))
		if err != nil {
			t.Fatal(err)
		}
		det, ok := res.Detections.(SmokingDetections)
		if !ok || det.Prediction != "smoking" {
			t.Errorf("detections = %#v", res.Detections)
		}
		if res.Image == "" || res.Mode != DetectionModeSmoking {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("fire flag", func(t *testing.T) {
		res, err := DecodeResponse(DetectionModeFire, []byte(`{"image":"x","detections":{"is_fire":true,"status_message":"화재 발생"}}`))
		if err != nil {
			t.Fatal(err)
		}
		det := res.Detections.(FireDetections)
		if !det.IsFire || det.StatusMessage != "화재 발생" {
			t.Errorf("detections = %#v", det)
		}
	})

	t.Run("abandoned items", func(t *testing.T) {
		res, err := DecodeResponse(DetectionModeAbandoned, []byte(`{"detections":{"abandoned_items":[{"id":1},{"id":2}]}}`))
		if err != nil {
			t.Fatal(err)
		}
		if n := len(res.Detections.(AbandonedDetections).AbandonedItems); n != 2 {
			t.Errorf("items = %d", n)
		}
	})

	t.Run("missing detections", func(t *testing.T) {
		res, err := DecodeResponse(DetectionModeViolence, []byte(`{"image":"x"}`))
		if err != nil {
			t.Fatal(err)
		}
		if res.Detections.(ViolenceDetections).IsViolence {
			t.Error("expected no violence")
		}
	})

	t.Run("foreign fields ignored", func(t *testing.T) {
		res, err := DecodeResponse(DetectionModeDamage, []byte(`{"prediction":"smoking","detections":{"is_fire":true}}`))
		if err != nil {
			t.Fatal(err)
		}
		if res.Detections.(DamageDetections).IsDanger {
			t.Error("damage flag leaked from another mode")
		}
	})

	t.Run("malformed", func(t *testing.T) {
		if _, err := DecodeResponse(DetectionModeFire, []byte(`{"detections":"yes"}`)); err == nil {
			t.Error("expected decode error")
		}
		if _, err := DecodeResponse("parking", []byte(`{}`)); !errors.Is(err, ErrUnknownMode) {
			t.Errorf("unknown mode err = %v", err)
		}
	})
}

func TestIncidentRecordFromAlert(t *testing.T) {
	rec := NewIncidentRecord(Alert{
		ID:        1,
		Mode:      DetectionModeFire,
		Label:     DetectionModeFire.Label(),
		Status:    "화재 감지됨!",
		Timestamp: "2024. 3. 5. 오후 2:07:09",
		Image:     "data:image/jpeg;base64,AA==",
	})
	if rec.Mode != "화재 감지" || rec.DetectionMode != DetectionModeFire || rec.Status != "화재 감지됨!" {
		t.Errorf("record = %+v", rec)
	}
}
