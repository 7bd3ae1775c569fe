package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vigil-live-go/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env file

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.FrameMaxWidth != 640 {
		t.Errorf("Expected max width 640, got %d", cfg.FrameMaxWidth)
	}
	if cfg.FrameQuality != 50 {
		t.Errorf("Expected quality 50, got %d", cfg.FrameQuality)
	}
	if cfg.AlertSuppressionWindow != 30*time.Second {
		t.Errorf("Expected 30s suppression window, got %v", cfg.AlertSuppressionWindow)
	}
	if cfg.Mode() != models.DetectionModeSmoking {
		t.Errorf("Expected smoking initial mode, got %s", cfg.Mode())
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INITIAL_MODE", "weak")
	t.Setenv("ALERT_SUPPRESSION_WINDOW", "3s")
	t.Setenv("INFERENCE_URL", "http://10.0.0.1:5000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Mode() != models.DetectionModeVulnerable {
		t.Errorf("Expected vulnerable, got %s", cfg.Mode())
	}
	if cfg.AlertSuppressionWindow != 3*time.Second {
		t.Errorf("Expected 3s, got %v", cfg.AlertSuppressionWindow)
	}

	base, ns := cfg.EndpointFor(models.DetectionModeFire)
	if base != "http://10.0.0.1:5000" || ns != "/ws/fire_feed" {
		t.Errorf("Unexpected endpoint %s %s", base, ns)
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INITIAL_MODE", "loitering")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for unknown initial mode")
	}
}

func TestLoadEndpointsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "endpoints.yaml")
	content := `endpoints:
  fire:
    url: "http://10.0.0.5:5001"
  weak:
    namespace: "ws/vulnerable"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	t.Chdir(dir)
	t.Setenv("ENDPOINTS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	base, ns := cfg.EndpointFor(models.DetectionModeFire)
	if base != "http://10.0.0.5:5001" || ns != "/ws/fire_feed" {
		t.Errorf("Unexpected fire endpoint %s %s", base, ns)
	}
	base, ns = cfg.EndpointFor(models.DetectionModeVulnerable)
	if base != cfg.InferenceURL || ns != "/ws/vulnerable" {
		t.Errorf("Unexpected vulnerable endpoint %s %s", base, ns)
	}
}

func TestLoadEndpointsRejectsUnknownMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endpoints.yaml")
	if err := os.WriteFile(path, []byte("endpoints:\n  theft: {url: \"http://x\"}\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadEndpoints(path); err == nil {
		t.Fatal("Expected error for unknown mode")
	}
}
