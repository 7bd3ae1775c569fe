package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"vigil-live-go/internal/models"
)

type Config struct {
	// Application
	Version     string `env:"VERSION" envDefault:"1.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	ConsoleID   string `env:"CONSOLE_ID" envDefault:"console-1"`
	Port        int    `env:"PORT" envDefault:"8000"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool   `env:"LOGDY_ENABLED" envDefault:"false"`
	LogdyHost    string `env:"LOGDY_HOST" envDefault:"localhost"`
	LogdyPort    int    `env:"LOGDY_PORT" envDefault:"8080"`

	// Inference service (Socket.IO)
	InferenceURL     string        `env:"INFERENCE_URL" envDefault:"http://localhost:5000"`
	SocketIOPath     string        `env:"SOCKETIO_PATH" envDefault:"/socket.io/"`
	EndpointsFile    string        `env:"ENDPOINTS_FILE"`
	HandshakeTimeout time.Duration `env:"HANDSHAKE_TIMEOUT" envDefault:"10s"`
	InferenceTimeout time.Duration `env:"INFERENCE_TIMEOUT" envDefault:"10s"`
	InitialMode      string        `env:"INITIAL_MODE" envDefault:"smoking"`

	// Video source
	VideoSource string `env:"VIDEO_SOURCE" envDefault:"assets/feed.mp4"`
	VideoLoop   bool   `env:"VIDEO_LOOP" envDefault:"true"`
	AutoPlay    bool   `env:"AUTO_PLAY" envDefault:"true"`

	// Frame bounds
	FrameMaxWidth int `env:"FRAME_MAX_WIDTH" envDefault:"640"`
	FrameQuality  int `env:"FRAME_QUALITY" envDefault:"50"`

	// Alert feed
	AlertSuppressionWindow time.Duration `env:"ALERT_SUPPRESSION_WINDOW" envDefault:"30s"`
	ConfirmTimeout         time.Duration `env:"CONFIRM_TIMEOUT" envDefault:"5s"`

	// NATS (incident mirror and remote mode control)
	NatsEnabled          bool          `env:"NATS_ENABLED" envDefault:"false"`
	NatsURL              string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NatsConnectTimeout   time.Duration `env:"NATS_CONNECT_TIMEOUT" envDefault:"10s"`
	NatsReconnectWait    time.Duration `env:"NATS_RECONNECT_WAIT" envDefault:"2s"`
	NatsMaxReconnects    int           `env:"NATS_MAX_RECONNECTS" envDefault:"-1"` // -1 = unlimited
	NatsIncidentsSubject string        `env:"NATS_INCIDENTS_SUBJECT" envDefault:"incidents.confirmed"`
	NatsControlSubject   string        `env:"NATS_CONTROL_SUBJECT" envDefault:"live.mode"`

	// MinIO snapshot archive
	MinioEnabled   bool   `env:"MINIO_ENABLED" envDefault:"false"`
	MinioEndpoint  string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET" envDefault:"incidents"`
	MinioSecure    bool   `env:"MINIO_SECURE" envDefault:"false"`

	// Graceful Shutdown
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Per-mode endpoint overrides, filled from EndpointsFile
	Endpoints map[models.DetectionMode]Endpoint
}

// Endpoint overrides where a detection mode's channel connects to.
// An empty URL falls back to InferenceURL, an empty namespace to the mode default.
type Endpoint struct {
	URL       string `yaml:"url"`
	Namespace string `yaml:"namespace"`
}

type endpointsFile struct {
	Endpoints map[string]Endpoint `yaml:"endpoints"`
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.EndpointsFile != "" {
		endpoints, err := LoadEndpoints(cfg.EndpointsFile)
		if err != nil {
			return nil, err
		}
		cfg.Endpoints = endpoints
		log.Info().Str("file", cfg.EndpointsFile).Int("overrides", len(endpoints)).Msg("Loaded endpoint overrides")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEndpoints reads per-mode endpoint overrides from a YAML file:
//
//	endpoints:
//	  fire: {url: "http://10.0.0.5:5001", namespace: "/ws/fire_feed"}
func LoadEndpoints(path string) (map[models.DetectionMode]Endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read endpoints file: %w", err)
	}

	var file endpointsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse endpoints file: %w", err)
	}

	endpoints := make(map[models.DetectionMode]Endpoint, len(file.Endpoints))
	for name, ep := range file.Endpoints {
		mode, err := models.ParseDetectionMode(name)
		if err != nil {
			return nil, fmt.Errorf("endpoints file: %w", err)
		}
		if ep.Namespace != "" && !strings.HasPrefix(ep.Namespace, "/") {
			ep.Namespace = "/" + ep.Namespace
		}
		endpoints[mode] = ep
	}
	return endpoints, nil
}

// Validate rejects configurations the console cannot run with
func (c *Config) Validate() error {
	if _, err := models.ParseDetectionMode(c.InitialMode); err != nil {
		return fmt.Errorf("INITIAL_MODE: %w", err)
	}
	if c.FrameMaxWidth <= 0 {
		return fmt.Errorf("FRAME_MAX_WIDTH must be positive, got %d", c.FrameMaxWidth)
	}
	if c.FrameQuality < 1 || c.FrameQuality > 100 {
		return fmt.Errorf("FRAME_QUALITY must be within 1-100, got %d", c.FrameQuality)
	}
	if c.AlertSuppressionWindow < 0 {
		return fmt.Errorf("ALERT_SUPPRESSION_WINDOW must not be negative")
	}
	return nil
}

// Mode returns the parsed initial detection mode
func (c *Config) Mode() models.DetectionMode {
	mode, err := models.ParseDetectionMode(c.InitialMode)
	if err != nil {
		return models.DetectionModeSmoking
	}
	return mode
}

// EndpointFor resolves the inference base URL and namespace for mode
func (c *Config) EndpointFor(mode models.DetectionMode) (string, string) {
	baseURL, namespace := c.InferenceURL, mode.Namespace()
	if ep, ok := c.Endpoints[mode]; ok {
		if ep.URL != "" {
			baseURL = ep.URL
		}
		if ep.Namespace != "" {
			namespace = ep.Namespace
		}
	}
	return baseURL, namespace
}
