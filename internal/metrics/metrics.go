package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vigil-live-go/internal/models"
)

// Metrics holds the console's Prometheus collectors on a private registry
type Metrics struct {
	FramesSampled  prometheus.Counter
	FramesSent     prometheus.Counter
	FramesDropped  prometheus.Counter
	EncodeErrors   prometheus.Counter
	ResultsApplied *prometheus.CounterVec
	ResultsStale   prometheus.Counter
	DecodeErrors   prometheus.Counter
	Alerts         *prometheus.CounterVec
	ConfirmErrors  prometheus.Counter
	ModeSwitches   prometheus.Counter
	ChannelState   *prometheus.GaugeVec
	Stalled        prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FramesSampled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "live_frames_sampled_total",
			Help: "Frames sampled from the video source",
		}),
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "live_frames_sent_total",
			Help: "Frames emitted on an open channel",
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "live_frames_dropped_total",
			Help: "Frames dropped because the channel was not open",
		}),
		EncodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "live_frame_encode_errors_total",
			Help: "Frames that failed to encode",
		}),
		ResultsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "live_results_applied_total",
			Help: "Detection results applied to the live status",
		}, []string{"mode"}),
		ResultsStale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "live_results_stale_total",
			Help: "Detection results discarded because their channel was superseded",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "live_result_decode_errors_total",
			Help: "Inbound packets that could not be decoded",
		}),
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "live_alerts_total",
			Help: "Alert feed transitions by outcome",
		}, []string{"mode", "outcome"}),
		ConfirmErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "live_alert_confirm_errors_total",
			Help: "Incident confirmations that could not be delivered",
		}),
		ModeSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "live_mode_switches_total",
			Help: "Detection mode switches",
		}),
		ChannelState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "live_channel_state",
			Help: "1 for the current state of the detection channel",
		}, []string{"state"}),
		Stalled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "live_inference_stalled",
			Help: "1 when frames are sent but no result arrived within the inference timeout",
		}),
	}

	m.registry.MustRegister(
		m.FramesSampled, m.FramesSent, m.FramesDropped, m.EncodeErrors,
		m.ResultsApplied, m.ResultsStale, m.DecodeErrors,
		m.Alerts, m.ConfirmErrors, m.ModeSwitches,
		m.ChannelState, m.Stalled,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// SetChannelState marks state as the only active channel state
func (m *Metrics) SetChannelState(state models.ConnState) {
	for _, s := range []models.ConnState{
		models.ConnStateConnecting, models.ConnStateOpen,
		models.ConnStateClosed, models.ConnStateErrored,
	} {
		v := 0.0
		if s == state {
			v = 1
		}
		m.ChannelState.WithLabelValues(string(s)).Set(v)
	}
}

// AlertOutcome counts one alert feed transition
func (m *Metrics) AlertOutcome(mode models.DetectionMode, outcome models.AlertOutcome) {
	m.Alerts.WithLabelValues(string(mode), string(outcome)).Inc()
}

// Handler returns the HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
