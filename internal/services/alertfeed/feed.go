package alertfeed

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"vigil-live-go/internal/metrics"
	"vigil-live-go/internal/models"
)

const DefaultSuppressionWindow = 30 * time.Second

var (
	ErrAlertNotFound      = errors.New("alert not found")
	ErrConfirmInProgress  = errors.New("alert confirmation already in progress")
	ErrRecorderNotDefined = errors.New("no incident recorder configured")
)

// sentinelPattern marks statuses that describe a normal or idle scene.
// Latin words match whole words only, so "Abnormal" still alerts; "정상" must
// not be part of "비정상".
var sentinelPattern = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:normal|waiting)(?:[^\p{L}]|$)|(?:^|[^비])정상|없음|대기`)

// Recorder forwards a confirmed alert to the incident-recording collaborator
type Recorder interface {
	Record(ctx context.Context, alert models.Alert) error
}

// Options tunes the feed
type Options struct {
	SuppressionWindow time.Duration
	Now               func() time.Time
	Location          *time.Location
}

// Feed is the de-duplicated, newest-first list of alerts awaiting operator action
type Feed struct {
	recorder Recorder
	metrics  *metrics.Metrics
	window   time.Duration
	now      func() time.Time
	loc      *time.Location
	logger   zerolog.Logger

	mu         sync.Mutex
	alerts     []models.Alert
	lastID     int64
	confirming map[int64]bool
}

// New creates an empty feed
func New(recorder Recorder, opts Options, m *metrics.Metrics) *Feed {
	if opts.SuppressionWindow <= 0 {
		opts.SuppressionWindow = DefaultSuppressionWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	f := &Feed{
		recorder:   recorder,
		metrics:    m,
		window:     opts.SuppressionWindow,
		now:        opts.Now,
		loc:        opts.Location,
		logger:     log.With().Str("component", "alert_feed").Logger(),
		confirming: make(map[int64]bool),
	}

	f.logger.Info().Dur("suppression_window", f.window).Msg("Alert feed initialized")
	return f
}

// IsSentinel reports whether a status text describes a normal, empty or waiting scene
func IsSentinel(text string) bool {
	return sentinelPattern.MatchString(text)
}

// Observe turns a normalized status into an alert unless it is negative, a
// sentinel, or suppressed by the head alert of the same mode
func (f *Feed) Observe(mode models.DetectionMode, status models.NormalizedStatus, image string) (*models.Alert, models.AlertOutcome) {
	if !status.IsDetected || IsSentinel(status.StatusText) {
		return nil, models.AlertOutcomeIgnored
	}

	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.alerts) > 0 {
		head := f.alerts[0]
		if head.Mode == mode && absDuration(now.Sub(head.CreatedAt)) < f.window {
			f.metrics.AlertOutcome(mode, models.AlertOutcomeSuppressed)
			return nil, models.AlertOutcomeSuppressed
		}
	}

	id := now.UnixMilli()
	if id <= f.lastID {
		id = f.lastID + 1
	}
	f.lastID = id

	alert := models.Alert{
		ID:        id,
		Mode:      mode,
		Label:     mode.Label(),
		Status:    status.StatusText,
		Timestamp: FormatTimestamp(now.In(f.loc)),
		CreatedAt: now,
		Image:     image,
	}
	f.alerts = append([]models.Alert{alert}, f.alerts...)

	f.metrics.AlertOutcome(mode, models.AlertOutcomeCreated)
	f.logger.Info().
		Int64("alert_id", alert.ID).
		Str("mode", string(mode)).
		Str("status", alert.Status).
		Int("pending", len(f.alerts)).
		Msg("Alert created")

	return &alert, models.AlertOutcomeCreated
}

// List returns the pending alerts, newest first
func (f *Feed) List() []models.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Alert(nil), f.alerts...)
}

// Get returns the alert with id
func (f *Feed) Get(id int64) (models.Alert, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Find(f.alerts, func(a models.Alert) bool { return a.ID == id })
}

// Len returns the number of pending alerts
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

// Confirm forwards the alert to the recorder and removes it once the record
// was delivered. On failure the alert stays in the feed for a retry.
func (f *Feed) Confirm(ctx context.Context, id int64) error {
	f.mu.Lock()
	alert, ok := lo.Find(f.alerts, func(a models.Alert) bool { return a.ID == id })
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrAlertNotFound, id)
	}
	if f.confirming[id] {
		f.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrConfirmInProgress, id)
	}
	f.confirming[id] = true
	f.mu.Unlock()

	var err error
	if f.recorder == nil {
		err = ErrRecorderNotDefined
	} else {
		err = f.recorder.Record(ctx, alert)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.confirming, id)

	if err != nil {
		f.metrics.ConfirmErrors.Inc()
		f.logger.Warn().Err(err).Int64("alert_id", id).Msg("Incident confirmation failed, alert kept")
		return fmt.Errorf("confirm alert %d: %w", id, err)
	}

	f.remove(id)
	f.metrics.AlertOutcome(alert.Mode, models.AlertOutcomeConfirmed)
	f.logger.Info().Int64("alert_id", id).Str("mode", string(alert.Mode)).Msg("Alert confirmed")
	return nil
}

// Dismiss removes the alert without any side effect
func (f *Feed) Dismiss(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	alert, ok := lo.Find(f.alerts, func(a models.Alert) bool { return a.ID == id })
	if !ok {
		return fmt.Errorf("%w: %d", ErrAlertNotFound, id)
	}
	f.remove(id)
	f.metrics.AlertOutcome(alert.Mode, models.AlertOutcomeDismissed)
	f.logger.Info().Int64("alert_id", id).Str("mode", string(alert.Mode)).Msg("Alert dismissed")
	return nil
}

// Reset clears every pending alert
func (f *Feed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n := len(f.alerts); n > 0 {
		f.logger.Info().Int("cleared", n).Msg("Alert feed reset")
	}
	f.alerts = nil
}

func (f *Feed) remove(id int64) {
	f.alerts = lo.Reject(f.alerts, func(a models.Alert, _ int) bool { return a.ID == id })
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// FormatTimestamp renders t the way the Korean locale prints a date-time,
// e.g. "2024. 3. 5. 오후 2:07:09"
func FormatTimestamp(t time.Time) string {
	period := "오전"
	if t.Hour() >= 12 {
		period = "오후"
	}
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d. %d. %d. %s %d:%02d:%02d",
		t.Year(), int(t.Month()), t.Day(), period, hour, t.Minute(), t.Second())
}
