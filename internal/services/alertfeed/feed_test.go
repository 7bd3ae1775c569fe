package alertfeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vigil-live-go/internal/metrics"
	"vigil-live-go/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []models.Alert
	err     error
}

func (r *fakeRecorder) Record(ctx context.Context, alert models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, alert)
	return nil
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func newTestFeed(rec Recorder) (*Feed, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)}
	f := New(rec, Options{
		SuppressionWindow: 30 * time.Second,
		Now:               clock.Now,
		Location:          time.UTC,
	}, metrics.New())
	return f, clock
}

var fireDetected = models.NormalizedStatus{IsDetected: true, StatusText: "화재 감지됨!"}

func TestSuppressionWindow(t *testing.T) {
	f, clock := newTestFeed(&fakeRecorder{})

	if _, out := f.Observe(models.DetectionModeFire, fireDetected, "img1"); out != models.AlertOutcomeCreated {
		t.Fatalf("Expected first detection to create an alert, got %s", out)
	}

	clock.Advance(10 * time.Second)
	if _, out := f.Observe(models.DetectionModeFire, fireDetected, "img2"); out != models.AlertOutcomeSuppressed {
		t.Fatalf("Expected second detection within window to be suppressed, got %s", out)
	}
	if f.Len() != 1 {
		t.Fatalf("Expected exactly one alert, got %d", f.Len())
	}

	clock.Advance(25 * time.Second)
	if _, out := f.Observe(models.DetectionModeFire, fireDetected, "img3"); out != models.AlertOutcomeCreated {
		t.Fatalf("Expected detection after window to create an alert, got %s", out)
	}

	alerts := f.List()
	if len(alerts) != 2 {
		t.Fatalf("Expected two alerts, got %d", len(alerts))
	}
	if alerts[0].Image != "img3" || alerts[1].Image != "img1" {
		t.Errorf("Expected newest first, got %s then %s", alerts[0].Image, alerts[1].Image)
	}
	if alerts[0].ID <= alerts[1].ID {
		t.Errorf("Expected increasing ids, got %d after %d", alerts[0].ID, alerts[1].ID)
	}
}

func TestSuppressionOnlyAppliesToSameMode(t *testing.T) {
	f, clock := newTestFeed(&fakeRecorder{})

	f.Observe(models.DetectionModeFire, fireDetected, "a")
	damage := models.NormalizedStatus{IsDetected: true, StatusText: "파손 감지됨!"}
	if _, out := f.Observe(models.DetectionModeDamage, damage, "b"); out != models.AlertOutcomeCreated {
		t.Fatalf("Expected a different mode to create an alert, got %s", out)
	}

	// the head is now damage, so fire is no longer compared against
	clock.Advance(time.Second)
	if _, out := f.Observe(models.DetectionModeFire, fireDetected, "c"); out != models.AlertOutcomeCreated {
		t.Fatalf("Expected fire alert after a damage head, got %s", out)
	}
}

func TestIdsStayUniqueWithinOneMillisecond(t *testing.T) {
	f, _ := newTestFeed(&fakeRecorder{})

	a, _ := f.Observe(models.DetectionModeFire, fireDetected, "a")
	b, _ := f.Observe(models.DetectionModeDamage, models.NormalizedStatus{IsDetected: true, StatusText: "위험 감지!"}, "b")
	if a == nil || b == nil {
		t.Fatal("Expected both alerts to be created")
	}
	if b.ID != a.ID+1 {
		t.Errorf("Expected id %d, got %d", a.ID+1, b.ID)
	}
}

func TestNegativeAndSentinelStatusesIgnored(t *testing.T) {
	f, _ := newTestFeed(&fakeRecorder{})

	statuses := []models.NormalizedStatus{
		{IsDetected: false, StatusText: "화재 감지됨!"},
		{IsDetected: true, StatusText: "NORMAL (0.40)"},
		{IsDetected: true, StatusText: "Waiting..."},
		{IsDetected: true, StatusText: "정상"},
		{IsDetected: true, StatusText: "유기물 없음"},
		{IsDetected: true, StatusText: "대기 중"},
	}
	for _, st := range statuses {
		if _, out := f.Observe(models.DetectionModeSmoking, st, "img"); out != models.AlertOutcomeIgnored {
			t.Errorf("%+v: expected ignored, got %s", st, out)
		}
	}
	if f.Len() != 0 {
		t.Errorf("Expected empty feed, got %d alerts", f.Len())
	}
}

func TestAbnormalStatusesAlert(t *testing.T) {
	for _, text := range []string{"Abnormal activity", "비정상 행동", "ABNORMAL (0.91)"} {
		if IsSentinel(text) {
			t.Errorf("%q: expected an alertable status", text)
		}
	}
	for _, text := range []string{"NORMAL (0.40)", "normal", "Waiting for stream", "정상", "이상행동 감지 대기 중..."} {
		if !IsSentinel(text) {
			t.Errorf("%q: expected a sentinel", text)
		}
	}

	f, _ := newTestFeed(&fakeRecorder{})
	if _, out := f.Observe(models.DetectionModeViolence,
		models.NormalizedStatus{IsDetected: true, StatusText: "비정상 행동"}, "img"); out != models.AlertOutcomeCreated {
		t.Errorf("Expected an alert for an abnormal status, got %s", out)
	}
}

func TestSmokingScenario(t *testing.T) {
	f, _ := newTestFeed(&fakeRecorder{})

	alert, out := f.Observe(models.DetectionModeSmoking,
		models.NormalizedStatus{IsDetected: true, StatusText: "Smoking detected"}, "data:image/jpeg;base64,AA==")
	if out != models.AlertOutcomeCreated || alert == nil {
		t.Fatalf("Expected an alert, got %s", out)
	}
	if alert.Label != "흡연 감지" {
		t.Errorf("Expected label 흡연 감지, got %s", alert.Label)
	}
	if alert.Status != "Smoking detected" {
		t.Errorf("Expected status text to be carried, got %s", alert.Status)
	}
	if alert.Timestamp != "2024. 3. 5. 오후 2:07:09" {
		t.Errorf("Unexpected timestamp %q", alert.Timestamp)
	}
}

func TestConfirmForwardsSnapshotOnce(t *testing.T) {
	rec := &fakeRecorder{}
	f, _ := newTestFeed(rec)

	alert, _ := f.Observe(models.DetectionModeFire, fireDetected, "snapshot")
	if err := f.Confirm(context.Background(), alert.ID); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	if f.Len() != 0 {
		t.Error("Expected confirmed alert to be removed")
	}
	if rec.count() != 1 {
		t.Fatalf("Expected exactly one record, got %d", rec.count())
	}
	got := rec.records[0]
	if got.ID != alert.ID || got.Image != "snapshot" || got.Status != alert.Status || got.Timestamp != alert.Timestamp {
		t.Errorf("Record does not match the alert snapshot: %+v", got)
	}

	if err := f.Confirm(context.Background(), alert.ID); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("Expected ErrAlertNotFound on second confirm, got %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("Expected no further records, got %d", rec.count())
	}
}

func TestDismissHasNoSideEffect(t *testing.T) {
	rec := &fakeRecorder{}
	f, _ := newTestFeed(rec)

	alert, _ := f.Observe(models.DetectionModeFire, fireDetected, "snapshot")
	if err := f.Dismiss(alert.ID); err != nil {
		t.Fatalf("Dismiss failed: %v", err)
	}
	if f.Len() != 0 {
		t.Error("Expected dismissed alert to be removed")
	}
	if rec.count() != 0 {
		t.Errorf("Expected zero records, got %d", rec.count())
	}
	if err := f.Dismiss(alert.ID); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("Expected ErrAlertNotFound, got %v", err)
	}
}

func TestFailedConfirmKeepsAlert(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("channel is not open")}
	f, _ := newTestFeed(rec)

	alert, _ := f.Observe(models.DetectionModeFire, fireDetected, "snapshot")
	if err := f.Confirm(context.Background(), alert.ID); err == nil {
		t.Fatal("Expected confirm to fail")
	}
	if _, ok := f.Get(alert.ID); !ok {
		t.Fatal("Expected alert to be kept for retry")
	}

	rec.mu.Lock()
	rec.err = nil
	rec.mu.Unlock()

	if err := f.Confirm(context.Background(), alert.ID); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if f.Len() != 0 || rec.count() != 1 {
		t.Errorf("Expected alert removed and recorded once, len=%d records=%d", f.Len(), rec.count())
	}
}

func TestConfirmWithoutRecorder(t *testing.T) {
	f, _ := newTestFeed(nil)
	alert, _ := f.Observe(models.DetectionModeFire, fireDetected, "snapshot")
	if err := f.Confirm(context.Background(), alert.ID); !errors.Is(err, ErrRecorderNotDefined) {
		t.Fatalf("Expected ErrRecorderNotDefined, got %v", err)
	}
	if f.Len() != 1 {
		t.Error("Expected alert to be kept")
	}
}

func TestResetClearsFeed(t *testing.T) {
	f, clock := newTestFeed(&fakeRecorder{})
	f.Observe(models.DetectionModeFire, fireDetected, "a")
	clock.Advance(time.Minute)
	f.Observe(models.DetectionModeFire, fireDetected, "b")

	f.Reset()
	if f.Len() != 0 {
		t.Fatalf("Expected empty feed after reset, got %d", f.Len())
	}

	// suppression compares against the head only, which is gone
	if _, out := f.Observe(models.DetectionModeFire, fireDetected, "c"); out != models.AlertOutcomeCreated {
		t.Errorf("Expected a new alert after reset, got %s", out)
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := map[time.Time]string{
		time.Date(2024, 1, 15, 0, 5, 3, 0, time.UTC):   "2024. 1. 15. 오전 12:05:03",
		time.Date(2024, 12, 1, 9, 30, 0, 0, time.UTC):  "2024. 12. 1. 오전 9:30:00",
		time.Date(2024, 6, 30, 12, 0, 59, 0, time.UTC): "2024. 6. 30. 오후 12:00:59",
		time.Date(2024, 6, 30, 23, 1, 2, 0, time.UTC):  "2024. 6. 30. 오후 11:01:02",
	}
	for in, want := range tests {
		if got := FormatTimestamp(in); got != want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", in, got, want)
		}
	}
}
