package incidents

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"vigil-live-go/internal/models"
)

const EventConfirmIncident = "confirm_incident"

// Emitter sends an event on the live inference channel
type Emitter interface {
	Emit(event string, payload interface{}) error
}

// SocketRecorder forwards confirmations as confirm_incident events on the open channel
type SocketRecorder struct {
	emitter Emitter
}

func NewSocketRecorder(emitter Emitter) *SocketRecorder {
	return &SocketRecorder{emitter: emitter}
}

func (r *SocketRecorder) Record(ctx context.Context, alert models.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.emitter.Emit(EventConfirmIncident, models.NewIncidentRecord(alert)); err != nil {
		return fmt.Errorf("emit %s: %w", EventConfirmIncident, err)
	}
	return nil
}

// Recorder is implemented by every confirmation sink
type Recorder interface {
	Record(ctx context.Context, alert models.Alert) error
}

// MultiRecorder delivers to a primary recorder whose failure fails the
// confirmation, then to mirrors whose failures are only logged
type MultiRecorder struct {
	Primary Recorder
	Mirrors []Recorder
}

func (m *MultiRecorder) Record(ctx context.Context, alert models.Alert) error {
	if m.Primary == nil {
		return errors.New("no primary incident recorder")
	}
	if err := m.Primary.Record(ctx, alert); err != nil {
		return err
	}

	for _, mirror := range m.Mirrors {
		if err := mirror.Record(ctx, alert); err != nil {
			log.Warn().
				Err(err).
				Int64("alert_id", alert.ID).
				Str("mirror", fmt.Sprintf("%T", mirror)).
				Msg("Incident mirror failed")
		}
	}
	return nil
}
