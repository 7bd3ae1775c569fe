package incidents

import (
	"context"
	"time"

	"vigil-live-go/internal/models"
)

// Publisher publishes a JSON-encodable message on a subject
type Publisher interface {
	Publish(subject string, data interface{}) error
}

// IncidentMessage is the NATS mirror of a confirmed incident
type IncidentMessage struct {
	models.IncidentRecord
	AlertID     int64     `json:"alertId"`
	ConsoleID   string    `json:"consoleId"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

// NATSMirror publishes confirmed incidents for downstream consumers
type NATSMirror struct {
	publisher Publisher
	subject   string
	consoleID string
}

func NewNATSMirror(publisher Publisher, subject, consoleID string) *NATSMirror {
	return &NATSMirror{publisher: publisher, subject: subject, consoleID: consoleID}
}

func (n *NATSMirror) Record(ctx context.Context, alert models.Alert) error {
	return n.publisher.Publish(n.subject, IncidentMessage{
		IncidentRecord: models.NewIncidentRecord(alert),
		AlertID:        alert.ID,
		ConsoleID:      n.consoleID,
		ConfirmedAt:    time.Now(),
	})
}
