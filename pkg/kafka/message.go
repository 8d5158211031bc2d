package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ramsey-B/sage/pkg/models"
)

// Measurement row sources
const (
	SourceOil       = "oil"
	SourceTelemetry = "telemetry"
	SourceComment   = "comment"
)

// RowEnvelope is the wire format on the measurement-rows topic: a source
// discriminator plus the raw row payload.
type RowEnvelope struct {
	Source    string          `json:"source"`
	Row       json.RawMessage `json:"row"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	Envelope *RowEnvelope
}

// ParseEnvelope parses the message value as a row envelope
func (m *IncomingMessage) ParseEnvelope() error {
	var env RowEnvelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.Source == "" {
		return fmt.Errorf("row envelope is missing source")
	}
	m.Envelope = &env
	return nil
}

// OilRow decodes the envelope payload as an oil row
func (m *IncomingMessage) OilRow() (*models.OilRow, error) {
	if m.Envelope == nil || m.Envelope.Source != SourceOil {
		return nil, fmt.Errorf("message is not an oil row")
	}
	var row models.OilRow
	if err := json.Unmarshal(m.Envelope.Row, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// TelemetryRow decodes the envelope payload as a telemetry row
func (m *IncomingMessage) TelemetryRow() (*models.TelemetryRow, error) {
	if m.Envelope == nil || m.Envelope.Source != SourceTelemetry {
		return nil, fmt.Errorf("message is not a telemetry row")
	}
	var row models.TelemetryRow
	if err := json.Unmarshal(m.Envelope.Row, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// CommentRow decodes the envelope payload as an AI comment row
func (m *IncomingMessage) CommentRow() (*models.CommentRow, error) {
	if m.Envelope == nil || m.Envelope.Source != SourceComment {
		return nil, fmt.Errorf("message is not a comment row")
	}
	var row models.CommentRow
	if err := json.Unmarshal(m.Envelope.Row, &row); err != nil {
		return nil, err
	}
	return &row, nil
}
