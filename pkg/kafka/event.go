package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the envelope version stamped on every event.
const SchemaVersion = 1

// Event is the envelope of a storefront event. Events are keyed by session,
// so one shopper's cart and checkout events share a partition.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	SessionID     string          `json:"session_id"`
	Subject       string          `json:"subject"`
	SchemaVersion int             `json:"schema_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEvent encodes payload into a new envelope about subject ("cart",
// "checkout") of the given session.
func NewEvent(eventType, sessionID, subject, source string, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		SessionID:     sessionID,
		Subject:       subject,
		SchemaVersion: SchemaVersion,
		OccurredAt:    time.Now().UTC(),
		Source:        source,
		Payload:       raw,
	}, nil
}

// WithCorrelationID tags e with the request that caused it.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// Key is the partition key.
func (e *Event) Key() []byte {
	return []byte(e.SessionID)
}

// Decode unmarshals the payload into dst.
func (e *Event) Decode(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
