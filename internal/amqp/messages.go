package amqp

import (
	"encoding/json"
	"time"

	"flowfinance/internal/core"
)

// ChangeMessage announces a successful write to one resource collection.
// It carries no record data; consumers reload what they need from the API.
type ChangeMessage struct {
	Resource  string    `json:"resource"`
	Operation string    `json:"operation"`
	ID        core.ID   `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeMessage creates a change message stamped with the current time.
func NewChangeMessage(resource, operation string, id core.ID) *ChangeMessage {
	return &ChangeMessage{
		Resource:  resource,
		Operation: operation,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message published by PublishChange.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
