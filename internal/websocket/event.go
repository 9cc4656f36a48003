package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the verb of an event
type EventType string

const (
	EventTypeExecuted EventType = "executed"
	EventTypeUpdated  EventType = "updated"
)

// EntityType is what an event is about
type EntityType string

const (
	EntityTypeRollover         EntityType = "rollover"
	EntityTypeRolloverSettings EntityType = "rollover_settings"
)

// Event is the message pushed to a user's connected clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"` // e.g. "rollover.executed"
	Entity    EntityType  `json:"entity"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RolloverExecuted creates a rollover.executed event
func RolloverExecuted(payload interface{}) Event {
	return NewEvent(EventTypeExecuted, EntityTypeRollover, payload)
}

// RolloverSettingsUpdated creates a rollover_settings.updated event
func RolloverSettingsUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeRolloverSettings, payload)
}
