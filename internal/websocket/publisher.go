package websocket

import "github.com/google/uuid"

// EventPublisher publishes events to everything listening for a user
type EventPublisher interface {
	// Publish sends an event to all listeners of the specified user
	Publish(userID uuid.UUID, event Event)
}

// Ensure Hub implements EventPublisher
var _ EventPublisher = (*Hub)(nil)

// Publish implements EventPublisher by broadcasting the event to the user's clients
func (h *Hub) Publish(userID uuid.UUID, event Event) {
	h.Broadcast(userID, event)
}

// MultiPublisher fans an event out to several publishers
type MultiPublisher []EventPublisher

// Publish forwards the event to every publisher in order
func (m MultiPublisher) Publish(userID uuid.UUID, event Event) {
	for _, p := range m {
		p.Publish(userID, event)
	}
}

// NoOpPublisher is a publisher that does nothing (for testing or when WebSocket is disabled)
type NoOpPublisher struct{}

// Publish does nothing
func (n *NoOpPublisher) Publish(userID uuid.UUID, event Event) {}
