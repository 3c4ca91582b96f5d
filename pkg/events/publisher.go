// Package events provides a small in-process pub/sub used to decouple the
// hub from side effects such as result persistence.
package events

import "sync"

// EventType represents the type of event.
type EventType string

// Event types published by the session layer.
const (
	EventMatchCreated     EventType = "MATCH_CREATED"
	EventMoveProcessed    EventType = "MOVE_PROCESSED"
	EventSessionEnded     EventType = "SESSION_ENDED"
	EventConnectionClosed EventType = "CONNECTION_CLOSED"
)

// Event represents an event in the system.
type Event struct {
	Type    EventType
	RoomID  string // optional, empty for non-room events
	Payload interface{}
}

// Handler is a function that processes events.
type Handler func(event Event)

// Publisher is the central event publisher.
type Publisher struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Handler
}

// NewPublisher creates a new event publisher.
func NewPublisher() *Publisher {
	return &Publisher{
		subscribers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a specific event type.
func (p *Publisher) Subscribe(eventType EventType, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subscribers[eventType] = append(p.subscribers[eventType], handler)
}

// Publish broadcasts an event to all subscribers. Handlers run
// concurrently and must not rely on delivery order.
func (p *Publisher) Publish(event Event) {
	p.mu.RLock()
	handlers := p.subscribers[event.Type]
	p.mu.RUnlock()

	for _, handler := range handlers {
		go handler(event)
	}
}
