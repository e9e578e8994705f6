package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	EventJobStatusChange EventType = "job_status_change"
	EventSimProgress     EventType = "sim_progress"
	EventLogEntry        EventType = "log_entry"
)

// Event represents a system event
type Event struct {
	Type    EventType
	JobID   string
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the pub/sub event bus
type EventService interface {
	// Subscribe to an event type, returning a subscription ID for removal
	Subscribe(eventType EventType, handler EventHandler) (string, error)

	// Unsubscribe removes a subscription by ID
	Unsubscribe(eventType EventType, subscriptionID string) error

	// Publish an event to all subscribers asynchronously
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes an event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
