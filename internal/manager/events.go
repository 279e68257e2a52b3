package manager

// Event is a structured lifecycle notification: state transitions, wakes,
// drains, probe outcomes. Fields carry event-specific details.
type Event struct {
	Name   string
	Fields map[string]any
}

// EventPublisher receives lifecycle events. Implementations must be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
