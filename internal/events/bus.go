package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(CameraAddedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case AcquisitionChangedEvent:
		event.Publish(b.dispatcher, e)
	case FeedStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case ModeSwitchedEvent:
		event.Publish(b.dispatcher, e)
	case ExposureChangedEvent:
		event.Publish(b.dispatcher, e)
	case CameraAddedEvent:
		event.Publish(b.dispatcher, e)
	case CameraRemovedEvent:
		event.Publish(b.dispatcher, e)
	case InventoryReloadedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler's parameter type selects which events it receives.
// Returns an unsubscribe function; unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e AcquisitionChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(AcquisitionChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FeedStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ModeSwitchedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ExposureChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CameraAddedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CameraRemovedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(InventoryReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
