package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges kelindar/event callback-based subscriptions to channels.
// Huma's SSE handler expects a channel-based select loop.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			// Drop event if channel is full (non-blocking)
		}
	})
}

// SubscribeAll forwards every event type to ch and returns one function
// that unsubscribes them all.
func SubscribeAll(bus *Bus, ch chan<- any) func() {
	unsubs := []func(){
		SubscribeToChannel[AcquisitionChangedEvent](bus, ch),
		SubscribeToChannel[FeedStateChangedEvent](bus, ch),
		SubscribeToChannel[ModeSwitchedEvent](bus, ch),
		SubscribeToChannel[ExposureChangedEvent](bus, ch),
		SubscribeToChannel[CameraAddedEvent](bus, ch),
		SubscribeToChannel[CameraRemovedEvent](bus, ch),
		SubscribeToChannel[InventoryReloadedEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// SSETypes maps SSE event names to their payload types.
func SSETypes() map[string]any {
	return map[string]any{
		"acquisition-changed": AcquisitionChangedEvent{},
		"feed-state-changed":  FeedStateChangedEvent{},
		"mode-switched":       ModeSwitchedEvent{},
		"exposure-changed":    ExposureChangedEvent{},
		"camera-added":        CameraAddedEvent{},
		"camera-removed":      CameraRemovedEvent{},
		"inventory-reloaded":  InventoryReloadedEvent{},
	}
}
