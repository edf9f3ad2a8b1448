package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges kelindar/event callback-based subscriptions to channels
// This is needed for SSE integration where Huma expects a channel-based select loop.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			// Drop event if channel is full (non-blocking)
		}
	})
}

// SubscribeAllToChannel subscribes ch to every device-facing event type.
// Log entries are excluded; they have their own stream.
func SubscribeAllToChannel(bus *Bus, ch chan<- any) func() {
	unsubs := []func(){
		SubscribeToChannel[BackendFallbackEvent](bus, ch),
		SubscribeToChannel[ControlChangedEvent](bus, ch),
		SubscribeToChannel[AutoModeChangedEvent](bus, ch),
		SubscribeToChannel[ProfileAppliedEvent](bus, ch),
		SubscribeToChannel[ErrorRecordedEvent](bus, ch),
		SubscribeToChannel[DeviceHotplugEvent](bus, ch),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
