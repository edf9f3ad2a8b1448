package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan ControlChangedEvent, 1)

	unsub := bus.Subscribe(func(e ControlChangedEvent) {
		received <- e
	})
	defer unsub()

	event := ControlChangedEvent{
		Device:    0,
		Control:   "brightness",
		Value:     200,
		Timestamp: "2025-01-27T10:30:00Z",
	}
	bus.Publish(event)

	got := <-received
	if got.Control != event.Control || got.Value != event.Value {
		t.Errorf("Expected %+v, got %+v", event, got)
	}
}

func TestBus_Nil(t *testing.T) {
	var bus *Bus
	bus.Publish(ControlChangedEvent{Control: "brightness"})
	unsub := bus.Subscribe(func(ControlChangedEvent) {
		t.Error("nil bus should never deliver")
	})
	unsub()
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan AutoModeChangedEvent, 1)

	unsub := bus.Subscribe(func(e AutoModeChangedEvent) {
		received <- e
	})

	bus.Publish(AutoModeChangedEvent{Control: "exposure", Enabled: true})
	<-received

	unsub()

	bus.Publish(AutoModeChangedEvent{Control: "exposure"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	fallbackReceived := make(chan bool, 1)
	hotplugReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ BackendFallbackEvent) {
		fallbackReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ DeviceHotplugEvent) {
		hotplugReceived <- true
	})
	defer unsub2()

	bus.Publish(BackendFallbackEvent{Operation: "list_devices"})
	<-fallbackReceived

	select {
	case <-hotplugReceived:
		t.Fatal("Hotplug subscriber should NOT have received BackendFallbackEvent")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ DeviceHotplugEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(DeviceHotplugEvent{Action: "add", Timestamp: Now()})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"BackendFallback", BackendFallbackEvent{Operation: "get_formats"}},
		{"ControlChanged", ControlChangedEvent{Control: "contrast"}},
		{"AutoModeChanged", AutoModeChangedEvent{Control: "focus"}},
		{"ProfileApplied", ProfileAppliedEvent{Profile: "night"}},
		{"ErrorRecorded", ErrorRecordedEvent{Kind: "device-busy"}},
		{"DeviceHotplug", DeviceHotplugEvent{Action: "remove"}},
		{"LogEntry", LogEntryEvent{Message: "hello"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(_ *testing.T) {
			received := make(chan Event, 1)

			var unsub func()
			switch tt.event.(type) {
			case BackendFallbackEvent:
				unsub = bus.Subscribe(func(e BackendFallbackEvent) { received <- e })
			case ControlChangedEvent:
				unsub = bus.Subscribe(func(e ControlChangedEvent) { received <- e })
			case AutoModeChangedEvent:
				unsub = bus.Subscribe(func(e AutoModeChangedEvent) { received <- e })
			case ProfileAppliedEvent:
				unsub = bus.Subscribe(func(e ProfileAppliedEvent) { received <- e })
			case ErrorRecordedEvent:
				unsub = bus.Subscribe(func(e ErrorRecordedEvent) { received <- e })
			case DeviceHotplugEvent:
				unsub = bus.Subscribe(func(e DeviceHotplugEvent) { received <- e })
			case LogEntryEvent:
				unsub = bus.Subscribe(func(e LogEntryEvent) { received <- e })
			}
			defer unsub()

			bus.Publish(tt.event)
			<-received
		})
	}
}

func TestEventJSONSerialization(t *testing.T) {
	data, err := json.Marshal(ProfileAppliedEvent{
		Profile:   "daylight",
		Device:    1,
		Applied:   5,
		Timestamp: "2025-01-27T10:30:00Z",
	})
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if result["profile"] != "daylight" {
		t.Errorf("profile = %v", result["profile"])
	}
	if result["applied"] != float64(5) {
		t.Errorf("applied = %v", result["applied"])
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[ErrorRecordedEvent](bus, ch)
	defer unsub()

	bus.Publish(ErrorRecordedEvent{Kind: "timeout"})

	received := <-ch
	ev, ok := received.(ErrorRecordedEvent)
	if !ok {
		t.Fatalf("Expected ErrorRecordedEvent, got %T", received)
	}
	if ev.Kind != "timeout" {
		t.Errorf("Kind = %q", ev.Kind)
	}
}

func TestSubscribeAllToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeAllToChannel(bus, ch)
	defer unsub()

	bus.Publish(ControlChangedEvent{Control: "gain"})
	bus.Publish(DeviceHotplugEvent{Action: "add"})

	seen := map[uint32]bool{}
	for range 2 {
		ev := (<-ch).(Event)
		seen[ev.Type()] = true
	}
	if !seen[TypeControlChanged] || !seen[TypeDeviceHotplug] {
		t.Errorf("seen = %v", seen)
	}
}

func TestSubscribeToChannel_NonBlocking(_ *testing.T) {
	bus := New()
	ch := make(chan any)

	unsub := SubscribeToChannel[ControlChangedEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(ControlChangedEvent{Control: "hue"})
		done <- true
	}()

	<-done
}
