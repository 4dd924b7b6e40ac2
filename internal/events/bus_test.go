package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/grabnode/internal/camera"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan CameraAddedEvent, 1)

	unsub := bus.Subscribe(func(e CameraAddedEvent) {
		received <- e
	})
	defer unsub()

	event := CameraAddedEvent{CameraID: 3, Serial: "SN3", Model: "M", Timestamp: "2026-01-27T10:30:00Z"}
	bus.Publish(event)

	got := <-received
	if got != event {
		t.Errorf("Expected %+v, got %+v", event, got)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan FeedStateChangedEvent, 1)
	received2 := make(chan FeedStateChangedEvent, 1)

	unsub1 := bus.Subscribe(func(e FeedStateChangedEvent) { received1 <- e })
	defer unsub1()
	unsub2 := bus.Subscribe(func(e FeedStateChangedEvent) { received2 <- e })
	defer unsub2()

	bus.Publish(FeedStateChangedEvent{CameraID: 1, Subscription: "a", Subscribed: true})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan CameraRemovedEvent, 1)

	unsub := bus.Subscribe(func(e CameraRemovedEvent) { received <- e })

	bus.Publish(CameraRemovedEvent{CameraID: 1})
	<-received

	unsub()

	bus.Publish(CameraRemovedEvent{CameraID: 2})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	modeReceived := make(chan bool, 1)
	exposureReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ ModeSwitchedEvent) { modeReceived <- true })
	defer unsub1()
	unsub2 := bus.Subscribe(func(_ ExposureChangedEvent) { exposureReceived <- true })
	defer unsub2()

	bus.Publish(ModeSwitchedEvent{CameraID: 1, From: "internal", To: "external"})
	<-modeReceived

	select {
	case <-exposureReceived:
		t.Fatal("Exposure subscriber should NOT have received ModeSwitchedEvent")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	if unsub == nil {
		t.Fatal("expected a no-op unsubscribe")
	}
	unsub()
}

func TestSubscribeAll(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)
	unsub := SubscribeAll(bus, ch)
	defer unsub()

	published := []Event{
		AcquisitionChangedEvent{CameraID: 1},
		FeedStateChangedEvent{CameraID: 1},
		ModeSwitchedEvent{CameraID: 1},
		ExposureChangedEvent{CameraID: 1},
		CameraAddedEvent{CameraID: 1},
		CameraRemovedEvent{CameraID: 1},
		InventoryReloadedEvent{Path: "cameras.toml"},
	}
	for _, ev := range published {
		bus.Publish(ev)
	}

	seen := make(map[uint32]bool)
	timeout := time.After(time.Second)
	for len(seen) < len(published) {
		select {
		case ev := <-ch:
			seen[ev.(Event).Type()] = true
		case <-timeout:
			t.Fatalf("received %d of %d event types", len(seen), len(published))
		}
	}
	if len(SSETypes()) != len(published) {
		t.Errorf("SSETypes() has %d entries, want %d", len(SSETypes()), len(published))
	}
}

func TestSubscribeToChannelDropsWhenFull(t *testing.T) {
	bus := New()
	ch := make(chan any) // unbuffered, nobody reading
	unsub := SubscribeToChannel[CameraAddedEvent](bus, ch)
	defer unsub()

	done := make(chan struct{})
	go func() {
		bus.Publish(CameraAddedEvent{CameraID: 1})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full channel")
	}
}

func TestEventJSON(t *testing.T) {
	ev := AcquisitionChangedEvent{CameraID: 2, Serial: "SN2", Acquiring: true, Result: "succeeded", Timestamp: "t"}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m["camera_id"] != float64(2) || m["acquiring"] != true {
		t.Errorf("unexpected encoding %s", data)
	}
	if _, ok := m["error"]; ok {
		t.Error("empty error should be omitted")
	}
}

type stubProvider struct {
	camera.Provider
	startErr error
}

func (s stubProvider) StartAcquisition(context.Context, *camera.Camera) (bool, error) {
	return true, s.startErr
}

func (s stubProvider) StopAcquisition(context.Context, *camera.Camera) (bool, error) {
	return false, nil
}

func TestHooksPublish(t *testing.T) {
	bus := New()
	var mu sync.Mutex
	var acq []AcquisitionChangedEvent
	var modes []ModeSwitchedEvent
	got := make(chan struct{}, 10)

	defer bus.Subscribe(func(e AcquisitionChangedEvent) {
		mu.Lock()
		acq = append(acq, e)
		mu.Unlock()
		got <- struct{}{}
	})()
	defer bus.Subscribe(func(e ModeSwitchedEvent) {
		mu.Lock()
		modes = append(modes, e)
		mu.Unlock()
		got <- struct{}{}
	})()

	ctx := context.Background()
	cam := camera.New(camera.Identity{ID: 9, Serial: "SN9"}, camera.Options{
		Provider: stubProvider{startErr: &camera.AcquisitionError{Acquiring: false, Err: errors.New("busy")}},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Hooks:    Hooks(bus),
	})
	cam.StartAcquisition(ctx).Result()
	if err := cam.SwitchAcquisitionMode(ctx, camera.SingleShot); err != nil {
		t.Fatal(err)
	}

	for range 2 {
		select {
		case <-got:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for events")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(acq) != 1 || acq[0].CameraID != 9 || acq[0].Result != "failed" || acq[0].Error == "" || acq[0].Acquiring {
		t.Errorf("acquisition events = %+v", acq)
	}
	if len(modes) != 1 || modes[0].From != "internal" || modes[0].To != "single" {
		t.Errorf("mode events = %+v", modes)
	}
}
