package rig

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/grabnode/internal/camera"
	"github.com/smazurov/grabnode/internal/config"
	"github.com/smazurov/grabnode/internal/events"
	"github.com/smazurov/grabnode/internal/inventory"
	"github.com/smazurov/grabnode/internal/provider/sim"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, bus *events.Bus) (*Manager, *sim.Provider) {
	t.Helper()
	p := sim.New(sim.Options{FrameInterval: 5 * time.Millisecond, Logger: testLogger()})
	m := New(Options{Provider: p, Bus: bus, Logger: testLogger()})
	t.Cleanup(func() {
		_ = m.Close(context.Background())
		p.Close()
	})
	return m, p
}

func sampleInventory() []inventory.Camera {
	return []inventory.Camera{
		{
			ID: 1, Model: "M", Serial: "SN1", Name: "left",
			Exposure:   250,
			Distortion: []float64{0.1},
			Subscriptions: []inventory.Subscription{
				{Name: "preview", Viewport: []float64{320, 240, 1, 0, 0}, Autostart: true},
				{Name: "archive"},
			},
		},
		{ID: 2, Model: "M", Serial: "SN2", Mode: "external"},
	}
}

func TestApplyBuildsCameras(t *testing.T) {
	ctx := context.Background()
	m, p := newTestManager(t, nil)

	if err := m.Apply(ctx, sampleInventory()); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d", m.Len())
	}

	left, err := m.Camera(1)
	if err != nil {
		t.Fatal(err)
	}
	if !left.IsAcquiring() {
		t.Error("autostarted subscription should start acquisition")
	}
	if v, _ := m.GetExposure(ctx, 1); v != 250 {
		t.Errorf("exposure = %v", v)
	}
	if d := p.Distortion(1); !slices.Equal(d, []float64{0.1}) {
		t.Errorf("distortion = %v", d)
	}

	info, err := m.Info(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(info.Subscriptions) != 2 || !info.Subscriptions[0].Subscribed || info.Subscriptions[1].Subscribed {
		t.Errorf("subscriptions = %+v", info.Subscriptions)
	}
	if info.Subscriptions[0].Viewport.Width != 320 {
		t.Errorf("viewport = %+v", info.Subscriptions[0].Viewport)
	}

	right, _ := m.Camera(2)
	if right.Mode() != camera.ExternalTrigger || right.IsAcquiring() {
		t.Errorf("camera 2 mode=%v acquiring=%v", right.Mode(), right.IsAcquiring())
	}

	snap := m.Snapshot()
	if len(snap) != 2 || snap[0].ID != 1 || snap[1].ID != 2 {
		t.Errorf("snapshot order = %+v", snap)
	}
}

func TestApplyDiff(t *testing.T) {
	ctx := context.Background()
	bus := events.New()
	var mu sync.Mutex
	var added, removed []int
	defer bus.Subscribe(func(e events.CameraAddedEvent) {
		mu.Lock()
		added = append(added, e.CameraID)
		mu.Unlock()
	})()
	defer bus.Subscribe(func(e events.CameraRemovedEvent) {
		mu.Lock()
		removed = append(removed, e.CameraID)
		mu.Unlock()
	})()

	m, _ := newTestManager(t, bus)
	if err := m.Apply(ctx, sampleInventory()); err != nil {
		t.Fatal(err)
	}
	first, _ := m.Camera(2)

	next := sampleInventory()[1:]
	next[0].Name = "right"
	next = append(next, inventory.Camera{ID: 3, Serial: "SN3"})
	if err := m.Apply(ctx, next); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Camera(1); Code(err) != ErrCodeCameraNotFound {
		t.Errorf("camera 1 should be gone, got %v", err)
	}
	second, _ := m.Camera(2)
	if second != first {
		t.Error("a name change should update the camera in place")
	}
	if second.Name() != "right" {
		t.Errorf("name = %q", second.Name())
	}

	// Identity change rebuilds.
	next[0].Serial = "SN2b"
	if err := m.Apply(ctx, next); err != nil {
		t.Fatal(err)
	}
	if rebuilt, _ := m.Camera(2); rebuilt == first || rebuilt.Serial() != "SN2b" {
		t.Error("serial change should rebuild the camera")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := len(added) == 4 && len(removed) == 2
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	slices.Sort(added)
	slices.Sort(removed)
	if !slices.Equal(added, []int{1, 2, 2, 3}) || !slices.Equal(removed, []int{1, 2}) {
		t.Errorf("added=%v removed=%v", added, removed)
	}
}

func TestApplyRejectsInvalid(t *testing.T) {
	m, _ := newTestManager(t, nil)
	err := m.Apply(context.Background(), []inventory.Camera{{ID: 1}, {ID: 1}})
	if Code(err) != ErrCodeInvalidParams {
		t.Fatalf("Apply() = %v, want INVALID_PARAMS", err)
	}
	if m.Len() != 0 {
		t.Error("invalid inventory must not be applied")
	}
}

func TestAcquisitionAndMode(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, nil)
	if err := m.Apply(ctx, sampleInventory()[1:]); err != nil {
		t.Fatal(err)
	}

	r, err := m.SetAcquisition(ctx, 2, true)
	if err != nil || r.Kind != camera.ResultSucceeded || !r.Acquiring {
		t.Fatalf("start = %+v, %v", r, err)
	}
	if err := m.SwitchMode(ctx, 2, "single"); err != nil {
		t.Fatal(err)
	}
	cam, _ := m.Camera(2)
	if cam.Mode() != camera.SingleShot || !cam.IsAcquiring() {
		t.Errorf("mode=%v acquiring=%v", cam.Mode(), cam.IsAcquiring())
	}
	if err := m.SwitchMode(ctx, 2, "burst"); Code(err) != ErrCodeInvalidParams {
		t.Errorf("bad mode = %v", err)
	}
	if _, err := m.SetAcquisition(ctx, 9, true); Code(err) != ErrCodeCameraNotFound {
		t.Errorf("missing camera = %v", err)
	}
}

func TestProviderErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	b := camera.NewBinding(camera.Funcs{
		StartAcquisition: func(context.Context, *camera.Camera) (bool, error) { return false, boom },
		SetExposureTime:  func(context.Context, *camera.Camera, float64) error { return boom },
	})
	m := New(Options{Provider: b, Logger: testLogger()})
	if err := m.Apply(ctx, []inventory.Camera{{ID: 1, Serial: "A"}}); err != nil {
		t.Fatal(err)
	}

	r, err := m.SetAcquisition(ctx, 1, true)
	if Code(err) != ErrCodeProviderError || !errors.Is(err, boom) || r.Kind != camera.ResultFailed {
		t.Errorf("SetAcquisition() = %+v, %v", r, err)
	}
	if err := m.SetExposure(ctx, 1, 10); Code(err) != ErrCodeProviderError {
		t.Errorf("SetExposure() = %v", err)
	}
	if err := m.SetExposure(ctx, 1, -1); Code(err) != ErrCodeInvalidParams {
		t.Errorf("negative exposure = %v", err)
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	ctx := context.Background()
	m, p := newTestManager(t, nil)
	if err := m.Apply(ctx, []inventory.Camera{{ID: 5, Serial: "SN5"}}); err != nil {
		t.Fatal(err)
	}

	info, err := m.CreateSubscription(ctx, 5, "viewer", []float64{100, 50, 1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "viewer" || info.Subscribed || info.Viewport.Dx != 2 {
		t.Errorf("created = %+v", info)
	}
	if _, err := m.CreateSubscription(ctx, 5, "viewer", nil); Code(err) != ErrCodeInvalidParams {
		t.Errorf("duplicate name = %v", err)
	}
	if _, err := m.CreateSubscription(ctx, 5, "bad", []float64{1}); Code(err) != ErrCodeInvalidParams {
		t.Errorf("bad viewport = %v", err)
	}

	if err := m.StartSubscription(ctx, 5, "viewer", false); err != nil {
		t.Fatal(err)
	}
	if p.ActiveFeeds() != 1 {
		t.Errorf("ActiveFeeds() = %d", p.ActiveFeeds())
	}
	if err := m.UpdateViewport(ctx, 5, "viewer", []float64{10, 10, 2, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := m.UpdateViewport(ctx, 5, "viewer", []float64{10}); Code(err) != ErrCodeInvalidParams {
		t.Errorf("short viewport = %v", err)
	}

	v, err := m.Grab(ctx, 5, "", "frame.raw")
	if err != nil {
		t.Fatal(err)
	}
	if c, ok := v.(*sim.Capture); !ok || c.Frame.Width != 20 {
		t.Errorf("grab = %#v", v)
	}

	if err := m.StopSubscription(ctx, 5, "viewer", false); err != nil {
		t.Fatal(err)
	}
	cam, _ := m.Camera(5)
	if cam.IsAcquiring() || len(cam.Subscriptions()) != 0 {
		t.Errorf("after stop: acquiring=%v subs=%d", cam.IsAcquiring(), len(cam.Subscriptions()))
	}
	if v, _ := m.Grab(ctx, 5, "", ""); v != nil {
		t.Errorf("grab with no active feed = %v", v)
	}

	// Stopped subscriptions stay addressable.
	if err := m.StartSubscription(ctx, 5, "viewer", true); err != nil {
		t.Fatal(err)
	}
	if err := m.DeleteSubscription(ctx, 5, "viewer"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Subscription(5, "viewer"); Code(err) != ErrCodeSubscriptionNotFound {
		t.Errorf("deleted subscription = %v", err)
	}
	if _, err := m.Grab(ctx, 5, "viewer", ""); Code(err) != ErrCodeSubscriptionNotFound {
		t.Errorf("grab on deleted subscription = %v", err)
	}
}

func TestConcurrentCreateSubscriptionSameName(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, nil)
	if err := m.Apply(ctx, []inventory.Camera{{ID: 5, Serial: "SN5"}}); err != nil {
		t.Fatal(err)
	}

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.CreateSubscription(ctx, 5, "viewer", nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		switch Code(err) {
		case "":
			created++
		case ErrCodeInvalidParams:
		default:
			t.Errorf("CreateSubscription() error = %v", err)
		}
	}
	if created != 1 {
		t.Errorf("created %d subscriptions named viewer, want 1", created)
	}

	info, err := m.Info(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(info.Subscriptions) != 1 {
		t.Errorf("rig holds %d subscriptions", len(info.Subscriptions))
	}
	cam, _ := m.Camera(5)
	if n := len(cam.Subscriptions()); n != 1 {
		t.Errorf("camera holds %d subscriptions", n)
	}
}

func TestNames(t *testing.T) {
	m, _ := newTestManager(t, nil)
	if err := m.Apply(context.Background(), []inventory.Camera{{ID: 1, Serial: "A", Name: "x"}}); err != nil {
		t.Fatal(err)
	}
	if err := m.SetName(1, "y"); err != nil {
		t.Fatal(err)
	}
	cam, _ := m.Camera(1)
	if cam.Desc() != "y(A)" {
		t.Errorf("Desc() = %q", cam.Desc())
	}
	if err := m.ClearName(1); err != nil || cam.Name() != "" {
		t.Errorf("ClearName() = %v, name %q", err, cam.Name())
	}
	if err := m.SetName(2, "z"); Code(err) != ErrCodeCameraNotFound {
		t.Errorf("SetName on missing camera = %v", err)
	}
}

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("timeout")
	err := NewError(ErrCodeProviderError, "start feed", cause)
	if err.Error() != "PROVIDER_ERROR: start feed: timeout" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("Error should unwrap to its cause")
	}
	if Code(errors.New("plain")) != "" {
		t.Error("Code of a plain error should be empty")
	}
}

func TestWatchReappliesInventory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cameras.toml")
	if err := os.WriteFile(path, []byte("version = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	bus := events.New()
	reloaded := make(chan events.InventoryReloadedEvent, 4)
	defer bus.Subscribe(func(e events.InventoryReloadedEvent) { reloaded <- e })()

	m, _ := newTestManager(t, bus)
	w, err := m.Watch(path, config.WithDebounce[[]inventory.Camera](50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	time.Sleep(50 * time.Millisecond)

	doc := "version = 1\n\n[[cameras]]\nid = 4\nserial = \"SN4\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-reloaded:
		if ev.Error != "" || ev.Cameras != 1 {
			t.Errorf("reload event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for inventory reload")
	}
	if _, err := m.Camera(4); err != nil {
		t.Error(err)
	}
}

func TestWatcherReloadWithoutStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cameras.toml")
	doc := "version = 1\n\n[[cameras]]\nid = 5\nserial = \"SN5\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	m, _ := newTestManager(t, nil)
	w := m.Watcher(path)
	defer w.Stop()

	if err := w.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if _, err := m.Camera(5); err != nil {
		t.Error(err)
	}

	if err := os.WriteFile(path, []byte("version = 1\n[[cameras]]\nid = 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// The file parses, so Reload succeeds; Apply rejects it and keeps the rig.
	if err := w.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d after invalid reload", m.Len())
	}
}
