package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/smazurov/grabnode/internal/camera"
	"github.com/smazurov/grabnode/internal/events"
)

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}

func TestAttachAcquisitionAndFeeds(t *testing.T) {
	c := New(prometheus.NewRegistry())
	bus := events.New()
	detach := c.Attach(bus)
	defer detach()

	bus.Publish(events.AcquisitionChangedEvent{CameraID: 1, Acquiring: true})
	bus.Publish(events.FeedStateChangedEvent{CameraID: 1, Subscribed: true})
	bus.Publish(events.FeedStateChangedEvent{CameraID: 1, Subscribed: true})
	bus.Publish(events.ModeSwitchedEvent{CameraID: 1, From: "internal", To: "external"})

	eventually(t, func() bool {
		s := c.Stats(1)
		return s != nil && s.Acquiring && s.FeedsActive == 2 && s.ModeSwitches == 1
	})
	if v := testutil.ToFloat64(c.acquiring.WithLabelValues("1")); v != 1 {
		t.Errorf("camera_acquiring = %v, want 1", v)
	}
	if v := testutil.ToFloat64(c.feedsActive.WithLabelValues("1")); v != 2 {
		t.Errorf("feeds_active = %v, want 2", v)
	}

	bus.Publish(events.CameraRemovedEvent{CameraID: 1})
	eventually(t, func() bool { return c.Stats(1) == nil })
}

func TestFeedsNeverNegative(t *testing.T) {
	c := New(nil)
	c.addFeeds(2, -1)
	if s := c.Stats(2); s == nil || s.FeedsActive != 0 {
		t.Errorf("stats = %+v", s)
	}
}

type fakeProvider struct {
	camera.Provider
}

func (fakeProvider) StartAcquisition(context.Context, *camera.Camera) (bool, error) {
	return true, nil
}

func (fakeProvider) StopAcquisition(context.Context, *camera.Camera) (bool, error) {
	return false, errors.New("stuck")
}

func (fakeProvider) SetExposureTime(context.Context, *camera.Camera, float64) error {
	return camera.ErrNotBound
}

func TestInstrument(t *testing.T) {
	ctx := context.Background()
	c := New(prometheus.NewRegistry())
	cam := camera.New(camera.Identity{ID: 1}, camera.Options{
		Provider: c.Instrument(fakeProvider{}),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	cam.StartAcquisition(ctx).Result()
	cam.StopAcquisition(ctx).Result()
	if err := cam.SetExposureTime(ctx, 1); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		op, result string
	}{
		{OpStartAcquisition, "ok"},
		{OpStopAcquisition, "error"},
		{OpSetExposure, "unbound"},
	}
	for _, tt := range tests {
		if v := testutil.ToFloat64(c.providerCalls.WithLabelValues(tt.op, tt.result)); v != 1 {
			t.Errorf("provider_calls_total{%s,%s} = %v, want 1", tt.op, tt.result, v)
		}
	}
}

func TestObserveFrameAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	cam := camera.New(camera.Identity{ID: 5}, camera.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	sub := cam.CreateSubscription(nil)

	c.ObserveFrame(sub, camera.Frame{})
	c.ObserveFrame(sub, camera.Frame{})
	c.SetAcquiring(5, true)

	if s := c.Stats(5); s == nil || s.Frames != 2 {
		t.Fatalf("stats = %+v", s)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`grabnode_frames_total{camera="5"} 2`,
		`grabnode_camera_acquiring{camera="5"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
