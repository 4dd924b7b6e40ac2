package sim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/grabnode/internal/camera"
)

func newTestProvider(opts Options) *Provider {
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.FrameInterval == 0 {
		opts.FrameInterval = 5 * time.Millisecond
	}
	return New(opts)
}

func newCamera(p camera.Provider) *camera.Camera {
	return camera.New(camera.Identity{ID: 4, Serial: "SIM4", Name: "sim", Channel: 1},
		camera.Options{Provider: p, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func TestAcquisitionLifecycle(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(Options{})
	cam := newCamera(p)

	if r := cam.StartAcquisition(ctx).Result(); r.Kind != camera.ResultSucceeded || !cam.IsAcquiring() {
		t.Fatalf("start = %+v acquiring=%v", r, cam.IsAcquiring())
	}
	if r := cam.StopAcquisition(ctx).Result(); r.Kind != camera.ResultSucceeded || cam.IsAcquiring() {
		t.Fatalf("stop = %+v acquiring=%v", r, cam.IsAcquiring())
	}
}

func TestFailStart(t *testing.T) {
	p := newTestProvider(Options{FailStart: true})
	cam := newCamera(p)

	r := cam.StartAcquisition(context.Background()).Result()
	if r.Kind != camera.ResultFailed || !errors.Is(r.Err, ErrStartFailed) {
		t.Fatalf("result = %+v", r)
	}
	if cam.IsAcquiring() {
		t.Error("failed start left camera acquiring")
	}
}

func TestExposureDefaultAndStore(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(Options{})
	cam := newCamera(p)

	if v, _ := cam.GetExposureTime(ctx); v != DefaultExposure {
		t.Errorf("default exposure = %v", v)
	}
	if err := cam.SetExposureTime(ctx, 250); err != nil {
		t.Fatal(err)
	}
	if v, _ := cam.GetExposureTime(ctx); v != 250 {
		t.Errorf("exposure = %v, want 250", v)
	}
}

func TestDistortion(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(Options{})
	cam := newCamera(p)

	if err := cam.ApplyDistortionCorrection(ctx, []float64{0.1, 0.2}); err != nil {
		t.Fatal(err)
	}
	if got := p.Distortion(cam.ID()); !slices.Equal(got, []float64{0.1, 0.2}) {
		t.Errorf("distortion = %v", got)
	}
	if err := cam.ApplyDistortionCorrection(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if got := p.Distortion(cam.ID()); len(got) != 0 {
		t.Errorf("distortion after clear = %v", got)
	}
}

func TestFeedDeliversFrames(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(Options{})
	defer p.Close()
	cam := newCamera(p)

	var frames atomic.Int64
	got := make(chan camera.Frame, 1)
	sub := cam.CreateSubscription(func(f camera.Frame, _ *camera.Subscription) {
		if frames.Add(1) == 1 {
			got <- f
		}
	})
	if err := sub.UpdateViewport(ctx, 20, 10, 0.5, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := sub.StartFeed(ctx, false); err != nil {
		t.Fatal(err)
	}

	select {
	case f := <-got:
		if f.Width != 10 || f.Height != 5 || len(f.Data) != 50 {
			t.Errorf("frame %dx%d with %d bytes", f.Width, f.Height, len(f.Data))
		}
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
	}
	if p.ActiveFeeds() != 1 {
		t.Errorf("ActiveFeeds() = %d", p.ActiveFeeds())
	}

	if err := sub.StopFeed(ctx, false); err != nil {
		t.Fatal(err)
	}
	if p.ActiveFeeds() != 0 {
		t.Errorf("ActiveFeeds() after stop = %d", p.ActiveFeeds())
	}
}

func TestGrabImage(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(Options{})
	defer p.Close()
	cam := newCamera(p)
	sub := cam.CreateSubscription(nil)
	if err := sub.StartFeed(ctx, true); err != nil {
		t.Fatal(err)
	}

	c, ok, err := camera.GrabAs[*Capture](ctx, cam, "out.raw", nil)
	if err != nil || !ok {
		t.Fatalf("GrabAs() = %v, %v, %v", c, ok, err)
	}
	if c.Path != "out.raw" || c.Frame.Width != camera.DefaultViewportWidth {
		t.Errorf("capture = %+v", c)
	}
}

func TestNoFrameAfterStopFeed(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(Options{FrameInterval: time.Millisecond})
	defer p.Close()
	cam := newCamera(p)

	var frames atomic.Int64
	sub := cam.CreateSubscription(func(camera.Frame, *camera.Subscription) {
		time.Sleep(2 * time.Millisecond)
		frames.Add(1)
	})

	for range 5 {
		if err := sub.StartFeed(ctx, true); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
		if err := sub.StopFeed(ctx, true); err != nil {
			t.Fatal(err)
		}

		stopped := frames.Load()
		time.Sleep(10 * time.Millisecond)
		if got := frames.Load(); got != stopped {
			t.Fatalf("%d frames delivered after StopFeed returned", got-stopped)
		}
	}
}
