package camera

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestFeedRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newMockProvider()
	cam := newTestCamera(p)
	sub := cam.CreateSubscription(nil)

	if err := sub.StartFeed(ctx, false); err != nil {
		t.Fatal(err)
	}
	if !sub.IsSubscribed() || !cam.IsAcquiring() {
		t.Fatalf("after start: subscribed=%v acquiring=%v", sub.IsSubscribed(), cam.IsAcquiring())
	}

	if err := sub.StopFeed(ctx, false); err != nil {
		t.Fatal(err)
	}
	if sub.IsSubscribed() {
		t.Error("still subscribed after StopFeed")
	}
	if cam.HasSubscription(sub) {
		t.Error("subscription still registered after StopFeed")
	}
	if cam.IsAcquiring() {
		t.Error("camera still acquiring after StopFeed")
	}

	want := []string{"start", "start_feed", "stop_feed", "stop"}
	if got := p.Calls(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestStartFeedIdempotent(t *testing.T) {
	ctx := context.Background()
	p := newMockProvider()
	sub := newTestCamera(p).CreateSubscription(nil)

	for range 2 {
		if err := sub.StartFeed(ctx, false); err != nil {
			t.Fatal(err)
		}
	}
	if n := p.count("start_feed"); n != 1 {
		t.Errorf("start_feed calls = %d, want 1", n)
	}

	if err := sub.StopFeed(ctx, false); err != nil {
		t.Fatal(err)
	}
	if err := sub.StopFeed(ctx, false); err != nil {
		t.Fatal(err)
	}
	if n := p.count("stop_feed"); n != 1 {
		t.Errorf("stop_feed calls = %d, want 1", n)
	}
}

func TestTwoSubscriptionsShareAcquisition(t *testing.T) {
	ctx := context.Background()
	p := newMockProvider()
	cam := newTestCamera(p)
	a := cam.CreateSubscription(nil)
	b := cam.CreateSubscription(nil)

	if err := a.StartFeed(ctx, false); err != nil {
		t.Fatal(err)
	}
	if err := b.StartFeed(ctx, false); err != nil {
		t.Fatal(err)
	}
	if n := p.count("start"); n != 1 {
		t.Errorf("start calls = %d, want 1", n)
	}
	if n := p.count("start_feed"); n != 2 {
		t.Errorf("start_feed calls = %d, want 2", n)
	}
}

func TestSilentFeed(t *testing.T) {
	ctx := context.Background()
	p := newMockProvider()
	cam := newTestCamera(p)
	sub := cam.CreateSubscription(nil)

	if err := sub.StartFeed(ctx, true); err != nil {
		t.Fatal(err)
	}
	if cam.IsAcquiring() || p.count("start") != 0 {
		t.Error("silent start touched acquisition")
	}
	if err := sub.StopFeed(ctx, true); err != nil {
		t.Fatal(err)
	}
	if p.count("stop") != 0 {
		t.Error("silent stop touched acquisition")
	}
	if cam.HasSubscription(sub) {
		t.Error("silent stop should still unregister")
	}
}

func TestStartFeedProviderError(t *testing.T) {
	ctx := context.Background()
	p := newMockProvider()
	p.feedErr = errors.New("no buffers")
	cam := newTestCamera(p)
	sub := cam.CreateSubscription(nil)

	err := sub.StartFeed(ctx, false)
	if !errors.Is(err, p.feedErr) {
		t.Fatalf("StartFeed() = %v, want wrapped feed error", err)
	}
	if !strings.Contains(err.Error(), sub.Name()) {
		t.Errorf("error %q does not name the subscription", err)
	}
	if sub.IsSubscribed() {
		t.Error("failed feed must not be marked subscribed")
	}
	// Camera-level registration is not rolled back.
	if !cam.IsAcquiring() || !cam.HasSubscription(sub) {
		t.Error("camera registration should survive a feed failure")
	}
}

func TestUpdateViewport(t *testing.T) {
	ctx := context.Background()
	p := newMockProvider()
	sub := newTestCamera(p).CreateSubscription(nil)

	if got := sub.Viewport(); got != DefaultViewport() {
		t.Errorf("default viewport = %+v", got)
	}

	if err := sub.UpdateViewport(ctx, 640, 480, 0.5, 10, 20); err != nil {
		t.Fatal(err)
	}
	if p.count("update_feed") != 0 {
		t.Error("unsubscribed update must stay local")
	}
	want := Viewport{Width: 640, Height: 480, Scale: 0.5, Dx: 10, Dy: 20}
	if got := sub.Viewport(); got != want {
		t.Errorf("viewport = %+v, want %+v", got, want)
	}

	if err := sub.StartFeed(ctx, true); err != nil {
		t.Fatal(err)
	}
	if err := sub.SetViewport(ctx, DefaultViewport()); err != nil {
		t.Fatal(err)
	}
	if p.count("update_feed") != 1 {
		t.Errorf("subscribed update calls = %d, want 1", p.count("update_feed"))
	}
	if sub.Viewport() != DefaultViewport() {
		t.Errorf("viewport not overwritten: %+v", sub.Viewport())
	}
}

func TestFrameForwarding(t *testing.T) {
	ctx := context.Background()
	p := newMockProvider()
	var observed, handled []uint64
	var gotSub *Subscription
	cam := New(Identity{ID: 1}, Options{
		Provider: p,
		Logger:   testLogger(),
		Hooks:    Hooks{OnFrame: func(_ *Subscription, f Frame) { observed = append(observed, f.Seq) }},
	})
	sub := cam.CreateSubscription(func(f Frame, s *Subscription) {
		handled = append(handled, f.Seq)
		gotSub = s
	})

	if err := sub.StartFeed(ctx, false); err != nil {
		t.Fatal(err)
	}
	for seq := uint64(1); seq <= 3; seq++ {
		if !p.push(sub, Frame{Seq: seq}) {
			t.Fatal("provider has no delivery callback")
		}
	}

	if !slices.Equal(handled, []uint64{1, 2, 3}) {
		t.Errorf("handled = %v", handled)
	}
	if !slices.Equal(observed, handled) {
		t.Errorf("observed = %v", observed)
	}
	if gotSub != sub {
		t.Error("handler received the wrong subscription")
	}
}

func TestSubscriptionName(t *testing.T) {
	cam := newTestCamera(newMockProvider())
	a := cam.CreateSubscription(nil)
	if a.Name() == "" {
		t.Error("generated name is empty")
	}
	a.SetName("viewer")
	if a.Name() != "viewer" || a.Info().Name != "viewer" {
		t.Errorf("name = %q", a.Name())
	}
}

func TestRemoveSubscribedSubscriptionStopsFeed(t *testing.T) {
	ctx := context.Background()
	p := newMockProvider()
	cam := newTestCamera(p)
	sub := cam.CreateSubscription(nil)
	if err := sub.StartFeed(ctx, false); err != nil {
		t.Fatal(err)
	}

	cam.RemoveSubscription(ctx, sub, false)

	if sub.IsSubscribed() || cam.HasSubscription(sub) {
		t.Error("a removed subscription must not stay subscribed")
	}
	if p.count("stop_feed") != 1 || cam.IsAcquiring() {
		t.Errorf("calls = %v acquiring=%v", p.Calls(), cam.IsAcquiring())
	}
}
