package camera

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Subscription is one consumer's feed from a camera. It holds a non-owning
// reference to its camera and is created only by Camera.CreateSubscription.
//
// Handlers run on the provider's delivery goroutine and must not call
// StartFeed or StopFeed on the same subscription synchronously.
type Subscription struct {
	camera  *Camera
	handler Handler
	forward FrameFunc

	// opMu serializes feed start, stop and update.
	opMu sync.Mutex

	mu         sync.RWMutex
	name       string
	viewport   Viewport
	subscribed bool
}

func newSubscription(c *Camera, h Handler) *Subscription {
	s := &Subscription{
		camera:   c,
		handler:  h,
		name:     strconv.FormatInt(time.Now().UnixNano(), 10),
		viewport: DefaultViewport(),
	}
	s.forward = func(frame Frame) {
		if c.hooks.OnFrame != nil {
			c.hooks.OnFrame(s, frame)
		}
		if s.handler != nil {
			s.handler(frame, s)
		}
	}
	return s
}

// Camera returns the owning camera.
func (s *Subscription) Camera() *Camera { return s.camera }

// Name returns the subscription name.
func (s *Subscription) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// SetName renames the subscription. Names are not checked for uniqueness.
func (s *Subscription) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// IsSubscribed reports whether frames are being delivered.
func (s *Subscription) IsSubscribed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscribed
}

// Viewport returns the current delivery region.
func (s *Subscription) Viewport() Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewport
}

// Info returns a snapshot of the subscription.
func (s *Subscription) Info() SubscriptionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SubscriptionInfo{Name: s.name, Subscribed: s.subscribed, Viewport: s.viewport}
}

// StartFeed registers with the camera (starting acquisition unless silent),
// then asks the provider to deliver frames. Camera registration always
// completes before the provider feed starts.
func (s *Subscription) StartFeed(ctx context.Context, silent bool) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.IsSubscribed() {
		return nil
	}

	if err := s.camera.AddSubscription(ctx, s, silent).Wait(ctx); err != nil {
		return err
	}

	if err := unbound(s.camera.provider.StartFeed(ctx, s, s.forward)); err != nil {
		return fmt.Errorf("start feed %s: %w", s.Name(), err)
	}

	s.mu.Lock()
	s.subscribed = true
	s.mu.Unlock()

	s.camera.logger.Info("Feed started", "subscription", s.Name(), "silent", silent)
	if s.camera.hooks.OnFeed != nil {
		s.camera.hooks.OnFeed(s, true)
	}
	return nil
}

// UpdateViewport overwrites all five geometry fields. A subscribed feed is
// updated in place by the provider; otherwise the change is local.
func (s *Subscription) UpdateViewport(ctx context.Context, width, height int, scale float64, dx, dy int) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	s.viewport = Viewport{Width: width, Height: height, Scale: scale, Dx: dx, Dy: dy}
	subscribed := s.subscribed
	s.mu.Unlock()

	if !subscribed {
		return nil
	}
	return unbound(s.camera.provider.UpdateFeed(ctx, s))
}

// SetViewport is UpdateViewport with a Viewport value.
func (s *Subscription) SetViewport(ctx context.Context, v Viewport) error {
	return s.UpdateViewport(ctx, v.Width, v.Height, v.Scale, v.Dx, v.Dy)
}

// StopFeed asks the provider to stop delivering frames, then unregisters
// from the camera (stopping acquisition unless silent).
func (s *Subscription) StopFeed(ctx context.Context, silent bool) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if !s.IsSubscribed() {
		return nil
	}

	if err := unbound(s.camera.provider.StopFeed(ctx, s)); err != nil {
		return fmt.Errorf("stop feed %s: %w", s.Name(), err)
	}

	s.mu.Lock()
	s.subscribed = false
	s.mu.Unlock()

	s.camera.logger.Info("Feed stopped", "subscription", s.Name(), "silent", silent)
	if s.camera.hooks.OnFeed != nil {
		s.camera.hooks.OnFeed(s, false)
	}

	return s.camera.RemoveSubscription(ctx, s, silent).Wait(ctx)
}

// GrabImage captures one artifact scoped to this subscription's viewport.
func (s *Subscription) GrabImage(ctx context.Context, path string) (any, error) {
	v, err := s.camera.provider.GrabImage(ctx, s, path)
	if errors.Is(err, ErrNotBound) {
		return nil, nil
	}
	return v, err
}
