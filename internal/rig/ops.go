package rig

import (
	"context"
	"fmt"
	"time"

	"github.com/smazurov/grabnode/internal/camera"
	"github.com/smazurov/grabnode/internal/events"
)

// SetAcquisition starts or stops a camera and waits for the provider's answer.
// A failed provider call is returned as a PROVIDER_ERROR alongside the result.
func (m *Manager) SetAcquisition(ctx context.Context, id int, running bool) (camera.Result, error) {
	e, err := m.get(id)
	if err != nil {
		return camera.Result{}, err
	}

	var op *camera.Op
	if running {
		op = e.cam.StartAcquisition(ctx)
	} else {
		op = e.cam.StopAcquisition(ctx)
	}
	if err := op.Wait(ctx); err != nil {
		return camera.Result{}, err
	}

	r := op.Result()
	if r.Kind == camera.ResultFailed {
		return r, providerError(fmt.Sprintf("set acquisition on camera %d", id), r.Err)
	}
	return r, nil
}

// SwitchMode changes a camera's acquisition mode.
func (m *Manager) SwitchMode(ctx context.Context, id int, mode string) error {
	e, err := m.get(id)
	if err != nil {
		return err
	}
	parsed, err := camera.ParseAcquisitionMode(mode)
	if err != nil {
		return invalid("invalid acquisition mode", err)
	}
	if err := e.cam.SwitchAcquisitionMode(ctx, parsed); err != nil {
		return providerError("switch mode", err)
	}
	return nil
}

// SetExposure sets a camera's exposure time. The value must be positive.
func (m *Manager) SetExposure(ctx context.Context, id int, value float64) error {
	e, err := m.get(id)
	if err != nil {
		return err
	}
	if value <= 0 {
		return invalid(fmt.Sprintf("exposure must be positive, got %v", value), nil)
	}
	return m.setExposure(ctx, e.cam, value)
}

func (m *Manager) setExposure(ctx context.Context, cam *camera.Camera, value float64) error {
	if err := cam.SetExposureTime(ctx, value); err != nil {
		return providerError("set exposure", err)
	}
	m.publish(events.ExposureChangedEvent{CameraID: cam.ID(), Exposure: value, Timestamp: now()})
	return nil
}

// GetExposure reads a camera's exposure time.
func (m *Manager) GetExposure(ctx context.Context, id int) (float64, error) {
	e, err := m.get(id)
	if err != nil {
		return 0, err
	}
	v, err := e.cam.GetExposureTime(ctx)
	if err != nil {
		return 0, providerError("get exposure", err)
	}
	return v, nil
}

// SetDistortion applies distortion coefficients; nil clears them.
func (m *Manager) SetDistortion(ctx context.Context, id int, params []float64) error {
	e, err := m.get(id)
	if err != nil {
		return err
	}
	if err := e.cam.ApplyDistortionCorrection(ctx, params); err != nil {
		return providerError("apply distortion", err)
	}
	return nil
}

// SetName renames a camera.
func (m *Manager) SetName(id int, name string) error {
	e, err := m.get(id)
	if err != nil {
		return err
	}
	e.cam.SetName(name)
	return nil
}

// ClearName clears a camera's display name.
func (m *Manager) ClearName(id int) error {
	e, err := m.get(id)
	if err != nil {
		return err
	}
	e.cam.ClearName()
	return nil
}

// Grab captures one image. An empty subscription name grabs through the
// first subscribed subscription. The result is nil when nothing was eligible.
func (m *Manager) Grab(ctx context.Context, id int, subscription, path string) (any, error) {
	e, err := m.get(id)
	if err != nil {
		return nil, err
	}

	var sub *camera.Subscription
	if subscription != "" {
		if sub = e.findSub(subscription); sub == nil {
			return nil, subscriptionNotFound(id, subscription)
		}
	}

	v, err := e.cam.GrabImage(ctx, path, sub)
	if err != nil {
		return nil, providerError("grab image", err)
	}
	return v, nil
}

// Subscription returns a rig-held subscription by name.
func (m *Manager) Subscription(id int, name string) (*camera.Subscription, error) {
	e, err := m.get(id)
	if err != nil {
		return nil, err
	}
	sub := e.findSub(name)
	if sub == nil {
		return nil, subscriptionNotFound(id, name)
	}
	return sub, nil
}

// CreateSubscription adds a subscription to a camera without starting it.
// An empty name is generated; viewport may be empty for the default.
func (m *Manager) CreateSubscription(ctx context.Context, id int, name string, viewport []float64) (camera.SubscriptionInfo, error) {
	e, err := m.get(id)
	if err != nil {
		return camera.SubscriptionInfo{}, err
	}

	vp := camera.DefaultViewport()
	if len(viewport) > 0 {
		if vp, err = camera.ParseViewport(viewport); err != nil {
			return camera.SubscriptionInfo{}, invalid("invalid viewport", err)
		}
	}

	sub := e.cam.CreateSubscription(m.handler)
	if name != "" {
		sub.SetName(name)
	}
	if !e.addSub(sub) {
		e.cam.RemoveSubscription(ctx, sub, true)
		return camera.SubscriptionInfo{}, invalid(fmt.Sprintf("subscription %q already exists", sub.Name()), nil)
	}
	if err := sub.SetViewport(ctx, vp); err != nil {
		e.dropSub(sub)
		e.cam.RemoveSubscription(ctx, sub, true)
		return camera.SubscriptionInfo{}, providerError("set viewport", err)
	}
	return sub.Info(), nil
}

// StartSubscription starts a subscription's feed.
func (m *Manager) StartSubscription(ctx context.Context, id int, name string, silent bool) error {
	sub, err := m.Subscription(id, name)
	if err != nil {
		return err
	}
	if err := sub.StartFeed(ctx, silent); err != nil {
		return providerError("start feed", err)
	}
	return nil
}

// StopSubscription stops a subscription's feed. The rig keeps the
// subscription so it can be started again.
func (m *Manager) StopSubscription(ctx context.Context, id int, name string, silent bool) error {
	sub, err := m.Subscription(id, name)
	if err != nil {
		return err
	}
	if err := sub.StopFeed(ctx, silent); err != nil {
		return providerError("stop feed", err)
	}
	return nil
}

// UpdateViewport replaces a subscription's viewport with a
// [width, height, scale, dx, dy] list.
func (m *Manager) UpdateViewport(ctx context.Context, id int, name string, values []float64) error {
	sub, err := m.Subscription(id, name)
	if err != nil {
		return err
	}
	vp, err := camera.ParseViewport(values)
	if err != nil {
		return invalid("invalid viewport", err)
	}
	if err := sub.SetViewport(ctx, vp); err != nil {
		return providerError("update feed", err)
	}
	return nil
}

// DeleteSubscription stops a subscription's feed, unregisters it from its
// camera and forgets it.
func (m *Manager) DeleteSubscription(ctx context.Context, id int, name string) error {
	e, err := m.get(id)
	if err != nil {
		return err
	}
	sub := e.findSub(name)
	if sub == nil {
		return subscriptionNotFound(id, name)
	}
	if err := sub.StopFeed(ctx, false); err != nil {
		return providerError("stop feed", err)
	}
	if err := e.cam.RemoveSubscription(ctx, sub, true).Wait(ctx); err != nil {
		return err
	}
	e.dropSub(sub)
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
