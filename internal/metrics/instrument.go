package metrics

import (
	"context"
	"errors"

	"github.com/smazurov/grabnode/internal/camera"
)

// Provider operation labels.
const (
	OpStartAcquisition = "start_acquisition"
	OpStopAcquisition  = "stop_acquisition"
	OpSetExposure      = "set_exposure"
	OpGetExposure      = "get_exposure"
	OpApplyDistortion  = "apply_distortion"
	OpStartFeed        = "start_feed"
	OpStopFeed         = "stop_feed"
	OpUpdateFeed       = "update_feed"
	OpGrabImage        = "grab_image"
)

func isNotBound(err error) bool {
	return errors.Is(err, camera.ErrNotBound)
}

// Instrument wraps p so every call is counted in provider_calls_total.
func (c *Collector) Instrument(p camera.Provider) camera.Provider {
	return &instrumented{next: p, c: c}
}

type instrumented struct {
	next camera.Provider
	c    *Collector
}

func (i *instrumented) StartAcquisition(ctx context.Context, cam *camera.Camera) (bool, error) {
	ok, err := i.next.StartAcquisition(ctx, cam)
	i.c.ObserveCall(OpStartAcquisition, err)
	return ok, err
}

func (i *instrumented) StopAcquisition(ctx context.Context, cam *camera.Camera) (bool, error) {
	ok, err := i.next.StopAcquisition(ctx, cam)
	i.c.ObserveCall(OpStopAcquisition, err)
	return ok, err
}

func (i *instrumented) SetExposureTime(ctx context.Context, cam *camera.Camera, value float64) error {
	err := i.next.SetExposureTime(ctx, cam, value)
	i.c.ObserveCall(OpSetExposure, err)
	return err
}

func (i *instrumented) GetExposureTime(ctx context.Context, cam *camera.Camera) (float64, error) {
	v, err := i.next.GetExposureTime(ctx, cam)
	i.c.ObserveCall(OpGetExposure, err)
	return v, err
}

func (i *instrumented) ApplyDistortion(ctx context.Context, cam *camera.Camera, params []float64) error {
	err := i.next.ApplyDistortion(ctx, cam, params)
	i.c.ObserveCall(OpApplyDistortion, err)
	return err
}

func (i *instrumented) StartFeed(ctx context.Context, sub *camera.Subscription, deliver camera.FrameFunc) error {
	err := i.next.StartFeed(ctx, sub, deliver)
	i.c.ObserveCall(OpStartFeed, err)
	return err
}

func (i *instrumented) StopFeed(ctx context.Context, sub *camera.Subscription) error {
	err := i.next.StopFeed(ctx, sub)
	i.c.ObserveCall(OpStopFeed, err)
	return err
}

func (i *instrumented) UpdateFeed(ctx context.Context, sub *camera.Subscription) error {
	err := i.next.UpdateFeed(ctx, sub)
	i.c.ObserveCall(OpUpdateFeed, err)
	return err
}

func (i *instrumented) GrabImage(ctx context.Context, sub *camera.Subscription, path string) (any, error) {
	v, err := i.next.GrabImage(ctx, sub, path)
	i.c.ObserveCall(OpGrabImage, err)
	return v, err
}
