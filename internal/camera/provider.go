package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotBound is returned by a Binding operation that has no implementation.
// The core treats it as a silent no-op.
var ErrNotBound = errors.New("provider operation not bound")

// Provider performs the device-level work for cameras and subscriptions.
// Implementations may block; the core never holds its own locks while calling them.
type Provider interface {
	StartAcquisition(ctx context.Context, cam *Camera) (bool, error)
	StopAcquisition(ctx context.Context, cam *Camera) (bool, error)
	SetExposureTime(ctx context.Context, cam *Camera, value float64) error
	GetExposureTime(ctx context.Context, cam *Camera) (float64, error)
	// ApplyDistortion applies correction coefficients; nil clears correction.
	ApplyDistortion(ctx context.Context, cam *Camera, params []float64) error
	// StartFeed begins delivering frames for sub to deliver.
	StartFeed(ctx context.Context, sub *Subscription, deliver FrameFunc) error
	StopFeed(ctx context.Context, sub *Subscription) error
	UpdateFeed(ctx context.Context, sub *Subscription) error
	// GrabImage captures one artifact for sub. An empty path means no target path.
	GrabImage(ctx context.Context, sub *Subscription, path string) (any, error)
}

// AcquisitionError is a start/stop failure that reports the acquisition
// state the device was left in.
type AcquisitionError struct {
	Acquiring bool
	Err       error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("acquisition failed (acquiring=%t): %v", e.Acquiring, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// Funcs holds one optional function per provider operation.
type Funcs struct {
	StartAcquisition func(ctx context.Context, cam *Camera) (bool, error)
	StopAcquisition  func(ctx context.Context, cam *Camera) (bool, error)
	SetExposureTime  func(ctx context.Context, cam *Camera, value float64) error
	GetExposureTime  func(ctx context.Context, cam *Camera) (float64, error)
	ApplyDistortion  func(ctx context.Context, cam *Camera, params []float64) error
	StartFeed        func(ctx context.Context, sub *Subscription, deliver FrameFunc) error
	StopFeed         func(ctx context.Context, sub *Subscription) error
	UpdateFeed       func(ctx context.Context, sub *Subscription) error
	GrabImage        func(ctx context.Context, sub *Subscription, path string) (any, error)
}

// FuncsOf binds every operation of p.
func FuncsOf(p Provider) Funcs {
	return Funcs{
		StartAcquisition: p.StartAcquisition,
		StopAcquisition:  p.StopAcquisition,
		SetExposureTime:  p.SetExposureTime,
		GetExposureTime:  p.GetExposureTime,
		ApplyDistortion:  p.ApplyDistortion,
		StartFeed:        p.StartFeed,
		StopFeed:         p.StopFeed,
		UpdateFeed:       p.UpdateFeed,
		GrabImage:        p.GrabImage,
	}
}

// merge overlays the non-nil fields of src onto f.
func (f Funcs) merge(src Funcs) Funcs {
	if src.StartAcquisition != nil {
		f.StartAcquisition = src.StartAcquisition
	}
	if src.StopAcquisition != nil {
		f.StopAcquisition = src.StopAcquisition
	}
	if src.SetExposureTime != nil {
		f.SetExposureTime = src.SetExposureTime
	}
	if src.GetExposureTime != nil {
		f.GetExposureTime = src.GetExposureTime
	}
	if src.ApplyDistortion != nil {
		f.ApplyDistortion = src.ApplyDistortion
	}
	if src.StartFeed != nil {
		f.StartFeed = src.StartFeed
	}
	if src.StopFeed != nil {
		f.StopFeed = src.StopFeed
	}
	if src.UpdateFeed != nil {
		f.UpdateFeed = src.UpdateFeed
	}
	if src.GrabImage != nil {
		f.GrabImage = src.GrabImage
	}
	return f
}

// Binding is a replaceable provider owned by the caller. Cameras built with a
// Binding see every rebinding on their next provider call.
type Binding struct {
	mu    sync.RWMutex
	funcs Funcs
}

// NewBinding creates a binding with the given operations bound.
func NewBinding(funcs Funcs) *Binding {
	return &Binding{funcs: funcs}
}

// Bind replaces every operation with those of p.
func (b *Binding) Bind(p Provider) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.funcs = FuncsOf(p)
}

// Assign replaces only the operations set in funcs.
func (b *Binding) Assign(funcs Funcs) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.funcs = b.funcs.merge(funcs)
}

// Reset unbinds every operation.
func (b *Binding) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.funcs = Funcs{}
}

func (b *Binding) current() Funcs {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.funcs
}

// StartAcquisition implements Provider.
func (b *Binding) StartAcquisition(ctx context.Context, cam *Camera) (bool, error) {
	fn := b.current().StartAcquisition
	if fn == nil {
		return false, ErrNotBound
	}
	return fn(ctx, cam)
}

// StopAcquisition implements Provider.
func (b *Binding) StopAcquisition(ctx context.Context, cam *Camera) (bool, error) {
	fn := b.current().StopAcquisition
	if fn == nil {
		return false, ErrNotBound
	}
	return fn(ctx, cam)
}

// SetExposureTime implements Provider.
func (b *Binding) SetExposureTime(ctx context.Context, cam *Camera, value float64) error {
	fn := b.current().SetExposureTime
	if fn == nil {
		return ErrNotBound
	}
	return fn(ctx, cam, value)
}

// GetExposureTime implements Provider.
func (b *Binding) GetExposureTime(ctx context.Context, cam *Camera) (float64, error) {
	fn := b.current().GetExposureTime
	if fn == nil {
		return 0, ErrNotBound
	}
	return fn(ctx, cam)
}

// ApplyDistortion implements Provider.
func (b *Binding) ApplyDistortion(ctx context.Context, cam *Camera, params []float64) error {
	fn := b.current().ApplyDistortion
	if fn == nil {
		return ErrNotBound
	}
	return fn(ctx, cam, params)
}

// StartFeed implements Provider.
func (b *Binding) StartFeed(ctx context.Context, sub *Subscription, deliver FrameFunc) error {
	fn := b.current().StartFeed
	if fn == nil {
		return ErrNotBound
	}
	return fn(ctx, sub, deliver)
}

// StopFeed implements Provider.
func (b *Binding) StopFeed(ctx context.Context, sub *Subscription) error {
	fn := b.current().StopFeed
	if fn == nil {
		return ErrNotBound
	}
	return fn(ctx, sub)
}

// UpdateFeed implements Provider.
func (b *Binding) UpdateFeed(ctx context.Context, sub *Subscription) error {
	fn := b.current().UpdateFeed
	if fn == nil {
		return ErrNotBound
	}
	return fn(ctx, sub)
}

// GrabImage implements Provider.
func (b *Binding) GrabImage(ctx context.Context, sub *Subscription, path string) (any, error) {
	fn := b.current().GrabImage
	if fn == nil {
		return nil, ErrNotBound
	}
	return fn(ctx, sub, path)
}

// unbound maps ErrNotBound to nil.
func unbound(err error) error {
	if errors.Is(err, ErrNotBound) {
		return nil
	}
	return err
}
