package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/smazurov/grabnode/internal/logging"
)

// Hooks observe state transitions. Every field is optional and is called
// without any camera lock held.
type Hooks struct {
	OnAcquisition func(cam *Camera, result Result)
	OnFeed        func(sub *Subscription, subscribed bool)
	OnMode        func(cam *Camera, from, to AcquisitionMode)
	OnFrame       func(sub *Subscription, frame Frame)
}

// Options configures a new Camera.
type Options struct {
	// Provider performs device work. Nil behaves as an empty Binding.
	Provider Provider
	// Logger for camera operations. If nil, uses the "camera" module logger.
	Logger *slog.Logger
	Hooks  Hooks
}

// Camera is one acquisition device and the subscriptions fed from it.
type Camera struct {
	id      int
	model   string
	serial  string
	width   int
	height  int
	channel int

	provider Provider
	logger   *slog.Logger
	hooks    Hooks

	mu        sync.RWMutex
	name      string
	subs      []*Subscription
	acquiring bool
	mode      AcquisitionMode
	tail      chan struct{} // done channel of the last queued acquisition op

	switchMu sync.Mutex
}

// New creates a camera that is not acquiring, in InternalTrigger mode.
func New(id Identity, opts Options) *Camera {
	provider := opts.Provider
	if provider == nil {
		provider = NewBinding(Funcs{})
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("camera")
	}

	c := &Camera{
		id:       id.ID,
		model:    id.Model,
		serial:   id.Serial,
		name:     id.Name,
		width:    orDefault(id.Width, DefaultWidth),
		height:   orDefault(id.Height, DefaultHeight),
		channel:  orDefault(id.Channel, DefaultChannel),
		provider: provider,
		hooks:    opts.Hooks,
		mode:     InternalTrigger,
	}
	c.logger = logger.With("camera_id", c.id, "serial", c.serial)
	return c
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// ID returns the unique camera id.
func (c *Camera) ID() int { return c.id }

// Model returns the camera model.
func (c *Camera) Model() string { return c.model }

// Serial returns the camera serial number.
func (c *Camera) Serial() string { return c.serial }

// Width returns the frame width.
func (c *Camera) Width() int { return c.width }

// Height returns the frame height.
func (c *Camera) Height() int { return c.height }

// Channel returns the number of channels per pixel.
func (c *Camera) Channel() int { return c.channel }

// Name returns the display name, possibly empty.
func (c *Camera) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// SetName sets the display name.
func (c *Camera) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

// ClearName empties the display name.
func (c *Camera) ClearName() {
	c.SetName("")
}

// Desc returns "name(serial)".
func (c *Camera) Desc() string {
	return fmt.Sprintf("%s(%s)", c.Name(), c.serial)
}

// IsAcquiring reports whether the device is producing frames. The flag is
// updated when an acquisition Op settles, not when it is issued.
func (c *Camera) IsAcquiring() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.acquiring
}

// Mode returns the current acquisition mode.
func (c *Camera) Mode() AcquisitionMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Subscriptions returns the registered subscriptions in insertion order.
func (c *Camera) Subscriptions() []*Subscription {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.subs)
}

// HasSubscription reports whether sub is registered on c.
func (c *Camera) HasSubscription(sub *Subscription) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Contains(c.subs, sub)
}

// CreateSubscription builds a subscription owned by c and registers it.
// Acquisition state is not touched.
func (c *Camera) CreateSubscription(h Handler) *Subscription {
	sub := newSubscription(c, h)
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.logger.Debug("Subscription created", "subscription", sub.Name())
	return sub
}

// AddSubscription registers sub if it is not registered yet. Unless silent,
// it then starts acquisition and returns that operation.
// Subscriptions owned by another camera are ignored.
func (c *Camera) AddSubscription(ctx context.Context, sub *Subscription, silent bool) *Op {
	if sub == nil || sub.camera != c {
		c.logger.Debug("Ignoring foreign subscription")
		return Resolved()
	}

	c.mu.Lock()
	if !slices.Contains(c.subs, sub) {
		c.subs = append(c.subs, sub)
	}
	c.mu.Unlock()

	if silent {
		return Resolved()
	}
	return c.StartAcquisition(ctx)
}

// RemoveSubscription unregisters sub if registered. Unless silent, it then
// stops acquisition and returns that operation. A subscription that is still
// subscribed has its feed stopped first, so it never stays subscribed while
// unregistered.
func (c *Camera) RemoveSubscription(ctx context.Context, sub *Subscription, silent bool) *Op {
	if sub == nil || sub.camera != c {
		c.logger.Debug("Ignoring foreign subscription")
		return Resolved()
	}

	if sub.IsSubscribed() {
		// StopFeed unsubscribes and calls back into RemoveSubscription.
		if err := sub.StopFeed(ctx, silent); err != nil {
			c.logger.Warn("Failed to stop feed before removal", "subscription", sub.Name(), "error", err)
		}
		return Resolved()
	}

	c.mu.Lock()
	if i := slices.Index(c.subs, sub); i >= 0 {
		c.subs = slices.Delete(c.subs, i, i+1)
	}
	c.mu.Unlock()

	if silent {
		return Resolved()
	}
	return c.StopAcquisition(ctx)
}

// StartAcquisition asks the provider to start producing frames unless the
// camera is already acquiring. It returns before the flag is updated; wait
// on the Op to observe the new state.
func (c *Camera) StartAcquisition(ctx context.Context) *Op {
	return c.enqueue(ctx, true)
}

// StopAcquisition asks the provider to stop producing frames unless the
// camera is already stopped.
func (c *Camera) StopAcquisition(ctx context.Context) *Op {
	return c.enqueue(ctx, false)
}

// enqueue runs an acquisition change after every previously queued one.
func (c *Camera) enqueue(ctx context.Context, start bool) *Op {
	c.mu.Lock()
	prev := c.tail
	if !busy(prev) && c.acquiring == start {
		c.mu.Unlock()
		return skipped(start)
	}
	op := newOp()
	c.tail = op.done
	c.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		if prev != nil {
			<-prev
		}
		issued, result := c.runAcquisition(ctx, start)
		op.settle(issued, result)
	}()
	return op
}

func busy(done chan struct{}) bool {
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// runAcquisition performs one queued start or stop.
func (c *Camera) runAcquisition(ctx context.Context, start bool) (bool, Result) {
	c.mu.RLock()
	current := c.acquiring
	mode := c.mode
	c.mu.RUnlock()

	if current == start {
		return false, Result{Kind: ResultSkipped, Acquiring: current}
	}

	var (
		acquiring bool
		err       error
	)
	if start {
		c.logger.Debug("Starting acquisition", "mode", mode.String())
		acquiring, err = c.provider.StartAcquisition(ctx, c)
	} else {
		c.logger.Debug("Stopping acquisition")
		acquiring, err = c.provider.StopAcquisition(ctx, c)
	}

	if errors.Is(err, ErrNotBound) {
		c.logger.Debug("Acquisition operation not bound", "start", start)
		return false, Result{Kind: ResultSkipped, Acquiring: current}
	}

	result := decide(start, current, acquiring, err)

	c.mu.Lock()
	c.acquiring = result.Acquiring
	c.mu.Unlock()

	if result.Kind == ResultFailed {
		c.logger.Warn("Acquisition change failed", "start", start, "acquiring", result.Acquiring, "error", result.Err)
	} else {
		c.logger.Info("Acquisition changed", "acquiring", result.Acquiring, "mode", mode.String())
	}

	if c.hooks.OnAcquisition != nil {
		c.hooks.OnAcquisition(c, result)
	}
	return true, result
}

// decide picks the acquisition flag after a provider start or stop.
func decide(start, current, acquiring bool, err error) Result {
	if err == nil {
		return Succeeded(acquiring)
	}
	var acqErr *AcquisitionError
	if errors.As(err, &acqErr) {
		return Failed(err, acqErr.Acquiring)
	}
	if start {
		return Failed(err, false)
	}
	return Failed(err, current)
}

// barrier waits for every queued acquisition op.
func (c *Camera) barrier(ctx context.Context) error {
	c.mu.RLock()
	tail := c.tail
	c.mu.RUnlock()
	if tail == nil {
		return nil
	}
	select {
	case <-tail:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SwitchAcquisitionMode changes the trigger mode. A camera that is acquiring
// is stopped, switched and restarted, so the provider only sees the mode
// change at the start of acquisition. If the stop fails and the camera keeps
// acquiring, the mode is unchanged and the stop error is returned.
func (c *Camera) SwitchAcquisitionMode(ctx context.Context, mode AcquisitionMode) error {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	if c.Mode() == mode {
		return nil
	}
	if err := c.barrier(ctx); err != nil {
		return err
	}

	c.mu.RLock()
	from := c.mode
	wasAcquiring := c.acquiring
	c.mu.RUnlock()

	if wasAcquiring {
		op := c.StopAcquisition(ctx)
		if err := op.Wait(ctx); err != nil {
			return err
		}
		// The mode is left alone while the camera still runs.
		if r := op.Result(); r.Kind == ResultFailed && r.Acquiring {
			return fmt.Errorf("stop before mode switch: %w", r.Err)
		}
	}

	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	c.logger.Info("Acquisition mode switched", "from", from.String(), "to", mode.String())

	if c.hooks.OnMode != nil {
		c.hooks.OnMode(c, from, mode)
	}

	if wasAcquiring {
		return c.StartAcquisition(ctx).Wait(ctx)
	}
	return nil
}

// SetExposureTime sets the camera exposure.
func (c *Camera) SetExposureTime(ctx context.Context, value float64) error {
	return unbound(c.provider.SetExposureTime(ctx, c, value))
}

// GetExposureTime reads the camera exposure. An unbound provider reports 0.
func (c *Camera) GetExposureTime(ctx context.Context) (float64, error) {
	v, err := c.provider.GetExposureTime(ctx, c)
	if errors.Is(err, ErrNotBound) {
		return 0, nil
	}
	return v, err
}

// ApplyDistortionCorrection applies correction coefficients; nil clears them.
func (c *Camera) ApplyDistortionCorrection(ctx context.Context, params []float64) error {
	return unbound(c.provider.ApplyDistortion(ctx, c, params))
}

// GrabImage captures one artifact through sub, or through the first
// subscribed subscription when sub is nil. With no eligible subscription it
// returns (nil, nil) without calling the provider.
func (c *Camera) GrabImage(ctx context.Context, path string, sub *Subscription) (any, error) {
	target := sub
	if target != nil && target.camera != c {
		return nil, nil
	}
	if target == nil {
		target = c.firstSubscribed()
	}
	if target == nil {
		c.logger.Debug("No subscription eligible for grab")
		return nil, nil
	}
	return target.GrabImage(ctx, path)
}

func (c *Camera) firstSubscribed() *Subscription {
	for _, sub := range c.Subscriptions() {
		if sub.IsSubscribed() {
			return sub
		}
	}
	return nil
}

// GrabAs grabs an image and asserts it to T. The boolean reports whether an
// artifact was produced.
func GrabAs[T any](ctx context.Context, c *Camera, path string, sub *Subscription) (T, bool, error) {
	var zero T
	v, err := c.GrabImage(ctx, path, sub)
	if err != nil || v == nil {
		return zero, false, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, false, fmt.Errorf("grab returned %T, want %T", v, zero)
	}
	return t, true, nil
}

// Close stops every subscribed feed. The camera can still be used afterwards.
func (c *Camera) Close(ctx context.Context) error {
	var errs []error
	for _, sub := range c.Subscriptions() {
		if !sub.IsSubscribed() {
			continue
		}
		if err := sub.StopFeed(ctx, false); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.barrier(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Info is a point-in-time view of a camera.
type Info struct {
	ID            int                `json:"id"`
	Model         string             `json:"model"`
	Serial        string             `json:"serial"`
	Name          string             `json:"name"`
	Desc          string             `json:"desc"`
	Width         int                `json:"width"`
	Height        int                `json:"height"`
	Channel       int                `json:"channel"`
	Acquiring     bool               `json:"acquiring"`
	Mode          string             `json:"mode"`
	Subscriptions []SubscriptionInfo `json:"subscriptions"`
}

// SubscriptionInfo is a point-in-time view of a subscription.
type SubscriptionInfo struct {
	Name       string   `json:"name"`
	Subscribed bool     `json:"subscribed"`
	Viewport   Viewport `json:"viewport"`
}

// Snapshot returns the current camera state.
func (c *Camera) Snapshot() Info {
	subs := c.Subscriptions()
	infos := make([]SubscriptionInfo, 0, len(subs))
	for _, sub := range subs {
		infos = append(infos, sub.Info())
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return Info{
		ID:            c.id,
		Model:         c.model,
		Serial:        c.serial,
		Name:          c.name,
		Desc:          fmt.Sprintf("%s(%s)", c.name, c.serial),
		Width:         c.width,
		Height:        c.height,
		Channel:       c.channel,
		Acquiring:     c.acquiring,
		Mode:          c.mode.String(),
		Subscriptions: infos,
	}
}
