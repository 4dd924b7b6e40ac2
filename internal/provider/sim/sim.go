// Package sim is the built-in camera.Provider used when no device driver is
// plugged in. It logs every call and produces synthetic frames.
package sim

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/grabnode/internal/camera"
	"github.com/smazurov/grabnode/internal/logging"
)

// DefaultExposure is reported for cameras whose exposure was never set.
const DefaultExposure = 1000.0

// ErrStartFailed is returned by StartAcquisition when FailStart is set.
var ErrStartFailed = errors.New("simulated start failure")

// Options configures the provider.
type Options struct {
	// FrameInterval between synthetic frames. Zero means 100ms.
	FrameInterval time.Duration
	// FailStart makes every StartAcquisition fail with ErrStartFailed.
	FailStart bool
	Logger    *slog.Logger
}

// Capture is the artifact returned by GrabImage.
type Capture struct {
	Path  string
	Frame camera.Frame
}

// Provider simulates camera hardware.
type Provider struct {
	interval  time.Duration
	failStart bool
	logger    *slog.Logger

	mu         sync.Mutex
	exposure   map[int]float64
	distortion map[int][]float64
	feeds      map[*camera.Subscription]*feed
	wg         sync.WaitGroup
}

type feed struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// stop cancels the feed and waits for its last delivery to return.
func (f *feed) stop() {
	f.cancel()
	<-f.done
}

// New creates a simulated provider.
func New(opts Options) *Provider {
	interval := opts.FrameInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("sim")
	}
	return &Provider{
		interval:   interval,
		failStart:  opts.FailStart,
		logger:     logger,
		exposure:   make(map[int]float64),
		distortion: make(map[int][]float64),
		feeds:      make(map[*camera.Subscription]*feed),
	}
}

// StartAcquisition reports the camera as acquiring.
func (p *Provider) StartAcquisition(_ context.Context, cam *camera.Camera) (bool, error) {
	p.logger.Info("Start acquisition", "camera", cam.Desc(), "mode", cam.Mode().String())
	if p.failStart {
		return false, &camera.AcquisitionError{Acquiring: false, Err: ErrStartFailed}
	}
	return true, nil
}

// StopAcquisition reports the camera as stopped.
func (p *Provider) StopAcquisition(_ context.Context, cam *camera.Camera) (bool, error) {
	p.logger.Info("Stop acquisition", "camera", cam.Desc())
	return false, nil
}

// SetExposureTime stores the exposure for cam.
func (p *Provider) SetExposureTime(_ context.Context, cam *camera.Camera, value float64) error {
	p.logger.Info("Set exposure", "camera", cam.Desc(), "value", value)
	p.mu.Lock()
	p.exposure[cam.ID()] = value
	p.mu.Unlock()
	return nil
}

// GetExposureTime returns the stored exposure or DefaultExposure.
func (p *Provider) GetExposureTime(_ context.Context, cam *camera.Camera) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.exposure[cam.ID()]; ok {
		return v, nil
	}
	return DefaultExposure, nil
}

// ApplyDistortion stores the coefficients; nil clears them.
func (p *Provider) ApplyDistortion(_ context.Context, cam *camera.Camera, params []float64) error {
	p.logger.Info("Apply distortion", "camera", cam.Desc(), "params", params)
	p.mu.Lock()
	defer p.mu.Unlock()
	if params == nil {
		delete(p.distortion, cam.ID())
		return nil
	}
	p.distortion[cam.ID()] = append([]float64(nil), params...)
	return nil
}

// Distortion returns the coefficients applied to the camera with id.
func (p *Provider) Distortion(id int) []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.distortion[id]...)
}

// StartFeed delivers one frame immediately, then one per interval until
// StopFeed.
func (p *Provider) StartFeed(_ context.Context, sub *camera.Subscription, deliver camera.FrameFunc) error {
	p.logger.Info("Start feed", "camera", sub.Camera().Desc(), "subscription", sub.Name())

	ctx, cancel := context.WithCancel(context.Background())
	f := &feed{cancel: cancel, done: make(chan struct{})}

	p.mu.Lock()
	old := p.feeds[sub]
	p.feeds[sub] = f
	p.wg.Add(1)
	p.mu.Unlock()

	if old != nil {
		old.stop()
	}
	go p.run(ctx, f, sub, deliver)
	return nil
}

func (p *Provider) run(ctx context.Context, f *feed, sub *camera.Subscription, deliver camera.FrameFunc) {
	defer p.wg.Done()
	defer close(f.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var seq uint64
	for {
		if ctx.Err() != nil {
			return
		}
		seq++
		deliver(synthesize(sub, seq))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// synthesize builds a gradient frame sized to the subscription viewport.
func synthesize(sub *camera.Subscription, seq uint64) camera.Frame {
	v := sub.Viewport()
	width := max(int(float64(v.Width)*v.Scale), 1)
	height := max(int(float64(v.Height)*v.Scale), 1)
	channels := sub.Camera().Channel()

	data := make([]byte, width*height*channels)
	for i := range data {
		data[i] = byte((i + int(seq)) % 256)
	}
	return camera.Frame{
		Width:     width,
		Height:    height,
		Channels:  channels,
		Data:      data,
		Seq:       seq,
		Timestamp: time.Now(),
	}
}

// StopFeed cancels the subscription's frame goroutine. No frame is
// delivered after it returns.
func (p *Provider) StopFeed(_ context.Context, sub *camera.Subscription) error {
	p.logger.Info("Stop feed", "camera", sub.Camera().Desc(), "subscription", sub.Name())
	p.mu.Lock()
	f := p.feeds[sub]
	delete(p.feeds, sub)
	p.mu.Unlock()

	if f != nil {
		f.stop()
	}
	return nil
}

// UpdateFeed logs the new viewport; the next frame picks it up.
func (p *Provider) UpdateFeed(_ context.Context, sub *camera.Subscription) error {
	v := sub.Viewport()
	p.logger.Info("Update feed", "camera", sub.Camera().Desc(), "subscription", sub.Name(),
		"width", v.Width, "height", v.Height, "scale", v.Scale, "dx", v.Dx, "dy", v.Dy)
	return nil
}

// GrabImage returns a *Capture with one synthetic frame.
func (p *Provider) GrabImage(_ context.Context, sub *camera.Subscription, path string) (any, error) {
	p.logger.Info("Grab image", "camera", sub.Camera().Desc(), "subscription", sub.Name(), "path", path)
	return &Capture{Path: path, Frame: synthesize(sub, 0)}, nil
}

// ActiveFeeds returns the number of running feeds.
func (p *Provider) ActiveFeeds() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.feeds)
}

// Close stops every feed and waits for their goroutines.
func (p *Provider) Close() {
	p.mu.Lock()
	for sub, f := range p.feeds {
		f.cancel()
		delete(p.feeds, sub)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
