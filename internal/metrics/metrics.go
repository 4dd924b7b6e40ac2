// Package metrics provides Prometheus metrics for cameras, feeds and
// provider calls.
package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/grabnode/internal/camera"
	"github.com/smazurov/grabnode/internal/events"
)

const namespace = "grabnode"

// Collector owns the grabnode metric families.
type Collector struct {
	gatherer prometheus.Gatherer

	acquiring     *prometheus.GaugeVec
	feedsActive   *prometheus.GaugeVec
	frames        *prometheus.CounterVec
	providerCalls *prometheus.CounterVec
	modeSwitches  *prometheus.CounterVec

	// Local cache for API access.
	mu    sync.RWMutex
	stats map[int]*CameraStats
}

// CameraStats holds current metric values for one camera.
type CameraStats struct {
	Acquiring    bool   `json:"acquiring"`
	FeedsActive  int    `json:"feeds_active"`
	Frames       uint64 `json:"frames"`
	ModeSwitches uint64 `json:"mode_switches"`
}

// New registers the metric families on reg. A nil reg uses a fresh registry.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	c := &Collector{
		acquiring: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "camera_acquiring",
			Help:      "Whether the camera is acquiring (1) or stopped (0)",
		}, []string{"camera"}),
		feedsActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feeds_active",
			Help:      "Subscriptions currently receiving frames",
		}, []string{"camera"}),
		frames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames delivered to subscriptions",
		}, []string{"camera"}),
		providerCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Provider operations by outcome",
		}, []string{"operation", "result"}),
		modeSwitches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mode_switches_total",
			Help:      "Acquisition mode changes",
		}, []string{"camera"}),
		stats: make(map[int]*CameraStats),
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	}
	return c
}

// Attach keeps the metrics in sync with bus events. The returned function detaches.
func (c *Collector) Attach(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.AcquisitionChangedEvent) {
			c.SetAcquiring(e.CameraID, e.Acquiring)
		}),
		bus.Subscribe(func(e events.FeedStateChangedEvent) {
			delta := -1
			if e.Subscribed {
				delta = 1
			}
			c.addFeeds(e.CameraID, delta)
		}),
		bus.Subscribe(func(e events.ModeSwitchedEvent) {
			c.modeSwitches.WithLabelValues(label(e.CameraID)).Inc()
			c.update(e.CameraID, func(s *CameraStats) { s.ModeSwitches++ })
		}),
		bus.Subscribe(func(e events.CameraRemovedEvent) {
			c.Delete(e.CameraID)
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// ObserveFrame counts one delivered frame. It has the camera.Hooks OnFrame signature.
func (c *Collector) ObserveFrame(sub *camera.Subscription, _ camera.Frame) {
	id := sub.Camera().ID()
	c.frames.WithLabelValues(label(id)).Inc()
	c.update(id, func(s *CameraStats) { s.Frames++ })
}

// SetAcquiring sets the acquiring gauge for a camera.
func (c *Collector) SetAcquiring(id int, acquiring bool) {
	v := 0.0
	if acquiring {
		v = 1
	}
	c.acquiring.WithLabelValues(label(id)).Set(v)
	c.update(id, func(s *CameraStats) { s.Acquiring = acquiring })
}

func (c *Collector) addFeeds(id, delta int) {
	c.mu.Lock()
	s := c.statsLocked(id)
	s.FeedsActive = max(s.FeedsActive+delta, 0)
	n := s.FeedsActive
	c.mu.Unlock()
	c.feedsActive.WithLabelValues(label(id)).Set(float64(n))
}

// ObserveCall counts one provider operation.
func (c *Collector) ObserveCall(operation string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case isNotBound(err):
		result = "unbound"
	default:
		result = "error"
	}
	c.providerCalls.WithLabelValues(operation, result).Inc()
}

// Delete removes every per-camera series.
func (c *Collector) Delete(id int) {
	l := label(id)
	c.acquiring.DeleteLabelValues(l)
	c.feedsActive.DeleteLabelValues(l)
	c.frames.DeleteLabelValues(l)
	c.modeSwitches.DeleteLabelValues(l)

	c.mu.Lock()
	delete(c.stats, id)
	c.mu.Unlock()
}

// Stats returns current values for a camera, or nil if none were recorded.
func (c *Collector) Stats(id int) *CameraStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.stats[id]; ok {
		dup := *s
		return &dup
	}
	return nil
}

// Handler serves the registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) update(id int, fn func(*CameraStats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.statsLocked(id))
}

func (c *Collector) statsLocked(id int) *CameraStats {
	s, ok := c.stats[id]
	if !ok {
		s = &CameraStats{}
		c.stats[id] = s
	}
	return s
}

func label(id int) string {
	return strconv.Itoa(id)
}
