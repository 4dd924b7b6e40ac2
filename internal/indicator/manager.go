package indicator

import (
	"sync"

	"github.com/smazurov/grabnode/internal/events"
	"github.com/smazurov/grabnode/internal/logging"
)

// Status values reported by Manager.Status.
const (
	StatusOff     = "off"
	StatusSolid   = PatternSolid
	StatusBlink   = PatternBlink
	StatusUnknown = ""
)

// Manager drives one LED from aggregate acquisition state: solid when every
// known camera is acquiring, blinking when some are idle, off with no cameras.
type Manager struct {
	controller Controller
	led        string
	bus        *events.Bus
	logger     logging.Logger

	unsubs []func()

	mu     sync.Mutex
	states map[int]bool // camera id -> acquiring
	status string
}

// NewManager creates a manager for led on controller.
func NewManager(controller Controller, led string, bus *events.Bus, logger logging.Logger) *Manager {
	return &Manager{
		controller: controller,
		led:        led,
		bus:        bus,
		logger:     logger,
		states:     make(map[int]bool),
	}
}

// Start subscribes to camera events and sets the initial state.
func (m *Manager) Start() {
	m.unsubs = []func(){
		m.bus.Subscribe(func(e events.CameraAddedEvent) {
			m.apply(func(s map[int]bool) {
				if _, ok := s[e.CameraID]; !ok {
					s[e.CameraID] = false
				}
			})
		}),
		m.bus.Subscribe(func(e events.CameraRemovedEvent) {
			m.apply(func(s map[int]bool) { delete(s, e.CameraID) })
		}),
		m.bus.Subscribe(func(e events.AcquisitionChangedEvent) {
			m.apply(func(s map[int]bool) { s[e.CameraID] = e.Acquiring })
		}),
	}
	m.apply(func(map[int]bool) {})
	m.logger.Info("Indicator started", "led", m.led)
}

// Stop unsubscribes from events.
func (m *Manager) Stop() {
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
	m.logger.Info("Indicator stopped")
}

// Status returns the state currently shown.
func (m *Manager) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// LED returns the name of the driven LED.
func (m *Manager) LED() string {
	return m.led
}

// Controller returns the underlying LED controller.
func (m *Manager) Controller() Controller {
	return m.controller
}

func (m *Manager) apply(change func(map[int]bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	change(m.states)
	next := aggregate(m.states)
	if next == m.status {
		return
	}

	var err error
	switch next {
	case StatusOff:
		err = m.controller.Set(m.led, false, "")
	default:
		err = m.controller.Set(m.led, true, next)
	}
	if err != nil {
		m.logger.Warn("Failed to set LED", "led", m.led, "status", next, "error", err)
		return
	}
	m.status = next
	m.logger.Debug("Indicator updated", "status", next, "cameras", len(m.states))
}

func aggregate(states map[int]bool) string {
	if len(states) == 0 {
		return StatusOff
	}
	for _, acquiring := range states {
		if !acquiring {
			return StatusBlink
		}
	}
	return StatusSolid
}
