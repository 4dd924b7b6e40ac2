package systemd

import (
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/smazurov/grabnode/internal/logging"
)

// notifyFunc matches daemon.SdNotify.
type notifyFunc func(unsetEnvironment bool, state string) (bool, error)

// Notifier reports service state to systemd over the notify socket.
// Outside a Type=notify unit every call is a no-op.
type Notifier struct {
	notify   notifyFunc
	interval time.Duration
	logger   logging.Logger

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewNotifier creates a notifier. The watchdog interval comes from
// WATCHDOG_USEC; zero disables keepalives.
func NewNotifier(logger logging.Logger) *Notifier {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("Invalid systemd watchdog settings", "error", err)
		interval = 0
	}
	return newNotifier(daemon.SdNotify, interval, logger)
}

func newNotifier(notify notifyFunc, interval time.Duration, logger logging.Logger) *Notifier {
	return &Notifier{
		notify:   notify,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Ready signals startup completion and starts watchdog keepalives.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)

	if n.interval <= 0 {
		return
	}
	// Ping at half the timeout.
	tick := n.interval / 2
	n.logger.Info("Systemd watchdog enabled", "interval", tick)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-n.done:
				return
			case <-ticker.C:
				n.send(daemon.SdNotifyWatchdog)
			}
		}
	}()
}

// Stopping signals shutdown and stops keepalives.
func (n *Notifier) Stopping() {
	n.stopOnce.Do(func() {
		close(n.done)
		n.wg.Wait()
		n.send(daemon.SdNotifyStopping)
	})
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(false, state)
	if err != nil {
		n.logger.Warn("Failed to notify systemd", "state", state, "error", err)
		return
	}
	if sent {
		n.logger.Debug("Notified systemd", "state", state)
	}
}
