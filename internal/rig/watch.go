package rig

import (
	"context"

	"github.com/smazurov/grabnode/internal/config"
	"github.com/smazurov/grabnode/internal/events"
	"github.com/smazurov/grabnode/internal/inventory"
)

// InventoryWatcher reloads the inventory file into a Manager.
type InventoryWatcher = config.Watcher[[]inventory.Camera]

// Watcher returns an unstarted watcher that applies the inventory at path
// on every reload and publishes an InventoryReloadedEvent for every attempt.
// Reload works without Start.
func (m *Manager) Watcher(path string, opts ...config.WatcherOption[[]inventory.Camera]) *InventoryWatcher {
	opts = append(opts, config.WithErrorHandler[[]inventory.Camera](func(err error) {
		m.publish(events.InventoryReloadedEvent{Path: path, Cameras: m.Len(), Error: err.Error(), Timestamp: now()})
	}))

	w := config.NewWatcher(path, inventory.ReadFile, m.logger, opts...)
	w.OnReload(func(cams []inventory.Camera) {
		ev := events.InventoryReloadedEvent{Path: path, Timestamp: now()}
		if err := m.Apply(context.Background(), cams); err != nil {
			m.logger.Warn("Inventory reload incomplete", "path", path, "error", err)
			ev.Error = err.Error()
		}
		ev.Cameras = m.Len()
		m.publish(ev)
	})
	return w
}

// Watch starts re-applying the inventory at path whenever it changes.
func (m *Manager) Watch(path string, opts ...config.WatcherOption[[]inventory.Camera]) (*InventoryWatcher, error) {
	w := m.Watcher(path, opts...)
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}
