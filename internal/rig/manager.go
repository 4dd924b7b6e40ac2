// Package rig runs the cameras described by the inventory and exposes the
// operations the API needs, addressed by camera id and subscription name.
package rig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/smazurov/grabnode/internal/camera"
	"github.com/smazurov/grabnode/internal/events"
	"github.com/smazurov/grabnode/internal/inventory"
	"github.com/smazurov/grabnode/internal/logging"
)

// Options configures a Manager.
type Options struct {
	// Provider is shared by every camera. Nil means an empty camera.Binding.
	Provider camera.Provider
	// Bus receives camera events. Optional.
	Bus *events.Bus
	// Hooks run after the bus hooks.
	Hooks camera.Hooks
	// Handler receives frames of every subscription the rig creates.
	Handler camera.Handler
	Logger  *slog.Logger
}

// Manager owns the running cameras and the subscriptions created on them.
// It keeps its own reference to every subscription, so a subscription whose
// feed was stopped can be started again by name.
type Manager struct {
	provider camera.Provider
	bus      *events.Bus
	hooks    camera.Hooks
	handler  camera.Handler
	logger   *slog.Logger

	mu      sync.RWMutex
	cameras map[int]*entry
}

type entry struct {
	cam  *camera.Camera
	spec inventory.Camera

	mu   sync.RWMutex
	subs []*camera.Subscription
}

// New creates an empty manager.
func New(opts Options) *Manager {
	provider := opts.Provider
	if provider == nil {
		provider = camera.NewBinding(camera.Funcs{})
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("rig")
	}

	hooks := opts.Hooks
	if opts.Bus != nil {
		hooks = chainHooks(events.Hooks(opts.Bus), opts.Hooks)
	}

	return &Manager{
		provider: provider,
		bus:      opts.Bus,
		hooks:    hooks,
		handler:  opts.Handler,
		logger:   logger,
		cameras:  make(map[int]*entry),
	}
}

// Apply brings the running cameras in line with cams: unknown ids are added,
// missing ids are closed and removed, and changed cameras are updated in
// place or rebuilt when their identity or subscriptions changed.
func (m *Manager) Apply(ctx context.Context, cams []inventory.Camera) error {
	if err := inventory.Validate(cams); err != nil {
		return invalid("invalid inventory", err)
	}

	want := make(map[int]inventory.Camera, len(cams))
	for _, c := range cams {
		want[c.ID] = c
	}

	m.mu.RLock()
	current := make(map[int]*entry, len(m.cameras))
	for id, e := range m.cameras {
		current[id] = e
	}
	m.mu.RUnlock()

	var errs []error
	var rebuild []inventory.Camera
	for _, id := range sortedKeys(current) {
		e := current[id]
		spec, ok := want[id]
		switch {
		case !ok:
			errs = append(errs, m.remove(ctx, id))
		case needsRebuild(e.spec, spec):
			errs = append(errs, m.remove(ctx, id))
			rebuild = append(rebuild, spec)
		default:
			errs = append(errs, m.update(ctx, e, spec))
		}
	}

	for _, c := range cams {
		if _, ok := current[c.ID]; ok && !slices.ContainsFunc(rebuild, func(r inventory.Camera) bool { return r.ID == c.ID }) {
			continue
		}
		errs = append(errs, m.add(ctx, c))
	}

	m.logger.Info("Inventory applied", "cameras", m.Len())
	return errors.Join(errs...)
}

func needsRebuild(old, next inventory.Camera) bool {
	return old.Model != next.Model ||
		old.Serial != next.Serial ||
		old.Width != next.Width ||
		old.Height != next.Height ||
		old.Channel != next.Channel ||
		!reflect.DeepEqual(old.Subscriptions, next.Subscriptions)
}

// add builds, configures and registers a camera, then creates its subscriptions.
func (m *Manager) add(ctx context.Context, spec inventory.Camera) error {
	cam := camera.New(spec.Identity(), camera.Options{Provider: m.provider, Hooks: m.hooks})
	e := &entry{cam: cam, spec: spec}

	m.mu.Lock()
	m.cameras[spec.ID] = e
	m.mu.Unlock()

	m.logger.Info("Camera added", "camera_id", spec.ID, "desc", cam.Desc())
	m.publish(events.CameraAddedEvent{
		CameraID:  spec.ID,
		Serial:    spec.Serial,
		Model:     spec.Model,
		Name:      spec.Name,
		Timestamp: now(),
	})

	var errs []error
	errs = append(errs, m.configure(ctx, e, inventory.Camera{}, spec))

	for _, s := range spec.Subscriptions {
		vp, _ := s.ViewportOrDefault()
		sub := cam.CreateSubscription(m.handler)
		sub.SetName(s.Name)
		if err := sub.SetViewport(ctx, vp); err != nil {
			errs = append(errs, providerError("set viewport", err))
		}
		e.addSub(sub)

		if s.Autostart {
			if err := sub.StartFeed(ctx, s.Silent); err != nil {
				errs = append(errs, providerError(fmt.Sprintf("autostart %s", s.Name), err))
			}
		}
	}
	return errors.Join(errs...)
}

// configure applies the settings that differ between old and next.
func (m *Manager) configure(ctx context.Context, e *entry, old, next inventory.Camera) error {
	var errs []error
	cam := e.cam

	if next.Name != old.Name {
		if next.Name == "" {
			cam.ClearName()
		} else {
			cam.SetName(next.Name)
		}
	}

	mode, _ := next.AcquisitionMode()
	if mode != cam.Mode() {
		if err := cam.SwitchAcquisitionMode(ctx, mode); err != nil {
			errs = append(errs, providerError("switch mode", err))
		}
	}

	if next.Exposure != 0 && next.Exposure != old.Exposure {
		if err := m.setExposure(ctx, cam, next.Exposure); err != nil {
			errs = append(errs, err)
		}
	}

	if !slices.Equal(next.Distortion, old.Distortion) {
		if err := cam.ApplyDistortionCorrection(ctx, next.Distortion); err != nil {
			errs = append(errs, providerError("apply distortion", err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) update(ctx context.Context, e *entry, spec inventory.Camera) error {
	old := e.spec
	e.spec = spec
	if reflect.DeepEqual(old, spec) {
		return nil
	}
	m.logger.Info("Camera updated", "camera_id", spec.ID)
	return m.configure(ctx, e, old, spec)
}

// remove closes a camera and forgets it.
func (m *Manager) remove(ctx context.Context, id int) error {
	m.mu.Lock()
	e, ok := m.cameras[id]
	delete(m.cameras, id)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	err := e.cam.Close(ctx)
	m.logger.Info("Camera removed", "camera_id", id)
	m.publish(events.CameraRemovedEvent{CameraID: id, Serial: e.cam.Serial(), Timestamp: now()})
	if err != nil {
		return providerError(fmt.Sprintf("close camera %d", id), err)
	}
	return nil
}

func (m *Manager) get(id int) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.cameras[id]
	if !ok {
		return nil, cameraNotFound(id)
	}
	return e, nil
}

// Len returns the number of running cameras.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cameras)
}

// Camera returns the camera with id.
func (m *Manager) Camera(id int) (*camera.Camera, error) {
	e, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return e.cam, nil
}

// Cameras returns the running cameras ordered by id.
func (m *Manager) Cameras() []*camera.Camera {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*camera.Camera, 0, len(m.cameras))
	for _, id := range sortedKeys(m.cameras) {
		out = append(out, m.cameras[id].cam)
	}
	return out
}

// Info returns the state of one camera, listing every subscription the rig
// holds, including ones whose feed is stopped.
func (m *Manager) Info(id int) (camera.Info, error) {
	e, err := m.get(id)
	if err != nil {
		return camera.Info{}, err
	}
	return e.info(), nil
}

// Snapshot returns the state of every camera ordered by id.
func (m *Manager) Snapshot() []camera.Info {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.cameras))
	for _, id := range sortedKeys(m.cameras) {
		entries = append(entries, m.cameras[id])
	}
	m.mu.RUnlock()

	out := make([]camera.Info, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.info())
	}
	return out
}

func (e *entry) info() camera.Info {
	info := e.cam.Snapshot()
	subs := e.subscriptions()
	info.Subscriptions = make([]camera.SubscriptionInfo, 0, len(subs))
	for _, s := range subs {
		info.Subscriptions = append(info.Subscriptions, s.Info())
	}
	return info
}

func (e *entry) subscriptions() []*camera.Subscription {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.subs)
}

// addSub records sub unless another subscription already has its name.
func (e *entry) addSub(sub *camera.Subscription) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lookup(sub.Name()) != nil {
		return false
	}
	e.subs = append(e.subs, sub)
	return true
}

func (e *entry) findSub(name string) *camera.Subscription {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lookup(name)
}

func (e *entry) lookup(name string) *camera.Subscription {
	for _, s := range e.subs {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func (e *entry) dropSub(sub *camera.Subscription) {
	e.mu.Lock()
	e.subs = slices.DeleteFunc(e.subs, func(s *camera.Subscription) bool { return s == sub })
	e.mu.Unlock()
}

// Close closes every camera and forgets them.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.RLock()
	ids := sortedKeys(m.cameras)
	m.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		errs = append(errs, m.remove(ctx, id))
	}
	return errors.Join(errs...)
}

func (m *Manager) publish(ev events.Event) {
	if m.bus != nil {
		m.bus.Publish(ev)
	}
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// chainHooks runs a's hooks before b's.
func chainHooks(a, b camera.Hooks) camera.Hooks {
	return camera.Hooks{
		OnAcquisition: chain2(a.OnAcquisition, b.OnAcquisition),
		OnFeed:        chain2(a.OnFeed, b.OnFeed),
		OnMode:        chain3(a.OnMode, b.OnMode),
		OnFrame:       chain2(a.OnFrame, b.OnFrame),
	}
}

func chain2[A, B any](f, g func(A, B)) func(A, B) {
	switch {
	case f == nil:
		return g
	case g == nil:
		return f
	}
	return func(a A, b B) {
		f(a, b)
		g(a, b)
	}
}

func chain3[A, B, C any](f, g func(A, B, C)) func(A, B, C) {
	switch {
	case f == nil:
		return g
	case g == nil:
		return f
	}
	return func(a A, b B, c C) {
		f(a, b, c)
		g(a, b, c)
	}
}
