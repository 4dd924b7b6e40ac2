package camera

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// mockProvider records every call made to it.
type mockProvider struct {
	mu    sync.Mutex
	calls []string
	modes []AcquisitionMode

	startResult bool
	startErr    error
	stopResult  bool
	stopErr     error
	feedErr     error
	exposure    float64
	distortion  []float64
	grab        any

	// gate, when set, blocks StartAcquisition until closed.
	gate chan struct{}

	deliver map[*Subscription]FrameFunc
}

func newMockProvider() *mockProvider {
	return &mockProvider{startResult: true, deliver: make(map[*Subscription]FrameFunc)}
}

func (m *mockProvider) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *mockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockProvider) count(call string) int {
	n := 0
	for _, c := range m.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

func (m *mockProvider) StartAcquisition(_ context.Context, cam *Camera) (bool, error) {
	if m.gate != nil {
		<-m.gate
	}
	m.record("start")
	m.mu.Lock()
	m.modes = append(m.modes, cam.Mode())
	m.mu.Unlock()
	return m.startResult, m.startErr
}

func (m *mockProvider) StopAcquisition(context.Context, *Camera) (bool, error) {
	m.record("stop")
	return m.stopResult, m.stopErr
}

func (m *mockProvider) SetExposureTime(_ context.Context, _ *Camera, v float64) error {
	m.record("set_exposure")
	m.mu.Lock()
	m.exposure = v
	m.mu.Unlock()
	return nil
}

func (m *mockProvider) GetExposureTime(context.Context, *Camera) (float64, error) {
	m.record("get_exposure")
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exposure, nil
}

func (m *mockProvider) ApplyDistortion(_ context.Context, _ *Camera, params []float64) error {
	m.record("distortion")
	m.mu.Lock()
	m.distortion = params
	m.mu.Unlock()
	return nil
}

func (m *mockProvider) StartFeed(_ context.Context, sub *Subscription, deliver FrameFunc) error {
	m.record("start_feed")
	if m.feedErr != nil {
		return m.feedErr
	}
	m.mu.Lock()
	m.deliver[sub] = deliver
	m.mu.Unlock()
	return nil
}

func (m *mockProvider) StopFeed(_ context.Context, sub *Subscription) error {
	m.record("stop_feed")
	m.mu.Lock()
	delete(m.deliver, sub)
	m.mu.Unlock()
	return nil
}

func (m *mockProvider) UpdateFeed(context.Context, *Subscription) error {
	m.record("update_feed")
	return nil
}

func (m *mockProvider) GrabImage(_ context.Context, _ *Subscription, path string) (any, error) {
	m.record("grab:" + path)
	return m.grab, nil
}

func (m *mockProvider) push(sub *Subscription, f Frame) bool {
	m.mu.Lock()
	fn := m.deliver[sub]
	m.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(f)
	return true
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCamera(p Provider) *Camera {
	return New(Identity{ID: 1, Model: "M1", Serial: "SN1", Name: "cam"}, Options{Provider: p, Logger: testLogger()})
}
