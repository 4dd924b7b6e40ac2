package nats

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/grabnode/internal/camera"
	"github.com/smazurov/grabnode/internal/events"
	"github.com/smazurov/grabnode/internal/logging"
)

const (
	eventBuffer    = 64
	controlTimeout = 10 * time.Second
)

// Controller is the part of the rig the control subject drives.
type Controller interface {
	SetAcquisition(ctx context.Context, id int, running bool) (camera.Result, error)
	SwitchMode(ctx context.Context, id int, mode string) error
	Info(id int) (camera.Info, error)
}

// Bridge publishes bus events to NATS and serves control requests.
type Bridge struct {
	url        string
	bus        *events.Bus
	controller Controller
	logger     logging.Logger

	mu      sync.Mutex
	conn    *nats.Conn
	control *nats.Subscription
	unsub   func()
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewBridge creates a bridge. A nil controller disables the control subject.
func NewBridge(url string, bus *events.Bus, controller Controller, logger logging.Logger) *Bridge {
	if logger == nil {
		logger = logging.GetLogger("nats")
	}
	return &Bridge{
		url:        url,
		bus:        bus,
		controller: controller,
		logger:     logger,
	}
}

// Start connects, subscribes to control requests and starts forwarding events.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		return errors.New("bridge already started")
	}

	conn, err := nats.Connect(b.url,
		nats.Name("grabnode"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS bridge disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS bridge reconnected")
		}),
	)
	if err != nil {
		return err
	}

	if b.controller != nil {
		sub, subErr := conn.Subscribe(SubjectControlPrefix+".*", b.handleControl)
		if subErr != nil {
			conn.Close()
			return subErr
		}
		b.control = sub
	}
	if err := conn.Flush(); err != nil {
		conn.Close()
		return err
	}

	b.conn = conn
	b.done = make(chan struct{})

	ch := make(chan any, eventBuffer)
	b.unsub = events.SubscribeAll(b.bus, ch)
	b.wg.Add(1)
	go b.forward(conn, ch, b.done)

	b.logger.Info("NATS bridge connected", "url", b.url, "control", b.controller != nil)
	return nil
}

func (b *Bridge) forward(conn *nats.Conn, ch <-chan any, done <-chan struct{}) {
	defer b.wg.Done()
	for {
		select {
		case <-done:
			return
		case ev := <-ch:
			b.publish(conn, ev)
		}
	}
}

func (b *Bridge) publish(conn *nats.Conn, ev any) {
	subject, ok := subjectFor(ev)
	if !ok {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Warn("Failed to marshal event", "subject", subject, "error", err)
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		b.logger.Warn("Failed to publish event", "subject", subject, "error", err)
		return
	}
	b.logger.Debug("Published event", "subject", subject)
}

func (b *Bridge) handleControl(msg *nats.Msg) {
	reply := b.execute(msg)
	if msg.Reply == "" {
		return
	}
	data, err := reply.Marshal()
	if err != nil {
		b.logger.Warn("Failed to marshal control reply", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		b.logger.Warn("Failed to send control reply", "subject", msg.Subject, "error", err)
	}
}

func (b *Bridge) execute(msg *nats.Msg) ControlReply {
	id, err := controlCameraID(msg.Subject)
	if err != nil {
		return ControlReply{Error: err.Error()}
	}
	ctrl, err := UnmarshalControl(msg.Data)
	if err != nil {
		b.logger.Warn("Failed to unmarshal control message", "subject", msg.Subject, "error", err)
		return ControlReply{Error: "invalid control message"}
	}

	b.logger.Info("Received control command", "camera_id", id, "action", ctrl.Action, "reason", ctrl.Reason)

	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()

	switch ctrl.Action {
	case ActionStart, ActionStop:
		result, err := b.controller.SetAcquisition(ctx, id, ctrl.Action == ActionStart)
		if err != nil {
			return ControlReply{Acquiring: result.Acquiring, Result: result.Kind.String(), Error: err.Error()}
		}
		return ControlReply{OK: true, Acquiring: result.Acquiring, Result: result.Kind.String()}
	case ActionMode:
		if err := b.controller.SwitchMode(ctx, id, ctrl.Mode); err != nil {
			return ControlReply{Error: err.Error()}
		}
		info, err := b.controller.Info(id)
		if err != nil {
			return ControlReply{Error: err.Error()}
		}
		return ControlReply{OK: true, Acquiring: info.Acquiring}
	default:
		return ControlReply{Error: "unknown action " + ctrl.Action}
	}
}

// Stop stops forwarding and closes the connection.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return
	}
	b.unsub()
	close(b.done)
	b.wg.Wait()

	if b.control != nil {
		_ = b.control.Unsubscribe()
		b.control = nil
	}
	// Drain flushes pending publishes before closing.
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
	b.conn = nil
	b.logger.Info("NATS bridge stopped")
}

// IsConnected reports whether the bridge holds a live connection.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}
