package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/smazurov/grabnode/internal/camera"
)

const (
	frameBuffer       = 4
	frameWriteTimeout = 5 * time.Second
)

// FrameNotice describes one delivered frame. Pixel data never leaves the process.
type FrameNotice struct {
	Camera       int    `json:"camera"`
	Subscription string `json:"subscription"`
	Seq          uint64 `json:"seq"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Channels     int    `json:"channels"`
	Timestamp    string `json:"timestamp"`
	Size         int    `json:"size"`
}

type feedKey struct {
	camera int
	name   string
}

// FrameHub fans frame notices out to WebSocket clients watching a
// subscription. Slow clients drop notices instead of blocking the provider.
type FrameHub struct {
	mu        sync.RWMutex
	listeners map[feedKey]map[chan camera.Frame]struct{}
}

// NewFrameHub creates an empty hub.
func NewFrameHub() *FrameHub {
	return &FrameHub{listeners: make(map[feedKey]map[chan camera.Frame]struct{})}
}

// Deliver has the camera.Handler signature; pass it as the rig frame handler.
func (h *FrameHub) Deliver(frame camera.Frame, sub *camera.Subscription) {
	key := feedKey{camera: sub.Camera().ID(), name: sub.Name()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.listeners[key] {
		select {
		case ch <- frame:
		default:
		}
	}
}

// Listen registers a listener for one subscription.
func (h *FrameHub) Listen(cameraID int, name string) (<-chan camera.Frame, func()) {
	key := feedKey{camera: cameraID, name: name}
	ch := make(chan camera.Frame, frameBuffer)

	h.mu.Lock()
	if h.listeners[key] == nil {
		h.listeners[key] = make(map[chan camera.Frame]struct{})
	}
	h.listeners[key][ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.listeners[key], ch)
		if len(h.listeners[key]) == 0 {
			delete(h.listeners, key)
		}
		h.mu.Unlock()
	}
}

// Listeners returns the number of clients watching a subscription.
func (h *FrameHub) Listeners(cameraID int, name string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[feedKey{camera: cameraID, name: name}])
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// registerFrameRoutes mounts the frame socket directly on the mux; Huma has
// no WebSocket support.
func (s *Server) registerFrameRoutes() {
	if s.options.Frames == nil {
		return
	}
	s.mux.HandleFunc("GET /api/cameras/{id}/subscriptions/{name}/frames", s.handleFrames)
}

func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	if s.options.AuthUsername != "" && s.options.AuthPassword != "" {
		user, pass, reason := credentials(r.Header.Get("Authorization"), r.URL.Query().Get("auth"))
		if reason == "" && !matches(user, pass, s.options.AuthUsername, s.options.AuthPassword) {
			reason = "Invalid credentials"
		}
		if reason != "" {
			w.Header().Set("WWW-Authenticate", authRealm)
			http.Error(w, reason, http.StatusUnauthorized)
			return
		}
	}

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid camera id", http.StatusBadRequest)
		return
	}
	name := r.PathValue("name")
	if _, err := s.rig.Subscription(id, name); err != nil {
		code := http.StatusInternalServerError
		if se, ok := mapRigError(err).(huma.StatusError); ok {
			code = se.GetStatus()
		}
		http.Error(w, err.Error(), code)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Frame socket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	s.logger.Info("Frame socket connected", "conn_id", connID, "camera_id", id, "subscription", name, "remote_addr", r.RemoteAddr)

	frames, stop := s.options.Frames.Listen(id, name)
	defer stop()

	// The read loop only detects the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			s.logger.Info("Frame socket closed", "conn_id", connID)
			return
		case frame := <-frames:
			if err := writeNotice(conn, id, name, frame); err != nil {
				s.logger.Debug("Frame socket write failed", "conn_id", connID, "error", err)
				return
			}
		}
	}
}

func writeNotice(conn *websocket.Conn, id int, name string, frame camera.Frame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(frameWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(FrameNotice{
		Camera:       id,
		Subscription: name,
		Seq:          frame.Seq,
		Width:        frame.Width,
		Height:       frame.Height,
		Channels:     frame.Channels,
		Timestamp:    frame.Timestamp.UTC().Format(time.RFC3339Nano),
		Size:         len(frame.Data),
	})
}
