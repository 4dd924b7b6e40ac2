package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/grabnode/internal/events"
	"github.com/smazurov/grabnode/internal/indicator"
	"github.com/smazurov/grabnode/internal/inventory"
	"github.com/smazurov/grabnode/internal/logging"
	"github.com/smazurov/grabnode/internal/metrics"
	"github.com/smazurov/grabnode/internal/rig"
	"github.com/smazurov/grabnode/internal/version"
)

// Reloader re-reads the camera inventory on demand.
type Reloader interface {
	Path() string
	Reload() error
}

// Options configures the API server.
type Options struct {
	AuthUsername string
	AuthPassword string

	Rig *rig.Manager
	Bus *events.Bus

	// Optional components; their routes are skipped when nil.
	Metrics   *metrics.Collector
	Indicator *indicator.Manager
	Inventory Reloader
	Store     inventory.Store
	Frames    *FrameHub

	// PrometheusHandler serves GET /metrics when set.
	PrometheusHandler http.Handler
}

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server is the Huma v2 API server.
type Server struct {
	api      huma.API
	mux      *http.ServeMux
	rig      *rig.Manager
	eventBus *events.Bus
	options  *Options
	logger   *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates a new API server with Huma v2 using Go 1.22+ native routing
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	AddCORSHandler(mux, corsConfig)

	config := huma.DefaultConfig("GrabNode API", version.Get().Version)
	config.Info.Description = "Camera acquisition and subscription control API"
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	bus := opts.Bus
	if bus == nil {
		bus = events.New()
	}

	server := &Server{
		api:      api,
		mux:      mux,
		rig:      opts.Rig,
		eventBus: bus,
		options:  opts,
		logger:   logging.GetLogger("api"),
	}

	api.UseMiddleware(NewCORSMiddleware(corsConfig))
	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Registered before the API routes; no auth required.
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// GetMux returns the underlying HTTP ServeMux for additional setup
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// Start serves the API on addr until Stop is called.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("Starting GrabNode API server", "addr", addr, "docs", "http://"+addr+"/docs")
	return srv.ListenAndServe()
}

// Stop drains in-flight requests, then closes whatever is still open
// (SSE and frame sockets never finish on their own).
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info("Stopping API server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Debug("Graceful shutdown incomplete, closing", "error", err)
		return srv.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(_ context.Context, _ *struct{}) (*HealthResponse, error) {
		return &HealthResponse{
			Body: HealthData{Status: "ok", Cameras: s.rig.Len(), Build: version.Get()},
		}, nil
	})

	s.registerCameraRoutes()
	s.registerSubscriptionRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
	s.registerIndicatorRoutes()
	s.registerInventoryRoutes()
	s.registerFrameRoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
