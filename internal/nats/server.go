package nats

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/smazurov/grabnode/internal/logging"
)

// Embedded server defaults.
const (
	DefaultPort = 4222
	DefaultHost = "127.0.0.1"

	readyTimeout = 5 * time.Second
)

// ServerOptions configures the embedded NATS server. Port -1 picks a free port.
type ServerOptions struct {
	Port   int
	Host   string
	Name   string
	Logger logging.Logger
}

// Server wraps an embedded NATS server for single-box deployments.
type Server struct {
	ns     *server.Server
	opts   ServerOptions
	logger logging.Logger
}

// NewServer creates an embedded server; call Start to run it.
func NewServer(opts ServerOptions) *Server {
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Name == "" {
		opts.Name = "grabnode"
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger("nats")
	}
	return &Server{opts: opts, logger: opts.Logger}
}

// Start runs the server and waits until it accepts connections.
func (s *Server) Start() error {
	ns, err := server.NewServer(&server.Options{
		Host:       s.opts.Host,
		Port:       s.opts.Port,
		ServerName: s.opts.Name,
		NoLog:      true,
		NoSigs:     true,
		MaxPayload: 1024 * 1024,
	})
	if err != nil {
		return fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return errors.New("NATS server not ready within 5s")
	}

	s.ns = ns
	s.logger.Info("NATS server started", "url", s.ClientURL())
	return nil
}

// Stop shuts the server down and waits for it to exit.
func (s *Server) Stop() {
	if s.ns == nil {
		return
	}
	s.logger.Info("Stopping NATS server")
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
	s.ns = nil
}

// ClientURL returns the URL clients should connect to.
func (s *Server) ClientURL() string {
	if s.ns == nil {
		return fmt.Sprintf("nats://%s:%d", s.opts.Host, s.opts.Port)
	}
	return s.ns.ClientURL()
}

// IsRunning reports whether the server accepts connections.
func (s *Server) IsRunning() bool {
	return s.ns != nil && s.ns.Running()
}

// NumClients returns the number of connected clients.
func (s *Server) NumClients() int {
	if s.ns == nil {
		return 0
	}
	return s.ns.NumClients()
}
