// Package api serves the attention walkthrough over HTTP and pushes every
// state change to websocket clients.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"attnviz/pkg/controller"
	"attnviz/pkg/render"
)

// Options configures a Server.
type Options struct {
	Host        string
	Port        int
	CORSOrigins []string

	// PreviewColumns is the default column count of LaTeX previews.
	PreviewColumns int

	// EnableLogging logs every request.
	EnableLogging bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	Logger *log.Logger
}

// DefaultOptions returns options for a local server.
func DefaultOptions() Options {
	return Options{
		Host:           "localhost",
		Port:           8081,
		CORSOrigins:    []string{"*"},
		PreviewColumns: render.DefaultPreviewColumns,
		EnableLogging:  true,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
	}
}

// Server exposes one controller over HTTP and websocket.
type Server struct {
	ctrl     *controller.Controller
	opts     Options
	hub      *Hub
	upgrader websocket.Upgrader
	handler  http.Handler
	logger   *log.Logger

	unsubscribe func()

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	running    bool
	closed     bool
}

// NewServer builds the handler chain, starts the websocket hub and
// subscribes to ctrl so every snapshot swap is broadcast.
func NewServer(ctrl *controller.Controller, opts Options) *Server {
	defaults := DefaultOptions()
	if opts.Host == "" {
		opts.Host = defaults.Host
	}
	if opts.PreviewColumns <= 0 {
		opts.PreviewColumns = defaults.PreviewColumns
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = defaults.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = defaults.WriteTimeout
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = defaults.IdleTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	s := &Server{
		ctrl:   ctrl,
		opts:   opts,
		hub:    NewHub(opts.Logger),
		logger: opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     makeOriginChecker(opts.CORSOrigins),
		},
	}

	var handler http.Handler = s.routes()
	if len(opts.CORSOrigins) > 0 {
		handler = CORSMiddleware(opts.CORSOrigins)(handler)
	}
	if opts.EnableLogging {
		handler = LoggingMiddleware(opts.Logger)(handler)
	}
	s.handler = RecoveryMiddleware(opts.Logger)(handler)

	go s.hub.Run()
	s.unsubscribe = ctrl.Subscribe(func(snap *controller.Snapshot) {
		if err := s.hub.Broadcast(newEvent(EventSnapshot, newState(snap))); err != nil {
			s.logger.Printf("[ws] broadcast failed: %v", err)
		}
	})
	return s
}

// Handler returns the full handler chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Address returns the configured host:port.
func (s *Server) Address() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// ListenAddr returns the bound address once started, which differs from
// Address when Port is 0.
func (s *Server) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start binds the listener and serves in a goroutine. Binding errors such
// as a port in use are returned directly.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("server is shut down")
	}
	if s.running {
		return errors.New("server is already running")
	}

	ln, err := net.Listen("tcp", s.Address())
	if err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}
	s.running = true

	srv := s.httpServer
	go func() {
		s.logger.Printf("[api] Starting server on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("[api] Server error: %v", err)
		}
	}()
	return nil
}

// Shutdown stops broadcasting, disconnects websocket clients and shuts the
// HTTP server down gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.unsubscribe()
	s.hub.Stop()

	if !s.running {
		return nil
	}
	s.logger.Printf("[api] Shutting down server...")
	s.running = false
	return s.httpServer.Shutdown(ctx)
}

// IsRunning reports whether the HTTP server is serving.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
