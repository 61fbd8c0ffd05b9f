package web

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/state"
	"github.com/kozaktomas/face-attend/internal/web/handlers"
	"github.com/kozaktomas/face-attend/internal/web/middleware"
)

// AttendanceStream is the recognition session served by the attendance feed.
type AttendanceStream interface {
	handlers.AttendanceRunner
	OnMarked(fn attendance.MarkedFunc)
}

// Services are the pipeline components the server exposes.
type Services struct {
	Shared     *state.Shared
	Capture    handlers.CaptureRunner
	Trainer    handlers.TrainingStarter
	Attendance AttendanceStream
	Ledger     *attendance.Ledger
}

// Options configure the HTTP listener.
type Options struct {
	Host           string
	Port           int
	AllowedOrigins middleware.Origins
}

// Server represents the web server
type Server struct {
	services   Services
	router     *chi.Mux
	httpServer *http.Server
	jobManager *handlers.JobManager
	hub        *handlers.LiveHub

	// baseCtx is the parent of every request context; cancelling it ends
	// long-lived feeds on shutdown.
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// NewServer creates a new web server
func NewServer(svc Services, opts Options) *Server {
	r := chi.NewRouter()
	baseCtx, cancelBase := context.WithCancel(context.Background())

	s := &Server{
		baseCtx:    baseCtx,
		cancelBase: cancelBase,
		services:   svc,
		router:     r,
		jobManager: handlers.NewJobManager(),
		hub:        handlers.NewLiveHub(opts.AllowedOrigins.CheckWebSocketOrigin),
	}
	svc.Attendance.OnMarked(s.hub.Broadcast)

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(opts.AllowedOrigins))

	s.setupRoutes()

	// Streams run until the client disconnects, so there is no write timeout.
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	s.cancelBase()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
