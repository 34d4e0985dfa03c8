package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"tour-stitcher/internal/assembler"
	"tour-stitcher/internal/database"
	"tour-stitcher/internal/handlers"
	"tour-stitcher/internal/metrics"
)

// Server wraps the HTTP server and all dependencies
type Server struct {
	httpServer *http.Server
	db         database.DataStore
	listener   net.Listener
	addr       string
	logger     *zap.Logger
}

// Config holds server configuration
type Config struct {
	Addr         string // e.g., "127.0.0.1:8080" or "127.0.0.1:0" for random port
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

// New creates a server (does not start it). The server owns db and closes it on Shutdown.
func New(cfg Config, db database.DataStore, asm *assembler.Assembler, collector *metrics.Collector, logger *zap.Logger) *Server {
	logger = logger.Named("http")

	handler := &handlers.Handler{
		DB:           db,
		Assembler:    asm,
		Logger:       logger,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      NewRouter(handler, collector, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		db:         db,
		addr:       cfg.Addr,
		logger:     logger,
	}
}

// NewRouter configures all HTTP routes
func NewRouter(handler *handlers.Handler, collector *metrics.Collector, logger *zap.Logger) http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(logger, collector))

	router.Get("/health", handler.HandleHealthCheck)
	if collector != nil {
		router.Method(http.MethodGet, "/metrics", collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/tours", handler.HandleCreateTour)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", handler.HandleListRuns)
			r.Get("/{id}", handler.HandleGetRun)
			r.Delete("/{id}", handler.HandleDeleteRun)
		})
	})

	return router
}

// Start starts the server and returns the actual address (useful for random port)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	s.logger.Info("starting server", zap.String("addr", actualAddr))

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", zap.Error(err))
		}
	}()

	return actualAddr, nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return s.db.Close()
}

func requestLogger(logger *zap.Logger, collector *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			collector.ObserveHTTP(r.Method, route, strconv.Itoa(status), duration)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", duration),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}
