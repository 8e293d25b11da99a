package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mikey/content-safety/internal/core"
	"github.com/mikey/content-safety/internal/jobs"
	"github.com/mikey/content-safety/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Server holds the dependencies for the HTTP API
type Server struct {
	service    *core.SafetyService
	jobs       *jobs.Registry
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
	listenAddr string
	router     http.Handler
	httpServer *http.Server
}

// NewServer creates the HTTP API. A nil gatherer serves the default prometheus registry.
func NewServer(
	service *core.SafetyService,
	registry *jobs.Registry,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	listenAddr string,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		service:    service,
		jobs:       registry,
		metrics:    m,
		gatherer:   gatherer,
		logger:     logger,
		listenAddr: listenAddr,
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listenAddr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// website checks poll the reputation service and can take a while
		WriteTimeout: 3 * time.Minute,
	}

	s.logger.Info("HTTP API starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
