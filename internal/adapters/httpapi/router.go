package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func (s *Server) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/api/health", s.handleHealthCheck)

	r.Route("/api/check-website", func(r chi.Router) {
		r.Post("/", s.handleCheckWebsite)
		r.Post("/async", s.handleCheckWebsiteAsync)
		r.Get("/async/{trackingId}", s.handleAsyncStatus)
		r.Delete("/async/{trackingId}", s.handleAsyncCancel)
	})

	r.Route("/api/v1/email", func(r chi.Router) {
		r.Post("/check-spam", s.handleCheckSpam)
		r.Post("/bulk-check", s.handleBulkCheck)
		r.Post("/quick-check", s.handleQuickCheck)
		r.Get("/spam-keywords", s.handleSpamKeywords)
	})

	return r
}

// requestLogger logs every request and records it under its route pattern
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)

		s.metrics.ObserveHTTPRequest(r.Method, route, strconv.Itoa(status), duration)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
