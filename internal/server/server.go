// Package server provides the HTTP API for submitting and tracking workflow generation jobs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jonathan/workflow-generator/internal/cost"
	"github.com/jonathan/workflow-generator/internal/jobs"
	"github.com/jonathan/workflow-generator/internal/observability"
	"github.com/jonathan/workflow-generator/internal/server/middleware"
	"github.com/jonathan/workflow-generator/internal/server/ratelimit"
)

// BudgetReporter exposes the current spend window.
type BudgetReporter interface {
	Snapshot() cost.BudgetState
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Config is the listener and rate limit setup
type Config struct {
	Port            int
	RateLimit       *ratelimit.Config
	ShutdownTimeout time.Duration
}

// Deps are the components the server exposes.
type Deps struct {
	Jobs         *jobs.Service
	Budget       BudgetReporter
	Metrics      *observability.Metrics
	Logger       *slog.Logger
	HealthChecks map[string]HealthCheck
}

// Server exposes the job service over HTTP
type Server struct {
	httpServer      *http.Server
	jobs            *jobs.Service
	budget          BudgetReporter
	metrics         *observability.Metrics
	logger          *slog.Logger
	healthChecks    map[string]HealthCheck
	rateLimiter     *ratelimit.Limiter
	shutdownTimeout time.Duration
}

// New builds the route table and middleware chain
func New(cfg Config, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetrics()
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = ratelimit.LoadConfig()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{
		jobs:            deps.Jobs,
		budget:          deps.Budget,
		metrics:         deps.Metrics,
		logger:          deps.Logger,
		healthChecks:    deps.HealthChecks,
		rateLimiter:     ratelimit.NewLimiter(cfg.RateLimit),
		shutdownTimeout: cfg.ShutdownTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs", s.handleSubmitJob)
	mux.HandleFunc("POST /jobs/stream", s.handleStreamJob)
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /budget", s.handleBudget)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	handler := s.withLogging(s.withCORS(mux))
	handler = s.withRateLimit(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recover(s.logger)(handler)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// Streamed runs stay open for a whole generation
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then drains in-flight requests and jobs.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests, then waits for running jobs.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.rateLimiter.Stop()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
	}
	if s.jobs != nil {
		if err := s.jobs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("job drain failed: %w", err))
		}
	}
	s.logger.Info("server stopped")
	return errors.Join(errs...)
}

// withCORS allows browser dashboards to poll jobs
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+middleware.RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients over their bucket with 429
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging logs each request and counts it by route pattern.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := middleware.NewStatusRecorder(w)
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.Status)).Inc()
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.Status,
			"duration", time.Since(start),
			"request_id", middleware.GetRequestID(r),
		)
	})
}

// extractClientID keys buckets by remote host, ignoring the port.
// It uses the RemoteAddr IP; forwarded headers are not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders writes the X-RateLimit-* trio.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse tells the client when its bucket refills.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	s.logger.Warn("rate limit exceeded",
		"client", s.extractClientID(r), "path", r.URL.Path, "limit", info.Limit)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}

// jsonResponse encodes data with the given status
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

// errorResponse writes {"error": message}
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, ErrorResponse{Error: message})
}

// writeError maps err to a status and body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetRequestID(r), "error", err)
	}
	s.jsonResponse(w, status, toErrorResponse(err))
}
