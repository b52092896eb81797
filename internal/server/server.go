// Package server exposes the latest analysis report over HTTP together with
// health, readiness and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/yourusername/pitwall/internal/analysis"
	"github.com/yourusername/pitwall/internal/metrics"
	"github.com/yourusername/pitwall/internal/report"
)

const reportKey = "latest"

// ErrNoReport is returned when no report has been computed and no refresh
// function is configured
var ErrNoReport = errors.New("no analysis report available")

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// RefreshFunc computes a fresh analysis report
type RefreshFunc func(ctx context.Context) (*analysis.Report, error)

// HealthResponse represents the JSON response for the liveness endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
}

// ReadyResponse represents the JSON response for the readiness endpoint.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Server serves reports and operational endpoints
type Server struct {
	serviceName string
	version     string
	port        int
	server      *http.Server
	logger      *logrus.Logger
	db          DatabasePinger
	refresh     RefreshFunc
	reports     *cache.Cache
	ttl         time.Duration
	refreshMu   sync.Mutex
	misses      singleflight.Group
	mu          sync.RWMutex
	ready       bool
}

// Config holds the configuration for the server.
type Config struct {
	ServiceName string
	Version     string
	Port        int
	CacheTTL    time.Duration
	Logger      *logrus.Logger
	DB          DatabasePinger
	Refresh     RefreshFunc
}

// New creates a server. A zero CacheTTL keeps reports until the next refresh.
func New(cfg Config) *Server {
	port := cfg.Port
	if port == 0 {
		port = 8080
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	return &Server{
		serviceName: cfg.ServiceName,
		version:     cfg.Version,
		port:        port,
		logger:      logger,
		db:          cfg.DB,
		refresh:     cfg.Refresh,
		reports:     cache.New(ttl, 10*time.Minute),
		ttl:         ttl,
	}
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/api/report", s.handleReport)
	mux.HandleFunc("/dashboard", s.handleDashboard)
	return mux
}

// Start starts the server in the background. It shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + strconv.Itoa(s.port),
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.WithFields(logrus.Fields{
			"port":    s.port,
			"service": s.serviceName,
		}).Info("HTTP server starting")

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("HTTP server error")
		}
	}()

	go func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			s.logger.WithError(err).Warn("HTTP server shutdown failed")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("HTTP server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Store caches r as the latest report
func (s *Server) Store(r *analysis.Report) {
	s.reports.Set(reportKey, r, s.ttl)
}

// Refresh recomputes the report and caches it. Concurrent calls are serialised.
func (s *Server) Refresh(ctx context.Context) (*analysis.Report, error) {
	if s.refresh == nil {
		return nil, ErrNoReport
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	r, err := s.refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh report: %w", err)
	}
	s.Store(r)
	s.logger.WithField("run_id", r.RunID).Info("Report refreshed")
	return r, nil
}

// Latest returns the cached report, refreshing it on a miss.
// Concurrent misses share a single refresh.
func (s *Server) Latest(ctx context.Context) (*analysis.Report, error) {
	if r, ok := s.cached(); ok {
		metrics.RecordCacheLookup(true)
		return r, nil
	}
	metrics.RecordCacheLookup(false)

	v, err, _ := s.misses.Do(reportKey, func() (interface{}, error) {
		// a refresh may have landed while this caller waited on the group
		if r, ok := s.cached(); ok {
			return r, nil
		}
		return s.Refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*analysis.Report), nil
}

func (s *Server) cached() (*analysis.Report, bool) {
	v, found := s.reports.Get(reportKey)
	if !found {
		return nil, false
	}
	r, ok := v.(*analysis.Report)
	return r, ok
}

// handleHealth handles the /healthz endpoint - basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
	})
}

// handleReady handles the /readyz endpoint - checks database connectivity.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks := make(map[string]string)
	allHealthy := true

	if !s.IsReady() {
		allHealthy = false
		checks["service"] = "not_ready"
	} else {
		checks["service"] = "ok"
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := s.db.Ping(ctx); err != nil {
			allHealthy = false
			checks["database"] = fmt.Sprintf("error: %v", err)
		} else {
			checks["database"] = "ok"
		}
	}

	response := ReadyResponse{
		Service:  s.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}

	status := http.StatusOK
	response.Status = "ok"
	if !allHealthy {
		status = http.StatusServiceUnavailable
		response.Status = "not_ready"
	}
	writeJSON(w, status, response)
}

// handleReport serves the latest report as JSON. ?view=headline returns
// only the headline figures.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	latest, ok := s.latestOrError(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("view") == "headline" {
		writeJSON(w, http.StatusOK, latest.Headline())
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	latest, ok := s.latestOrError(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderDashboard(w, latest); err != nil {
		s.logger.WithError(err).Error("Failed to render dashboard")
	}
}

func (s *Server) latestOrError(w http.ResponseWriter, r *http.Request) (*analysis.Report, bool) {
	latest, err := s.Latest(r.Context())
	switch {
	case err == nil:
		return latest, true
	case errors.Is(err, ErrNoReport):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.logger.WithError(err).Error("Report unavailable")
		http.Error(w, "analysis failed", http.StatusInternalServerError)
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
