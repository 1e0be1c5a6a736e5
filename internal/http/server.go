// Package http exposes the reporting pipeline as a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"lucro/internal/core"
	"lucro/internal/forecast"
	"lucro/internal/mapping"
	"lucro/internal/pnl"
	"lucro/internal/services"
	"lucro/internal/storage"
)

// ReportAPI is the service surface the handlers need.
type ReportAPI interface {
	Ingest(ctx context.Context, filename string, content []byte) (*services.IngestResult, error)
	Statement(ctx context.Context, uploadID string, rng pnl.DateRange) (*pnl.Statement, error)
	Dashboard(ctx context.Context, uploadID string) (pnl.Dashboard, error)
	Forecast(ctx context.Context, uploadID string, months int) (forecast.Result, error)
	DrillDown(ctx context.Context, uploadID string, line core.Line, month core.Month, rng pnl.DateRange) ([]core.Transaction, error)
	SetOverrides(ctx context.Context, uploadID string, overrides pnl.Overrides) error
	QueueExport(ctx context.Context, uploadID, format string) error
	Mappings(ctx context.Context) ([]mapping.Rule, error)
	ReplaceMappings(ctx context.Context, rules []mapping.Rule) error
	Uploads(ctx context.Context, limit int) ([]storage.Upload, error)
}

var _ ReportAPI = (*services.ReportService)(nil)

type Server struct {
	http.Server
	svc            ReportAPI
	rateLimiter    *rateLimiter
	uploadMaxBytes int64
	shutdownOnce   sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. uploadMaxBytes bounds the accepted upload body size.
func NewServer(addr string, svc ReportAPI, uploadMaxBytes int64) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:            svc,
		rateLimiter:    newRateLimiter(60),
		uploadMaxBytes: uploadMaxBytes,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/uploads", s.withAPI(s.handleUploads))
	mux.HandleFunc("/api/pnl", s.withAPI(s.handleStatement))
	mux.HandleFunc("/api/dashboard", s.withAPI(s.handleDashboard))
	mux.HandleFunc("/api/forecast", s.withAPI(s.handleForecast))
	mux.HandleFunc("/api/drilldown", s.withAPI(s.handleDrillDown))
	mux.HandleFunc("/api/mappings", s.withAPI(s.handleMappings))
	mux.HandleFunc("/api/overrides", s.withAPI(s.handleOverrides))
	mux.HandleFunc("/api/exports", s.withAPI(s.handleExports))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withAPI adds security headers, rate limiting on mutating requests and
// request logging to API handlers.
func (s *Server) withAPI(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		setSecurityHeaders(w)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
