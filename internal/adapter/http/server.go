package http

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/water-accounting-dashboard/internal/adapter/shapefile"
	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
	"github.com/couchcryptid/water-accounting-dashboard/internal/observability"
	"github.com/couchcryptid/water-accounting-dashboard/internal/pipeline"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// DataSource serves the current dataset snapshot and reloads it on demand.
type DataSource interface {
	ReadinessChecker
	Snapshot() *pipeline.Dataset
	Reload(ctx context.Context) (*pipeline.Dataset, error)
}

// Deps are the collaborators of the dashboard handlers. Geocoder may be nil.
type Deps struct {
	Data      DataSource
	Layers    *shapefile.Cache
	Geocoder  domain.Geocoder
	Region    string
	Metrics   *observability.Metrics
	MaxUpload int64
}

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

// Server serves the dashboard pages and the health, readiness and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with all dashboard routes. Responses are
// gzip-compressed when the client accepts it.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           gzhttp.GzipHandler(mux),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("GET /detail", s.handleDetail)
	mux.HandleFunc("GET /summary", s.handleSummary)
	mux.HandleFunc("GET /charts/{name}", s.handleChart)
	mux.HandleFunc("GET /map", s.handleMap)
	mux.HandleFunc("POST /map", s.handleUpload)
	mux.HandleFunc("GET /map/geojson", s.handleLayerGeoJSON)
	mux.HandleFunc("GET /map/counties", s.handleCounties)
	mux.HandleFunc("GET /api/summary", s.handleSummaryAPI)
	mux.HandleFunc("GET /export/{format}", s.handleExport)
	mux.HandleFunc("POST /reload", s.handleReload)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(deps.Data))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	target := "/detail"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// snapshot returns the current dataset, or an empty one before the first load.
func (s *Server) snapshot() *pipeline.Dataset {
	if ds := s.deps.Data.Snapshot(); ds != nil {
		return ds
	}
	return &pipeline.Dataset{}
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	s.renderStatus(w, http.StatusOK, name, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("render page", "page", name, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	s.deps.Metrics.PageRenders.WithLabelValues(name).Inc()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w) //nolint:errcheck // client went away
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
