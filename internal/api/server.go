package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/collision.report/internal/aggregate"
	"github.com/banshee-data/collision.report/internal/collision"
	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/db"
	"github.com/banshee-data/collision.report/internal/monitoring"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// RequestIDHeader carries the per-request id set by LoggingMiddleware.
const RequestIDHeader = "X-Request-ID"

// Server serves the aggregated collision data. It implements loader.Sink so
// the loader can feed it directly; every engine access holds mu.
type Server struct {
	mu     sync.Mutex
	engine *aggregate.Engine

	cfg *config.Config
	loc *time.Location
	db  *db.DB
}

// NewServer wraps engine. store may be nil, in which case no debug routes
// are mounted.
func NewServer(engine *aggregate.Engine, cfg *config.Config, store *db.DB) *Server {
	if cfg == nil {
		cfg = config.Empty()
	}
	return &Server{
		engine: engine,
		cfg:    cfg,
		loc:    cfg.GetLocation(),
		db:     store,
	}
}

// SetLocations installs the marker coordinates.
func (s *Server) SetLocations(locs []collision.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.SetLocations(locs)
}

// Append adds the records of one yearly file and recomputes.
func (s *Server) Append(file string, cs []collision.Collision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := newRecomputeTimer("append")
	res := s.engine.Append(cs...)
	timer.ObserveDuration()

	recordsLoaded.Add(float64(len(cs)))
	visibleRecords.Set(float64(len(res.Records)))
	monitoring.Logf("api: appended %d records from %s (%d visible)", len(cs), file, len(res.Records))
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware tags each request with an id and logs method, path,
// status and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)

		elapsed := time.Since(start)
		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		requestDuration.WithLabelValues(pattern, strconv.Itoa(lrw.statusCode)).Observe(elapsed.Seconds())
		monitoring.Logf(
			"[%s] %s %s%s%s %vms id=%s",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(elapsed.Nanoseconds())/1e6, id,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/categories", s.listCategories)
	mux.HandleFunc("/api/groups", s.listGroups)
	mux.HandleFunc("/api/groups.geojson", s.groupsGeoJSON)
	mux.HandleFunc("/api/groups/{handle}", s.showGroup)
	mux.HandleFunc("/api/filters", s.listFilters)
	mux.HandleFunc("/api/filters/toggle", s.toggleFilter)
	mux.HandleFunc("/api/summary", s.showSummary)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/charts", s.handleCategoryCharts)
	mux.Handle("/metrics", promhttp.Handler())
	if s.db != nil {
		s.db.AttachAdminRoutes(mux)
	}
	return mux
}
