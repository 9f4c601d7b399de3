package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/mediamix/auth"
	"github.com/jonwraymond/mediamix/cache"
	"github.com/jonwraymond/mediamix/health"
	"github.com/jonwraymond/mediamix/mix"
	"github.com/jonwraymond/mediamix/model"
	"github.com/jonwraymond/mediamix/observe"
)

// Config wires the server's collaborators.
type Config struct {
	// Logger receives request and handler logs. Nil means no logging.
	Logger observe.Logger

	// Metrics records request counts and latencies. Nil disables them.
	Metrics observe.HTTPMetrics

	// Provider supplies the model handle. Required.
	Provider *model.Provider

	// Dataset is the loaded marketing-mix dataset. Required.
	Dataset *mix.Dataset

	// Cache fronts the response-curve computation. Required.
	Cache *cache.Cache

	// Verifier authenticates /api requests. Nil disables authentication.
	Verifier *auth.Verifier

	// Health is the aggregator behind the readiness routes. Required.
	Health *health.Aggregator
}

// Server is the HTTP API.
type Server struct {
	logger   observe.Logger
	metrics  observe.HTTPMetrics
	provider *model.Provider
	dataset  *mix.Dataset
	cache    *cache.Cache
	router   chi.Router
}

// NewServer builds the server and its routes.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.NopHTTPMetrics()
	}

	s := &Server{
		logger:   logger.WithComponent("api"),
		metrics:  metrics,
		provider: cfg.Provider,
		dataset:  cfg.Dataset,
		cache:    cfg.Cache,
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", health.LivenessHandler())
	r.Get("/readyz", health.ReadinessHandler(cfg.Health))
	r.Get("/health", health.DetailedHandler(cfg.Health))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Verifier, logger))

		r.Get("/me", s.handleMe)

		r.Route("/mmm", func(r chi.Router) {
			r.Get("/healthz", s.handleModelHealth)
			r.Get("/response-curve", s.handleResponseCurve)
			r.Get("/response-curves", s.handleResponseCurves)
			r.Get("/contributions", s.handleContributions)
			r.Post("/preload", s.handlePreload)
		})

		r.Route("/marketing-mix", func(r chi.Router) {
			r.Get("/geos", s.handleGeos)
			r.Get("/geos/{geo}", s.handleGeoSeries)
			r.Get("/national", s.handleNationalSeries)
			r.Get("/channels", s.handleChannels)
			r.Get("/summary", s.handleSummary)
			r.Post("/scenarios/shift", s.handleScenarioShift)
		})
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// instrument records per-route request metrics and a debug log line.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		elapsed := time.Since(start)
		s.metrics.RecordRequest(r.Context(), route, ww.Status(), elapsed)
		s.logger.Debug(r.Context(), "request served",
			observe.F("method", r.Method),
			observe.F("route", route),
			observe.F("status", ww.Status()),
			observe.F("duration_ms", elapsed.Milliseconds()))
	})
}

// handleMe echoes the verified token claims, or reports an anonymous
// session when authentication is disabled.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"sub":           claims.Subject,
		"email":         claims.Email,
	})
}
