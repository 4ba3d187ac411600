package product

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ProductsAPI/pkg/kit"
)

const readyTimeout = 1 * time.Second

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	APIKey string

	MetricsEnabled bool
	MetricsToken   string

	CORSOrigins     []string
	RateLimitPerMin int
}

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if s.Log == nil {
		s.Log = deps.Log
	}

	r := chi.NewRouter()
	r.NotFound(routeNotFound)
	r.MethodNotAllowed(routeNotFound)

	metrics := newMetrics(deps)
	setupMiddleware(r, deps, metrics)
	setupMetricsRoute(r, deps)

	r.Get("/healthz", healthz)
	r.Get("/readyz", s.readyz)

	guard := chi.Middlewares{APIKey(deps.APIKey)}
	if deps.RateLimitPerMin > 0 {
		guard = append(guard, kit.NewIPRateLimiter(deps.RateLimitPerMin, time.Minute).Middleware)
	}
	r.With(guard...).Mount("/api/products", s.Routes())

	return r
}

func newMetrics(deps HTTPDeps) *kit.Metrics {
	if deps.Registry == nil {
		if deps.MetricsEnabled {
			deps.Log.Warn("metrics enabled but Registry is nil")
		}
		return nil
	}
	return kit.NewMetrics(deps.Registry)
}

// setupMiddleware installs the chain outermost first. Recoverer must stay
// inside metrics.
func setupMiddleware(r *chi.Mux, deps HTTPDeps, metrics *kit.Metrics) {
	r.Use(chimw.RequestID)
	r.Use(kit.RequestIDHeader)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{chimw.RequestIDHeader},
	}))
	r.Use(kit.Logging(deps.Log))
	if metrics != nil {
		r.Use(metrics.Middleware(deps.Service))
	}
	r.Use(kit.Recoverer(deps.Log))
}

func setupMetricsRoute(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil || !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.Log.Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func routeNotFound(w http.ResponseWriter, _ *http.Request) {
	kit.WriteError(w, http.StatusNotFound, msgRouteMissing)
}
