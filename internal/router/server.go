package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dev-kitchen/api-gateway/internal/auth"
	"github.com/dev-kitchen/api-gateway/internal/config"
	"github.com/dev-kitchen/api-gateway/internal/metrics"
)

// BridgeHandler is the single entry point the Bridge exposes to the
// router: translate one HTTP request into a broker round trip.
type BridgeHandler interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// New assembles the full filter chain in the order spec §4.6 documents:
// Recoverer (ambient safety net) -> CorrelationFilter ->
// AccessLogFilter -> CORS -> Auth Filter -> routed Bridge handlers.
func New(cfg config.CORSConfig, verifier *auth.Verifier, bridge BridgeHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(CorrelationFilter)
	r.Use(AccessLogFilter)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: cfg.AllowedMethods,
		AllowedHeaders: cfg.AllowedHeaders,
		MaxAge:         cfg.MaxAgeSeconds,
	}))

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"UP"}`))
	})
	r.Handle("/actuator/prometheus", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(auth.Filter(verifier))
		r.Handle("/api/auth/*", bridge)
		r.Handle("/api/recipes/*", bridge)
		r.Handle("/api/account/*", bridge)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":404,"message":"Not Found","data":null,"error":{"code":"ERR_404","detail":"no route matches this path"}}`))
	})

	return r
}
