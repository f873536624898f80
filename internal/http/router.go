// Package httpapi assembles the public HTTP surface: the claim workflow
// routes, health, and Prometheus metrics.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"claimflow/internal/claim/handler"
	"claimflow/internal/platform/redis"
)

// NewRouter wires all public endpoints. The claim handler mounts its own
// subrouter with the full middleware chain; health and metrics stay outside it
// so probes are never slowed by request logging or timeouts.
func NewRouter(claims *handler.Handler, rdb *redis.Client) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealth(rdb))
	r.Handle("/metrics", promhttp.Handler())

	claims.Register(r)
	return r
}

func handleHealth(rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK

		if rdb != nil {
			if err := rdb.Health(r.Context()); err != nil {
				status["status"] = "degraded"
				status["redis"] = err.Error()
				code = http.StatusServiceUnavailable
			} else {
				status["redis"] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
