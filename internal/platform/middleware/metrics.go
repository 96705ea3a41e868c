package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"enrolld/internal/platform/metrics"
)

// RequestLatency observes per-route request duration. The chi route
// pattern is read after the handler runs so path parameters collapse
// into a single label value.
func RequestLatency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.RequestLatencyMs.WithLabelValues(route).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
		})
	}
}
