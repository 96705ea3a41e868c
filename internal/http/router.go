// Package httpapi assembles the public HTTP surface: middleware stack,
// health and metrics endpoints, and the authenticated API routes.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	batchhandler "enrolld/internal/batch/handler"
	"enrolld/internal/identity"
	"enrolld/internal/platform/metrics"
	"enrolld/internal/platform/middleware"
	progresshandler "enrolld/internal/progress/handler"
	uploadhandler "enrolld/internal/upload/handler"
)

// Deps carries everything the router mounts. Handlers stay oblivious to
// routing order and middleware.
type Deps struct {
	Validator middleware.JWTValidator
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Uploads   *uploadhandler.Handler
	Batches   *batchhandler.Handler
	Progress  *progresshandler.Handler

	RequestTimeout time.Duration
}

// NewRouter wires all public endpoints. Upload ingestion and batch
// control are restricted to staff roles; progress polling only needs a
// valid token.
func NewRouter(deps Deps) http.Handler {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.RequestLatency(deps.Metrics))
	}
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(middleware.RequireAuth(deps.Validator, deps.Logger))

		api.Group(func(staff chi.Router) {
			staff.Use(middleware.RequireRole(identity.RoleAdmin, identity.RoleInstructor))
			deps.Uploads.Register(staff)
			deps.Batches.Register(staff)
		})

		deps.Progress.Register(api)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
