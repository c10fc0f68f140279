// Package httptransport assembles the public HTTP surface: shared middleware,
// the authenticated and admin route groups, and the operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"domainpark/internal/platform/metrics"
	"domainpark/internal/platform/middleware"
	"domainpark/pkg/platform/httputil"
	adminmw "domainpark/pkg/platform/middleware/admin"
	authmw "domainpark/pkg/platform/middleware/auth"
	"domainpark/pkg/platform/middleware/metadata"
	"domainpark/pkg/platform/middleware/requesttime"
)

// RouteRegistrar mounts a group of routes. The domains handler satisfies it.
type RouteRegistrar interface {
	Register(r chi.Router)
	RegisterAdmin(r chi.Router)
}

// HealthChecker reports whether backing resources answer.
type HealthChecker func(ctx context.Context) error

// Deps are the collaborators the router needs.
type Deps struct {
	Routes         RouteRegistrar
	JWTValidator   authmw.JWTValidator
	AdminToken     string
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Health         HealthChecker
	RequestTimeout time.Duration
	Version        string
}

// NewRouter wires every endpoint. Domain routes sit behind bearer auth and
// admin routes behind the X-Admin-Token check.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.LatencyMiddleware(d.Metrics))

	r.Get("/health", healthHandler(d.Health, d.Version))
	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		if d.RequestTimeout > 0 {
			r.Use(middleware.Timeout(d.RequestTimeout))
		}
		r.Use(middleware.ContentTypeJSON)

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAuth(d.JWTValidator, d.Logger))
			d.Routes.Register(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdminToken(d.AdminToken, d.Logger))
			d.Routes.RegisterAdmin(r)
		})
	})
	return r
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

func healthHandler(check HealthChecker, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{
					Status:  "unavailable",
					Version: version,
					Error:   err.Error(),
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: version})
	}
}
