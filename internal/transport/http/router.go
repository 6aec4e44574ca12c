// Package httptransport assembles the HTTP surface: middleware chain, route
// groups and operational endpoints. Business logic stays in the feature
// services.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gymgate/internal/attendance"
	"gymgate/internal/platform/middleware"
)

// Deps carries everything the router mounts.
type Deps struct {
	Attendance    *attendance.Handler
	Devices       middleware.DeviceAuthenticator
	JWTSigningKey string
	Logger        *slog.Logger
	Health        func(r *http.Request) error
}

// NewRouter wires the middleware chain and all route groups.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)

	// Front desk: staff token scoped to one organization.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.JWTSigningKey, deps.Logger))
		deps.Attendance.RegisterStaff(r)
	})

	// Scanners: device credentials resolve the organization.
	r.Group(func(r chi.Router) {
		r.Use(middleware.DeviceAuth(deps.Devices, deps.Logger))
		deps.Attendance.RegisterDevice(r)
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Health != nil {
			if err := deps.Health(req); err != nil {
				deps.Logger.ErrorContext(req.Context(), "health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
