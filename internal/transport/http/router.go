// Package httptransport assembles the HTTP surface: middleware chain,
// authenticated routes, the admin subtree, and the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	identityhandler "carelink/internal/identity/handler"
	"carelink/internal/platform/metrics"
	"carelink/internal/platform/middleware"
	verificationhandler "carelink/internal/verification/handler"
	id "carelink/pkg/domain"
)

// Deps carries everything the router mounts.
type Deps struct {
	Identity     *identityhandler.Handler
	Verification *verificationhandler.Handler
	Validator    middleware.TokenValidator
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

// NewRouter builds the full router. All API routes require a bearer token;
// the /admin subtree additionally requires the admin role. /healthz and
// /metrics stay open for probes and scrapers.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger, deps.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))

		deps.Identity.Register(r)
		deps.Verification.Register(r)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(id.RoleAdmin, deps.Logger))
			deps.Identity.RegisterAdmin(r)
			deps.Verification.RegisterAdmin(r)
		})
	})

	return r
}
