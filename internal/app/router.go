package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/revforge/revforge/internal/auth"
	"github.com/revforge/revforge/internal/cart"
	"github.com/revforge/revforge/internal/catalog"
	"github.com/revforge/revforge/internal/observability"
	"github.com/revforge/revforge/internal/orders"
	"github.com/revforge/revforge/internal/reviews"
	"github.com/revforge/revforge/internal/users"
	"github.com/revforge/revforge/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	AuthHandler    *auth.Handler
	AuthMiddleware *auth.Middleware
	CatalogHandler *catalog.Handler
	ReviewsHandler *reviews.Handler
	CartHandler    *cart.Handler
	OrdersHandler  *orders.Handler
	UsersHandler   *users.Handler
	JobsHandler    *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with RevForge defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	params.AuthHandler.MountRoutes(r)

	// Browsing is anonymous; the optional identity lets listings include
	// per-user data (wishlist flags) when a token is present.
	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.Optional)
		params.CatalogHandler.MountRoutes(r)
		params.ReviewsHandler.MountPublicRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.Require)
		params.CartHandler.MountRoutes(r)
		params.OrdersHandler.MountRoutes(r)
		params.ReviewsHandler.MountRoutes(r)
		params.UsersHandler.MountRoutes(r)
		params.CatalogHandler.MountVendorRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.RequireStaff)
		params.CatalogHandler.MountAdminRoutes(r)
		params.OrdersHandler.MountAdminRoutes(r)
		params.ReviewsHandler.MountAdminRoutes(r)
		params.UsersHandler.MountAdminRoutes(r)
		if params.JobsHandler != nil {
			r.Route("/admin/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
