// Package apiserver provides the JSON API HTTP server
package apiserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/recipesimplifier/api/internal/infrastructure/config"
	"github.com/recipesimplifier/api/internal/infrastructure/http/handlers"
	"github.com/recipesimplifier/api/internal/infrastructure/http/middleware"
	"github.com/recipesimplifier/api/internal/infrastructure/monitoring"
	"github.com/recipesimplifier/api/internal/infrastructure/security"
	"github.com/recipesimplifier/api/pkg/healthcheck"
)

// Deps are the collaborators the router mounts.
type Deps struct {
	Recipes  *handlers.RecipeAPIHandlers
	Accounts *handlers.AccountAPIHandlers
	Billing  *handlers.BillingAPIHandlers
	Admin    *handlers.AdminAPIHandlers

	Verifier middleware.TokenVerifier
	Admins   middleware.AdminChecker
	Limiter  *security.RateLimiter
	Metrics  *monitoring.MetricsCollector
	Health   *healthcheck.HealthCheck
}

// Server represents the JSON API HTTP server
type Server struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server
	router *chi.Mux
	deps   Deps
}

// NewServer creates a new API server instance
func NewServer(cfg *config.Config, log *zap.Logger, deps Deps) *Server {
	s := &Server{
		config: cfg,
		logger: log.Named("http"),
		deps:   deps,
	}

	s.router = s.setupRoutes()

	var handler http.Handler = s.router
	if cfg.Monitoring.EnableTracing {
		handler = otelhttp.NewHandler(handler, cfg.App.Name,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}

	s.server = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       zap.NewStdLog(s.logger),
	}

	return s
}

// setupRoutes configures the router
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()
	healthPath := s.config.Monitoring.HealthCheckPath
	readyPath := s.config.Monitoring.ReadinessPath

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger, healthPath, readyPath, "/metrics"))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security(s.config.IsProduction()))
	if s.config.Server.EnableCORS {
		r.Use(middleware.CORS(s.config.Server, s.config.IsDevelopment()))
	}
	if s.deps.Metrics != nil {
		r.Use(middleware.Metrics(s.deps.Metrics))
	}
	if s.config.Server.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(s.config.Server.RequestTimeout))
	}

	r.Get(healthPath, s.deps.Health.LivenessHandler())
	r.Get(readyPath, s.deps.Health.ReadinessHandler())
	if s.config.Monitoring.EnableMetrics && s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.MaxBody(s.config.Server.MaxBodyBytes))

		// Signed by the processor rather than the caller, and not subject to
		// per-IP limits: the processor delivers from a small set of addresses.
		r.Post("/webhooks/stripe", s.deps.Billing.StripeWebhook)

		r.Group(func(r chi.Router) {
			if s.config.RateLimit.Enable && s.deps.Limiter != nil {
				r.Use(middleware.RateLimit(s.deps.Limiter, s.logger))
			}

			r.Get("/openapi.yaml", ServeOpenAPISpec)

			r.Group(func(r chi.Router) {
				r.Use(middleware.JSONOnly())
				s.setupAPIRoutes(r)
			})
		})
	})

	return r
}

// setupAPIRoutes configures the JSON endpoints
func (s *Server) setupAPIRoutes(r chi.Router) {
	d := s.deps

	// The checkout return page calls this before the caller's session is restored.
	r.Post("/verify-session", d.Billing.VerifySession)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(d.Verifier, s.logger))

		r.Post("/ensure-user", d.Accounts.EnsureUser)
		r.Get("/account", d.Accounts.GetAccount)

		r.Post("/parse-recipe", d.Recipes.ParseRecipe)
		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", d.Recipes.ListRecipes)
			r.Post("/", d.Recipes.SaveRecipe)
			r.Get("/{id}", d.Recipes.GetRecipe)
			r.Delete("/{id}", d.Recipes.DeleteRecipe)
		})

		r.Post("/create-checkout-session", d.Billing.CreateCheckoutSession)
		r.Post("/cancel-subscription", d.Billing.CancelSubscription)
		r.Post("/reactivate-subscription", d.Billing.ReactivateSubscription)

		r.Get("/admin/check-status", d.Admin.CheckStatus)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(d.Admins, s.logger))

			r.Get("/test-stripe", d.Billing.ConfigStatus)
			r.Route("/admin", func(r chi.Router) {
				r.Post("/search-user", d.Admin.SearchUser)
				r.Post("/grant-lifetime", d.Admin.GrantLifetime)
				r.Post("/add-subscription", d.Admin.AddSubscription)
				r.Post("/manage-admin", d.Admin.ManageAdmin)
				r.Get("/manage-admin", d.Admin.ListAdmins)
			})
		})
	})
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		zap.String("address", s.server.Addr),
		zap.String("environment", s.config.App.Environment),
	)

	if err := http2.ConfigureServer(s.server, nil); err != nil {
		s.logger.Error("Failed to configure HTTP/2", zap.Error(err))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
