// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	adminapp "github.com/recipesimplifier/api/internal/application/admin"
	billingapp "github.com/recipesimplifier/api/internal/application/billing"
	recipeapp "github.com/recipesimplifier/api/internal/application/recipe"
	userapp "github.com/recipesimplifier/api/internal/application/user"
	"github.com/recipesimplifier/api/internal/domain/subscription"
	"github.com/recipesimplifier/api/internal/infrastructure/ai/gemini"
	"github.com/recipesimplifier/api/internal/infrastructure/billing/stripe"
	"github.com/recipesimplifier/api/internal/infrastructure/config"
	"github.com/recipesimplifier/api/internal/infrastructure/http/apiserver"
	"github.com/recipesimplifier/api/internal/infrastructure/http/handlers"
	"github.com/recipesimplifier/api/internal/infrastructure/monitoring"
	gormRepo "github.com/recipesimplifier/api/internal/infrastructure/persistence/gorm"
	"github.com/recipesimplifier/api/internal/infrastructure/persistence/memory"
	"github.com/recipesimplifier/api/internal/infrastructure/persistence/migrations"
	"github.com/recipesimplifier/api/internal/infrastructure/persistence/postgres"
	redisrepo "github.com/recipesimplifier/api/internal/infrastructure/persistence/redis"
	"github.com/recipesimplifier/api/internal/infrastructure/persistence/sqlite"
	"github.com/recipesimplifier/api/internal/infrastructure/scraper"
	"github.com/recipesimplifier/api/internal/infrastructure/security"
	"github.com/recipesimplifier/api/internal/ports/inbound"
	"github.com/recipesimplifier/api/internal/ports/outbound"
	"github.com/recipesimplifier/api/pkg/healthcheck"
	"github.com/recipesimplifier/api/pkg/logger"
)

// ConfigPath is the optional config file location passed on the command line.
type ConfigPath string

// Module provides all dependency injection modules
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	MonitoringModule,
	DatabaseModule,
	CacheModule,
	RepositoryModule,
	AdapterModule,
	ServiceModule,
	HTTPModule,
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func(path ConfigPath) (*config.Config, error) {
		return config.Load(string(path))
	},
)

// LoggerModule provides logging, and routes fx's own events through it.
var LoggerModule = fx.Options(
	fx.Provide(
		func(cfg *config.Config) (*zap.Logger, error) {
			return logger.New(logger.Config{
				Level:       cfg.App.LogLevel,
				Format:      cfg.App.LogFormat,
				Development: cfg.App.Debug,
				Service:     cfg.App.Name,
			})
		},
	),
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		l := &fxevent.ZapLogger{Logger: log.Named("fx")}
		l.UseLogLevel(zap.DebugLevel)
		return l
	}),
)

// MonitoringModule provides metrics, tracing and health checks
var MonitoringModule = fx.Provide(
	monitoring.NewMetricsCollector,
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*monitoring.TracingProvider, error) {
		tp, err := monitoring.NewTracingProvider(context.Background(), cfg.App, cfg.Monitoring, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: tp.Shutdown})
		return tp, nil
	},
	func(cfg *config.Config, log *zap.Logger, metrics *monitoring.MetricsCollector) *healthcheck.HealthCheck {
		hc := healthcheck.New(cfg.App.Version, log.Named("health"))
		hc.SetObserver(metrics)
		return hc
	},
)

// DatabaseModule provides the ORM handle and its connection pool
var DatabaseModule = fx.Provide(
	openDatabase,
	func(db *gorm.DB) (*sql.DB, error) {
		return db.DB()
	},
)

func openDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgres.Open(cfg, log)
		if err != nil {
			return nil, err
		}
		if cfg.Database.RunMigrations {
			if err := runMigrations(db, cfg.Database.Database, log); err != nil {
				return nil, err
			}
		}
		if cfg.Database.AutoMigrate {
			if err := db.AutoMigrate(gormRepo.AllModels()...); err != nil {
				return nil, fmt.Errorf("failed to auto-migrate: %w", err)
			}
		}
	default:
		gl := postgres.NewGORMLogger(log, cfg.Database.LogLevel, cfg.Database.SlowQueryThreshold)
		db, err = sqlite.SetupDatabase(cfg.Database.Path, gl)
		if err != nil {
			return nil, fmt.Errorf("failed to setup SQLite database: %w", err)
		}
		log.Info("Connected to SQLite database", zap.String("path", cfg.Database.Path))
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}

func runMigrations(db *gorm.DB, name string, log *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	m, err := migrations.New(sqlDB, name, log)
	if err != nil {
		return err
	}
	return m.Up()
}

// CacheResult carries the parse cache and, when Redis backs it, the client
// for health checks. Redis is nil otherwise.
type CacheResult struct {
	fx.Out

	Cache outbound.CacheRepository
	Redis *goredis.Client
}

// CacheModule provides the parse-result cache
var CacheModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (CacheResult, error) {
		if !cfg.Redis.Enabled {
			log.Info("Using in-memory cache")
			return CacheResult{Cache: memory.NewCacheRepository(cfg.Cache.ParseTTL, cfg.Cache.CleanupInterval)}, nil
		}

		client, err := redisrepo.NewClient(context.Background(), cfg)
		if err != nil {
			return CacheResult{}, err
		}
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return client.Close() },
		})
		log.Info("Using Redis cache", zap.String("addr", cfg.RedisAddr()))
		return CacheResult{
			Cache: redisrepo.NewCacheRepository(client, cfg.Redis.KeyPrefix, log),
			Redis: client,
		}, nil
	},
)

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	gormRepo.NewRecipeRepository,
	gormRepo.NewUserRepository,
	gormRepo.NewSubscriptionRepository,
	gormRepo.NewUsageRepository,
	gormRepo.NewAuditRepository,
)

// AdapterModule provides the outbound adapters for scraping, extraction and billing
var AdapterModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) outbound.PageScraper {
		client := &http.Client{Timeout: cfg.Scraper.Timeout}
		if cfg.Monitoring.EnableTracing {
			client.Transport = otelhttp.NewTransport(http.DefaultTransport)
		}
		return scraper.New(cfg.Scraper, client, log)
	},
	func(cfg *config.Config, cache outbound.CacheRepository, metrics *monitoring.MetricsCollector, log *zap.Logger) (outbound.RecipeExtractor, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		extractor, err := gemini.NewExtractor(ctx, cfg.AI, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		extractor.WithMetrics(metrics)
		if !cfg.Cache.Enabled {
			return extractor, nil
		}
		return gemini.NewCachingExtractor(extractor, cache, cfg.Cache.ParseTTL, log), nil
	},
	func(cfg *config.Config, log *zap.Logger) outbound.BillingProvider {
		return stripe.New(cfg.Billing, nil, log)
	},
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	func(cfg *config.Config) *subscription.Policy {
		return subscription.NewPolicy(subscription.Limits{
			RecipesPerDay:        cfg.Plans.FreeRecipesPerDay,
			CustomizationsPerDay: cfg.Plans.FreeCustomizationsPerDay,
		})
	},
	func(
		recipes outbound.RecipeRepository,
		users outbound.UserRepository,
		subs outbound.SubscriptionRepository,
		usage outbound.UsageRepository,
		pages outbound.PageScraper,
		extractor outbound.RecipeExtractor,
		policy *subscription.Policy,
		metrics *monitoring.MetricsCollector,
		log *zap.Logger,
	) inbound.RecipeService {
		return recipeapp.NewRecipeService(recipes, users, subs, usage, pages, extractor, policy, metrics, log)
	},
	fx.Annotate(
		userapp.NewAccountService,
		fx.As(new(inbound.AccountService)),
	),
	func(
		provider outbound.BillingProvider,
		users outbound.UserRepository,
		subs outbound.SubscriptionRepository,
		cfg *config.Config,
		metrics *monitoring.MetricsCollector,
		log *zap.Logger,
	) inbound.BillingService {
		return billingapp.NewBillingService(provider, users, subs, cfg.Billing, cfg.App.PublicURL, metrics, log)
	},
	func(
		users outbound.UserRepository,
		subs outbound.SubscriptionRepository,
		usage outbound.UsageRepository,
		audit outbound.AuditRepository,
		cfg *config.Config,
		log *zap.Logger,
	) *adminapp.AdminService {
		return adminapp.NewAdminService(users, subs, usage, audit, cfg.Billing, log)
	},
	func(svc *adminapp.AdminService) inbound.AdminService { return svc },
)

// HTTPModule provides HTTP server and handlers
var HTTPModule = fx.Provide(
	security.NewValidator,
	func(cfg *config.Config, log *zap.Logger) *security.TokenVerifier {
		return security.NewTokenVerifier(cfg.Auth, log)
	},
	func(cfg *config.Config, log *zap.Logger) *security.RateLimiter {
		return security.NewRateLimiter(cfg.RateLimit, log)
	},
	handlers.NewRecipeAPIHandlers,
	handlers.NewAccountAPIHandlers,
	handlers.NewBillingAPIHandlers,
	handlers.NewAdminAPIHandlers,
	func(
		cfg *config.Config,
		log *zap.Logger,
		recipes *handlers.RecipeAPIHandlers,
		accounts *handlers.AccountAPIHandlers,
		billing *handlers.BillingAPIHandlers,
		admin *handlers.AdminAPIHandlers,
		verifier *security.TokenVerifier,
		admins *adminapp.AdminService,
		limiter *security.RateLimiter,
		metrics *monitoring.MetricsCollector,
		health *healthcheck.HealthCheck,
		_ *monitoring.TracingProvider,
	) *apiserver.Server {
		return apiserver.NewServer(cfg, log, apiserver.Deps{
			Recipes:  recipes,
			Accounts: accounts,
			Billing:  billing,
			Admin:    admin,
			Verifier: verifier,
			Admins:   admins,
			Limiter:  limiter,
			Metrics:  metrics,
			Health:   health,
		})
	},
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterHealthChecks,
	RegisterLifecycleHooks,
)

// HealthParams are the dependencies probed by the readiness endpoint.
type HealthParams struct {
	fx.In

	Config *config.Config
	Health *healthcheck.HealthCheck
	DB     *sql.DB
	Redis  *goredis.Client
}

// RegisterHealthChecks registers the readiness probes
func RegisterHealthChecks(p HealthParams) {
	p.Health.Register("database", healthcheck.NewDatabaseChecker(p.DB))
	if p.Redis != nil {
		p.Health.Register("redis", healthcheck.NewRedisChecker(p.Redis))
	}
	p.Health.Register("gemini", healthcheck.ConfiguredChecker("gemini",
		p.Config.AI.GeminiKey != "", "ai.gemini_key is not set"))
	p.Health.Register("stripe", healthcheck.ConfiguredChecker("stripe",
		p.Config.Billing.SecretKey != "" && p.Config.Billing.WebhookSecret != "",
		"billing.secret_key or billing.webhook_secret is not set"))
}

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	server *apiserver.Server,
	limiter *security.RateLimiter,
	tracer *monitoring.TracingProvider,
) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("Starting Recipe Simplifier",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.Bool("tracing", tracer.Enabled()),
			)

			if cfg.RateLimit.Enable {
				go limiter.Run(ctx)
			}

			go func() {
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()

			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			log.Info("Shutting down Recipe Simplifier")
			cancel()

			shutdownCtx, done := context.WithTimeout(stopCtx, cfg.Server.ShutdownTimeout)
			defer done()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			_ = log.Sync()
			return nil
		},
	})
}
