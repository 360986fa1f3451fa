// Package container provides dependency injection using Uber FX
// This implements the Dependency Inversion Principle from SOLID
package container

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	catalogapp "github.com/alchemorsel/pantry/internal/application/catalog"
	recipeapp "github.com/alchemorsel/pantry/internal/application/recipe"
	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/domain/recipe"
	"github.com/alchemorsel/pantry/internal/domain/shared"
	"github.com/alchemorsel/pantry/internal/infrastructure/config"
	"github.com/alchemorsel/pantry/internal/infrastructure/events"
	"github.com/alchemorsel/pantry/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/pantry/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/pantry/internal/infrastructure/http/server"
	"github.com/alchemorsel/pantry/internal/infrastructure/monitoring"
	"github.com/alchemorsel/pantry/internal/infrastructure/openfoodfacts"
	gormRepo "github.com/alchemorsel/pantry/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/pantry/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/pantry/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/pantry/internal/infrastructure/persistence/postgres"
	redisRepo "github.com/alchemorsel/pantry/internal/infrastructure/persistence/redis"
	"github.com/alchemorsel/pantry/internal/infrastructure/persistence/sqlite"
	"github.com/alchemorsel/pantry/internal/infrastructure/security"
	"github.com/alchemorsel/pantry/internal/ports/inbound"
	"github.com/alchemorsel/pantry/internal/ports/outbound"
	"github.com/alchemorsel/pantry/pkg/healthcheck"
	"github.com/alchemorsel/pantry/pkg/logger"
)

const redisKeyPrefix = "pantry:"

// Module provides every module the API server needs
var Module = fx.Options(
	ConfigModule,
	CoreModule,
	HTTPModule,
	LifecycleModule,
)

// CoreModule is everything below the HTTP layer. Commands that supply
// their own *config.Config use it directly.
var CoreModule = fx.Options(
	LoggerModule,
	MetricsModule,
	DatabaseModule,
	CacheModule,
	RepositoryModule,
	EventModule,
	ServiceModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func() (*config.Config, error) {
		return config.Load("")
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
)

// MetricsModule provides the Prometheus registry and collector
var MetricsModule = fx.Provide(
	func() *prometheus.Registry {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return reg
	},
	monitoring.NewMetricsCollector,
)

// DatabaseModule provides the gorm handle for the configured driver
var DatabaseModule = fx.Provide(
	NewDatabase,
	func(db *gorm.DB) (*sql.DB, error) {
		return db.DB()
	},
)

// NewDatabase opens the configured store. Postgres is migrated with the
// embedded SQL files, SQLite through AutoMigrate.
func NewDatabase(cfg *config.Config, log *zap.Logger, metrics *monitoring.MetricsCollector) (*gorm.DB, error) {
	switch cfg.Database.Driver {
	case "postgres":
		cm, err := postgres.NewConnectionManager(cfg, log)
		if err != nil {
			return nil, err
		}
		cm.SetQueryObserver(metrics.ObserveQuery)

		if cfg.Database.AutoMigrate {
			// The migrator owns the handle it is given; leave it open.
			m, err := migrations.New(cm.SQLDB(), cfg.Database.Database, log)
			if err != nil {
				return nil, err
			}
			if err := m.Up(); err != nil {
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		return cm.GetDB(), nil

	default:
		db, err := sqlite.SetupDatabase(cfg.Database.Path, postgres.GORMLogLevel(cfg.Database.LogLevel))
		if err != nil {
			return nil, fmt.Errorf("failed to setup SQLite database: %w", err)
		}

		monitor := postgres.NewQueryMonitor(log.Named("sqlite"), cfg.Database.SlowQueryThreshold)
		monitor.SetObserver(metrics.ObserveQuery)
		if err := monitor.Install(db); err != nil {
			log.Warn("Failed to install query monitoring", zap.Error(err))
		}

		if cfg.Database.Seed {
			if err := sqlite.SeedDatabase(db); err != nil {
				log.Warn("Failed to seed database", zap.Error(err))
			}
		}

		log.Info("Connected to SQLite database", zap.String("path", cfg.Database.Path))
		return db, nil
	}
}

// CacheModule provides caching. Without Redis the in-process cache is used
// and the redis client is nil.
var CacheModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*goredis.Client, error) {
		if !cfg.Redis.Enabled {
			return nil, nil
		}
		client, err := redisRepo.NewClient(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(client.Close))
		log.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr()))
		return client, nil
	},
	func(client *goredis.Client, log *zap.Logger) outbound.CacheRepository {
		if client == nil {
			log.Info("Using in-memory cache")
			return memory.NewCacheRepository()
		}
		return redisRepo.NewCacheRepository(client, redisKeyPrefix, log)
	},
)

// RepositoryModule provides repository implementations
var RepositoryModule = fx.Provide(
	gormRepo.NewRecipeRepository,
	gormRepo.NewProductRepository,
	gormRepo.NewCustomIngredientRepository,
)

// EventModule provides event handling
var EventModule = fx.Options(
	fx.Provide(
		fx.Annotate(
			events.NewDispatcher,
			fx.As(new(shared.EventDispatcher)),
		),
	),
	fx.Invoke(RegisterEventHandlers),
)

// RegisterEventHandlers subscribes the handlers that react to domain events.
func RegisterEventHandlers(dispatcher shared.EventDispatcher, log *zap.Logger) {
	log = log.Named("event-handlers")
	dispatcher.Register(catalog.ProductSyncedEvent{}.EventName(), func(e shared.DomainEvent) error {
		if synced, ok := e.(catalog.ProductSyncedEvent); ok {
			log.Info("Product refreshed from catalog",
				zap.Uint("product_id", synced.ProductID),
				zap.String("name", synced.Name),
			)
		}
		return nil
	})
	dispatcher.Register(recipe.RecipeDeletedEvent{}.EventName(), func(e shared.DomainEvent) error {
		if deleted, ok := e.(recipe.RecipeDeletedEvent); ok {
			log.Debug("Recipe removed", zap.String("slug", deleted.Slug))
		}
		return nil
	})
}

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) *openfoodfacts.Client {
		return openfoodfacts.NewClient(cfg.Catalog, log)
	},
	func(client *openfoodfacts.Client, cache outbound.CacheRepository, cfg *config.Config, log *zap.Logger) outbound.CatalogSource {
		return openfoodfacts.NewCachedSource(client, cache, cfg.Catalog.CacheTTL, log)
	},
	fx.Annotate(
		recipeapp.NewRecipeService,
		fx.As(new(inbound.RecipeService)),
	),
	fx.Annotate(
		func(
			products outbound.ProductRepository,
			customs outbound.CustomIngredientRepository,
			source outbound.CatalogSource,
			dispatcher shared.EventDispatcher,
			cfg *config.Config,
			log *zap.Logger,
		) *catalogapp.CatalogService {
			return catalogapp.NewCatalogService(products, customs, source, dispatcher, catalogapp.Options{
				SyncRequestsPerSec: cfg.Catalog.SyncRequestsPerSec,
				SearchPageSize:     cfg.Catalog.SearchPageSize,
				LocalSearchLimit:   cfg.Catalog.LocalSearchLimit,
			}, log)
		},
		fx.As(new(inbound.CatalogService)),
	),
	func(cfg *config.Config, cache outbound.CacheRepository, log *zap.Logger) *security.AuthService {
		return security.NewAuthService(cfg.Auth, cache, log)
	},
)

// HTTPModule provides HTTP server and handlers
var HTTPModule = fx.Provide(
	middleware.New,
	NewHealthCheck,
	handlers.NewRecipeHandlers,
	func(svc inbound.CatalogService, metrics *monitoring.MetricsCollector, log *zap.Logger) *handlers.CatalogHandlers {
		return handlers.NewCatalogHandlers(svc, metrics, log)
	},
	handlers.NewAuthHandlers,
	server.NewServer,
)

// NewHealthCheck registers a checker per dependency. Redis is only checked
// when enabled.
func NewHealthCheck(cfg *config.Config, log *zap.Logger, db *sql.DB, redisClient *goredis.Client, off *openfoodfacts.Client) *healthcheck.HealthCheck {
	hc := healthcheck.New(cfg.App.Version, log.Named("health"))
	hc.Register("database", healthcheck.NewDatabaseChecker(db))
	if redisClient != nil {
		hc.Register("redis", healthcheck.NewRedisChecker(redisClient))
	}
	hc.Register("openfoodfacts", healthcheck.NewExternalServiceChecker("openfoodfacts", off))
	return hc
}

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	db *sql.DB,
	srv *server.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting Pantry",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("database", cfg.Database.Driver),
			)

			go func() {
				if err := srv.Start(); err != nil {
					log.Error("HTTP server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down Pantry")

			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			if err := db.Close(); err != nil {
				log.Error("Failed to close database connection", zap.Error(err))
			}

			_ = log.Sync()
			return nil
		},
	})
}
