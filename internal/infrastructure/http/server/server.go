// Package server wires the gin router and owns the HTTP server lifecycle
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alchemorsel/pantry/internal/infrastructure/config"
	"github.com/alchemorsel/pantry/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/pantry/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/pantry/internal/infrastructure/monitoring"
	"github.com/alchemorsel/pantry/internal/infrastructure/security"
	apperrors "github.com/alchemorsel/pantry/pkg/errors"
	"github.com/alchemorsel/pantry/pkg/healthcheck"
)

// Server represents the HTTP server
type Server struct {
	config   *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	server   *http.Server
	mw       *middleware.Middleware
	auth     *security.AuthService
	health   *healthcheck.HealthCheck
	metrics  *monitoring.MetricsCollector
	recipes  *handlers.RecipeHandlers
	catalog  *handlers.CatalogHandlers
	sessions *handlers.AuthHandlers
}

// NewServer creates a new HTTP server instance
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	mw *middleware.Middleware,
	auth *security.AuthService,
	health *healthcheck.HealthCheck,
	metrics *monitoring.MetricsCollector,
	recipes *handlers.RecipeHandlers,
	catalog *handlers.CatalogHandlers,
	sessions *handlers.AuthHandlers,
) *Server {
	s := &Server{
		config:   cfg,
		logger:   logger.Named("server"),
		mw:       mw,
		auth:     auth,
		health:   health,
		metrics:  metrics,
		recipes:  recipes,
		catalog:  catalog,
		sessions: sessions,
	}

	s.router = s.setupRouter()
	s.server = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        s.router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() *gin.Engine {
	if !s.config.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(s.config.Server.TrustedProxies); err != nil {
		s.logger.Warn("Invalid trusted proxies", zap.Error(err))
	}

	// Order matters: the request id must exist before anything logs, and
	// the error handler must sit inside recovery.
	r.Use(
		s.mw.RequestID(),
		s.mw.Logger(),
		s.mw.Recovery(),
		s.mw.Metrics(),
		s.mw.Tracing(),
		s.mw.Security(),
		s.mw.CORS(),
		s.mw.ErrorHandler(),
	)

	healthPath := s.config.Monitoring.HealthCheckPath
	r.GET(healthPath, s.health.Handler())
	r.GET(healthPath+"/live", s.health.LivenessHandler())
	r.GET(healthPath+"/ready", s.health.ReadinessHandler())
	if s.config.Monitoring.EnableMetrics && s.metrics != nil {
		r.GET(s.config.Monitoring.MetricsPath, gin.WrapH(s.metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	v1.Use(s.mw.RateLimit())
	s.setupAPIRoutes(v1)

	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperrors.NewNotFoundError("Route"))
	})

	return r
}

// setupAPIRoutes configures REST API routes. Writes need an admin token.
func (s *Server) setupAPIRoutes(v1 *gin.RouterGroup) {
	admin := s.auth.AuthMiddleware()

	auth := v1.Group("/auth")
	{
		auth.POST("/login", s.sessions.Login)
		auth.POST("/logout", admin, s.sessions.Logout)
	}

	recipes := v1.Group("/recipes")
	{
		recipes.POST("/search", s.recipes.SearchRecipes)
		recipes.GET("/:slug", s.recipes.GetRecipe)
		recipes.POST("", admin, s.recipes.CreateRecipe)
		recipes.PUT("/:id", admin, s.recipes.UpdateRecipe)
		recipes.DELETE("/:id", admin, s.recipes.DeleteRecipe)
	}

	products := v1.Group("/products")
	{
		products.GET("/:id", s.catalog.GetProduct)
		products.GET("/barcode/:barcode", s.catalog.ResolveBarcode)
		products.POST("", admin, s.catalog.CreateProduct)
		products.POST("/sync", admin, s.catalog.SyncProducts)
		products.PUT("/:id", admin, s.catalog.UpdateProduct)
		products.DELETE("/:id", admin, s.catalog.DeleteProduct)
	}

	customs := v1.Group("/custom-ingredients")
	{
		customs.GET("/:id", s.catalog.GetCustomIngredient)
		customs.POST("", admin, s.catalog.CreateCustomIngredient)
		customs.PUT("/:id", admin, s.catalog.UpdateCustomIngredient)
		customs.DELETE("/:id", admin, s.catalog.DeleteCustomIngredient)
	}

	v1.GET("/ingredients/search/stream", s.catalog.StreamSearch)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops. A graceful
// shutdown is not an error.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		zap.String("address", s.server.Addr),
		zap.String("environment", s.config.App.Environment),
	)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
