package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/alchemorsel/pantry/internal/infrastructure/config"
	"github.com/alchemorsel/pantry/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/pantry/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/pantry/internal/infrastructure/monitoring"
	"github.com/alchemorsel/pantry/internal/infrastructure/persistence/memory"
	"github.com/alchemorsel/pantry/internal/infrastructure/security"
	"github.com/alchemorsel/pantry/internal/ports/inbound"
	apperrors "github.com/alchemorsel/pantry/pkg/errors"
	"github.com/alchemorsel/pantry/pkg/healthcheck"
	"github.com/alchemorsel/pantry/test/testutils"
)

type ServerTestSuite struct {
	suite.Suite
	recipes *testutils.MockRecipeService
	catalog *testutils.MockCatalogService
	handler http.Handler
}

func (s *ServerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App:        config.AppConfig{Debug: true, Environment: "test"},
		Auth:       config.AuthConfig{JWTSecret: "test-secret-key-for-testing-only-32-bytes", JWTExpiration: time.Hour},
		RateLimit:  config.RateLimitConfig{Enable: true, RequestsPerMin: 600, BurstSize: 100},
		Monitoring: config.MonitoringConfig{EnableMetrics: true, MetricsPath: "/metrics", HealthCheckPath: "/health"},
	}
	log := zap.NewNop()
	metrics := monitoring.NewMetricsCollector(prometheus.NewRegistry(), log)
	auth := security.NewAuthService(cfg.Auth, memory.NewCacheRepository(), log)

	s.recipes = &testutils.MockRecipeService{}
	s.catalog = &testutils.MockCatalogService{}

	srv := NewServer(
		cfg,
		log,
		middleware.New(cfg, log, metrics),
		auth,
		healthcheck.New("test", log),
		metrics,
		handlers.NewRecipeHandlers(s.recipes, log),
		handlers.NewCatalogHandlers(s.catalog, metrics, log),
		handlers.NewAuthHandlers(auth, log),
	)
	s.handler = srv.Handler()
}

func (s *ServerTestSuite) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func (s *ServerTestSuite) TestOperationalEndpoints() {
	s.Run("Health_ShouldBeHealthy", func() {
		w := s.get("/health")
		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"status":"healthy"`)
	})

	s.Run("Readiness_ShouldBeReady", func() {
		s.Equal(http.StatusOK, s.get("/health/ready").Code)
	})

	s.Run("Metrics_ShouldExposeHTTPCounters", func() {
		s.get("/health")

		w := s.get("/metrics")

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), "pantry_http_requests_total")
	})
}

func (s *ServerTestSuite) TestRouting() {
	s.Run("UnknownRoute_ShouldReturnJSONNotFound", func() {
		w := s.get("/api/v1/nothing-here")

		s.Equal(http.StatusNotFound, w.Code)
		var resp apperrors.ErrorResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal(apperrors.CodeNotFound, resp.Error.Code)
		s.NotEmpty(w.Header().Get(middleware.RequestIDHeader))
	})

	s.Run("PublicRead_ShouldReachHandler", func() {
		s.recipes.On("GetRecipe", mock.Anything, "banana-porridge").
			Return(&inbound.RecipeDTO{Slug: "banana-porridge"}, nil).Once()

		w := s.get("/api/v1/recipes/banana-porridge")

		s.Equal(http.StatusOK, w.Code)
		s.recipes.AssertExpectations(s.T())
	})

	s.Run("BarcodeRoute_ShouldNotBeShadowedByID", func() {
		s.catalog.On("ResolveByBarcode", mock.Anything, "3017620422003").
			Return(&inbound.ProductDTO{ID: 1, Name: "Nutella"}, nil).Once()

		w := s.get("/api/v1/products/barcode/3017620422003")

		s.Equal(http.StatusOK, w.Code)
		s.catalog.AssertExpectations(s.T())
	})

	s.Run("Writes_ShouldRequireToken", func() {
		for _, route := range []struct{ method, path string }{
			{http.MethodPost, "/api/v1/recipes"},
			{http.MethodDelete, "/api/v1/recipes/8c5f3a2e-3f0e-4d6b-9a57-2c9b1f0e4d11"},
			{http.MethodPost, "/api/v1/products"},
			{http.MethodPost, "/api/v1/products/sync"},
			{http.MethodPut, "/api/v1/custom-ingredients/8c5f3a2e-3f0e-4d6b-9a57-2c9b1f0e4d11"},
			{http.MethodPost, "/api/v1/auth/logout"},
		} {
			w := httptest.NewRecorder()
			s.handler.ServeHTTP(w, httptest.NewRequest(route.method, route.path, strings.NewReader(`{}`)))
			s.Equal(http.StatusUnauthorized, w.Code, route.method+" "+route.path)
		}
		s.recipes.AssertNotCalled(s.T(), "CreateRecipe", mock.Anything, mock.Anything)
		s.catalog.AssertNotCalled(s.T(), "SyncProducts", mock.Anything)
	})
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
