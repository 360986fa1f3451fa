// Package healthcheck unit tests
package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm/logger"

	"github.com/alchemorsel/pantry/internal/infrastructure/persistence/sqlite"
)

type stubChecker struct {
	status  Status
	message string
	calls   int
}

func (s *stubChecker) Check(context.Context) Check {
	s.calls++
	return Check{Status: s.status, Message: s.message, LastChecked: time.Now()}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthCheck_Check_NoCheckers(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())

	response := hc.Check(context.Background())

	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, "1.0.0", response.Version)
	assert.Empty(t, response.Checks)
}

func TestHealthCheck_Check_WorstStatusWins(t *testing.T) {
	tests := []struct {
		name     string
		statuses map[string]Status
		expected Status
	}{
		{"AllHealthy", map[string]Status{"database": StatusHealthy, "redis": StatusHealthy}, StatusHealthy},
		{"OneDegraded", map[string]Status{"database": StatusHealthy, "openfoodfacts": StatusDegraded}, StatusDegraded},
		{"OneUnhealthy", map[string]Status{"database": StatusUnhealthy, "openfoodfacts": StatusDegraded}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New("1.0.0", zap.NewNop())
			for name, status := range tt.statuses {
				hc.Register(name, &stubChecker{status: status})
			}

			response := hc.Check(context.Background())

			assert.Equal(t, tt.expected, response.Status)
			require.Len(t, response.Checks, len(tt.statuses))
			for i := 1; i < len(response.Checks); i++ {
				assert.Less(t, response.Checks[i-1].Name, response.Checks[i].Name)
			}
		})
	}
}

func TestHealthCheck_Check_ShouldCacheWithinTTL(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	checker := &stubChecker{status: StatusHealthy}
	hc.Register("database", checker)

	hc.Check(context.Background())
	hc.Check(context.Background())
	assert.Equal(t, 1, checker.calls)

	hc.SetCacheTTL(0)
	hc.Check(context.Background())
	assert.Equal(t, 2, checker.calls)
}

func TestHealthCheck_Register_ShouldDropCachedResult(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	hc.Register("database", &stubChecker{status: StatusHealthy})
	assert.Equal(t, StatusHealthy, hc.Check(context.Background()).Status)

	hc.Register("redis", &stubChecker{status: StatusUnhealthy, message: "connection refused"})

	response := hc.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, response.Status)
	require.Len(t, response.Checks, 2)
	assert.Equal(t, "redis", response.Checks[1].Name)
	assert.Equal(t, "connection refused", response.Checks[1].Message)
}

func TestHealthCheck_Check_ShouldLogStatusChangesOnce(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	hc := New("1.0.0", zap.New(core))
	hc.SetCacheTTL(0)
	upstream := &stubChecker{status: StatusDegraded}
	hc.Register("openfoodfacts", upstream)

	hc.Check(context.Background())
	hc.Check(context.Background())
	upstream.status = StatusHealthy
	hc.Check(context.Background())

	changes := logs.FilterMessage("health status changed").All()
	require.Len(t, changes, 2)
	assert.Equal(t, zapcore.WarnLevel, changes[0].Level)
	assert.Equal(t, "degraded", changes[0].ContextMap()["to"])
	assert.Equal(t, zapcore.InfoLevel, changes[1].Level)
	assert.Equal(t, "healthy", changes[1].ContextMap()["to"])
}

func TestHealthCheck_ReadinessHandler_ShouldNameFailingComponents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hc := New("1.0.0", zap.NewNop())
	hc.Register("database", &stubChecker{status: StatusUnhealthy})
	hc.Register("openfoodfacts", &stubChecker{status: StatusDegraded})
	router := gin.New()
	router.GET("/health/ready", hc.ReadinessHandler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Status  string   `json:"status"`
		Failing []string `json:"failing"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, []string{"database", "openfoodfacts"}, body.Failing)
}

func TestHealthCheck_Handler_ShouldReportDurationsInMillis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hc := New("1.0.0", zap.NewNop())
	hc.Register("database", &stubChecker{status: StatusHealthy})
	router := gin.New()
	router.GET("/health", hc.Handler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body struct {
		TotalDuration float64 `json:"total_duration_ms"`
		Checks        []struct {
			Name     string  `json:"name"`
			Duration float64 `json:"duration_ms"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Checks, 1)
	assert.Equal(t, "database", body.Checks[0].Name)
	assert.GreaterOrEqual(t, body.TotalDuration, 0.0)
}

func TestElapsed_MarshalJSON(t *testing.T) {
	raw, err := json.Marshal(Elapsed(1500 * time.Microsecond))

	require.NoError(t, err)
	assert.Equal(t, "1.5", string(raw))
}

func TestHealthCheck_Handlers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name            string
		status          Status
		healthCode      int
		readinessCode   int
		readinessStatus string
	}{
		{"Healthy", StatusHealthy, http.StatusOK, http.StatusOK, "ready"},
		{"Degraded", StatusDegraded, http.StatusOK, http.StatusOK, "ready"},
		{"Unhealthy", StatusUnhealthy, http.StatusServiceUnavailable, http.StatusServiceUnavailable, "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New("1.0.0", zap.NewNop())
			hc.Register("database", &stubChecker{status: tt.status})
			router := gin.New()
			router.GET("/health", hc.Handler())
			router.GET("/health/live", hc.LivenessHandler())
			router.GET("/health/ready", hc.ReadinessHandler())

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.healthCode, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, string(tt.status), body["status"])

			w = httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			assert.Equal(t, tt.readinessCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.readinessStatus)

			w = httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestDatabaseChecker(t *testing.T) {
	db, err := sqlite.SetupDatabase(":memory:", logger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	check := NewDatabaseChecker(sqlDB).Check(context.Background())
	assert.Equal(t, StatusHealthy, check.Status)
	assert.NotNil(t, check.Metadata)

	require.NoError(t, sqlDB.Close())
	check = NewDatabaseChecker(sqlDB).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, check.Status)
	assert.NotEmpty(t, check.Message)
}

func TestExternalServiceChecker(t *testing.T) {
	up := NewExternalServiceChecker("openfoodfacts", stubPinger{}).Check(context.Background())
	assert.Equal(t, StatusHealthy, up.Status)
	assert.Equal(t, "openfoodfacts", up.Name)

	down := NewExternalServiceChecker("openfoodfacts", stubPinger{err: errors.New("dial tcp: timeout")}).Check(context.Background())
	assert.Equal(t, StatusDegraded, down.Status)
	assert.Equal(t, "dial tcp: timeout", down.Message)
}
