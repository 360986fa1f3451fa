// Package healthcheck reports whether the pantry's stores and upstream
// sources are reachable. Open Food Facts is optional and can only degrade
// the overall status.
package healthcheck

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status is the state of one component or of the whole service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity orders statuses so the worst one wins a rollup.
var severity = map[Status]int{
	StatusHealthy:   0,
	StatusDegraded:  1,
	StatusUnhealthy: 2,
}

func worse(a, b Status) Status {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// Elapsed renders as fractional milliseconds in JSON.
type Elapsed time.Duration

func (e Elapsed) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(time.Duration(e).Microseconds()) / 1000)
}

// Check is the outcome of one component check.
type Check struct {
	Name        string      `json:"name"`
	Status      Status      `json:"status"`
	Message     string      `json:"message,omitempty"`
	LastChecked time.Time   `json:"last_checked"`
	Duration    Elapsed     `json:"duration_ms"`
	Metadata    interface{} `json:"metadata,omitempty"`
}

// Response is the body of the full health endpoint.
type Response struct {
	Status        Status    `json:"status"`
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	Checks        []Check   `json:"checks"`
	TotalDuration Elapsed   `json:"total_duration_ms"`
}

// failing lists the components that are not healthy.
func (r Response) failing() []string {
	var names []string
	for _, c := range r.Checks {
		if c.Status != StatusHealthy {
			names = append(names, c.Name)
		}
	}
	return names
}

// Checker inspects a single component.
type Checker interface {
	Check(ctx context.Context) Check
}

const (
	defaultCacheTTL     = 5 * time.Second
	defaultCheckTimeout = 10 * time.Second
)

// HealthCheck runs the registered checkers concurrently and caches the
// rolled-up result for a short TTL so load balancers polling the endpoint
// do not hammer the database.
type HealthCheck struct {
	version string
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.RWMutex
	checkers map[string]Checker
	cacheTTL time.Duration
	cached   *Response
	expires  time.Time
	last     Status
}

func New(version string, logger *zap.Logger) *HealthCheck {
	return &HealthCheck{
		version:  version,
		logger:   logger,
		timeout:  defaultCheckTimeout,
		checkers: make(map[string]Checker),
		cacheTTL: defaultCacheTTL,
		last:     StatusHealthy,
	}
}

// Register adds or replaces the checker for name.
func (h *HealthCheck) Register(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
	h.cached = nil
}

// SetCacheTTL changes how long a result is reused. Zero disables caching.
func (h *HealthCheck) SetCacheTTL(ttl time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cacheTTL = ttl
	h.cached = nil
}

// Check returns the cached result when fresh, otherwise runs every checker.
func (h *HealthCheck) Check(ctx context.Context) Response {
	h.mu.RLock()
	if h.cached != nil && time.Now().Before(h.expires) {
		resp := *h.cached
		h.mu.RUnlock()
		return resp
	}
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	checkers := make([]Checker, len(names))
	for i, name := range names {
		checkers[i] = h.checkers[name]
	}
	h.mu.RUnlock()

	resp := h.run(ctx, names, checkers)

	h.mu.Lock()
	defer h.mu.Unlock()
	if resp.Status != h.last {
		log := h.logger.Warn
		if resp.Status == StatusHealthy {
			log = h.logger.Info
		}
		log("health status changed",
			zap.String("from", string(h.last)),
			zap.String("to", string(resp.Status)),
			zap.Strings("failing", resp.failing()),
		)
		h.last = resp.Status
	}
	if h.cacheTTL > 0 {
		h.cached = &resp
		h.expires = resp.Timestamp.Add(h.cacheTTL)
	}
	return resp
}

// run fills one slot per checker so the result order follows names.
func (h *HealthCheck) run(ctx context.Context, names []string, checkers []Checker) Response {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	results := make([]Check, len(checkers))
	var g errgroup.Group
	for i := range checkers {
		i := i
		g.Go(func() error {
			c := checkers[i].Check(ctx)
			c.Name = names[i]
			results[i] = c
			return nil
		})
	}
	_ = g.Wait()

	overall := StatusHealthy
	for _, c := range results {
		overall = worse(overall, c.Status)
	}
	return Response{
		Status:        overall,
		Version:       h.version,
		Timestamp:     start,
		Checks:        results,
		TotalDuration: Elapsed(time.Since(start)),
	}
}

// Handler serves the full report. Only an unhealthy service answers 503.
func (h *HealthCheck) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := h.Check(c.Request.Context())
		code := http.StatusOK
		if resp.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, resp)
	}
}

// LivenessHandler answers as long as the process can serve requests.
func (h *HealthCheck) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"version":   h.version,
			"timestamp": time.Now(),
		})
	}
}

// ReadinessHandler keeps a degraded service in rotation; searches and
// recipe math still work when only Open Food Facts is down.
func (h *HealthCheck) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := h.Check(c.Request.Context())
		if resp.Status == StatusUnhealthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"failing": resp.failing(),
				"checks":  resp.Checks,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"degraded":  resp.failing(),
			"timestamp": resp.Timestamp,
		})
	}
}

// measure times fn and stamps the result.
func measure(name string, fn func() Check) Check {
	start := time.Now()
	c := fn()
	c.Name = name
	c.LastChecked = start
	c.Duration = Elapsed(time.Since(start))
	return c
}

// poolSaturation is the in-use share of the pool above which the database
// reports degraded.
const poolSaturation = 0.9

// DatabaseChecker pings the recipe store and reports pool usage.
type DatabaseChecker struct {
	db *sql.DB
}

func NewDatabaseChecker(db *sql.DB) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

func (d *DatabaseChecker) Check(ctx context.Context) Check {
	return measure("database", func() Check {
		if err := d.db.PingContext(ctx); err != nil {
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		}

		stats := d.db.Stats()
		c := Check{
			Status: StatusHealthy,
			Metadata: map[string]interface{}{
				"open_conns": stats.OpenConnections,
				"in_use":     stats.InUse,
				"idle":       stats.Idle,
				"max_conns":  stats.MaxOpenConnections,
				"wait_count": stats.WaitCount,
			},
		}
		if stats.MaxOpenConnections > 0 &&
			float64(stats.InUse) > poolSaturation*float64(stats.MaxOpenConnections) {
			c.Status = StatusDegraded
			c.Message = "connection pool nearly exhausted"
		}
		return c
	})
}

// RedisChecker pings the cache that also holds revoked tokens.
type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

func (r *RedisChecker) Check(ctx context.Context) Check {
	return measure("redis", func() Check {
		pong, err := r.client.Ping(ctx).Result()
		switch {
		case err != nil:
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		case pong != "PONG":
			return Check{Status: StatusUnhealthy, Message: "unexpected ping reply " + pong}
		}

		stats := r.client.PoolStats()
		return Check{
			Status: StatusHealthy,
			Metadata: map[string]interface{}{
				"total_conns": stats.TotalConns,
				"idle_conns":  stats.IdleConns,
				"timeouts":    stats.Timeouts,
			},
		}
	})
}

// Pinger reports reachability, as the Open Food Facts client does.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ExternalServiceChecker covers an upstream food source. Lookups already
// degrade to null results when it is down, so it never fails the service.
type ExternalServiceChecker struct {
	name   string
	pinger Pinger
}

func NewExternalServiceChecker(name string, pinger Pinger) *ExternalServiceChecker {
	return &ExternalServiceChecker{name: name, pinger: pinger}
}

func (e *ExternalServiceChecker) Check(ctx context.Context) Check {
	return measure(e.name, func() Check {
		if err := e.pinger.Ping(ctx); err != nil {
			return Check{Status: StatusDegraded, Message: err.Error()}
		}
		return Check{Status: StatusHealthy}
	})
}
