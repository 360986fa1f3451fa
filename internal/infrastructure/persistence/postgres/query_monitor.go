package postgres

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const startedAtKey = "query_monitor:started_at"

// QueryObserver receives one call per finished statement.
type QueryObserver func(operation string, duration time.Duration, err error)

// QueryMonitor counts statements and logs the slow ones via gorm callbacks.
type QueryMonitor struct {
	logger        *zap.Logger
	slowThreshold time.Duration

	mu       sync.RWMutex
	stats    QueryStats
	observer QueryObserver
}

// QueryStats holds aggregated query statistics
type QueryStats struct {
	TotalQueries   int64         `json:"total_queries"`
	SlowQueries    int64         `json:"slow_queries"`
	FailedQueries  int64         `json:"failed_queries"`
	TotalQueryTime time.Duration `json:"total_query_time"`
}

// NewQueryMonitor creates a new query monitor
func NewQueryMonitor(logger *zap.Logger, slowThreshold time.Duration) *QueryMonitor {
	return &QueryMonitor{logger: logger, slowThreshold: slowThreshold}
}

// SetObserver forwards every finished statement to fn, e.g. a histogram.
func (qm *QueryMonitor) SetObserver(fn QueryObserver) {
	qm.mu.Lock()
	qm.observer = fn
	qm.mu.Unlock()
}

// Install registers before/after callbacks for queries, raw statements and writes.
func (qm *QueryMonitor) Install(db *gorm.DB) error {
	cb := db.Callback()
	errs := []error{
		cb.Query().Before("gorm:query").Register("monitor:before_query", qm.before),
		cb.Query().After("gorm:query").Register("monitor:after_query", qm.afterFn("query")),
		cb.Raw().Before("gorm:raw").Register("monitor:before_raw", qm.before),
		cb.Raw().After("gorm:raw").Register("monitor:after_raw", qm.afterFn("raw")),
		cb.Create().Before("gorm:create").Register("monitor:before_create", qm.before),
		cb.Create().After("gorm:create").Register("monitor:after_create", qm.afterFn("create")),
		cb.Update().Before("gorm:update").Register("monitor:before_update", qm.before),
		cb.Update().After("gorm:update").Register("monitor:after_update", qm.afterFn("update")),
		cb.Delete().Before("gorm:delete").Register("monitor:before_delete", qm.before),
		cb.Delete().After("gorm:delete").Register("monitor:after_delete", qm.afterFn("delete")),
	}
	return errors.Join(errs...)
}

func (qm *QueryMonitor) afterFn(op string) func(*gorm.DB) {
	return func(tx *gorm.DB) { qm.after(op, tx) }
}

func (qm *QueryMonitor) before(tx *gorm.DB) {
	tx.InstanceSet(startedAtKey, time.Now())
}

func (qm *QueryMonitor) after(op string, tx *gorm.DB) {
	v, ok := tx.InstanceGet(startedAtKey)
	if !ok {
		return
	}
	started, ok := v.(time.Time)
	if !ok {
		return
	}
	duration := time.Since(started)
	err := tx.Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = nil
	}

	qm.mu.Lock()
	qm.stats.TotalQueries++
	qm.stats.TotalQueryTime += duration
	if err != nil {
		qm.stats.FailedQueries++
	}
	slow := qm.slowThreshold > 0 && duration > qm.slowThreshold
	if slow {
		qm.stats.SlowQueries++
	}
	observer := qm.observer
	qm.mu.Unlock()

	if observer != nil {
		observer(op, duration, err)
	}
	if slow {
		qm.logger.Warn("Slow query",
			zap.String("operation", op),
			zap.String("table", tx.Statement.Table),
			zap.Duration("duration", duration),
		)
	}
}

// GetStats returns a copy of the counters.
func (qm *QueryMonitor) GetStats() QueryStats {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.stats
}

// GORMLogWriter implements GORM's Writer interface for query logging
type GORMLogWriter struct {
	logger *zap.Logger
}

// Printf implements the Writer interface
func (w *GORMLogWriter) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	switch {
	case strings.Contains(msg, "SLOW SQL"):
		w.logger.Warn("GORM slow query", zap.String("message", msg))
	case strings.Contains(msg, "Error"), strings.Contains(msg, "ERROR"):
		w.logger.Error("GORM error", zap.String("message", msg))
	default:
		w.logger.Debug("GORM log", zap.String("message", msg))
	}
}
