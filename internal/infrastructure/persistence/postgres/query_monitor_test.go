package postgres

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	gormModels "github.com/alchemorsel/pantry/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/pantry/test/testutils"
)

func TestQueryMonitor_CountsStatements(t *testing.T) {
	db := testutils.NewSQLiteDB(t)
	monitor := NewQueryMonitor(zap.NewNop(), time.Hour)
	require.NoError(t, monitor.Install(db))

	var observed atomic.Int64
	monitor.SetObserver(func(op string, d time.Duration, err error) {
		observed.Add(1)
	})

	var count int64
	require.NoError(t, db.Model(&gormModels.ProductModel{}).Count(&count).Error)
	require.NoError(t, db.Exec("SELECT 1").Error)

	stats := monitor.GetStats()
	assert.GreaterOrEqual(t, stats.TotalQueries, int64(2))
	assert.Zero(t, stats.SlowQueries)
	assert.Zero(t, stats.FailedQueries)
	assert.Equal(t, stats.TotalQueries, observed.Load())
}

func TestQueryMonitor_RecordsFailures(t *testing.T) {
	db := testutils.NewSQLiteDB(t)
	monitor := NewQueryMonitor(zap.NewNop(), 0)
	require.NoError(t, monitor.Install(db))

	err := db.Exec("SELECT * FROM no_such_table").Error
	require.Error(t, err)

	assert.Equal(t, int64(1), monitor.GetStats().FailedQueries)
}

func TestGORMLogLevel(t *testing.T) {
	assert.Equal(t, logger.Info, GORMLogLevel("debug"))
	assert.Equal(t, logger.Warn, GORMLogLevel("warn"))
	assert.Equal(t, logger.Error, GORMLogLevel("error"))
	assert.Equal(t, logger.Silent, GORMLogLevel(""))
}
