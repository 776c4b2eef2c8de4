package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig controls query and pool metrics.
type DBMetricsConfig struct {
	SlowQueryThreshold time.Duration
	PoolStatsInterval  time.Duration
}

// DBMetrics records query latency and connection pool usage.
type DBMetrics struct {
	queries       *Counter
	slowQueries   *Counter
	queryDuration *Histogram
	poolConns     *Gauge
	poolMax       *Gauge

	config DBMetricsConfig
	logger *zap.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewDBMetrics creates the instruments on meter.
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = 15 * time.Second
	}

	m := &DBMetrics{config: cfg, logger: logger.Named("db-metrics"), stopCh: make(chan struct{})}
	var err error
	if m.queries, err = NewCounter(meter, "db.queries", "Database statements by operation and table", "{query}"); err != nil {
		return nil, err
	}
	if m.slowQueries, err = NewCounter(meter, "db.slow_queries", "Statements slower than the configured threshold", "{query}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, "db.query.duration", "Statement latency", "s", DBDurationBuckets); err != nil {
		return nil, err
	}
	if m.poolConns, err = NewGauge(meter, "db.pool.connections", "Pool connections by state", "{connection}"); err != nil {
		return nil, err
	}
	if m.poolMax, err = NewGauge(meter, "db.pool.connections.max", "Maximum open connections", "{connection}"); err != nil {
		return nil, err
	}
	return m, nil
}

// Instrument registers gorm callbacks that time every statement.
func (m *DBMetrics) Instrument(db *gorm.DB) error {
	for _, op := range gormOps {
		if err := registerAround(db, op, "db_metrics", markStart, func(tx *gorm.DB) {
			m.observe(tx, op.op)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (m *DBMetrics) observe(db *gorm.DB, op string) {
	elapsed, ok := queryElapsed(db)
	if !ok {
		return
	}
	ctx := db.Statement.Context
	if op == "raw" || op == "row" {
		op = statementKind(db.Statement.SQL.String())
	}
	m.RecordQuery(ctx, op, db.Statement.Table, elapsed, db.Error)
}

// RecordQuery records one statement.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, elapsed time.Duration, err error) {
	if table == "" {
		table = "unknown"
	}
	result := "ok"
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		result = "error"
	}
	attrs := []attribute.KeyValue{
		AttrDBOperation.String(operation),
		AttrDBTable.String(table),
		AttrResult.String(result),
	}
	m.queries.Inc(ctx, attrs...)
	m.queryDuration.RecordDuration(ctx, elapsed, attrs[:2]...)
	if elapsed > m.config.SlowQueryThreshold {
		m.slowQueries.Inc(ctx, attrs[:2]...)
	}
}

// StartPoolStats samples sqlDB.Stats until ctx is done or Stop is called.
func (m *DBMetrics) StartPoolStats(ctx context.Context, sqlDB *sql.DB) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.config.PoolStatsInterval)
		defer ticker.Stop()
		m.samplePool(ctx, sqlDB)
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.samplePool(ctx, sqlDB)
			}
		}
	}()
}

func (m *DBMetrics) samplePool(ctx context.Context, sqlDB *sql.DB) {
	stats := sqlDB.Stats()
	m.poolConns.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolConns.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolConns.Record(ctx, int64(stats.WaitCount), AttrDBState.String("wait"))
	m.poolMax.Record(ctx, int64(stats.MaxOpenConnections))
}

// Stop ends pool sampling. Safe to call more than once.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

func statementKind(stmt string) string {
	fields := strings.Fields(stmt)
	if len(fields) == 0 {
		return "raw"
	}
	switch kw := strings.ToLower(fields[0]); kw {
	case "select", "insert", "update", "delete":
		return kw
	case "with":
		return "select"
	default:
		return "raw"
	}
}
