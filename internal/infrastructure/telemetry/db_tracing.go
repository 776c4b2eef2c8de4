package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls otelgorm instrumentation.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include bind variables; development only
	SlowQueryThresh time.Duration
	DBSystem        string
}

type startTimeKey struct{}

type gormOp struct {
	op        string
	otelAfter string
}

// gormOps lists the callback processors instrumented for timing, with the
// name otelgorm gives its span-ending hook on each.
var gormOps = []gormOp{
	{"create", "otel:after:create"},
	{"query", "otel:after:select"},
	{"update", "otel:after:update"},
	{"delete", "otel:after:delete"},
	{"row", "otel:after:row"},
	{"raw", "otel:after:raw"},
}

// RegisterDBTracing installs the otelgorm plugin plus a callback that tags
// slow statements and failed queries on the active span.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}

	// Timing callbacks go in first and are pinned ahead of otelgorm's
	// after hooks, which end the span.
	for _, op := range gormOps {
		if err := registerAround(db, op, "otel_timing", markStart, slowQueryCallback(cfg.SlowQueryThresh)); err != nil {
			return err
		}
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	logger.Info("Database tracing enabled",
		zap.Bool("full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

// registerAround adds before and after callbacks for one gorm processor. The
// after callback is ordered ahead of otelgorm's, while the span still records.
func registerAround(db *gorm.DB, o gormOp, name string, before, after func(*gorm.DB)) error {
	cb := db.Callback()
	beforeName, afterName := name+":before_"+o.op, name+":after_"+o.op
	switch o.op {
	case "create":
		if err := cb.Create().Before("gorm:create").Register(beforeName, before); err != nil {
			return err
		}
		return cb.Create().After("gorm:create").Before(o.otelAfter).Register(afterName, after)
	case "query":
		if err := cb.Query().Before("gorm:query").Register(beforeName, before); err != nil {
			return err
		}
		return cb.Query().After("gorm:query").Before(o.otelAfter).Register(afterName, after)
	case "update":
		if err := cb.Update().Before("gorm:update").Register(beforeName, before); err != nil {
			return err
		}
		return cb.Update().After("gorm:update").Before(o.otelAfter).Register(afterName, after)
	case "delete":
		if err := cb.Delete().Before("gorm:delete").Register(beforeName, before); err != nil {
			return err
		}
		return cb.Delete().After("gorm:delete").Before(o.otelAfter).Register(afterName, after)
	case "row":
		if err := cb.Row().Before("gorm:row").Register(beforeName, before); err != nil {
			return err
		}
		return cb.Row().After("gorm:row").Before(o.otelAfter).Register(afterName, after)
	case "raw":
		if err := cb.Raw().Before("gorm:raw").Register(beforeName, before); err != nil {
			return err
		}
		return cb.Raw().After("gorm:raw").Before(o.otelAfter).Register(afterName, after)
	}
	return nil
}

func markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, startTimeKey{}, time.Now())
	}
}

func queryElapsed(db *gorm.DB) (time.Duration, bool) {
	if db.Statement.Context == nil {
		return 0, false
	}
	start, ok := db.Statement.Context.Value(startTimeKey{}).(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}

func slowQueryCallback(threshold time.Duration) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement.Context == nil {
			return
		}
		span := trace.SpanFromContext(db.Statement.Context)
		if !span.IsRecording() {
			return
		}
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.RecordError(db.Error)
			span.SetStatus(codes.Error, db.Error.Error())
		}
		if elapsed, ok := queryElapsed(db); ok && elapsed > threshold {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
