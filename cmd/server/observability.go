package main

import (
	"context"
	"errors"

	appshared "github.com/roovies/concert-reservation/internal/application/shared"
	"github.com/roovies/concert-reservation/internal/infrastructure/config"
	"github.com/roovies/concert-reservation/internal/infrastructure/metrics"
	"github.com/roovies/concert-reservation/internal/infrastructure/persistence"
	"github.com/roovies/concert-reservation/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const meterName = "github.com/roovies/concert-reservation"

// observability bundles the OpenTelemetry providers, the Pyroscope profiler
// and the Prometheus collector.
type observability struct {
	tracer   *telemetry.TracerProvider
	meters   *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler

	// collector is nil when the Prometheus endpoint is disabled.
	collector *metrics.Collector
	business  *telemetry.BusinessMetrics
	dbMetrics *telemetry.DBMetrics
}

func setupObservability(ctx context.Context, cfg *config.Config, log *zap.Logger) (*observability, error) {
	tcfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}

	o := &observability{}
	var err error
	if o.tracer, err = telemetry.NewTracerProvider(ctx, tcfg, log); err != nil {
		return nil, err
	}
	if o.meters, err = telemetry.NewMeterProvider(ctx, tcfg, 0, log); err != nil {
		return nil, err
	}
	if o.logs, err = telemetry.NewLoggerProvider(ctx, tcfg, log); err != nil {
		return nil, err
	}
	if o.profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeURL,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log); err != nil {
		return nil, err
	}
	if o.profiler.IsEnabled() {
		o.tracer.EnableSpanProfiles()
	}

	if cfg.Metrics.Enabled {
		o.collector = metrics.NewCollector("")
	}
	if o.meters.IsEnabled() {
		if o.business, err = telemetry.NewBusinessMetrics(o.meter()); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// bridge tees log into the OTLP log pipeline when it is enabled.
func (o *observability) bridge(log *zap.Logger, serviceName string) *zap.Logger {
	return o.logs.Bridge(log, serviceName, zapcore.InfoLevel)
}

// meter is nil when OTLP metrics are off, so the HTTP layer skips them.
func (o *observability) meter() metric.Meter {
	if !o.meters.IsEnabled() {
		return nil
	}
	return o.meters.Meter(meterName)
}

// businessMetrics fans out to every enabled recorder.
func (o *observability) businessMetrics() appshared.Metrics {
	var m appshared.MultiMetrics
	if o.collector != nil {
		m = append(m, o.collector)
	}
	if o.business != nil {
		m = append(m, o.business)
	}
	if len(m) == 0 {
		return appshared.NopMetrics{}
	}
	return m
}

// instrumentDB adds query spans and, with OTLP metrics on, query latency and
// pool statistics to db.
func (o *observability) instrumentDB(ctx context.Context, db *persistence.Database, cfg *config.Config, log *zap.Logger) error {
	if cfg.Telemetry.Enabled {
		if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        "postgresql",
		}, log); err != nil {
			return err
		}
	}
	if !o.meters.IsEnabled() {
		return nil
	}

	dbm, err := telemetry.NewDBMetrics(o.meter(), telemetry.DBMetricsConfig{
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		return err
	}
	if err := dbm.Instrument(db.DB); err != nil {
		return err
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	dbm.StartPoolStats(ctx, sqlDB)
	o.dbMetrics = dbm
	return nil
}

func (o *observability) shutdown(ctx context.Context, log *zap.Logger) {
	if o.dbMetrics != nil {
		o.dbMetrics.Stop()
	}
	err := errors.Join(
		o.tracer.Shutdown(ctx),
		o.meters.Shutdown(ctx),
		o.logs.Shutdown(ctx),
		o.profiler.Stop(),
	)
	if err != nil {
		log.Warn("Telemetry shutdown incomplete", zap.Error(err))
	}
}
