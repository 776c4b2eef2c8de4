package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	appshared "github.com/roovies/concert-reservation/internal/application/shared"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader, mp
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumFor(t *testing.T, data metricdata.Aggregation, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	want := attribute.NewSet(attrs...)
	var total int64
	for _, dp := range sum.DataPoints {
		if len(attrs) == 0 || dp.Attributes.Equals(&want) {
			total += dp.Value
		}
	}
	return total
}

func TestInstrumentConstructorsRejectNilMeter(t *testing.T) {
	_, err := NewCounter(nil, "a", "", "")
	assert.ErrorIs(t, err, ErrNilMeter)
	_, err = NewHistogram(nil, "b", "", "", nil)
	assert.ErrorIs(t, err, ErrNilMeter)
	_, err = NewGauge(nil, "c", "", "")
	assert.ErrorIs(t, err, ErrNilMeter)
	_, err = NewBusinessMetrics(nil)
	assert.ErrorIs(t, err, ErrNilMeter)
}

func TestCounterHistogramGauge(t *testing.T) {
	reader, mp := newTestMeter(t)
	meter := mp.Meter("test")
	ctx := context.Background()

	c, err := NewCounter(meter, "test.count", "", "")
	require.NoError(t, err)
	c.Inc(ctx)
	c.Add(ctx, 4)

	h, err := NewHistogram(meter, "test.latency", "", "s", DBDurationBuckets)
	require.NoError(t, err)
	h.RecordDuration(ctx, 20*time.Millisecond)

	g, err := NewGauge(meter, "test.gauge", "", "")
	require.NoError(t, err)
	g.Record(ctx, 7)
	g.Record(ctx, 3)

	data := collect(t, reader)
	assert.Equal(t, int64(5), sumFor(t, data["test.count"]))

	hist, ok := data["test.latency"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.Equal(t, DBDurationBuckets, hist.DataPoints[0].Bounds)

	gauge, ok := data["test.gauge"].(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Equal(t, int64(3), gauge.DataPoints[0].Value)
}

func TestBusinessMetrics(t *testing.T) {
	reader, mp := newTestMeter(t)
	bm, err := NewBusinessMetrics(mp.Meter("business"))
	require.NoError(t, err)
	ctx := context.Background()
	scheduleID := uuid.New()

	bm.SeatHold(ctx, appshared.ResultSuccess, 3)
	bm.SeatHold(ctx, appshared.ResultUnavailable, 2)
	bm.Payment(ctx, appshared.ResultSuccess, 150000)
	bm.Payment(ctx, appshared.ResultFailed, 90000)
	bm.PointOperation(ctx, "charge", appshared.ResultSuccess)
	bm.Admission(ctx, scheduleID, 0)
	bm.Admission(ctx, scheduleID, 10)
	bm.WaitingSize(ctx, scheduleID, 42)

	data := collect(t, reader)
	assert.Equal(t, int64(1), sumFor(t, data["reservation.seat_hold.requests"], AttrResult.String(appshared.ResultSuccess)))
	assert.Equal(t, int64(1), sumFor(t, data["reservation.seat_hold.requests"], AttrResult.String(appshared.ResultUnavailable)))
	assert.Equal(t, int64(3), sumFor(t, data["reservation.seats.held"]))
	assert.Equal(t, int64(150000), sumFor(t, data["payment.paid_amount"]))
	assert.Equal(t, int64(2), sumFor(t, data["payment.requests"]))
	assert.Equal(t, int64(1), sumFor(t, data["point.operations"],
		AttrOperation.String("charge"), AttrResult.String(appshared.ResultSuccess)))
	assert.Equal(t, int64(10), sumFor(t, data["waiting.admissions"]))

	gauge, ok := data["waiting.queue.length"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(42), gauge.DataPoints[0].Value)
}
