package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roovies/concert-reservation/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	attrHTTPMethod = attribute.Key("http.request.method")
	attrHTTPRoute  = attribute.Key("http.route")
	attrHTTPStatus = attribute.Key("http.response.status_code")
)

var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// HTTPObserver receives per-request measurements; *metrics.Collector
// implements it for the Prometheus endpoint.
type HTTPObserver interface {
	TrackInFlight() func()
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// PrometheusMetrics reports every request to obs, labelled by route template
// so path parameters do not create new series. Paths in skip are ignored.
func PrometheusMetrics(obs HTTPObserver, skip ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if matchesPath(c.Request.URL.Path, skip, nil) {
			c.Next()
			return
		}
		done := obs.TrackInFlight()
		start := time.Now()
		c.Next()
		done()
		obs.ObserveHTTP(c.Request.Method, routePattern(c), c.Writer.Status(), time.Since(start))
	}
}

type httpMetrics struct {
	requests *telemetry.Counter
	duration *telemetry.Histogram
	active   metric.Int64UpDownCounter
}

// HTTPMetrics records OpenTelemetry request metrics on meter.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	if meter == nil {
		return nil, telemetry.ErrNilMeter
	}
	m := &httpMetrics{}
	var err error
	if m.requests, err = telemetry.NewCounter(meter, "http.server.requests", "HTTP requests served", "{request}"); err != nil {
		return nil, err
	}
	if m.duration, err = telemetry.NewHistogram(meter, "http.server.request.duration", "HTTP request latency", "s", httpDurationBuckets); err != nil {
		return nil, err
	}
	if m.active, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Requests currently being served"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.active.Add(ctx, 1)
		c.Next()
		m.active.Add(ctx, -1)

		base := []attribute.KeyValue{
			attrHTTPMethod.String(c.Request.Method),
			attrHTTPRoute.String(routePattern(c)),
		}
		m.requests.Inc(ctx, append(base, attrHTTPStatus.Int(c.Writer.Status()))...)
		m.duration.RecordDuration(ctx, time.Since(start), base...)
	}, nil
}

// routePattern is the matched route template, or "unmatched".
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
