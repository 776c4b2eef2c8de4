// Package metrics exposes Prometheus collectors for the HTTP layer, the
// event pipeline, scheduled jobs and reservation business outcomes.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appshared "github.com/roovies/concert-reservation/internal/application/shared"
)

const defaultNamespace = "concert"

// Collector owns a private registry so tests and multiple servers in one
// process do not collide on the default registerer.
type Collector struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	seatHolds   *prometheus.CounterVec
	seatsHeld   prometheus.Counter
	payments    *prometheus.CounterVec
	paidAmount  prometheus.Counter
	pointOps    *prometheus.CounterVec
	admissions  prometheus.Counter
	waitingSize *prometheus.GaugeVec

	eventDispatch *prometheus.CounterVec
	outbox        *prometheus.CounterVec
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
}

// NewCollector registers every collector under namespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = defaultNamespace
	}
	c := &Collector{registry: prometheus.NewRegistry()}

	c.httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "http", Name: "inflight_requests",
		Help: "Current number of in-flight HTTP requests.",
	})
	c.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	c.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
	}, []string{"method", "route"})

	c.seatHolds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "reservation", Name: "seat_hold_requests_total",
		Help: "Seat hold requests by result.",
	}, []string{"result"})
	c.seatsHeld = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "reservation", Name: "seats_held_total",
		Help: "Seats successfully held.",
	})
	c.payments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "payment", Name: "requests_total",
		Help: "Payment requests by result.",
	}, []string{"result"})
	c.paidAmount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "payment", Name: "paid_amount_total",
		Help: "Points paid for confirmed reservations.",
	})
	c.pointOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "point", Name: "operations_total",
		Help: "Point wallet operations by type and result.",
	}, []string{"operation", "result"})
	c.admissions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "waiting", Name: "admissions_total",
		Help: "Users admitted from waiting queues.",
	})
	c.waitingSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "waiting", Name: "queue_length",
		Help: "Users waiting per schedule.",
	}, []string{"schedule_id"})

	c.eventDispatch = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "events", Name: "dispatched_total",
		Help: "Domain events dispatched to handlers by type and outcome.",
	}, []string{"event_type", "success"})
	c.outbox = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "outbox", Name: "entries_total",
		Help: "Outbox entries processed by outcome.",
	}, []string{"outcome"})
	c.jobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "scheduler", Name: "job_runs_total",
		Help: "Scheduled job runs by job and outcome.",
	}, []string{"job", "success"})
	c.jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "scheduler", Name: "job_run_duration_seconds",
		Help:    "Scheduled job duration.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"job"})

	c.registry.MustRegister(
		c.httpInFlight, c.httpRequests, c.httpDuration,
		c.seatHolds, c.seatsHeld, c.payments, c.paidAmount,
		c.pointOps, c.admissions, c.waitingSize,
		c.eventDispatch, c.outbox, c.jobRuns, c.jobDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return c
}

// Registry exposes the private registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// TrackInFlight increments the in-flight gauge; call the returned func when
// the request completes.
func (c *Collector) TrackInFlight() func() {
	c.httpInFlight.Inc()
	return c.httpInFlight.Dec
}

// ObserveHTTP records a finished request. route should be the route
// template, never the raw path.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (c *Collector) SeatHold(_ context.Context, result string, seats int) {
	c.seatHolds.WithLabelValues(result).Inc()
	if result == appshared.ResultSuccess && seats > 0 {
		c.seatsHeld.Add(float64(seats))
	}
}

func (c *Collector) Payment(_ context.Context, result string, paidAmount int64) {
	c.payments.WithLabelValues(result).Inc()
	if result == appshared.ResultSuccess && paidAmount > 0 {
		c.paidAmount.Add(float64(paidAmount))
	}
}

func (c *Collector) PointOperation(_ context.Context, operation, result string) {
	c.pointOps.WithLabelValues(operation, result).Inc()
}

func (c *Collector) Admission(_ context.Context, _ uuid.UUID, admitted int) {
	if admitted > 0 {
		c.admissions.Add(float64(admitted))
	}
}

func (c *Collector) WaitingSize(_ context.Context, scheduleID uuid.UUID, size int64) {
	c.waitingSize.WithLabelValues(scheduleID.String()).Set(float64(size))
}

// ObserveDispatch implements event.DispatchObserver.
func (c *Collector) ObserveDispatch(eventType string, err error) {
	c.eventDispatch.WithLabelValues(eventType, strconv.FormatBool(err == nil)).Inc()
}

// ObserveOutbox implements event.OutboxObserver.
func (c *Collector) ObserveOutbox(outcome string) {
	c.outbox.WithLabelValues(outcome).Inc()
}

// ObserveJob implements scheduler.RunObserver.
func (c *Collector) ObserveJob(name string, elapsed time.Duration, err error) {
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	c.jobRuns.WithLabelValues(name, strconv.FormatBool(err == nil)).Inc()
	c.jobDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

var _ appshared.Metrics = (*Collector)(nil)
