// Package scheduler runs named periodic jobs on cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/roovies/concert-reservation/internal/infrastructure/lock"
)

// JobFunc is the body of a job. It must honor ctx cancellation.
type JobFunc func(ctx context.Context) error

// Job describes one scheduled task.
type Job struct {
	Name string
	// Spec is a 5-field cron expression or a descriptor such as "@every 5s".
	Spec    string
	Timeout time.Duration
	// Distributed guards each tick with a Redis lock so one instance runs it.
	Distributed bool
	Run         JobFunc
}

// JobState is the outcome of the most recent tick.
type JobState string

const (
	JobStateIdle    JobState = "IDLE"
	JobStateRunning JobState = "RUNNING"
	JobStateSuccess JobState = "SUCCESS"
	JobStateFailed  JobState = "FAILED"
	JobStateSkipped JobState = "SKIPPED"
)

// JobStatus is a snapshot of a job's bookkeeping.
type JobStatus struct {
	Name      string        `json:"name"`
	Spec      string        `json:"spec"`
	State     JobState      `json:"state"`
	Runs      int64         `json:"runs"`
	Failures  int64         `json:"failures"`
	Skipped   int64         `json:"skipped"`
	LastStart time.Time     `json:"last_start,omitzero"`
	LastEnd   time.Time     `json:"last_end,omitzero"`
	LastError string        `json:"last_error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Next      time.Time     `json:"next,omitzero"`
}

// RunObserver receives one call per executed tick.
type RunObserver interface {
	ObserveJob(name string, elapsed time.Duration, err error)
}

// Locker hands out single-attempt distributed locks.
type Locker interface {
	TryAcquire(ctx context.Context, key string, lease time.Duration) (*lock.Lock, bool, error)
}

// Config holds scheduler-wide defaults.
type Config struct {
	DefaultTimeout time.Duration
	LockPrefix     string
}

type entry struct {
	job     Job
	id      cron.EntryID
	mu      sync.Mutex
	running bool
	status  JobStatus
}

// Scheduler wraps a UTC cron runner with per-job timeout, single-flight
// execution and status tracking.
type Scheduler struct {
	cron     *cron.Cron
	config   Config
	locker   Locker
	observer RunObserver
	logger   *zap.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocker enables Distributed jobs.
func WithLocker(l Locker) Option { return func(s *Scheduler) { s.locker = l } }

// WithObserver reports job runs, e.g. to Prometheus.
func WithObserver(o RunObserver) Option { return func(s *Scheduler) { s.observer = o } }

// New creates a stopped scheduler.
func New(config Config, logger *zap.Logger, opts ...Option) *Scheduler {
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = time.Minute
	}
	if config.LockPrefix == "" {
		config.LockPrefix = "lock:job:"
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		config:  config,
		logger:  logger.Named("scheduler"),
		entries: make(map[string]*entry),
	}
	s.baseCtx, s.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds job. Jobs may be registered before or after Start.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Spec == "" || job.Run == nil {
		return fmt.Errorf("%w: %q", ErrInvalidConfig, job.Name)
	}
	if job.Timeout <= 0 {
		job.Timeout = s.config.DefaultTimeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}

	e := &entry{job: job, status: JobStatus{Name: job.Name, Spec: job.Spec, State: JobStateIdle}}
	id, err := s.cron.AddFunc(job.Spec, func() { s.tick(e) })
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, job.Name, err)
	}
	e.id = id
	s.entries[job.Name] = e
	return nil
}

// Start begins firing jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.entries)))
}

// Stop halts the cron loop, cancels running jobs and waits for them.
func (s *Scheduler) Stop(ctx context.Context) error {
	cronDone := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !e.begin() {
		return ErrAlreadyRunning
	}
	return s.execute(ctx, e)
}

// Status returns a snapshot of every job, sorted by name.
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobStatus, 0, len(s.entries))
	for _, e := range s.entries {
		e.mu.Lock()
		st := e.status
		e.mu.Unlock()
		st.Next = s.cron.Entry(e.id).Next
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e *entry) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.status.Skipped++
		e.status.State = JobStateSkipped
		return false
	}
	e.running = true
	e.status.State = JobStateRunning
	e.status.LastStart = time.Now().UTC()
	return true
}

func (s *Scheduler) tick(e *entry) {
	if !e.begin() {
		s.logger.Debug("Previous run still active, skipping", zap.String("job", e.job.Name))
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()
	_ = s.execute(s.baseCtx, e)
}

func (s *Scheduler) execute(parent context.Context, e *entry) (err error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, e.job.Timeout)
	defer cancel()

	skipped := false
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", e.job.Name, r)
			s.logger.Error("Job panicked", zap.String("job", e.job.Name), zap.Any("panic", r), zap.Stack("stacktrace"))
		}
		s.finish(e, start, err, skipped)
	}()

	if e.job.Distributed && s.locker != nil {
		l, ok, lerr := s.locker.TryAcquire(ctx, s.config.LockPrefix+e.job.Name, e.job.Timeout)
		if lerr != nil {
			return lerr
		}
		if !ok {
			skipped = true
			return nil
		}
		defer func() { _ = l.Release(context.WithoutCancel(ctx)) }()
	}

	return e.job.Run(ctx)
}

func (s *Scheduler) finish(e *entry, start time.Time, err error, skipped bool) {
	elapsed := time.Since(start)

	e.mu.Lock()
	e.running = false
	e.status.LastEnd = time.Now().UTC()
	e.status.Duration = elapsed
	switch {
	case skipped:
		e.status.Skipped++
		e.status.State = JobStateSkipped
	case err != nil:
		e.status.Runs++
		e.status.Failures++
		e.status.State = JobStateFailed
		e.status.LastError = err.Error()
	default:
		e.status.Runs++
		e.status.State = JobStateSuccess
		e.status.LastError = ""
	}
	e.mu.Unlock()

	if skipped {
		return
	}
	if s.observer != nil {
		s.observer.ObserveJob(e.job.Name, elapsed, err)
	}
	if err != nil {
		s.logger.Error("Job failed", zap.String("job", e.job.Name), zap.Duration("elapsed", elapsed), zap.Error(err))
		return
	}
	s.logger.Debug("Job finished", zap.String("job", e.job.Name), zap.Duration("elapsed", elapsed))
}
