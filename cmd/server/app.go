package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	appconcert "github.com/roovies/concert-reservation/internal/application/concert"
	appevent "github.com/roovies/concert-reservation/internal/application/event"
	identityapp "github.com/roovies/concert-reservation/internal/application/identity"
	apppayment "github.com/roovies/concert-reservation/internal/application/payment"
	apppoint "github.com/roovies/concert-reservation/internal/application/point"
	appranking "github.com/roovies/concert-reservation/internal/application/ranking"
	appreservation "github.com/roovies/concert-reservation/internal/application/reservation"
	appshared "github.com/roovies/concert-reservation/internal/application/shared"
	appvenue "github.com/roovies/concert-reservation/internal/application/venue"
	appwaiting "github.com/roovies/concert-reservation/internal/application/waiting"
	"github.com/roovies/concert-reservation/internal/domain/shared"
	"github.com/roovies/concert-reservation/internal/infrastructure/auth"
	"github.com/roovies/concert-reservation/internal/infrastructure/cache"
	"github.com/roovies/concert-reservation/internal/infrastructure/config"
	"github.com/roovies/concert-reservation/internal/infrastructure/event"
	"github.com/roovies/concert-reservation/internal/infrastructure/lock"
	"github.com/roovies/concert-reservation/internal/infrastructure/persistence"
	"github.com/roovies/concert-reservation/internal/infrastructure/scheduler"
	"github.com/roovies/concert-reservation/internal/interfaces/http/handler"
	"github.com/roovies/concert-reservation/internal/interfaces/http/middleware"
	"github.com/roovies/concert-reservation/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// app owns the wired services and the background workers around them.
type app struct {
	handlers router.Handlers
	guards   router.Guards

	waiting   *appwaiting.Service
	bus       *event.InMemoryEventBus
	outbox    *event.OutboxProcessor
	notifier  *cache.RedisWaitingNotifier
	expiry    *cache.AdmissionExpiryListener
	scheduler *scheduler.Scheduler

	rdb *redis.Client
	log *zap.Logger
	wg  sync.WaitGroup
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, db *persistence.Database, rdb *redis.Client, obs *observability) (*app, error) {
	bizMetrics := obs.businessMetrics()

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	concertRepo := persistence.NewGormConcertRepository(db.DB)
	scheduleRepo := persistence.NewGormScheduleRepository(db.DB)
	venueRepo := persistence.NewGormVenueRepository(db.DB)
	reservationRepo := persistence.NewGormReservationRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	paymentIdemRepo := persistence.NewGormPaymentIdempotencyRepository(db.DB)
	pointRepo := persistence.NewGormPointRepository(db.DB)
	paymentCounts := persistence.NewGormPaymentCountQuery(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Events written with the state change, dispatched by the outbox processor
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	scope := persistence.NewGormTransactionScope(db.DB, event.NewOutboxPublisher(serializer, cfg.Event.MaxRetries))

	// Identity
	jwtService := auth.NewJWTService(cfg.JWT)
	blacklist := auth.NewRedisTokenBlacklist(rdb)
	refreshStore, err := auth.NewRefreshTokenStore(ctx, rdb, !cfg.IsProduction(), log)
	if err != nil {
		return nil, err
	}
	authService := identityapp.NewAuthService(userRepo, jwtService, refreshStore, blacklist, log)
	userService := identityapp.NewUserService(userRepo, authService, log)

	// Catalog
	venueService := appvenue.NewService(venueRepo, log)
	concertService := appconcert.NewService(concertRepo, venueRepo, log)

	// Reservation, payment and points
	retry := appshared.RetryPolicy{Attempts: cfg.Point.RetryAttempts, Backoff: cfg.Point.RetryBackoff}
	reservationService := appreservation.NewService(
		cache.NewRedisHoldStore(rdb),
		cache.NewRedisHoldIdempotencyStore(rdb, cfg.Reservation.IdempotencyTTL),
		lock.NewRedisLocker(rdb),
		scope,
		reservationRepo,
		scheduleRepo,
		venueRepo,
		appreservation.Config{
			HoldTTL:   cfg.Reservation.HoldTTL,
			LockWait:  cfg.Reservation.LockWait,
			LockLease: cfg.Reservation.LockLease,
		},
		bizMetrics,
		log,
	)
	pointService := apppoint.NewService(scope, pointRepo, retry, bizMetrics, log)
	paymentService := apppayment.NewService(scope, paymentRepo, paymentIdemRepo, reservationService, venueService, retry, bizMetrics, log)

	// Rankings
	board := cache.NewRedisRankingBoard(rdb, cfg.Ranking.RealtimeTTL)
	rankingService := appranking.NewService(board, paymentCounts, scheduleRepo, concertRepo,
		appranking.Config{TopN: cfg.Ranking.TopN, WeeklyDays: cfg.Ranking.WeeklyDays}, log)

	// Waiting room
	notifier := cache.NewRedisWaitingNotifier(rdb, log)
	waitingService := appwaiting.NewService(
		cache.NewRedisWaitingStore(rdb, cfg.Waiting.MaxPermits, cfg.Waiting.AdmitLease),
		notifier,
		jwtService,
		appwaiting.Config{AdmissionTTL: cfg.Waiting.AdmissionTTL, SSETimeout: cfg.Waiting.SSETimeout},
		bizMetrics,
		log,
	)

	a := &app{
		waiting:  waitingService,
		notifier: notifier,
		expiry:   cache.NewAdmissionExpiryListener(rdb, log),
		rdb:      rdb,
		log:      log,
	}

	// Event bus with idempotent subscribers
	var busOpts []event.BusOption
	if obs.collector != nil {
		busOpts = append(busOpts, event.WithDispatchObserver(obs.collector))
	}
	a.bus = event.NewInMemoryEventBus(log, busOpts...)

	idemStore, err := cache.NewIdempotencyStore(ctx, rdb, !cfg.IsProduction(), log)
	if err != nil {
		return nil, err
	}
	idemCfg := shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true}
	subscribers := []struct {
		name    string
		handler shared.EventHandler
	}{
		{"point-reward", apppoint.NewRewardHandler(scope, retry, bizMetrics, log)},
		{"ranking-realtime", appranking.NewRealtimeHandler(board, log)},
		{"payment-compensation", apppayment.NewCompensationHandler(paymentService, log)},
	}
	for _, s := range subscribers {
		a.bus.Subscribe(event.NewIdempotentHandler(s.name, s.handler, idemStore, idemCfg, log))
	}

	if cfg.Event.ProcessorEnabled {
		var outboxObserver event.OutboxObserver
		if obs.collector != nil {
			outboxObserver = obs.collector
		}
		a.outbox = event.NewOutboxProcessor(outboxRepo, a.bus, serializer, event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupRetention: cfg.Event.CleanupRetention,
		}, log, outboxObserver)
	}

	// Background jobs
	if cfg.Scheduler.Enabled {
		var opts []scheduler.Option
		if cfg.Scheduler.SingleInstanceLock {
			opts = append(opts, scheduler.WithLocker(lock.NewRedisLocker(rdb)))
		}
		if obs.collector != nil {
			opts = append(opts, scheduler.WithObserver(obs.collector))
		}
		a.scheduler = scheduler.New(scheduler.Config{DefaultTimeout: cfg.Scheduler.JobTimeout}, log, opts...)
		targets := jobTargets{ranking: rankingService, waiting: waitingService}
		if a.outbox != nil {
			targets.outbox = a.outbox
		}
		if err := registerJobs(a.scheduler, cfg, targets); err != nil {
			return nil, fmt.Errorf("register jobs: %w", err)
		}
	}

	// HTTP
	jwtGuard := middleware.JWTAuth(middleware.JWTMiddlewareConfig{
		Validator: jwtService,
		Blacklist: blacklist,
		Logger:    log,
	})
	a.guards = router.Guards{
		Auth:      jwtGuard,
		AuthLimit: router.AuthRateLimit(cfg.HTTP),
	}
	if cfg.Reservation.RequireAdmission {
		a.guards.Admission = middleware.RequireAdmission(waitingService)
	}

	a.handlers = router.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		User:        handler.NewUserHandler(userService),
		Concert:     handler.NewConcertHandler(concertService),
		Reservation: handler.NewReservationHandler(reservationService),
		Point:       handler.NewPointHandler(pointService),
		Payment:     handler.NewPaymentHandler(paymentService),
		Waiting:     handler.NewWaitingHandler(waitingService),
		Ranking:     handler.NewRankingHandler(rankingService),
		Outbox:      handler.NewOutboxHandler(appevent.NewOutboxService(outboxRepo, log)),
		System: handler.NewSystemHandler(cfg.App.Name, version, map[string]handler.HealthCheck{
			"database": db.PingContext,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
	}
	return a, nil
}

// start launches the outbox processor, the waiting-room listeners and the
// scheduler. They run until ctx is cancelled or stop is called.
func (a *app) start(ctx context.Context) error {
	if err := a.bus.Start(ctx); err != nil {
		return err
	}
	if a.outbox != nil {
		if err := a.outbox.Start(ctx); err != nil {
			return err
		}
	}

	a.wg.Go(func() {
		if err := a.notifier.Subscribe(ctx, a.waiting); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("Waiting notifier stopped", zap.Error(err))
		}
	})

	enableExpiryEvents(ctx, a.rdb, a.log)
	a.wg.Go(func() {
		if err := a.expiry.Run(ctx, a.waiting.OnAdmissionExpired); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("Admission expiry listener stopped", zap.Error(err))
		}
	})

	if a.scheduler != nil {
		a.scheduler.Start()
		a.wg.Go(func() {
			if err := a.scheduler.RunNow(ctx, jobWeeklyRanking); err != nil {
				a.log.Warn("Initial weekly ranking build failed", zap.Error(err))
			}
		})
	}
	return nil
}

// stop halts every worker started by start, bounded by ctx.
func (a *app) stop(ctx context.Context) error {
	var errs []error
	if a.scheduler != nil {
		errs = append(errs, a.scheduler.Stop(ctx))
	}
	if a.outbox != nil {
		errs = append(errs, a.outbox.Stop(ctx))
	}
	errs = append(errs, a.bus.Stop(ctx), a.notifier.Close())

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}

// enableExpiryEvents turns on keyspace expiry events. Without them an admission
// that expires before Exit keeps its semaphore permit, so the warning says so.
func enableExpiryEvents(ctx context.Context, rdb *redis.Client, log *zap.Logger) bool {
	if err := cache.EnableExpiryNotifications(ctx, rdb); err != nil {
		log.Warn("Could not enable keyspace expiry events; permits of expired admissions will not be returned",
			zap.Error(err))
		return false
	}
	return true
}
