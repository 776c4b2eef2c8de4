package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
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
	"github.com/roovies/concert-reservation/internal/interfaces/http/handler"
	"github.com/roovies/concert-reservation/internal/interfaces/http/middleware"
	"github.com/roovies/concert-reservation/internal/interfaces/http/router"
	"github.com/roovies/concert-reservation/tests/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// stackOptions tunes the parts of the wiring individual tests care about.
type stackOptions struct {
	maxPermits       int
	requireAdmission bool
}

// stack is the API wired the way cmd/server wires it, minus observability
// and the scheduler.
type stack struct {
	db      *TestDB
	engine  *gin.Engine
	client  *testutil.APIClient
	waiting *appwaiting.Service
	ranking *appranking.Service
	outbox  *event.OutboxProcessor
}

func newStack(t *testing.T, opts stackOptions) *stack {
	t.Helper()
	if opts.maxPermits == 0 {
		opts.maxPermits = 100
	}

	tdb := NewTestDB(t)
	rdb := testutil.NewRedisClient(t)
	log := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	userRepo := persistence.NewGormUserRepository(tdb.DB)
	concertRepo := persistence.NewGormConcertRepository(tdb.DB)
	scheduleRepo := persistence.NewGormScheduleRepository(tdb.DB)
	venueRepo := persistence.NewGormVenueRepository(tdb.DB)
	outboxRepo := event.NewGormOutboxRepository(tdb.DB)

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	scope := persistence.NewGormTransactionScope(tdb.DB, event.NewOutboxPublisher(serializer, 3))

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "integration-secret-key-32-chars!!",
		RefreshSecret:          "integration-refresh-key-32-chars!",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "concert-reservation-test",
	})
	blacklist := auth.NewRedisTokenBlacklist(rdb)
	authService := identityapp.NewAuthService(userRepo, jwtService, auth.NewRedisRefreshTokenStore(rdb), blacklist, log)

	metrics := appshared.NopMetrics{}
	retry := appshared.RetryPolicy{Attempts: 3, Backoff: 10 * time.Millisecond}
	venueService := appvenue.NewService(venueRepo, log)
	reservationService := appreservation.NewService(
		cache.NewRedisHoldStore(rdb),
		cache.NewRedisHoldIdempotencyStore(rdb, time.Minute),
		lock.NewRedisLocker(rdb),
		scope,
		persistence.NewGormReservationRepository(tdb.DB),
		scheduleRepo,
		venueRepo,
		appreservation.Config{HoldTTL: time.Minute, LockWait: time.Second, LockLease: 5 * time.Second},
		metrics,
		log,
	)
	paymentService := apppayment.NewService(scope, persistence.NewGormPaymentRepository(tdb.DB),
		persistence.NewGormPaymentIdempotencyRepository(tdb.DB), reservationService, venueService, retry, metrics, log)

	board := cache.NewRedisRankingBoard(rdb, time.Hour)
	rankingService := appranking.NewService(board, persistence.NewGormPaymentCountQuery(tdb.DB), scheduleRepo, concertRepo,
		appranking.Config{TopN: 10, WeeklyDays: 7}, log)

	notifier := cache.NewRedisWaitingNotifier(rdb, log)
	waitingService := appwaiting.NewService(
		cache.NewRedisWaitingStore(rdb, opts.maxPermits, time.Minute),
		notifier,
		jwtService,
		appwaiting.Config{AdmissionTTL: time.Minute, SSETimeout: 5 * time.Second},
		metrics,
		log,
	)

	bus := event.NewInMemoryEventBus(log)
	idemCfg := shared.IdempotencyConfig{TTL: time.Hour, Enabled: true}
	idemStore := cache.NewRedisIdempotencyStore(rdb, "")
	bus.Subscribe(event.NewIdempotentHandler("point-reward", apppoint.NewRewardHandler(scope, retry, metrics, log), idemStore, idemCfg, log))
	bus.Subscribe(event.NewIdempotentHandler("ranking-realtime", appranking.NewRealtimeHandler(board, log), idemStore, idemCfg, log))
	bus.Subscribe(event.NewIdempotentHandler("payment-compensation", apppayment.NewCompensationHandler(paymentService, log), idemStore, idemCfg, log))
	require.NoError(t, bus.Start(ctx))

	processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, event.OutboxProcessorConfig{
		BatchSize:    50,
		PollInterval: 50 * time.Millisecond,
	}, log, nil)
	require.NoError(t, processor.Start(ctx))

	go func() { _ = notifier.Subscribe(ctx, waitingService) }()

	t.Cleanup(func() {
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = processor.Stop(stopCtx)
		_ = bus.Stop(stopCtx)
		_ = notifier.Close()
	})

	guards := router.Guards{Auth: middleware.JWTAuth(middleware.JWTMiddlewareConfig{
		Validator: jwtService,
		Blacklist: blacklist,
		Logger:    log,
	})}
	if opts.requireAdmission {
		guards.Admission = middleware.RequireAdmission(waitingService)
	}
	handlers := router.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		User:        handler.NewUserHandler(identityapp.NewUserService(userRepo, authService, log)),
		Concert:     handler.NewConcertHandler(appconcert.NewService(concertRepo, venueRepo, log)),
		Reservation: handler.NewReservationHandler(reservationService),
		Point:       handler.NewPointHandler(apppoint.NewService(scope, persistence.NewGormPointRepository(tdb.DB), retry, metrics, log)),
		Payment:     handler.NewPaymentHandler(paymentService),
		Waiting:     handler.NewWaitingHandler(waitingService),
		Ranking:     handler.NewRankingHandler(rankingService),
		Outbox:      handler.NewOutboxHandler(appevent.NewOutboxService(outboxRepo, log)),
		System:      handler.NewSystemHandler("concert-reservation", "test", nil),
	}

	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(middleware.RequestID())
	router.RegisterAPI(router.NewRouter(engine), handlers, guards).Setup()

	return &stack{
		db:      tdb,
		engine:  engine,
		client:  testutil.NewAPIClient(t, engine),
		waiting: waitingService,
		ranking: rankingService,
		outbox:  processor,
	}
}

// signUp registers a user and logs them in, returning the access token.
func (s *stack) signUp(t *testing.T, email string) string {
	t.Helper()
	s.client.Post("/api/v1/users", handler.RegisterRequest{
		Email:    email,
		Password: "concert1234!!",
		Name:     "Fan",
		Nickname: email[:4],
	}).AssertSuccess(http.StatusCreated)

	resp := s.client.Post("/api/v1/auth/login", handler.LoginRequest{
		Email:    email,
		Password: "concert1234!!",
	}).AssertSuccess(http.StatusOK)
	return testutil.DecodeData[identityapp.TokenResult](resp).AccessToken
}

func (s *stack) charge(t *testing.T, token string, amount int64) {
	t.Helper()
	s.client.Post("/api/v1/point/charge", handler.ChargePointRequest{Amount: amount},
		testutil.WithBearer(token)).AssertSuccess(http.StatusOK)
}

func (s *stack) balance(t *testing.T, token string) int64 {
	t.Helper()
	resp := s.client.Get("/api/v1/point", testutil.WithBearer(token)).AssertSuccess(http.StatusOK)
	return testutil.DecodeData[apppoint.BalanceDTO](resp).Amount
}

func idempotencyKey() testutil.RequestOption {
	return testutil.WithHeader(middleware.IdempotencyKeyHeader, uuid.NewString())
}
