package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roovies/concert-reservation/internal/infrastructure/cache"
	"github.com/roovies/concert-reservation/internal/infrastructure/config"
	"github.com/roovies/concert-reservation/internal/infrastructure/logger"
	"github.com/roovies/concert-reservation/internal/infrastructure/persistence"
	"github.com/roovies/concert-reservation/internal/interfaces/http/middleware"
	"github.com/roovies/concert-reservation/internal/interfaces/http/router"
	"go.uber.org/zap"

	_ "github.com/roovies/concert-reservation/docs"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//	@title			Concert Reservation API
//	@version		1.0
//	@description	Seat holds, payments, points and the waiting room for concert ticketing.

//	@contact.name	API Support
//	@contact.url	https://github.com/roovies/concert-reservation

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := setupObservability(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = obs.bridge(log, cfg.Telemetry.ServiceName)

	log.Info("Starting concert reservation server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := obs.instrumentDB(ctx, db, cfg, log); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis
	rdb, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error("Error closing redis", zap.Error(err))
		}
	}()
	log.Info("Redis connected successfully", zap.String("addr", cfg.Redis.Addr()))

	application, err := newApp(ctx, cfg, log, db, rdb, obs)
	if err != nil {
		log.Fatal("Failed to wire application", zap.Error(err))
	}
	if err := application.start(ctx); err != nil {
		log.Fatal("Failed to start background workers", zap.Error(err))
	}

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	deps := router.EngineDeps{
		Logger: log,
		Meter:  obs.meter(),
		Health: application.handlers.System.Health,
		Auth:   application.guards.Auth,
	}
	if obs.collector != nil {
		deps.Observer = obs.collector
		deps.MetricsHandler = gin.WrapH(obs.collector.Handler())
	}
	engine, err := router.NewEngine(cfg, deps)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}
	router.RegisterAPI(router.NewRouter(engine, router.WithAPIVersion("v1")), application.handlers, application.guards).Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serveErr:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()
	if err := application.stop(shutdownCtx); err != nil {
		log.Warn("Background workers did not stop cleanly", zap.Error(err))
	}
	obs.shutdown(shutdownCtx, log)

	log.Info("Server exited gracefully")
}
