package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/roovies/concert-reservation/internal/infrastructure/config"
	"github.com/roovies/concert-reservation/internal/infrastructure/logger"
	"github.com/roovies/concert-reservation/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineDeps are the collaborators of the global middleware chain and the
// unversioned endpoints.
type EngineDeps struct {
	Logger *zap.Logger
	// Observer feeds the Prometheus HTTP series; nil disables them.
	Observer middleware.HTTPObserver
	// MetricsHandler serves cfg.Metrics.Path when metrics are enabled.
	MetricsHandler gin.HandlerFunc
	// Meter records OpenTelemetry HTTP metrics; nil skips them.
	Meter  metric.Meter
	Health gin.HandlerFunc
	// Auth guards the docs when cfg.Swagger.RequireAuth is set.
	Auth gin.HandlerFunc
}

// quietPaths are probed constantly and kept out of logs, traces and metrics.
func quietPaths(cfg *config.Config) []string {
	return []string{"/health", cfg.Metrics.Path}
}

// NewEngine builds the gin engine with the global middleware chain and the
// health, metrics and docs endpoints. API routes are added through a Router.
func NewEngine(cfg *config.Config, deps EngineDeps) (*gin.Engine, error) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			return nil, fmt.Errorf("set trusted proxies: %w", err)
		}
	} else if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	quiet := quietPaths(cfg)

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log, quiet...))

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.IsProduction()
	engine.Use(middleware.SecureWithConfig(security))

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(cors))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.HTTP.RateLimitEnabled {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)))
	}

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
			SkipPaths:   quiet,
		}))
		engine.Use(middleware.SpanEnricher())
	}
	if deps.Observer != nil {
		engine.Use(middleware.PrometheusMetrics(deps.Observer, quiet...))
	}
	if deps.Meter != nil {
		httpMetrics, err := middleware.HTTPMetrics(deps.Meter)
		if err != nil {
			return nil, fmt.Errorf("http metrics: %w", err)
		}
		engine.Use(httpMetrics)
	}
	engine.Use(middleware.Profiling(cfg.Telemetry.ProfilingEnabled, quiet...))

	if deps.Health != nil {
		engine.GET("/health", deps.Health)
	}
	if cfg.Metrics.Enabled && deps.MetricsHandler != nil {
		engine.GET(cfg.Metrics.Path, deps.MetricsHandler)
	}

	swagger := middleware.SwaggerProtection(middleware.SwaggerConfig{
		Enabled:     cfg.Swagger.Enabled,
		RequireAuth: cfg.Swagger.RequireAuth,
		AllowedIPs:  cfg.Swagger.AllowedIPs,
	}, deps.Auth)
	engine.GET("/swagger/*any", swagger, ginSwagger.WrapHandler(swaggerFiles.Handler))

	return engine, nil
}

// AuthRateLimit returns the limiter for credential endpoints, or nil when
// disabled. Clients are keyed by IP.
func AuthRateLimit(cfg config.HTTPConfig) gin.HandlerFunc {
	if !cfg.AuthRateLimitEnabled {
		return nil
	}
	limiter := middleware.NewRateLimiter(cfg.AuthRateLimitRequests, cfg.AuthRateLimitWindow)
	return middleware.RateLimitWithKey(limiter, func(c *gin.Context) string {
		return "auth:" + c.ClientIP()
	})
}
