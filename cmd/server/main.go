package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appfulfillment "github.com/stellarsupply/fulfillment-gateway/internal/application/fulfillment"
	"github.com/stellarsupply/fulfillment-gateway/internal/domain/fulfillment"
	"github.com/stellarsupply/fulfillment-gateway/internal/infrastructure/auth"
	"github.com/stellarsupply/fulfillment-gateway/internal/infrastructure/cache"
	"github.com/stellarsupply/fulfillment-gateway/internal/infrastructure/config"
	"github.com/stellarsupply/fulfillment-gateway/internal/infrastructure/logger"
	"github.com/stellarsupply/fulfillment-gateway/internal/infrastructure/persistence"
	"github.com/stellarsupply/fulfillment-gateway/internal/infrastructure/scheduler"
	"github.com/stellarsupply/fulfillment-gateway/internal/infrastructure/telemetry"
	"github.com/stellarsupply/fulfillment-gateway/internal/infrastructure/upstream"
	"github.com/stellarsupply/fulfillment-gateway/internal/interfaces/http/handler"
	"github.com/stellarsupply/fulfillment-gateway/internal/interfaces/http/middleware"
	"github.com/stellarsupply/fulfillment-gateway/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log := logger.New(cfg.Log)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting fulfillment gateway",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracing", zap.Error(err))
		}
	}()

	// Initialize database connection with a zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	orderRepo := persistence.NewGormOrderRepository(db.DB)

	// Reference cache: Redis when reachable, in-memory outside production
	cacheFactory := cache.NewReferenceCacheFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	referenceCache, err := cacheFactory.CreateCache()
	if err != nil {
		log.Fatal("Failed to create reference cache", zap.Error(err))
	}

	// Upstream fulfillment gateway
	upstreamCfg := &upstream.Config{
		APIBaseURL:                  cfg.Upstream.APIBaseURL,
		Email:                       cfg.Upstream.Email,
		Password:                    cfg.Upstream.Password,
		RequiredShippingInstruction: cfg.Upstream.RequiredShippingInstruction,
		QuoteMode:                   cfg.Upstream.QuoteMode,
		TimeoutSeconds:              cfg.Upstream.TimeoutSeconds,
	}
	gateway, err := upstream.NewOrderGateway(upstreamCfg, log)
	if err != nil {
		log.Fatal("Failed to create upstream gateway", zap.Error(err))
	}

	// Application services
	mode := fulfillment.OrderModeOrder
	if cfg.Upstream.QuoteMode {
		mode = fulfillment.OrderModeQuote
	}
	checkoutService := appfulfillment.NewCheckoutService(gateway, orderRepo, referenceCache,
		appfulfillment.CheckoutConfig{
			Mode:                        mode,
			RequiredShippingInstruction: cfg.Upstream.RequiredShippingInstruction,
		}, log)

	throttle := appfulfillment.NewThrottle(cfg.Jobs.InterRequestDelay)
	refreshService := appfulfillment.NewRefreshService(gateway, orderRepo, throttle,
		appfulfillment.RefreshConfig{
			Window:     cfg.Checkout.RefreshWindow,
			BatchLimit: cfg.Checkout.RefreshBatchLimit,
		}, log)
	repairService := appfulfillment.NewRepairService(gateway, orderRepo, throttle,
		appfulfillment.RepairConfig{
			BatchLimit: cfg.Checkout.RepairBatchLimit,
		}, log)

	// Background reconciliation jobs
	sched, err := scheduler.New(scheduler.Config{}, log)
	if err != nil {
		log.Fatal("Failed to create scheduler", zap.Error(err))
	}
	registerJob(log, sched, handler.JobStatusRefresh, cfg.Jobs.RefreshInterval, func(ctx context.Context) (any, error) {
		return refreshService.Run(ctx)
	})
	registerJob(log, sched, handler.JobOnHoldRepair, cfg.Jobs.RepairInterval, func(ctx context.Context) (any, error) {
		return repairService.Run(ctx)
	})
	if cfg.Jobs.Enabled {
		if err := sched.Start(context.Background()); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()
		log.Info("Background jobs enabled",
			zap.Duration("refresh_interval", cfg.Jobs.RefreshInterval),
			zap.Duration("repair_interval", cfg.Jobs.RepairInterval),
		)
	}

	// HTTP surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logger.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))

	jwtService := auth.NewJWTService(cfg.JWT)
	engine.Use(middleware.JWTAuthMiddleware(jwtService))

	handler.NewHealthHandler(db, version).RegisterRoutes(engine.Group(""))
	router.NewRouter(engine).
		Register(handler.NewCheckoutHandler(checkoutService)).
		Register(handler.NewJobsHandler(sched)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func registerJob(log *zap.Logger, sched *scheduler.Scheduler, name string, interval time.Duration, fn func(ctx context.Context) (any, error)) {
	if err := sched.Register(scheduler.JobFunc{JobName: name, Fn: fn}, interval); err != nil {
		log.Fatal("Failed to register job", zap.String("job", name), zap.Error(err))
	}
}
