package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	creditapp "github.com/retailpos/backend/internal/application/credit"
	"github.com/retailpos/backend/internal/domain/credit"
	"github.com/retailpos/backend/internal/infrastructure/cache"
	"github.com/retailpos/backend/internal/infrastructure/config"
	"github.com/retailpos/backend/internal/infrastructure/event"
	"github.com/retailpos/backend/internal/infrastructure/lock"
	"github.com/retailpos/backend/internal/infrastructure/logger"
	"github.com/retailpos/backend/internal/infrastructure/persistence"
	"github.com/retailpos/backend/internal/infrastructure/scheduler"
	"github.com/retailpos/backend/internal/infrastructure/telemetry"
	"github.com/retailpos/backend/internal/interfaces/http/handler"
	"github.com/retailpos/backend/internal/interfaces/http/middleware"
	"github.com/retailpos/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting credit sale ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer shutdown(log, "tracer provider", tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdown(log, "meter provider", meterProvider.Shutdown)

	var creditMetrics *telemetry.CreditMetrics
	if meterProvider.IsEnabled() {
		creditMetrics, err = telemetry.NewCreditMetrics(meterProvider.Meter("retailpos/credit"))
		if err != nil {
			log.Fatal("Failed to create credit metrics", zap.Error(err))
		}
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(ctx, &cfg.Database,
		persistence.WithGormLogger(gormLog),
		persistence.WithDatabaseLogger(log),
		persistence.WithConnectRetry(5, 2*time.Second),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Redis is optional; it backs the payment lock and idempotency store when enabled
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			if cfg.Credit.LockDriver == config.LockDriverRedis {
				log.Fatal("Redis is required by the redis lock driver", zap.Error(err))
			}
			log.Warn("Redis unavailable", zap.Error(err))
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					log.Error("Error closing Redis client", zap.Error(err))
				}
			}()
			log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	idempotencyStore, err := cache.NewIdempotencyStore(cfg.Redis,
		cache.WithLogger(log),
		cache.WithRedisClient(redisClient),
	)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	locker := newSaleLocker(cfg.Credit, redisClient, log)
	cashLedger := newCashLedger(ctx, cfg.CashLedger, db, log)

	// Repositories
	saleRepo := persistence.NewGormCreditSaleRepository(db.DB)
	paymentRepo := persistence.NewGormCreditSalePaymentRepository(db.DB)
	reportRepo := persistence.NewGormSettlementReportRepository(db.DB)

	// Events
	eventBus := event.NewInMemoryEventBus(log)
	eventLogger := event.NewCreditEventLogger(log)
	eventBus.Subscribe(event.NewIdempotentHandler(eventLogger, idempotencyStore, log,
		event.WithKeyFunc(event.DailyDueKey),
	))
	log.Info("Event handlers registered", zap.Strings("credit_events", eventLogger.EventTypes()))

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer shutdown(log, "event bus", eventBus.Stop)

	// Application services
	sales := creditapp.NewCreditSaleService(saleRepo, paymentRepo,
		creditapp.WithSaleEventPublisher(eventBus),
		creditapp.WithSaleMetrics(creditMetrics),
		creditapp.WithSaleLogger(log),
		creditapp.WithPhoneRegion(cfg.Credit.PhoneRegion),
		creditapp.WithEarlierPostpone(cfg.Credit.AllowEarlierPostpone),
	)
	payments := creditapp.NewPaymentRegistrar(
		persistence.NewGormTransactionScope(db.DB),
		saleRepo,
		locker,
		creditapp.WithCashLedger(cashLedger, persistence.NewGormCashSessionProvider(db.DB)),
		creditapp.WithRecordInCashLedger(cfg.Credit.RecordPaymentsInCashLedger),
		creditapp.WithIdempotencyStore(idempotencyStore, cfg.Credit.IdempotencyTTL),
		creditapp.WithPaymentEventPublisher(eventBus),
		creditapp.WithPaymentMetrics(creditMetrics),
		creditapp.WithPaymentLogger(log),
		creditapp.WithDefaultIntervalDays(cfg.Credit.DefaultIntervalDays),
	)
	reminders := creditapp.NewReminderService(saleRepo, eventBus, creditMetrics, log)
	reports := creditapp.NewSettlementReportService(reportRepo)

	if cfg.Scheduler.ReminderEnabled {
		trigger, err := scheduler.NewReminderTrigger(scheduler.ReminderTriggerConfig{
			CheckInterval: cfg.Scheduler.ReminderCheckInterval,
			Timeout:       cfg.Scheduler.ReminderTimeout,
		}, reminders, log)
		if err != nil {
			log.Fatal("Failed to create reminder trigger", zap.Error(err))
		}
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start reminder trigger", zap.Error(err))
		}
		defer shutdown(log, "reminder trigger", trigger.Stop)
		log.Info("Reminder trigger started", zap.Duration("check_interval", cfg.Scheduler.ReminderCheckInterval))
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	var httpMeter = meterProvider.Meter("retailpos/http")
	if !meterProvider.IsEnabled() {
		httpMeter = nil
	}

	// Order: request id first so every later log line and span carries it,
	// recovery before anything that may panic.
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log, logger.WithQuietPaths("/health")),
		logger.Recovery(log),
	)
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
		SkipPaths:   []string{"/health"},
	})...)
	engine.Use(
		middleware.HTTPMetrics(httpMeter),
		middleware.Secure(),
		middleware.CORSWithConfig(corsCfg),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.WriteTimeout),
	)

	health := handler.NewHealthHandler(cfg.App.Name, version, db)
	engine.GET("/health", health.Health)

	router.NewRouter(engine).
		Register(handler.NewCreditSaleHandler(sales, payments, reminders, reports)).
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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}

func newSaleLocker(cfg config.CreditConfig, client *redis.Client, log *zap.Logger) credit.SaleLocker {
	if cfg.LockDriver == config.LockDriverRedis && client != nil {
		log.Info("Using Redis payment lock", zap.Duration("ttl", cfg.LockTTL))
		return lock.NewRedisSaleLocker(client, cfg.LockTTL, lock.WithLogger(log))
	}
	log.Info("Using in-process payment lock")
	return lock.NewMemorySaleLocker(cfg.LockTTL)
}

func newCashLedger(ctx context.Context, cfg config.CashLedgerConfig, db *persistence.Database, log *zap.Logger) credit.CashLedger {
	if cfg.Driver != config.CashLedgerDriverDynamoDB {
		return persistence.NewGormCashLedger(db.DB)
	}
	client, err := persistence.NewDynamoDBClient(ctx, cfg.DynamoDB)
	if err != nil {
		log.Fatal("Failed to create DynamoDB client", zap.Error(err))
	}
	log.Info("Using DynamoDB cash ledger", zap.String("table", cfg.DynamoDB.Table))
	return persistence.NewDynamoDBCashLedger(client, cfg.DynamoDB.Table)
}

func shutdown(log *zap.Logger, name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := stop(ctx); err != nil {
		log.Error("Error stopping "+name, zap.Error(err))
	}
}
