package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/invoicing/backend/docs"
	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
	partnerapp "github.com/invoicing/backend/internal/application/partner"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/cache"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/invoicing/backend/internal/infrastructure/event"
	"github.com/invoicing/backend/internal/infrastructure/logger"
	"github.com/invoicing/backend/internal/infrastructure/migration"
	"github.com/invoicing/backend/internal/infrastructure/persistence"
	"github.com/invoicing/backend/internal/infrastructure/scheduler"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"github.com/invoicing/backend/internal/interfaces/http/handler"
	"github.com/invoicing/backend/internal/interfaces/http/middleware"
	"github.com/invoicing/backend/internal/interfaces/http/router"
	"github.com/invoicing/backend/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Invoicing API
//	@version		1.0
//	@description	Invoice lifecycle, payments and customer management.

//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Log export goes first so every component below logs through the bridge
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() { _ = logsProvider.Shutdown(context.Background()) }()
	log = logsProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))
	defer func() { _ = log.Sync() }()

	log.Info("Starting invoicing backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Telemetry providers are installed before anything opens a span or a meter
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() { _ = tracerProvider.Shutdown(context.Background()) }()

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		ProfileTypes:    cfg.Telemetry.ProfileTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() { _ = profiler.Stop() }()
	if cfg.Telemetry.SpanProfilesEnabled && profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() { _ = meterProvider.Shutdown(context.Background()) }()

	// Database
	gormLog := logger.NewSQLLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithParams(cfg.Telemetry.DBLogFullSQL))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        telemetry.DBSystemFor(cfg.Database.Driver),
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	if err := migrateSchema(db, cfg.Database, log); err != nil {
		log.Fatal("Failed to prepare database schema", zap.Error(err))
	}

	// Repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Payment replay records and event dedup marks live in separate keyspaces
	stores, err := cache.OpenIdempotencyStores(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to open idempotency stores", zap.Error(err))
	}
	defer func() { _ = stores.Close() }()
	idempotencyCfg := shared.IdempotencyConfig{
		Enabled: cfg.Idempotency.Enabled,
		TTL:     cfg.Idempotency.TTL,
	}

	// Application services
	serviceCfg := invoicingapp.ServiceConfig{
		DefaultDueDays:  cfg.Invoice.DefaultDueDays,
		ConflictRetries: cfg.Invoice.ConflictRetries,
	}
	customerService := partnerapp.NewCustomerService(customerRepo, invoiceRepo, log)
	invoiceService := invoicingapp.NewInvoiceService(invoiceRepo, customerService,
		invoicingapp.NewNumberGenerator(invoiceRepo, cfg.Invoice.NumberPrefix), serviceCfg, log)
	paymentService := invoicingapp.NewPaymentService(txScope, invoiceRepo, paymentRepo, serviceCfg, log)
	paymentService.SetIdempotencyStore(stores.Payments, idempotencyCfg)
	overdueService := invoicingapp.NewOverdueService(invoiceRepo, serviceCfg, log)

	// Event bus with audit log and business metrics subscribers
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewIdempotentHandler("audit_log",
		invoicingapp.NewAuditLogHandler(log), stores.Events, log,
		event.WithIdempotencyConfig(idempotencyCfg)))

	invoiceMetrics, err := telemetry.NewInvoiceMetrics(meterProvider.Meter(telemetry.TracerName))
	if err != nil {
		log.Fatal("Failed to create invoice metrics", zap.Error(err))
	}
	eventBus.Subscribe(event.NewIdempotentHandler("invoice_metrics",
		invoicingapp.NewInvoiceMetricsHandler(invoiceMetrics, log), stores.Events, log,
		event.WithIdempotencyConfig(idempotencyCfg)))

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	customerService.SetEventPublisher(eventBus)
	invoiceService.SetEventPublisher(eventBus)
	paymentService.SetEventPublisher(eventBus)
	overdueService.SetEventPublisher(eventBus)

	// Daily overdue sweep
	if cfg.Scheduler.OverdueEnabled {
		triggerCfg := scheduler.DefaultDailyTriggerConfig("overdue_sweep")
		triggerCfg.Hour = cfg.Scheduler.OverdueHour
		triggerCfg.Minute = cfg.Scheduler.OverdueMinute
		triggerCfg.JobTimeout = cfg.Scheduler.JobTimeout

		overdueTrigger, err := scheduler.NewDailyTrigger(triggerCfg,
			telemetry.LabelJob(triggerCfg.Name, overdueService.Run), log)
		if err != nil {
			log.Fatal("Invalid overdue schedule", zap.Error(err))
		}
		if err := overdueTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start overdue trigger", zap.Error(err))
		}
		defer func() {
			if err := overdueTrigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping overdue trigger", zap.Error(err))
			}
		}()
		log.Info("Overdue sweep scheduled",
			zap.Int("hour", triggerCfg.Hour),
			zap.Int("minute", triggerCfg.Minute),
		)
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.Profiling(profiler.IsEnabled()))
	engine.Use(middleware.SpanAttributes())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       cfg.Telemetry.MetricsEnabled,
	}))
	engine.Use(middleware.Secure())

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsCfg))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	groups := router.RegisterAPI(r, router.Handlers{
		Customer: handler.NewCustomerHandler(customerService),
		Invoice:  handler.NewInvoiceHandler(invoiceService),
		Payment:  handler.NewPaymentHandler(paymentService),
		Health:   handler.NewHealthHandler(db, version),
	})
	r.Setup()
	router.RegisterDocs(engine, middleware.SwaggerConfig{
		Enabled:    cfg.HTTP.Swagger.Enabled,
		AllowedIPs: cfg.HTTP.Swagger.AllowedIPs,
	})

	routeCount := 0
	for _, g := range groups {
		routeCount += len(g.Routes())
	}
	log.Info("Routes registered", zap.String("base_path", r.BasePath()), zap.Int("routes", routeCount))

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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}

// migrateSchema applies the embedded SQL migrations on PostgreSQL. SQLite
// databases are built from the GORM models instead.
func migrateSchema(db *persistence.Database, cfg config.DatabaseConfig, log *zap.Logger) error {
	if cfg.Driver == "sqlite" {
		return db.AutoMigrate()
	}

	// golang-migrate closes the handle it is given, so it gets its own
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer m.Close()
	return m.Up()
}
