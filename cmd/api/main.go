// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/smartbook-be/internal/adapters/db"
	redis_a "github.com/ammerola/smartbook-be/internal/adapters/redis_adapter"
	"github.com/ammerola/smartbook-be/internal/core/services"
	"github.com/ammerola/smartbook-be/internal/handlers"
	"github.com/ammerola/smartbook-be/internal/handlers/middleware"
	"github.com/ammerola/smartbook-be/internal/pkg/config"
	"github.com/ammerola/smartbook-be/internal/pkg/logger"
	"github.com/ammerola/smartbook-be/internal/workers"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	slogger := logger.SetupLogger("info", "json")

	slogger.Info("starting smartbook bookstore API",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
	)

	cfg, err := config.Load(slogger.Logger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings
	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("log_level", cfg.App.LogLevel),
	)

	ctx := context.Background()

	if cfg.IsProduction() {
		if err := applySecrets(ctx, cfg, slogger.Logger); err != nil {
			slogger.Error("failed to apply secrets", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	deps, err := initializeDependencies(ctx, cfg, slogger.Logger)
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.cleanup()

	if !cfg.IsProduction() {
		if err := runMigrations(ctx, cfg, slogger.Logger); err != nil {
			slogger.Warn("failed to run migrations", slog.String("error", err.Error()))
		}
	}

	server := setupHTTPServer(cfg, deps, slogger)

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("starting HTTP server",
			slog.String("address", cfg.GetServerAddress()))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server error", slog.String("error", err.Error()))
		}
	case sig := <-shutdown:
		slogger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
			server.Close()
		}

		slogger.Info("server shutdown complete")
	}
}

// dependencies holds all application dependencies
type dependencies struct {
	database       *db.Database
	redisClient    *redis.Client
	cache          *redis_a.Cache
	asynqClient    *asynq.Client
	asynqInspector *asynq.Inspector

	saleService   *services.SaleService
	intakeService *services.IntakeService

	salesHandler     *handlers.SalesHandler
	intakeHandler    *handlers.IntakeHandler
	inventoryHandler *handlers.InventoryHandler
	importHandler    *handlers.ImportHandler
	exportHandler    *handlers.ExportHandler
	dashboardHandler *handlers.DashboardHandler
	healthHandler    *handlers.HealthHandler
}

func (d *dependencies) cleanup() {
	if d.asynqClient != nil {
		d.asynqClient.Close()
	}
	if d.redisClient != nil {
		d.redisClient.Close()
	}
	if d.database != nil {
		d.database.Close()
	}
}

func initializeDependencies(ctx context.Context, cfg *config.Config, slogger *slog.Logger) (*dependencies, error) {
	deps := &dependencies{}

	slogger.Info("connecting to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Name),
	)

	database, err := db.NewDatabase(ctx, &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     cfg.Database.MaxConnections,
		MinConnections:     cfg.Database.MinConnections,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		StatementCacheMode: cfg.Database.StatementCacheMode,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}, slogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.database = database

	slogger.Info("connecting to Redis",
		slog.String("host", cfg.Redis.Host),
		slog.String("port", cfg.Redis.Port),
	)

	redisClient := redis.NewClient(&redis.Options{
		Addr:            fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		MaxRetries:      cfg.Redis.MaxRetries,
		MinRetryBackoff: cfg.Redis.MinRetryBackoff,
		MaxRetryBackoff: cfg.Redis.MaxRetryBackoff,
		DialTimeout:     cfg.Redis.DialTimeout,
		ReadTimeout:     cfg.Redis.ReadTimeout,
		WriteTimeout:    cfg.Redis.WriteTimeout,
		PoolSize:        cfg.Redis.PoolSize,
		MinIdleConns:    cfg.Redis.MinIdleConns,
		PoolTimeout:     cfg.Redis.PoolTimeout,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	deps.redisClient = redisClient
	deps.cache = redis_a.NewCache(redisClient, cfg.Redis.TTL, slogger)

	asynqRedisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Asynq.RedisAddr,
		Password: cfg.Asynq.RedisPassword,
		DB:       cfg.Asynq.RedisDB,
	}
	deps.asynqClient = asynq.NewClient(asynqRedisOpt)
	deps.asynqInspector = asynq.NewInspector(asynqRedisOpt)

	dispatcher := workers.NewAsynqDispatcher(deps.asynqClient, slogger)

	// Core services over one transaction runner.
	runner := db.NewTxRunner(database)
	deps.saleService = services.NewSaleService(runner, dispatcher, slogger)
	deps.intakeService = services.NewIntakeService(runner, slogger)

	// Handlers
	deps.salesHandler = handlers.NewSalesHandler(deps.saleService, deps.cache, slogger)
	deps.intakeHandler = handlers.NewIntakeHandler(deps.intakeService, deps.cache, slogger)
	deps.inventoryHandler = handlers.NewInventoryHandler(runner.Stores(), deps.cache, slogger)
	deps.exportHandler = handlers.NewExportHandler(deps.saleService, dispatcher, deps.cache, slogger)
	deps.dashboardHandler = handlers.NewDashboardHandler(database, deps.cache, slogger)
	deps.healthHandler = handlers.NewHealthHandler(database, redisClient, deps.asynqInspector, cfg, slogger)

	maxFileSize := int64(cfg.FileProcessing.PDFMaxSizeMB) * 1024 * 1024
	deps.importHandler = handlers.NewImportHandler(
		dispatcher,
		deps.cache,
		slogger,
		maxFileSize,
		cfg.FileProcessing.TempDir,
		cfg.FileProcessing.ProcessingTimeout,
	)

	slogger.Info("all dependencies initialized successfully")
	return deps, nil
}

func setupHTTPServer(cfg *config.Config, deps *dependencies, l *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	registerRoutes(mux, deps)

	// Middleware apply in reverse order (innermost first).
	var handler http.Handler = mux

	if cfg.App.Environment != "test" {
		handler = middleware.Logger(l)(handler)
		handler = middleware.Recovery(l.Logger)(handler)
		handler = middleware.RequestID(cfg.Security.RequestIDHeader)(handler)
	}

	if cfg.Security.RateLimitRequests > 0 {
		handler = middleware.RateLimit(cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration)(handler)
	}

	if len(cfg.Security.AllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.Security.AllowedOrigins)(handler)
	}

	if cfg.Security.SecureHeaders {
		handler = middleware.SecureHeaders(handler)
	}

	return &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(l.Handler(), slog.LevelError),
	}
}

func registerRoutes(mux *http.ServeMux, deps *dependencies) {
	apiV1 := "/api/v1"

	// Health and readiness
	mux.HandleFunc("GET /health", deps.healthHandler.Health)
	mux.HandleFunc("GET /ready", deps.healthHandler.Readiness)

	// Sales
	mux.HandleFunc("POST "+apiV1+"/sales", deps.salesHandler.CreateSale)
	mux.HandleFunc("GET "+apiV1+"/sales/{id}", deps.salesHandler.GetSale)
	mux.HandleFunc("GET "+apiV1+"/sales", deps.salesHandler.ListSales)

	// Intakes
	mux.HandleFunc("POST "+apiV1+"/intakes", deps.intakeHandler.CreateIntake)
	mux.HandleFunc("GET "+apiV1+"/intakes/{id}", deps.intakeHandler.GetIntake)
	mux.HandleFunc("GET "+apiV1+"/intakes", deps.intakeHandler.ListIntakes)

	// Inventory views
	mux.HandleFunc("GET "+apiV1+"/inventory/lots", deps.inventoryHandler.ListLots)
	mux.HandleFunc("GET "+apiV1+"/inventory/{bookID}", deps.inventoryHandler.GetAvailability)

	// Packing list import
	mux.HandleFunc("POST "+apiV1+"/import/packing-list", deps.importHandler.ImportPackingList)
	mux.HandleFunc("GET "+apiV1+"/import/jobs/{id}", deps.importHandler.GetImportJob)

	// Sales export
	mux.HandleFunc("GET "+apiV1+"/export/sales", deps.exportHandler.ExportSales)
	mux.HandleFunc("GET "+apiV1+"/export/jobs/{id}", deps.exportHandler.GetExportJob)

	// Dashboard
	mux.HandleFunc("GET "+apiV1+"/dashboard", deps.dashboardHandler.GetDashboard)
}

func applySecrets(ctx context.Context, cfg *config.Config, slogger *slog.Logger) error {
	secretName := os.Getenv("AWS_SECRET_NAME")
	if secretName == "" || cfg.AWS.Region == "" {
		slogger.Info("no secrets manager configured, using environment values")
		return nil
	}

	sm, err := config.NewAWSSecretsManager(cfg.AWS.Region, secretName, slogger)
	if err != nil {
		return err
	}
	return cfg.ApplySecrets(ctx, sm)
}

func runMigrations(ctx context.Context, cfg *config.Config, slogger *slog.Logger) error {
	slogger.Info("running database migrations")

	migrationConfig := &db.MigrationConfig{
		DatabaseURL: cfg.GetDatabaseURL(),
		SourcePath:  cfg.Database.MigrationPath,
		TableName:   "schema_migrations",
	}

	return db.RunMigrationsWithRetry(ctx, migrationConfig, slogger, 3)
}
