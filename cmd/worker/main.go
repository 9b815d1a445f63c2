// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/smartbook-be/internal/adapters/db"
	redis_a "github.com/ammerola/smartbook-be/internal/adapters/redis_adapter"
	"github.com/ammerola/smartbook-be/internal/adapters/storage"
	"github.com/ammerola/smartbook-be/internal/core/services"
	"github.com/ammerola/smartbook-be/internal/pkg/config"
	"github.com/ammerola/smartbook-be/internal/pkg/logger"
	"github.com/ammerola/smartbook-be/internal/pkg/receipt"
	"github.com/ammerola/smartbook-be/internal/workers"
)

func main() {
	slogger := logger.SetupLogger("info", "json")

	cfg, err := config.Load(slogger.Logger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings
	l := logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	l.Info("starting worker",
		slog.String("environment", cfg.App.Environment),
		slog.String("redis_addr", cfg.Asynq.RedisAddr))

	ctx := context.Background()
	database, err := initDatabase(ctx, cfg, l.Logger)
	if err != nil {
		l.Error("failed to initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		l.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	cache := redis_a.NewCache(redisClient, cfg.Redis.TTL, l.Logger)

	// Receipt archive and report storage. The worker keeps running without
	// it, receipts just go unarchived.
	var storageClient storage.StorageClient
	if cfg.AWS.S3Bucket != "" {
		s3Client, err := storage.NewS3Storage(ctx, &storage.S3Config{
			Region:          cfg.AWS.Region,
			Bucket:          cfg.AWS.S3Bucket,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Endpoint:        cfg.AWS.S3Endpoint,
			UsePathStyle:    cfg.AWS.UsePathStyle,
		}, l.Logger)
		if err != nil {
			l.Warn("document storage unavailable", slog.String("error", err.Error()))
		} else {
			storageClient = s3Client
		}
	}

	// Services over the shared transaction runner. The worker never
	// dispatches receipt tasks itself, so the sale service gets no
	// dispatcher here.
	runner := db.NewTxRunner(database)
	saleService := services.NewSaleService(runner, nil, l.Logger)
	intakeService := services.NewIntakeService(runner, l.Logger)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Asynq.RedisAddr,
			Password: cfg.Asynq.RedisPassword,
			DB:       cfg.Asynq.RedisDB,
		},
		asynq.Config{
			Concurrency:     cfg.Asynq.Concurrency,
			Queues:          cfg.Asynq.Queues,
			StrictPriority:  cfg.Asynq.StrictPriority,
			ErrorHandler:    asynq.ErrorHandlerFunc(handleError),
			RetryDelayFunc:  exponentialBackoff,
			ShutdownTimeout: cfg.Asynq.ShutdownTimeout,
			HealthCheckFunc: healthCheck,
			Logger:          newAsynqLogger(l.Logger),
		},
	)

	mux := asynq.NewServeMux()

	renderer := receipt.NewRenderer(cfg.App.Institute)
	receiptProcessor := workers.NewReceiptProcessor(
		saleService,
		runner.Stores().Customers,
		renderer,
		storageClient,
		cfg,
		l.Logger,
	)
	mux.HandleFunc(workers.TypeReceiptSend, receiptProcessor.SendReceipt)

	packingListProcessor := workers.NewPackingListProcessor(intakeService, cache, l.Logger)
	mux.HandleFunc(workers.TypePackingListImport, packingListProcessor.ProcessPackingList)

	reportProcessor := workers.NewReportProcessor(saleService, storageClient, cache, l.Logger)
	mux.HandleFunc(workers.TypeSalesReport, reportProcessor.GenerateSalesReport)

	maintenanceProcessor := workers.NewMaintenanceProcessor(database, cfg, l.Logger)
	mux.HandleFunc(workers.TypeReconcileStock, maintenanceProcessor.ReconcileStock)
	mux.HandleFunc(workers.TypeCleanupTempFiles, maintenanceProcessor.CleanupTempFiles)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Run(mux); err != nil {
			l.Error("failed to run worker server", slog.String("error", err.Error()))
			shutdown <- syscall.SIGTERM
		}
	}()

	l.Info("worker started successfully",
		slog.Int("concurrency", cfg.Asynq.Concurrency),
		slog.Any("queues", cfg.Asynq.Queues))

	sig := <-shutdown
	l.Info("shutdown signal received", slog.String("signal", sig.String()))

	srv.Shutdown()
	l.Info("worker shutdown complete")
}

func initDatabase(ctx context.Context, cfg *config.Config, slogger *slog.Logger) (*db.Database, error) {
	dbConfig := &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     10, // Fewer connections for worker
		MinConnections:     2,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		StatementCacheMode: cfg.Database.StatementCacheMode,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}

	return db.NewDatabase(ctx, dbConfig, slogger)
}

func handleError(ctx context.Context, task *asynq.Task, err error) {
	slog.ErrorContext(ctx, "task processing failed",
		slog.String("type", task.Type()),
		slog.String("payload", string(task.Payload())),
		slog.String("error", err.Error()))
}

func exponentialBackoff(n int, e error, t *asynq.Task) time.Duration {
	baseDelay := time.Second
	maxDelay := 10 * time.Minute
	delay := baseDelay * time.Duration(1<<uint(n))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

func healthCheck(err error) {
	if err != nil {
		slog.Error("worker health check failed", slog.String("error", err.Error()))
	}
}

// asynqLogger adapts slog for Asynq
type asynqLogger struct {
	logger *slog.Logger
}

func newAsynqLogger(slogger *slog.Logger) *asynqLogger {
	return &asynqLogger{
		logger: slogger.With(slog.String("component", "asynq")),
	}
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
