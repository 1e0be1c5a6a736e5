package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"lucro/internal/amqp"
	"lucro/internal/cache"
	"lucro/internal/config"
	"lucro/internal/core"
	apphttp "lucro/internal/http"
	"lucro/internal/ingest"
	"lucro/internal/pnl"
	"lucro/internal/services"
	"lucro/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The AMQP queue is optional: without it the API still works, only
	// export requests are rejected.
	var queue services.ExportQueue
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, exports disabled", "error", err)
	} else {
		queue = amqpClient
		defer amqpClient.Close()
	}

	datasets := cache.NewLRUCache[[]core.Transaction](cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(datasets)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	parser := ingest.NewParser(ingest.DefaultConfig())
	engine := pnl.NewEngine(pnl.Config{
		PaymentProcessingRate:  cfg.PaymentProcessingRate,
		MaterialityTransaction: cfg.MaterialityTransaction,
		MaterialityMonthly:     cfg.MaterialityMonthly,
		MaterialityUnmapped:    cfg.MaterialityUnmapped,
		MaxMonths:              cfg.MaxMonths,
	})
	svc := services.NewReportService(repo, queue, parser, engine, datasets)

	srv := apphttp.NewServer(":"+cfg.Port, svc, cfg.UploadMaxBytes)
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting lucro server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
