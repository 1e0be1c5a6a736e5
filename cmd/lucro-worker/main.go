package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"lucro/internal/amqp"
	"lucro/internal/cache"
	"lucro/internal/config"
	"lucro/internal/core"
	"lucro/internal/export"
	"lucro/internal/ingest"
	"lucro/internal/pnl"
	"lucro/internal/services"
	"lucro/internal/storage"
	"lucro/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting lucro-worker")

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

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Writers per export format. XLSX always works; Google Sheets only
	// when a spreadsheet is configured.
	writers := map[string]export.Writer{
		amqp.FormatXLSX: export.NewXLSXWriter(cfg.ExportDir),
	}
	if cfg.GoogleSpreadsheetID != "" {
		sheetsWriter, err := export.NewSheetsWriter(ctx, export.SheetsConfig{
			SpreadsheetID: cfg.GoogleSpreadsheetID,
			SheetName:     cfg.GoogleSheetName,
			CredsFile:     cfg.GoogleServiceAccountFile,
			CredsJSON:     cfg.GoogleServiceAccountJSON,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets writer", "error", err)
			os.Exit(1)
		}
		writers[amqp.FormatSheets] = sheetsWriter
		logger.Info("Google Sheets writer initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
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
	svc := services.NewReportService(repo, nil, parser, engine, datasets)
	exportWorker := worker.NewExportWorker(svc, writers)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeReportExports(ctx, func(msg *amqp.ReportExportMessage) error {
			return exportWorker.HandleExportMessage(ctx, msg)
		})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
