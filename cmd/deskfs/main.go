package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/deskfs/deskfs/internal/logger"
	"github.com/deskfs/deskfs/pkg/api"
	"github.com/deskfs/deskfs/pkg/config"
	"github.com/deskfs/deskfs/pkg/gc"
	"github.com/deskfs/deskfs/pkg/metrics"
	"github.com/deskfs/deskfs/pkg/service"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("DeskFS - Virtual Drive Server")
	zapLogger.Info("configuration loaded",
		zap.String("blob_store", cfg.Blob.Type),
		zap.String("database", cfg.Database.DSN),
		zap.String("addr", cfg.Server.Addr))

	if cfg.Server.Metrics.Enabled {
		metrics.InitRegistry()
	}

	repo, err := config.OpenRepository(&cfg.Database)
	if err != nil {
		zapLogger.Fatal("failed to open metadata repository", zap.Error(err))
	}

	blobs, err := config.CreateBlobStore(ctx, &cfg.Blob, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to create blob store", zap.Error(err))
	}

	svc := service.New(repo, blobs, service.Limits{
		MaxUploadSize:      cfg.Upload.MaxSizeBytes,
		MaxAdminUploadSize: cfg.Upload.MaxAdminSizeBytes,
		AllowedMimeTypes:   cfg.Upload.AllowedMimeTypes,
	}, zapLogger)

	if cfg.Seed.Enabled {
		created, err := svc.Seed(ctx, cfg.Seed.Entries, cfg.Seed.UploadedBy)
		if err != nil {
			zapLogger.Fatal("failed to seed items", zap.Error(err))
		}
		zapLogger.Info("seeding complete", zap.Int("created", created))
	}

	var collector *gc.Collector
	collector, err = gc.NewCollector(repo, blobs, cfg.GC, zapLogger)
	if err != nil {
		// Not every blob store can enumerate its keys; run without GC.
		zapLogger.Warn("orphan collection unavailable", zap.Error(err))
		collector = nil
	} else {
		collector.Start()
	}

	srv := api.NewServer(svc, collector, api.Options{
		Addr:             cfg.Server.Addr,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
		RateLimitEnabled: cfg.Server.RateLimit.Enabled,
		RateLimitRPS:     cfg.Server.RateLimit.RPS,
		RateLimitBurst:   cfg.Server.RateLimit.Burst,
		MetricsEnabled:   cfg.Server.Metrics.Enabled,
		MetricsPath:      cfg.Server.Metrics.Path,
	}, zapLogger)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	zapLogger.Info("server is running", zap.String("addr", cfg.Server.Addr))

	select {
	case <-sigChan:
		zapLogger.Info("shutdown signal received, initiating graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("server shutdown error", zap.Error(err))
		}
		if collector != nil {
			if err := collector.Stop(shutdownCtx); err != nil {
				zapLogger.Error("collector shutdown error", zap.Error(err))
			}
		}
		if err := <-serverDone; err != nil {
			zapLogger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
		zapLogger.Info("server stopped gracefully")

	case err := <-serverDone:
		if err != nil {
			zapLogger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
		zapLogger.Info("server stopped")
	}
}
