package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guildops/recruit/api"
	dbfs "github.com/guildops/recruit/db"
	"github.com/guildops/recruit/internal/audit"
	"github.com/guildops/recruit/internal/config"
	"github.com/guildops/recruit/internal/db"
	"github.com/guildops/recruit/internal/files"
	"github.com/guildops/recruit/internal/jobs"
	"github.com/guildops/recruit/internal/notify"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	logger.Info("starting recruit server",
		slog.String("version", version),
		slog.String("buildTime", buildTime),
	)

	ctx := context.Background()

	// Open database connection and apply migrations
	conn, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Migrate(ctx, conn, dbfs.Migrations); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	store, err := files.NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		log.Fatalf("Failed to init upload store: %v", err)
	}

	// Background workers for email and audit jobs
	sender := &notify.LogSender{Logger: logger}
	recorder := audit.NewRecorder(conn, logger)
	jobsRepo := jobs.NewRepository(conn)
	pool := jobs.NewWorkerPool(jobsRepo, jobs.Handlers(sender, recorder), logger, cfg.Workers)
	pool.Start(ctx)

	handler := api.SetupRoutes(cfg, version, buildTime, conn, store, pool)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	pool.Stop()

	if err := conn.Close(); err != nil {
		logger.Error("closing DB", "err", err)
	}

	logger.Info("server exited")
}
