package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/gjmugshots/internal/api"
	"github.com/your-org/gjmugshots/internal/api/ws"
	"github.com/your-org/gjmugshots/internal/cache"
	"github.com/your-org/gjmugshots/internal/config"
	"github.com/your-org/gjmugshots/internal/observability"
	"github.com/your-org/gjmugshots/internal/queue"
	"github.com/your-org/gjmugshots/internal/storage"
	"github.com/your-org/gjmugshots/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting booking records API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStream(context.Background()); err != nil {
		slog.Warn("ensure nats stream", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Cache: store, refresher, scheduler
	store := cache.NewStore(cfg.Cache.Freshness, cfg.Cache.Staleness)
	refresher := cache.NewRefresher(db, store).
		WithPublisher(producer).
		WithNotifier(hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pre-warm the snapshot; a failure is not fatal, the first list
	// request rebuilds on demand.
	if _, err := refresher.Refresh(ctx, true, "startup"); err != nil {
		slog.Warn("cache pre-warm failed, will populate on first request", "error", err)
	}

	scheduler := cache.NewScheduler(refresher, cfg.Cache)
	go scheduler.Run(ctx)

	// Refresh as soon as the scrape pipeline reports new rows.
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create ingest consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	err = consumer.ConsumeIngested(ctx, "api-ingest", func(ctx context.Context, msg jetstream.Msg) error {
		var evt dto.IngestedEvent
		if err := json.Unmarshal(msg.Data(), &evt); err != nil {
			return err
		}
		slog.Info("ingest notification received",
			"source_pdf", evt.SourcePDF, "records", evt.RecordCount)
		_, err := refresher.Refresh(ctx, true, "ingest")
		return err
	})
	if err != nil {
		slog.Warn("start ingest consumer", "error", err)
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:    cfg.Server.APIKey,
		DB:        db,
		MinIO:     minioStore,
		Producer:  producer,
		Hub:       hub,
		Store:     store,
		Refresher: refresher,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}
