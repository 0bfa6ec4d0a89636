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
	"time"

	"github.com/Priya8975/webhook-gateway/internal/api"
	"github.com/Priya8975/webhook-gateway/internal/config"
	"github.com/Priya8975/webhook-gateway/internal/engine"
	"github.com/Priya8975/webhook-gateway/internal/store"
	ws "github.com/Priya8975/webhook-gateway/internal/websocket"
	"github.com/Priya8975/webhook-gateway/internal/worker"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(); err != nil {
		logger.Error("gateway stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := logStore.Close(); err != nil {
			logger.Error("failed to close log store", "error", err)
		}
	}()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := ws.NewHub(logger)
	go hub.Run(hubCtx)

	pool := worker.NewPool(cfg.AppendWorkers, logStore, func(job worker.AppendJob) {
		hub.Broadcast(ws.LogEvent{
			Type:      "log_appended",
			Channel:   job.Channel,
			Timestamp: job.Entry.Timestamp,
			Data:      job.Entry.Data,
		})
	}, logger)
	pool.Start()

	recorder := engine.NewRecorder(pool, logger)
	router := api.NewRouter(cfg, logStore, recorder, hub, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting",
			"port", cfg.Port,
			"channels", cfg.Channels,
			"store", cfg.Store,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)

		// Flush queued appends before the store closes. Handlers still
		// running after a forced shutdown have their entries dropped.
		pool.Stop()
		stopHub()

		if err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// openStore builds the primary log store selected by cfg and, when brokers
// are configured, mirrors every append to Kafka.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.LogStore, error) {
	var primary store.LogStore

	switch cfg.Store {
	case "redis":
		rs, err := store.NewRedis(ctx, cfg.RedisURL, cfg.RedisKey)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		logger.Info("connected to Redis", "key", cfg.RedisKey)
		primary = rs

	case "postgres":
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		logger.Info("connected to PostgreSQL")

		if err := pg.RunMigrations(ctx, store.Migrations()); err != nil {
			pg.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("database migrations applied")
		primary = pg

	default:
		format, err := store.ParseFormat(cfg.LogFormat)
		if err != nil {
			return nil, err
		}
		fs, err := store.NewFileStore(cfg.LogFile, format)
		if err != nil {
			return nil, err
		}
		logger.Info("logging to file", "path", fs.Path(), "format", format)
		primary = fs
	}

	if len(cfg.KafkaBrokers) == 0 {
		return primary, nil
	}

	sink, err := store.NewKafkaSink(store.KafkaConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
	}, logger)
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("creating kafka mirror: %w", err)
	}
	logger.Info("mirroring log entries to Kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	return store.NewMirror(primary, logger, sink), nil
}
