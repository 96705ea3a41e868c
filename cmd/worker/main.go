package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"enrolld/internal/batch"
	"enrolld/internal/custody"
	identityservice "enrolld/internal/identity/service"
	identitystore "enrolld/internal/identity/store"
	"enrolld/internal/lanes"
	"enrolld/internal/ledger"
	"enrolld/internal/platform/config"
	"enrolld/internal/platform/httpserver"
	"enrolld/internal/platform/kafka"
	"enrolld/internal/platform/kafka/producer"
	"enrolld/internal/platform/logger"
	"enrolld/internal/platform/metrics"
	"enrolld/internal/platform/postgres"
	redisplatform "enrolld/internal/platform/redis"
	"enrolld/internal/progress"
)

// main wires the worker binary: one lane consumer per job kind plus a
// small endpoint for health and metrics scraping.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var tracker progress.Tracker = progress.NewMemoryTracker()
	rdb, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
		tracker = progress.NewRedisTracker(rdb.Client, cfg.Worker.ProgressTTL)
	} else {
		log.Warn("redis not configured, using in-process progress tracker")
	}

	pub, err := producer.New(cfg.Kafka, log)
	if err != nil {
		log.Error("kafka producer connect failed", "error", err)
		os.Exit(1)
	}
	defer pub.Close()

	topics := make([]string, 0, len(batch.Kinds()))
	for _, kind := range batch.Kinds() {
		topics = append(topics, kind.Topic(cfg.Kafka.TopicPrefix))
	}
	if err := kafka.EnsureTopics(ctx, cfg.Kafka, topics...); err != nil {
		log.Error("topic bootstrap failed", "error", err)
		os.Exit(1)
	}

	identities := identityservice.New(identitystore.NewPostgresStore(db), log)
	keys, err := custody.New(cfg.Auth.MasterKey, custody.NewPostgresStore(db))
	if err != nil {
		log.Error("custody init failed", "error", err)
		os.Exit(1)
	}
	ledgerClient := ledger.NewHTTPClient(cfg.Ledger.BaseURL, cfg.Ledger.CallTimeout, m, log)

	handlers := lanes.Handlers(identities, keys, ledgerClient)

	g, gctx := errgroup.WithContext(ctx)
	for kind, handler := range handlers {
		lane := lanes.New(kind, cfg.Kafka, cfg.Worker, handler, pub, tracker, m, log)
		g.Go(func() error {
			return lane.Run(gctx)
		})
	}

	ops := chi.NewRouter()
	ops.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	ops.Method(http.MethodGet, "/metrics", promhttp.Handler())
	opsSrv := httpserver.New(cfg.Worker.MetricsAddr, ops)

	g.Go(func() error {
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return opsSrv.Shutdown(shutdownCtx)
	})

	log.Info("worker started",
		"lanes", len(handlers),
		"metrics_addr", cfg.Worker.MetricsAddr,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}
