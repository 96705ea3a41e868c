package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"enrolld/internal/batch"
	batchhandler "enrolld/internal/batch/handler"
	httpapi "enrolld/internal/http"
	identityservice "enrolld/internal/identity/service"
	identitystore "enrolld/internal/identity/store"
	jwttoken "enrolld/internal/jwt_token"
	"enrolld/internal/platform/config"
	"enrolld/internal/platform/httpserver"
	"enrolld/internal/platform/kafka"
	"enrolld/internal/platform/kafka/producer"
	"enrolld/internal/platform/logger"
	"enrolld/internal/platform/metrics"
	"enrolld/internal/platform/postgres"
	redisplatform "enrolld/internal/platform/redis"
	"enrolld/internal/progress"
	progresshandler "enrolld/internal/progress/handler"
	"enrolld/internal/upload"
	uploadhandler "enrolld/internal/upload/handler"
	"enrolld/internal/upload/staging"
	uploadstore "enrolld/internal/upload/store"
)

// main wires the ingress binary: chunk ingestion, fan-out control and
// progress polling. Lane consumers live in cmd/worker.
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

	store := uploadstore.NewPostgresStore(db)
	artifacts := staging.New(cfg.Storage.StagingDir, cfg.Storage.AssembledDir)
	uploads := upload.NewService(store, artifacts, tracker, m, log)

	identities := identityservice.New(identitystore.NewPostgresStore(db), log)
	dispatcher := batch.NewDispatcher(pub, tracker, store, artifacts, cfg.Kafka.TopicPrefix, m, log)
	activator := batch.NewActivator(store, identities, dispatcher, log)

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	router := httpapi.NewRouter(httpapi.Deps{
		Validator: jwttoken.NewJWTServiceAdapter(jwtService),
		Logger:    log,
		Metrics:   m,
		Uploads:   uploadhandler.New(uploads, store, log),
		Batches:   batchhandler.New(dispatcher, activator, log),
		Progress:  progresshandler.New(tracker),
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
