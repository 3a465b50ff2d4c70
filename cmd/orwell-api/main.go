package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maddiesch/project-orwell/internal/api"
	"github.com/maddiesch/project-orwell/internal/blob"
	"github.com/maddiesch/project-orwell/internal/config"
	"github.com/maddiesch/project-orwell/internal/faceprint"
	"github.com/maddiesch/project-orwell/internal/health"
	"github.com/maddiesch/project-orwell/internal/logger"
	"github.com/maddiesch/project-orwell/internal/match"
	"github.com/maddiesch/project-orwell/internal/recognition"
	"github.com/maddiesch/project-orwell/internal/store/postgres"
	"github.com/maddiesch/project-orwell/internal/taskqueue"
	"github.com/maddiesch/project-orwell/internal/transactions"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	log := logger.New("orwell-api")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Int("http_port", cfg.HTTPPort).
		Str("collection_template", cfg.CollectionTemplate).
		Str("qdrant_host", cfg.QdrantHost).
		Msg("API starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error().Err(err).Msg("postgres open")
		return err
	}
	defer pool.Close()

	if err := postgres.Bootstrap(ctx, pool); err != nil {
		log.Error().Err(err).Msg("postgres bootstrap")
		return err
	}
	st := postgres.NewWithPool(pool)

	blobs, err := blob.NewRedis(cfg.RedisAddr)
	if err != nil {
		log.Error().Err(err).Msg("redis open")
		return err
	}

	queue := taskqueue.NewPostgres(pool, cfg.QueueVisibilityTimeout)
	if err := queue.Bootstrap(ctx); err != nil {
		log.Error().Err(err).Msg("queue bootstrap")
		return err
	}

	faceprints := faceprint.NewHTTPProvider(cfg.FaceprintURL)
	engine, err := recognition.NewQdrantEngine(cfg.QdrantHost, cfg.QdrantPort, faceprints, blobs, cfg.FaceprintDimension, log)
	if err != nil {
		log.Error().Err(err).Msg("recognition engine")
		return err
	}

	publisher := transactions.NewKafkaPublisher(cfg.Brokers(), cfg.TransactionTopic)
	defer func() { _ = publisher.Close() }()

	matchSvc := match.NewService(engine, st.Identities(), publisher, cfg.CollectionTemplate, log)

	router := api.NewRouter(
		api.NewIndexHandler(queue, log),
		api.NewFindHandler(matchSvc, log),
		api.NewHealthHandler(map[string]health.Pinger{
			"postgres":  queue,
			"blobs":     blobs,
			"engine":    engine,
			"faceprint": faceprints,
		}),
	)

	server := &http.Server{
		Addr:         cfg.GetHTTPAddr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}
}
