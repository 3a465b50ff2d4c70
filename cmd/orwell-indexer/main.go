package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/maddiesch/project-orwell/internal/blob"
	"github.com/maddiesch/project-orwell/internal/config"
	"github.com/maddiesch/project-orwell/internal/faceprint"
	"github.com/maddiesch/project-orwell/internal/indexer"
	"github.com/maddiesch/project-orwell/internal/logger"
	"github.com/maddiesch/project-orwell/internal/recognition"
	"github.com/maddiesch/project-orwell/internal/store/postgres"
	"github.com/maddiesch/project-orwell/internal/taskqueue"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	log := logger.New("orwell-indexer")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Dur("interval", cfg.DispatcherInterval).
		Dur("budget", cfg.DispatcherBudget).
		Str("collection_template", cfg.CollectionTemplate).
		Msg("Indexer starting")

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

	queue := taskqueue.NewPostgres(pool, cfg.QueueVisibilityTimeout)
	if err := queue.Bootstrap(ctx); err != nil {
		log.Error().Err(err).Msg("queue bootstrap")
		return err
	}

	blobs, err := blob.NewRedis(cfg.RedisAddr)
	if err != nil {
		log.Error().Err(err).Msg("redis open")
		return err
	}

	faceprints := faceprint.NewHTTPProvider(cfg.FaceprintURL)
	engine, err := recognition.NewQdrantEngine(cfg.QdrantHost, cfg.QdrantPort, faceprints, blobs, cfg.FaceprintDimension, log)
	if err != nil {
		log.Error().Err(err).Msg("recognition engine")
		return err
	}

	worker := indexer.NewWorker(queue, engine, st.Identities(), blobs, cfg.CollectionTemplate, log)
	invoker := indexer.NewWorkerInvoker(worker, log)
	dispatcher := indexer.NewDispatcher(queue, invoker, log)

	err = dispatcher.Run(ctx, cfg.DispatcherInterval, cfg.DispatcherBudget)

	// Let accepted work drain before exiting.
	invoker.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("dispatcher exit")
		return err
	}
	return nil
}
