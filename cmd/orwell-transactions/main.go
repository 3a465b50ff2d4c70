package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/maddiesch/project-orwell/internal/blob"
	"github.com/maddiesch/project-orwell/internal/config"
	"github.com/maddiesch/project-orwell/internal/logger"
	"github.com/maddiesch/project-orwell/internal/store/postgres"
	"github.com/maddiesch/project-orwell/internal/transactions"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	log := logger.New("orwell-transactions")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("topic", cfg.TransactionTopic).
		Str("group", cfg.TransactionGroup).
		Msg("Transaction persister starting")

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

	persister := transactions.NewPersister(blobs, st.Transactions(), log)
	consumer := transactions.NewConsumer(cfg.Brokers(), cfg.TransactionTopic, cfg.TransactionGroup, persister, log)

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("consumer exit")
		return err
	}
	return nil
}
