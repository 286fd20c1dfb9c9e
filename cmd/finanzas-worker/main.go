package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/cli"
	applog "finanzas/internal/log"
	"finanzas/internal/worker"
)

func main() {
	configFile := flag.String("config", "", "Path to a TOML, YAML, or JSON configuration file")
	flag.Parse()

	logger := cli.SetupLogger(nil, applog.ComponentWorker, os.Stdout)
	cfg := cli.MustLoadConfig(logger, *configFile)
	logger = cli.SetupLogger(cfg, applog.ComponentWorker, os.Stdout)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	logger.Info("Starting finanzas-worker")

	journal := cli.InitJournal(logger, cfg.SQLiteDBPath)
	defer journal.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// The broker may come up after the worker in compose setups.
	client, err := amqp.DialWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 2*time.Minute)
	if err != nil {
		if ctx.Err() != nil {
			cli.WaitForShutdown(ctx, done)
			return
		}
		logger.Error("Failed to connect to AMQP", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	if counts, err := journal.CountByKind(ctx); err == nil {
		logger.Info("Journal opened", "path", cfg.SQLiteDBPath, "entries_by_kind", counts)
	}

	jw := worker.NewJournalWorker(journal)
	if err := client.ConsumeMutations(ctx, jw.HandleMutation); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		client.Close()
		journal.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
