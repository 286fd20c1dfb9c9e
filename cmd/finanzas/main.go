package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"finanzas/internal/cache"
	"finanzas/internal/cli"
	apphttp "finanzas/internal/http"
	applog "finanzas/internal/log"
)

func main() {
	configFile := flag.String("config", "", "Path to a TOML, YAML, or JSON configuration file")
	flag.Parse()

	logger := cli.SetupLogger(nil, applog.ComponentApp, os.Stdout)
	cfg := cli.MustLoadConfig(logger, *configFile)
	logger = cli.SetupLogger(cfg, applog.ComponentApp, os.Stdout)

	rt, err := cli.NewRuntime(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize runtime", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer rt.Close()

	deps := apphttp.Deps{
		Balances:     rt.Balances,
		Savings:      rt.Savings,
		Users:        cache.NewUsers(rt.Source, 5*time.Minute),
		Rate:         rt.Rate,
		ItemsPerPage: cfg.ItemsPerPage,
		Logger:       logger.WithComponent(applog.ComponentHTTP),
	}

	// The journal is written by finanzas-worker; the server only reads it.
	journal := cli.InitJournal(logger, cfg.SQLiteDBPath)
	defer journal.Close()
	deps.Journal = journal

	if cfg.SheetsEnabled() {
		exp, err := rt.SheetsExporter(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", applog.FieldError, err)
			os.Exit(1)
		}
		deps.Sheets = exp
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled")
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.APITimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting finanzas server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", rt.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
