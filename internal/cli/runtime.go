package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"finanzas/internal/amqp"
	"finanzas/internal/backend"
	"finanzas/internal/config"
	"finanzas/internal/export"
	applog "finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/source"
)

// ErrSheetsDisabled is returned when Sheets export is asked for but not configured.
var ErrSheetsDisabled = errors.New("google sheets export is not configured")

// Runtime is the wired application: source, services and the optional
// event publisher.
type Runtime struct {
	Config    *config.Config
	Logger    *applog.Logger
	Source    source.Source
	Balances  *services.BalanceService
	Savings   *services.SavingService
	Publisher *amqp.Client
	Rate      decimal.Decimal

	closers []func() error
}

// NewRuntime builds the data backend and the services on top of it. AMQP
// is optional: without AMQP_URL, or when the broker is unreachable,
// mutations work and publish nothing.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*Runtime, error) {
	rate, err := cfg.Rate()
	if err != nil {
		return nil, err
	}
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentSource).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Config: cfg, Logger: logger, Source: result.Backend, Rate: rate}
	if result.Cleanup != nil {
		rt.closers = append(rt.closers, result.Cleanup)
	}

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, mutation events disabled", applog.FieldError, err)
		} else {
			rt.Publisher = client
			rt.closers = append(rt.closers, client.Close)
			publisher = client
		}
	}

	rt.Balances = services.NewBalanceService(rt.Source, rt.Source, publisher)
	rt.Savings = services.NewSavingService(rt.Source, rt.Source, publisher)
	return rt, nil
}

// SheetsExporter connects to the configured spreadsheet.
func (r *Runtime) SheetsExporter(ctx context.Context) (*export.SheetsExporter, error) {
	if !r.Config.SheetsEnabled() {
		return nil, ErrSheetsDisabled
	}
	creds, err := export.CredentialsOption(r.Config.GoogleServiceAccountJSON, r.Config.GoogleServiceAccountFile)
	if err != nil {
		return nil, err
	}
	exp, err := export.NewSheetsExporter(ctx, r.Config.GoogleSpreadsheetID, r.Config.GoogleSheetName, creds)
	if err != nil {
		return nil, fmt.Errorf("init sheets exporter: %w", err)
	}
	return exp, nil
}

// Close releases everything in reverse order of creation.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
