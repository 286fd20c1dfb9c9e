package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// BalanceBoard is the balances screen: merged months, a cursor and the
// exchange rate the months were fetched with.
type BalanceBoard struct {
	*view[core.MergedMonth]

	svc    *BalanceService
	rateMu sync.Mutex
	rate   decimal.Decimal
}

func NewBalanceBoard(svc *BalanceService, rate decimal.Decimal, itemsPerPage int) *BalanceBoard {
	return &BalanceBoard{
		view: newView[core.MergedMonth](itemsPerPage),
		svc:  svc,
		rate: rate,
	}
}

func (b *BalanceBoard) Rate() decimal.Decimal {
	b.rateMu.Lock()
	defer b.rateMu.Unlock()
	return b.rate
}

// Reload fetches and merges both series. On failure the months and cursor
// already shown are kept.
func (b *BalanceBoard) Reload(ctx context.Context) error {
	gen := b.begin()
	merged, err := b.svc.FetchAndMerge(ctx, b.Rate())
	if err != nil {
		slog.WarnContext(ctx, "Balances reload failed, keeping previous data", "error", err)
		return err
	}
	if !b.commit(gen, merged) {
		slog.DebugContext(ctx, "Discarding superseded balances load")
	}
	return nil
}

// SetExchangeRate stores rate and reloads with it.
func (b *BalanceBoard) SetExchangeRate(ctx context.Context, rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return fmt.Errorf("%w: %s", core.ErrInvalidRate, rate)
	}
	b.rateMu.Lock()
	b.rate = rate
	b.rateMu.Unlock()
	return b.Reload(ctx)
}

// CloseOut ends item from month on and reloads once the API accepted it.
// Nothing changes locally when the patch fails.
func (b *BalanceBoard) CloseOut(ctx context.Context, kind string, item core.LineItem, month core.MonthKey) error {
	if err := b.svc.CloseOut(ctx, kind, item, month); err != nil {
		return err
	}
	if err := b.Reload(ctx); err != nil {
		return fmt.Errorf("close-out applied, refresh failed: %w", err)
	}
	return nil
}
