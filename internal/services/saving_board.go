package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// SavingBoard is the savings screen.
type SavingBoard struct {
	*view[core.SavingMonth]

	svc *SavingService
}

func NewSavingBoard(svc *SavingService, itemsPerPage int) *SavingBoard {
	return &SavingBoard{
		view: newView[core.SavingMonth](itemsPerPage),
		svc:  svc,
	}
}

// Reload keeps the previous snapshots when the fetch fails.
func (b *SavingBoard) Reload(ctx context.Context) error {
	gen := b.begin()
	months, err := b.svc.Fetch(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Savings reload failed, keeping previous data", "error", err)
		return err
	}
	b.commit(gen, months)
	return nil
}

// Delete removes a fixed-term saving, then refetches.
func (b *SavingBoard) Delete(ctx context.Context, id int64) error {
	if err := b.svc.Delete(ctx, id); err != nil {
		return err
	}
	if err := b.Reload(ctx); err != nil {
		return fmt.Errorf("delete applied, refresh failed: %w", err)
	}
	return nil
}

// Finalize closes a flexible saving from month on, then refetches.
func (b *SavingBoard) Finalize(ctx context.Context, id int64, month core.MonthKey) error {
	if err := b.svc.Finalize(ctx, id, month); err != nil {
		return err
	}
	if err := b.Reload(ctx); err != nil {
		return fmt.Errorf("finalize applied, refresh failed: %w", err)
	}
	return nil
}

// CurrencyBreakdown is the currency split of now's month.
func (b *SavingBoard) CurrencyBreakdown(now time.Time, rate decimal.Decimal) []core.CurrencyShare {
	return CurrencyBreakdown(b.Months(), now, rate)
}

// Series is the invested and obtained evolution over every loaded month.
func (b *SavingBoard) Series() []core.SavingPoint {
	return Series(b.Months())
}
