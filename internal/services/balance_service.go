package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/monthly"
	"finanzas/internal/source"
)

// Series kinds accepted by CloseOut.
const (
	KindIncome    = amqp.KindIncome
	KindFixedCost = amqp.KindFixedCost
)

// BalanceService fetches and merges the income and fixed-cost series and
// closes out recurring items.
type BalanceService struct {
	src       source.BucketSource
	patcher   source.BucketPatcher
	publisher EventPublisher
}

func NewBalanceService(src source.BucketSource, patcher source.BucketPatcher, publisher EventPublisher) *BalanceService {
	return &BalanceService{src: src, patcher: patcher, publisher: publisher}
}

// FetchAndMerge fetches both series concurrently and merges them once both
// arrived. Either failure fails the whole call and cancels the other fetch.
func (s *BalanceService) FetchAndMerge(ctx context.Context, rate decimal.Decimal) ([]core.MergedMonth, error) {
	var income, fixed []core.Bucket

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = s.src.FetchIncome(gctx, rate)
		return err
	})
	g.Go(func() error {
		var err error
		fixed, err = s.src.FetchFixedCosts(gctx, rate)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch balances: %w", err)
	}

	merged, err := monthly.Merge(income, fixed)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "Balances merged",
		"income_months", len(income),
		"fixed_cost_months", len(fixed),
		"merged_months", len(merged))
	return merged, nil
}

// CloseOut ends item from month on: the patch carries date_to set to the
// month before. Nothing is sent for unknown kinds or the card-spend row.
func (s *BalanceService) CloseOut(ctx context.Context, kind string, item core.LineItem, month core.MonthKey) error {
	var patch func(context.Context, core.LineItem) error
	switch kind {
	case KindIncome:
		patch = s.patcher.PatchIncome
	case KindFixedCost:
		patch = s.patcher.PatchFixedCost
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if !item.Closable() {
		return fmt.Errorf("%w: %q", ErrNotClosable, item.Name)
	}
	dateTo, err := month.AddMonths(-1)
	if err != nil {
		return err
	}

	item.DateTo = dateTo
	if err := patch(ctx, item); err != nil {
		return fmt.Errorf("close out %s %q: %w", kind, item.Name, err)
	}

	slog.InfoContext(ctx, "Recurring item closed out",
		"kind", kind, "item", item.Name, "date_to", dateTo)

	ev := amqp.NewMutationEvent(kind, amqp.OpCloseOut, item.ID, item.Name)
	ev.Month = month.String()
	ev.DateTo = dateTo.String()
	publish(ctx, s.publisher, ev)
	return nil
}
