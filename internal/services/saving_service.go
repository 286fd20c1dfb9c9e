package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/source"
)

var hundred = decimal.NewFromInt(100)

// KindSaving tags saving mutations.
const KindSaving = amqp.KindSaving

type SavingService struct {
	src       source.SavingSource
	mutator   source.SavingMutator
	publisher EventPublisher
}

func NewSavingService(src source.SavingSource, mutator source.SavingMutator, publisher EventPublisher) *SavingService {
	return &SavingService{src: src, mutator: mutator, publisher: publisher}
}

// Fetch returns the saving snapshots in chronological order.
func (s *SavingService) Fetch(ctx context.Context) ([]core.SavingMonth, error) {
	months, err := s.src.FetchSavings(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch savings: %w", err)
	}

	type dated struct {
		at    time.Time
		month core.SavingMonth
	}
	sorted := make([]dated, 0, len(months))
	for _, m := range months {
		at, err := m.Date.Time()
		if err != nil {
			return nil, fmt.Errorf("fetch savings: %w", err)
		}
		sorted = append(sorted, dated{at: at, month: m})
	}
	slices.SortStableFunc(sorted, func(a, b dated) int { return a.at.Compare(b.at) })

	out := make([]core.SavingMonth, len(sorted))
	for i, d := range sorted {
		out[i] = d.month
	}
	return out, nil
}

// Delete removes a fixed-term saving. Only "fijo" positions can be deleted.
func (s *SavingService) Delete(ctx context.Context, id int64) error {
	item, err := s.lookup(ctx, id, "")
	if err != nil {
		return err
	}
	if !item.Deletable() {
		return fmt.Errorf("%w: %q is %q", ErrNotDeletable, item.Name, item.Type)
	}
	if err := s.mutator.DeleteSaving(ctx, id); err != nil {
		return fmt.Errorf("delete saving: %w", err)
	}

	slog.InfoContext(ctx, "Saving deleted", "id", id, "name", item.Name)
	publish(ctx, s.publisher, amqp.NewMutationEvent(amqp.KindSaving, amqp.OpDelete, id, item.Name))
	return nil
}

// Finalize closes a flexible saving from month on, setting date_to to the
// month before.
func (s *SavingService) Finalize(ctx context.Context, id int64, month core.MonthKey) error {
	dateTo, err := month.AddMonths(-1)
	if err != nil {
		return err
	}
	item, err := s.lookup(ctx, id, month)
	if err != nil {
		return err
	}
	if !item.Finalizable() {
		return fmt.Errorf("%w: %q is %q", ErrNotFinalizable, item.Name, item.Type)
	}

	item.DateTo = dateTo
	if err := s.mutator.PatchSaving(ctx, item); err != nil {
		return fmt.Errorf("finalize saving: %w", err)
	}

	slog.InfoContext(ctx, "Saving finalized", "id", id, "name", item.Name, "date_to", dateTo)
	ev := amqp.NewMutationEvent(amqp.KindSaving, amqp.OpFinalize, id, item.Name)
	ev.Month = month.String()
	ev.DateTo = dateTo.String()
	publish(ctx, s.publisher, ev)
	return nil
}

// lookup finds the position with id, preferring its snapshot in month.
func (s *SavingService) lookup(ctx context.Context, id int64, month core.MonthKey) (core.SavingItem, error) {
	months, err := s.src.FetchSavings(ctx)
	if err != nil {
		return core.SavingItem{}, fmt.Errorf("fetch savings: %w", err)
	}
	var (
		found core.SavingItem
		ok    bool
	)
	for _, m := range months {
		for _, it := range m.Saving {
			if it.ID != id {
				continue
			}
			if !ok || m.Date == month {
				found, ok = it, true
			}
		}
	}
	if !ok {
		return core.SavingItem{}, fmt.Errorf("%w: %d", ErrSavingNotFound, id)
	}
	return found, nil
}

// CurrencyBreakdown splits the savings of now's month by currency. Each
// position counts its obtained amount, or the invested one when nothing
// was obtained yet; amounts not in pesos are converted with rate. Months
// other than now's are ignored; an absent month gives no shares.
func CurrencyBreakdown(months []core.SavingMonth, now time.Time, rate decimal.Decimal) []core.CurrencyShare {
	idx := slices.IndexFunc(months, func(m core.SavingMonth) bool { return m.Date.Matches(now) })
	if idx < 0 {
		return []core.CurrencyShare{}
	}

	byCcy := map[string]decimal.Decimal{}
	total := decimal.Zero
	for _, it := range months[idx].Saving {
		ccy := it.Currency()
		v := it.Value()
		if ccy != core.BaseCurrency {
			v = v.Mul(rate)
		}
		byCcy[ccy] = byCcy[ccy].Add(v)
		total = total.Add(v)
	}

	out := make([]core.CurrencyShare, 0, len(byCcy))
	for ccy, v := range byCcy {
		pct := decimal.Zero
		if !total.IsZero() {
			pct = v.Div(total).Mul(hundred).Round(0)
		}
		out = append(out, core.CurrencyShare{Ccy: ccy, Value: v.Round(2), Percent: pct})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ccy < out[j].Ccy })
	return out
}

// Series sums invested and obtained amounts per month.
func Series(months []core.SavingMonth) []core.SavingPoint {
	out := make([]core.SavingPoint, 0, len(months))
	for _, m := range months {
		p := core.SavingPoint{Date: m.Date, Invested: decimal.Zero, Obtained: decimal.Zero}
		for _, it := range m.Saving {
			p.Invested = p.Invested.Add(it.Invested)
			p.Obtained = p.Obtained.Add(it.Obtained)
		}
		out = append(out, p)
	}
	return out
}
