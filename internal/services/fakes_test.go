package services

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
)

type fakeBuckets struct {
	mu        sync.Mutex
	income    []core.Bucket
	fixed     []core.Bucket
	incomeErr error
	fixedErr  error
	patchErr  error
	rates     []decimal.Decimal
	patched   map[string][]core.LineItem
	// blockIncome makes FetchIncome wait for cancellation.
	blockIncome bool
	incomeCtx   error
}

func (f *fakeBuckets) FetchIncome(ctx context.Context, rate decimal.Decimal) ([]core.Bucket, error) {
	f.mu.Lock()
	f.rates = append(f.rates, rate)
	block := f.blockIncome
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		f.mu.Lock()
		f.incomeCtx = ctx.Err()
		f.mu.Unlock()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.income, f.incomeErr
}

func (f *fakeBuckets) FetchFixedCosts(_ context.Context, rate decimal.Decimal) ([]core.Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fixed, f.fixedErr
}

func (f *fakeBuckets) PatchIncome(_ context.Context, item core.LineItem) error {
	return f.patch("income", item)
}

func (f *fakeBuckets) PatchFixedCost(_ context.Context, item core.LineItem) error {
	return f.patch("fixedCost", item)
}

func (f *fakeBuckets) patch(kind string, item core.LineItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patchErr != nil {
		return f.patchErr
	}
	if f.patched == nil {
		f.patched = map[string][]core.LineItem{}
	}
	f.patched[kind] = append(f.patched[kind], item)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.MutationEvent
	err    error
}

func (p *fakePublisher) PublishMutation(_ context.Context, msg *amqp.MutationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
	return p.err
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func item(id int64, name, price string) core.LineItem {
	return core.LineItem{ID: id, Name: name, Price: dec(price)}
}

func bucketOf(date string, items ...core.LineItem) core.Bucket {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price)
	}
	return core.Bucket{Date: core.MonthKey(date), Items: items, Total: total}
}
