// Package memory is an in-process stand-in for the finance API. It plays
// the server role: patches and deletes change what later fetches return.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

var ErrNotFound = errors.New("item not found")

// Seed file names looked up in the data directory.
const (
	IncomeFile    = "incomes.json"
	FixedCostFile = "fixed_costs.json"
	SavingFile    = "savings.json"
)

type Store struct {
	mu      sync.Mutex
	income  []core.Bucket
	fixed   []core.Bucket
	savings []core.SavingMonth
	user    core.User
}

func New(income, fixedCost []core.Bucket, savings []core.SavingMonth) *Store {
	return &Store{
		income:  cloneBuckets(income),
		fixed:   cloneBuckets(fixedCost),
		savings: cloneSavings(savings),
		user:    core.User{ID: 1, Username: "demo"},
	}
}

// NewFromFiles seeds the store from JSON files in base. Missing files yield
// empty series; files that do not decode are an error.
func NewFromFiles(base string) (*Store, error) {
	var (
		income, fixed []core.Bucket
		savings       []core.SavingMonth
	)
	if err := readJSON(filepath.Join(base, IncomeFile), &income); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(base, FixedCostFile), &fixed); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(base, SavingFile), &savings); err != nil {
		return nil, err
	}
	return New(income, fixed, savings), nil
}

// FetchIncome ignores the rate: seeded amounts are already in pesos.
func (s *Store) FetchIncome(_ context.Context, _ decimal.Decimal) ([]core.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneBuckets(s.income), nil
}

func (s *Store) FetchFixedCosts(_ context.Context, _ decimal.Decimal) ([]core.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneBuckets(s.fixed), nil
}

func (s *Store) PatchIncome(_ context.Context, item core.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return closeItem(s.income, item)
}

func (s *Store) PatchFixedCost(_ context.Context, item core.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return closeItem(s.fixed, item)
}

func (s *Store) FetchSavings(_ context.Context) ([]core.SavingMonth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSavings(s.savings), nil
}

// DeleteSaving removes the position from every month.
func (s *Store) DeleteSaving(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for i := range s.savings {
		before := len(s.savings[i].Saving)
		s.savings[i].Saving = slices.DeleteFunc(s.savings[i].Saving, func(it core.SavingItem) bool {
			return it.ID == id
		})
		found = found || len(s.savings[i].Saving) != before
	}
	if !found {
		return fmt.Errorf("saving %d: %w", id, ErrNotFound)
	}
	return nil
}

// PatchSaving sets date_to on the position and drops it from later months.
func (s *Store) PatchSaving(_ context.Context, item core.SavingItem) error {
	end, err := item.DateTo.Time()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for i := range s.savings {
		at, err := s.savings[i].Date.Time()
		if err != nil {
			continue
		}
		kept := s.savings[i].Saving[:0]
		for _, it := range s.savings[i].Saving {
			if it.ID != item.ID {
				kept = append(kept, it)
				continue
			}
			found = true
			if at.After(end) {
				continue
			}
			it.DateTo = item.DateTo
			kept = append(kept, it)
		}
		s.savings[i].Saving = kept
	}
	if !found {
		return fmt.Errorf("saving %d: %w", item.ID, ErrNotFound)
	}
	return nil
}

func (s *Store) CurrentUser(_ context.Context) (core.User, error) {
	return s.user, nil
}

// closeItem applies a close-out to buckets in place and recomputes the
// totals of every bucket it touched. Items match by id, or by name when
// the patch carries no id.
func closeItem(buckets []core.Bucket, item core.LineItem) error {
	end, err := item.DateTo.Time()
	if err != nil {
		return err
	}
	match := func(it core.LineItem) bool {
		if item.ID != 0 {
			return it.ID == item.ID
		}
		return it.Name == item.Name
	}

	found := false
	for i := range buckets {
		at, err := buckets[i].Date.Time()
		if err != nil {
			continue
		}
		touched := false
		kept := buckets[i].Items[:0]
		for _, it := range buckets[i].Items {
			if !match(it) {
				kept = append(kept, it)
				continue
			}
			found, touched = true, true
			if at.After(end) {
				continue
			}
			it.DateTo = item.DateTo
			kept = append(kept, it)
		}
		buckets[i].Items = kept
		if touched {
			buckets[i].Total = sumPrices(kept)
		}
	}
	if !found {
		return fmt.Errorf("%q: %w", item.Name, ErrNotFound)
	}
	return nil
}

func sumPrices(items []core.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price)
	}
	return total
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func cloneBuckets(in []core.Bucket) []core.Bucket {
	out := make([]core.Bucket, len(in))
	for i, b := range in {
		b.Items = slices.Clone(b.Items)
		out[i] = b
	}
	return out
}

func cloneSavings(in []core.SavingMonth) []core.SavingMonth {
	out := make([]core.SavingMonth, len(in))
	for i, m := range in {
		m.Saving = slices.Clone(m.Saving)
		out[i] = m
	}
	return out
}
