// Package monthly merges the income and fixed-cost series by calendar month
// and pages over month-keyed sequences.
//
// Everything here is a pure function of its inputs. Callers own the cursor
// and pass it in and out explicitly.
package monthly

import (
	"fmt"
	"slices"
	"time"

	"finanzas/internal/core"
)

// Merge pairs income and fixed-cost buckets by month and returns them in
// chronological order.
//
// A month present in only one input gets an empty side for the other one.
// Months whose both sides carry no items are dropped. When a key appears
// more than once in an input, the first bucket wins. A key that does not
// parse as "YYYY-MM" fails the whole merge.
func Merge(income, fixedCost []core.Bucket) ([]core.MergedMonth, error) {
	incomeByMonth := indexBuckets(income)
	fixedByMonth := indexBuckets(fixedCost)

	keys := make([]core.MonthKey, 0, len(incomeByMonth)+len(fixedByMonth))
	seen := make(map[core.MonthKey]struct{}, cap(keys))
	for _, src := range [][]core.Bucket{income, fixedCost} {
		for _, b := range src {
			if _, ok := seen[b.Date]; ok {
				continue
			}
			seen[b.Date] = struct{}{}
			keys = append(keys, b.Date)
		}
	}

	type dated struct {
		at    time.Time
		month core.MergedMonth
	}
	merged := make([]dated, 0, len(keys))
	for _, key := range keys {
		at, err := key.Time()
		if err != nil {
			return nil, fmt.Errorf("merge monthly series: %w", err)
		}

		m := core.MergedMonth{
			Date:      key,
			Income:    core.EmptySide(),
			FixedCost: core.EmptySide(),
		}
		if b, ok := incomeByMonth[key]; ok {
			m.Income = b.Side()
		}
		if b, ok := fixedByMonth[key]; ok {
			m.FixedCost = b.Side()
		}
		if len(m.Income.Items) == 0 && len(m.FixedCost.Items) == 0 {
			continue
		}
		merged = append(merged, dated{at: at, month: m})
	}

	slices.SortStableFunc(merged, func(a, b dated) int {
		return a.at.Compare(b.at)
	})

	out := make([]core.MergedMonth, len(merged))
	for i, d := range merged {
		out[i] = d.month
	}
	return out, nil
}

func indexBuckets(buckets []core.Bucket) map[core.MonthKey]core.Bucket {
	idx := make(map[core.MonthKey]core.Bucket, len(buckets))
	for _, b := range buckets {
		if _, ok := idx[b.Date]; ok {
			continue
		}
		idx[b.Date] = b
	}
	return idx
}
