package services

import (
	"sync"
	"time"

	"finanzas/internal/monthly"
)

// view is the screen state shared by the boards: the loaded months and the
// cursor over them. Loads are numbered so that a slow reload finishing after
// a newer one cannot overwrite fresher data.
type view[T monthly.Keyed] struct {
	mu     sync.Mutex
	months []T
	cursor monthly.Cursor
	gen    uint64
	now    func() time.Time
}

func newView[T monthly.Keyed](itemsPerPage int) *view[T] {
	return &view[T]{
		months: []T{},
		cursor: monthly.NewCursor(itemsPerPage),
		now:    time.Now,
	}
}

// begin reserves a load number.
func (v *view[T]) begin() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	return v.gen
}

// commit stores a successful load and focuses the current month. It
// reports false when a newer load already started.
func (v *view[T]) commit(gen uint64, months []T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return false
	}
	v.months = months
	v.cursor = monthly.FocusCurrentMonth(v.months, v.now(), v.cursor)
	return true
}

func (v *view[T]) Next() monthly.Page[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cursor = v.cursor.Advance(monthly.Forward, len(v.months))
	return monthly.PageOf(v.months, v.cursor)
}

func (v *view[T]) Prev() monthly.Page[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cursor = v.cursor.Advance(monthly.Backward, len(v.months))
	return monthly.PageOf(v.months, v.cursor)
}

// FocusCurrent moves the window next to the current month, if loaded.
func (v *view[T]) FocusCurrent() monthly.Page[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cursor = monthly.FocusCurrentMonth(v.months, v.now(), v.cursor)
	return monthly.PageOf(v.months, v.cursor)
}

// SetItemsPerPage changes the page size and goes back to the first page.
// Non-positive sizes fall back to the default.
func (v *view[T]) SetItemsPerPage(n int) monthly.Page[T] {
	if n <= 0 {
		n = monthly.DefaultItemsPerPage
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cursor = v.cursor.WithItemsPerPage(n)
	return monthly.PageOf(v.months, v.cursor)
}

func (v *view[T]) Page() monthly.Page[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return monthly.PageOf(v.months, v.cursor)
}

func (v *view[T]) Cursor() monthly.Cursor {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cursor
}

// Months returns a copy of everything loaded.
func (v *view[T]) Months() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]T, len(v.months))
	copy(out, v.months)
	return out
}
