package monthly

import (
	"time"

	"finanzas/internal/core"
)

// DefaultItemsPerPage is the page size screens start with.
const DefaultItemsPerPage = 3

// Direction of a page move.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Keyed is any entry that belongs to a calendar month.
type Keyed interface {
	MonthKey() core.MonthKey
}

// Cursor is the window position over a month sequence.
type Cursor struct {
	StartIndex   int `json:"start"`
	ItemsPerPage int `json:"per_page"`
}

// Page is a window plus the cursor that produced it.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Start   int  `json:"start"`
	PerPage int  `json:"per_page"`
	Length  int  `json:"length"`
	HasPrev bool `json:"has_prev"`
	HasNext bool `json:"has_next"`
}

// NewCursor returns a cursor at the start of the sequence.
func NewCursor(itemsPerPage int) Cursor {
	if itemsPerPage <= 0 {
		itemsPerPage = DefaultItemsPerPage
	}
	return Cursor{ItemsPerPage: itemsPerPage}
}

// Window returns seq[start : start+perPage] clipped to the sequence bounds.
func Window[T any](seq []T, c Cursor) []T {
	start := max(c.StartIndex, 0)
	if c.ItemsPerPage <= 0 || start >= len(seq) {
		return []T{}
	}
	end := min(start+c.ItemsPerPage, len(seq))
	out := make([]T, end-start)
	copy(out, seq[start:end])
	return out
}

// PageOf windows seq and reports the surrounding navigation state.
func PageOf[T any](seq []T, c Cursor) Page[T] {
	items := Window(seq, c)
	return Page[T]{
		Items:   items,
		Start:   c.StartIndex,
		PerPage: c.ItemsPerPage,
		Length:  len(seq),
		HasPrev: c.StartIndex > 0,
		HasNext: c.StartIndex+len(items) < len(seq),
	}
}

// Advance moves the cursor one page. Going forward never starts a page
// past max(0, length-perPage); going backward never goes below zero.
func (c Cursor) Advance(dir Direction, length int) Cursor {
	switch dir {
	case Forward:
		last := max(0, length-c.ItemsPerPage)
		c.StartIndex = min(c.StartIndex+c.ItemsPerPage, last)
	case Backward:
		c.StartIndex = max(c.StartIndex-c.ItemsPerPage, 0)
	}
	return c
}

// WithItemsPerPage changes the page size and restarts from the first entry.
func (c Cursor) WithItemsPerPage(n int) Cursor {
	return Cursor{StartIndex: 0, ItemsPerPage: n}
}

// FocusCurrentMonth positions the window one entry before the month of now,
// keeping a month of lookback visible. The cursor is returned unchanged when
// the sequence does not contain that month.
func FocusCurrentMonth[T Keyed](seq []T, now time.Time, c Cursor) Cursor {
	for i, entry := range seq {
		if entry.MonthKey().Matches(now) {
			c.StartIndex = max(i-1, 0)
			return c
		}
	}
	return c
}
