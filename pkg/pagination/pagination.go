// Package pagination pages in-memory product lists by page and per_page
// query parameters.
package pagination

import (
	"math"
	"net/http"
	"strconv"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	// MaxPage keeps Offset representable for any per_page FromRequest allows.
	MaxPage = math.MaxInt / MaxPerPage
)

// Params selects one page. Page is 1-based.
type Params struct {
	Page    int
	PerPage int
}

// Offset is the index of the first item on the page. It saturates at
// math.MaxInt instead of overflowing.
func (p Params) Offset() int {
	if p.PerPage > 0 && p.Page-1 > math.MaxInt/p.PerPage {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PerPage
}

// FromRequest reads page and per_page from the query string. Missing,
// malformed or non-positive values mean page 1 and DefaultPerPage. page is
// capped at MaxPage and per_page at MaxPerPage.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	return Params{
		Page:    min(positiveOr(q.Get("page"), 1), MaxPage),
		PerPage: min(positiveOr(q.Get("per_page"), DefaultPerPage), MaxPerPage),
	}
}

func positiveOr(raw string, fallback int) int {
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return fallback
}

// Page is one page of a list with the totals needed to walk the rest.
type Page[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Paginate cuts the page selected by p out of items. Data is never nil, so
// a page past the end encodes as [] next to the real totals.
func Paginate[T any](items []T, p Params) Page[T] {
	total := len(items)
	start := min(max(p.Offset(), 0), total)
	end := total
	pages := 0
	if p.PerPage > 0 {
		end = min(start+p.PerPage, total)
		pages = (total + p.PerPage - 1) / p.PerPage
	}

	data := make([]T, end-start)
	copy(data, items[start:end])

	return Page[T]{
		Data:       data,
		TotalCount: total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: pages,
		HasNext:    p.Page < pages,
		HasPrev:    p.Page > 1,
	}
}
