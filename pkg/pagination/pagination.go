// Package pagination defines the page request/envelope contract shared by
// every list endpoint: zero-based page index, clamped page size, a sort spec
// validated against a per-entity whitelist, and an optional free-text filter
// token matched against the entity's default search field.
package pagination

import "errors"

const (
	DefaultSize = 20
	MaxSize     = 100
)

var ErrInvalidSortField = errors.New("unknown sort field")

// Request carries the list parameters as received from the caller.
// Filter is matched case-insensitively as a substring against the entity's
// default search field; empty means match-all.
type Request struct {
	Page      int
	Size      int
	OrderBy   string
	Ascending bool
	Filter    string
}

// Normalize clamps the request into the allowed bounds. Oversized pages are
// clamped to MaxSize rather than rejected; negative page indices become 0.
func (r Request) Normalize() Request {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Size <= 0 {
		r.Size = DefaultSize
	}
	if r.Size > MaxSize {
		r.Size = MaxSize
	}
	return r
}

// Offset returns the row offset for the normalized request.
func (r Request) Offset() int {
	return r.Page * r.Size
}

// SortColumn resolves OrderBy against the given whitelist of exposed sort
// fields. An empty OrderBy falls back to defaultField. Unknown fields fail
// with ErrInvalidSortField rather than being passed through to the store.
func (r Request) SortColumn(allowed map[string]string, defaultField string) (string, error) {
	if r.OrderBy == "" {
		return allowed[defaultField], nil
	}
	col, ok := allowed[r.OrderBy]
	if !ok {
		return "", ErrInvalidSortField
	}
	return col, nil
}

// Direction returns the SQL sort direction keyword.
func (r Request) Direction() string {
	if r.Ascending {
		return "ASC"
	}
	return "DESC"
}

// Page is the envelope returned by every list operation.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
	PageIndex     int   `json:"page_index"`
	PageSize      int   `json:"page_size"`
}

// New builds a page envelope from the fetched slice and the total row count.
// A request beyond the last page yields empty content with the true total.
// The request is normalized first, so a zero-value Request is safe.
func New[T any](content []T, total int64, req Request) Page[T] {
	req = req.Normalize()
	if content == nil {
		content = []T{}
	}
	pages := int(total) / req.Size
	if int(total)%req.Size != 0 {
		pages++
	}
	return Page[T]{
		Content:       content,
		TotalElements: total,
		TotalPages:    pages,
		PageIndex:     req.Page,
		PageSize:      req.Size,
	}
}

// Map converts a page of one element type into another, preserving the
// envelope. Used to project entities into view DTOs without re-counting.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, len(p.Content))
	for i, el := range p.Content {
		out[i] = fn(el)
	}
	return Page[U]{
		Content:       out,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		PageIndex:     p.PageIndex,
		PageSize:      p.PageSize,
	}
}
