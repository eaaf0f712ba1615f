package model

import "math"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest selects a page by zero-based index and size.
type PageRequest struct {
	PageIndex int `json:"pageIndex" validate:"gte=0"`
	PageSize  int `json:"pageSize" validate:"gte=1,lte=100"`
}

// Offset is the number of records skipped before the page starts. An offset
// too large for an int is clamped, which still selects an empty page.
func (p PageRequest) Offset() int {
	if p.PageSize <= 0 {
		return 0
	}
	if p.PageIndex > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return p.PageIndex * p.PageSize
}

// Validate validates the page request
func (p PageRequest) Validate() error {
	if p.PageIndex < 0 {
		return &ValidationError{Field: "pageIndex", Message: "page index cannot be negative"}
	}
	if p.PageSize <= 0 || p.PageSize > MaxPageSize {
		return &ValidationError{Field: "pageSize", Message: "page size must be between 1 and 100"}
	}
	return nil
}

// Page is a bounded slice of an ordered collection together with the total
// number of elements in the collection.
type Page[T any] struct {
	Index    int   `json:"index"`
	PageSize int   `json:"pageSize"`
	Count    int64 `json:"count"`
	Items    []T   `json:"items"`
}

// NewPage builds a page, normalising a nil item slice to an empty one.
func NewPage[T any](req PageRequest, count int64, items []T) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Index:    req.PageIndex,
		PageSize: req.PageSize,
		Count:    count,
		Items:    items,
	}
}
