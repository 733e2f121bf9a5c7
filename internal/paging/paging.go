// Package paging holds page requests and page results shared by the store,
// the search index and the REST layer.
package paging

import (
	"strings"

	"github.com/pkg/errors"
)

// Page size defaults
const (
	DefaultSize = 20
	MaxSize     = 2000
)

// Direction is a sort direction
type Direction string

// Sort directions
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ErrInvalidSort is returned for a malformed sort expression
var ErrInvalidSort = errors.New("invalid sort expression")

// SortOrder sorts by one field
type SortOrder struct {
	Field     string
	Direction Direction
}

// Desc reports whether the order is descending
func (s SortOrder) Desc() bool {
	return s.Direction == Desc
}

// PageRequest asks for one zero-based page
type PageRequest struct {
	Page int
	Size int
	Sort []SortOrder
}

// Of builds a PageRequest, clamping page and size into range
func Of(page, size int, sort ...SortOrder) PageRequest {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return PageRequest{Page: page, Size: size, Sort: sort}
}

// Offset is the number of rows to skip
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// ParseSort parses "field,dir" expressions. A bare field sorts ascending.
// A single expression may carry several fields: "a,b,desc" sorts both a and b
// descending.
func ParseSort(exprs []string) ([]SortOrder, error) {
	var orders []SortOrder
	for _, expr := range exprs {
		parts := strings.Split(expr, ",")
		dir := Asc
		last := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
		if last == string(Asc) || last == string(Desc) {
			dir = Direction(last)
			parts = parts[:len(parts)-1]
		}
		if len(parts) == 0 {
			return nil, errors.Wrapf(ErrInvalidSort, "%q has no field", expr)
		}
		for _, p := range parts {
			field := strings.TrimSpace(p)
			if field == "" {
				return nil, errors.Wrapf(ErrInvalidSort, "%q has an empty field", expr)
			}
			orders = append(orders, SortOrder{Field: field, Direction: dir})
		}
	}
	return orders, nil
}

// Page is one page of results
type Page[T any] struct {
	Content []T
	Total   int64
	Number  int
	Size    int
}

// TotalPages is the number of pages needed for Total elements
func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 1
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}

// HasNext reports whether a page follows this one
func (p Page[T]) HasNext() bool {
	return p.Number+1 < p.TotalPages()
}

// HasPrevious reports whether a page precedes this one
func (p Page[T]) HasPrevious() bool {
	return p.Number > 0
}
