package queries

import (
	"errors"
	"fmt"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

var ErrInvalidPage = errors.New("invalid pagination")

// Page selects a window of results. Zero values mean the defaults.
type Page struct {
	Page  int
	Limit int
}

func (p Page) normalize() (Page, error) {
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Page < 1 {
		return p, fmt.Errorf("%w: page must be at least 1", ErrInvalidPage)
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return p, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidPage, MaxLimit)
	}
	return p, nil
}

func (p Page) offset() int {
	return (p.Page - 1) * p.Limit
}

// Result is one page of documents plus the paging metadata clients need.
type Result[T any] struct {
	Docs        []T   `json:"docs"`
	TotalDocs   int64 `json:"totalDocs"`
	TotalPages  int   `json:"totalPages"`
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	HasNextPage bool  `json:"hasNextPage"`
}

func newResult[T any](docs []T, total int64, p Page) *Result[T] {
	if docs == nil {
		docs = []T{}
	}
	totalPages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return &Result[T]{
		Docs:        docs,
		TotalDocs:   total,
		TotalPages:  totalPages,
		Page:        p.Page,
		Limit:       p.Limit,
		HasNextPage: p.Page < totalPages,
	}
}
