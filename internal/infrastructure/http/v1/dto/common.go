// Package dto provides the JSON request and response shapes of the API.
package dto

import "mystore/internal/domain"

// ListQuery is the pagination part of list query strings.
type ListQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// Filter converts the query into a normalized domain filter.
func (q ListQuery) Filter() domain.ListFilter {
	return domain.ListFilter{Limit: q.Limit, Offset: q.Offset}.Normalize()
}

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse maps a domain page with fn.
func NewListResponse[S, T any](res domain.ListResult[S], fn func(S) T) ListResponse[T] {
	items := make([]T, len(res.Items))
	for i, it := range res.Items {
		items[i] = fn(it)
	}
	return ListResponse[T]{Items: items, TotalCount: res.TotalCount, Limit: res.Limit, Offset: res.Offset}
}
