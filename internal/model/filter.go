package model

import "time"

// ListFilter is the optional filter set accepted by list and export reads.
// A nil field places no constraint on the column; set fields are AND-ed.
type ListFilter struct {
	Status      *string
	ServiceType *ServiceType
	Search      *string
	DateFrom    *time.Time
	DateTo      *time.Time
	Page        int
	PageSize    int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Limit returns the page size clamped to [1, MaxPageSize].
func (f ListFilter) Limit() int {
	switch {
	case f.PageSize <= 0:
		return DefaultPageSize
	case f.PageSize > MaxPageSize:
		return MaxPageSize
	}
	return f.PageSize
}

// Offset returns the row offset of the requested page (pages start at 1).
func (f ListFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}

// Page is a slice of results plus the unpaginated total.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}
