package service

import "github.com/iliyamo/agency-portal/internal/model"

func pageOf[T any](items []T, total int64, f model.ListFilter) model.Page[T] {
	if items == nil {
		items = []T{}
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	return model.Page[T]{Items: items, Total: total, Page: page, PageSize: f.Limit()}
}
