package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/agency-portal/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestApplyFilter_EmptyMatchesEverything(t *testing.T) {
	w := &whereClause{}
	applyFilter(w, model.ListFilter{}, projectFilterColumns)
	assert.Equal(t, "1=1", w.sql())
	assert.Empty(t, w.args)
}

func TestApplyFilter_AllFieldsAreAnded(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)
	f := model.ListFilter{
		Status:      ptr("ATIVO"),
		ServiceType: ptr(model.ServiceEcommerce),
		Search:      ptr("Loja_50%"),
		DateFrom:    &from,
		DateTo:      &to,
	}
	w := &whereClause{}
	applyFilter(w, f, projectFilterColumns)

	assert.Equal(t,
		"p.status = ? AND b.service_type = ? AND (LOWER(p.name) LIKE ?) AND p.created_at >= ? AND p.created_at <= ?",
		w.sql())
	assert.Equal(t, []any{"ATIVO", "ECOMMERCE", `%loja\_50\%%`, "2025-01-01 00:00:00", "2025-01-31 23:59:59"}, w.args)
}

func TestApplyFilter_SearchSpansColumns(t *testing.T) {
	w := &whereClause{}
	applyFilter(w, model.ListFilter{Search: ptr("ana")}, clientFilterColumns)
	assert.Equal(t, "(LOWER(u.name) LIKE ? OR LOWER(u.email) LIKE ?)", w.sql())
	assert.Equal(t, []any{"%ana%", "%ana%"}, w.args)
}

func TestClientWhere_StatusMapsToActiveFlag(t *testing.T) {
	w := clientWhere(model.ListFilter{Status: ptr("INACTIVE")})
	assert.Equal(t, "u.role = ? AND u.is_active = ?", w.sql())
	assert.Equal(t, []any{model.RoleClient, false}, w.args)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
