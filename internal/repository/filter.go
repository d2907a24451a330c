package repository

import (
	"strings"
	"time"

	"github.com/iliyamo/agency-portal/internal/model"
)

// filterColumns maps the generic list filter onto the columns of one query.
// An empty column name means the entity does not support that filter.
type filterColumns struct {
	Status      string
	ServiceType string
	Search      []string
	CreatedAt   string
}

// whereClause accumulates AND-ed conditions and their arguments.
type whereClause struct {
	conds []string
	args  []any
}

func (w *whereClause) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// sql returns the condition list joined with AND, or "1=1" when empty.
func (w *whereClause) sql() string {
	if len(w.conds) == 0 {
		return "1=1"
	}
	return strings.Join(w.conds, " AND ")
}

// applyFilter adds one condition per set filter field.  Nil fields add
// nothing, so an empty filter matches every row.
func applyFilter(w *whereClause, f model.ListFilter, cols filterColumns) {
	if f.Status != nil && cols.Status != "" {
		w.add(cols.Status+" = ?", *f.Status)
	}
	if f.ServiceType != nil && cols.ServiceType != "" {
		w.add(cols.ServiceType+" = ?", string(*f.ServiceType))
	}
	if f.Search != nil && len(cols.Search) > 0 {
		pattern := "%" + escapeLike(strings.ToLower(*f.Search)) + "%"
		ors := make([]string, 0, len(cols.Search))
		for _, c := range cols.Search {
			ors = append(ors, "LOWER("+c+") LIKE ?")
			w.args = append(w.args, pattern)
		}
		w.conds = append(w.conds, "("+strings.Join(ors, " OR ")+")")
	}
	if f.DateFrom != nil && cols.CreatedAt != "" {
		w.add(cols.CreatedAt+" >= ?", f.DateFrom.UTC().Format(time.DateTime))
	}
	if f.DateTo != nil && cols.CreatedAt != "" {
		w.add(cols.CreatedAt+" <= ?", f.DateTo.UTC().Format(time.DateTime))
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
