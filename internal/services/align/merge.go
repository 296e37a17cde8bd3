package align

import (
	"errors"
	"fmt"

	"AstroOverlay/internal/domain/models"
)

// ErrFieldCollision is returned when both operands of Merge share a field name.
var ErrFieldCollision = errors.New("field name collision")

// Merge left-joins right onto left by date.
//
// The result has exactly left's rows in left's order, with left's fields followed
// by right's. A right field is copied when right has a row for the date and is
// unset otherwise. Both operands must be normalized; a repeated date would turn
// the join one-to-many, so it is rejected.
func Merge(left, right *models.Series) (*models.Series, error) {
	if err := Check(left); err != nil {
		return nil, fmt.Errorf("merge left: %w", err)
	}
	if err := Check(right); err != nil {
		return nil, fmt.Errorf("merge right: %w", err)
	}
	for _, f := range right.Fields {
		if _, dup := left.FieldIndex(f); dup {
			return nil, fmt.Errorf("%w: %q", ErrFieldCollision, f)
		}
	}

	byDate := make(map[models.Date][]models.Value, right.Len())
	for _, r := range right.Rows {
		byDate[r.Date] = r.Values
	}

	fields := make([]string, 0, len(left.Fields)+len(right.Fields))
	fields = append(fields, left.Fields...)
	fields = append(fields, right.Fields...)
	out := models.NewSeries(fields...)
	out.Rows = make([]models.Row, 0, left.Len())

	nl, nr := len(left.Fields), len(right.Fields)
	for _, r := range left.Rows {
		vs := make([]models.Value, nl+nr)
		copy(vs, r.Values)
		if rv, ok := byDate[r.Date]; ok {
			copy(vs[nl:], rv)
		}
		out.Rows = append(out.Rows, models.Row{Date: r.Date, Values: vs})
	}
	return out, nil
}

// Matched counts rows of an aligned table where every one of fields is set.
func Matched(table *models.Series, fields []string) int {
	idx := make([]int, 0, len(fields))
	for _, f := range fields {
		if i, ok := table.FieldIndex(f); ok {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return 0
	}
	n := 0
	for _, r := range table.Rows {
		all := true
		for _, i := range idx {
			if !r.Values[i].Valid {
				all = false
				break
			}
		}
		if all {
			n++
		}
	}
	return n
}
