package align

import "AstroOverlay/internal/domain/models"

// Reconcile keeps the rows of local whose date is one of dates, preserving order.
// It is used to bring a daily series onto the exact bar dates a provider emitted
// for a coarser granularity. Unmatched rows are dropped; nothing is interpolated.
func Reconcile(local *models.Series, dates []models.Date) *models.Series {
	set := make(map[models.Date]struct{}, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	out := models.NewSeries(local.Fields...)
	for _, row := range local.Rows {
		if _, ok := set[row.Date]; ok {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}
