package align

import (
	"errors"
	"fmt"
	"sort"

	"AstroOverlay/internal/domain/models"
)

var (
	// ErrNotNormalized is returned when a series has duplicate or unordered dates.
	ErrNotNormalized = errors.New("series not normalized")
	// ErrDuplicateDate is returned by Normalize under DuplicatesReject.
	ErrDuplicateDate = errors.New("duplicate date")
)

// DuplicatePolicy decides what Normalize does with repeated dates.
type DuplicatePolicy string

const (
	DuplicatesReject   DuplicatePolicy = "reject"
	DuplicatesKeepLast DuplicatePolicy = "keep_last"
)

// Check reports whether s has strictly ascending dates.
func Check(s *models.Series) error {
	for i := 1; i < s.Len(); i++ {
		prev, cur := s.Rows[i-1].Date, s.Rows[i].Date
		if !cur.After(prev) {
			return fmt.Errorf("%w: %s follows %s", ErrNotNormalized, cur, prev)
		}
	}
	return nil
}

// Normalize returns a copy of s sorted ascending by date with one row per date.
// With DuplicatesKeepLast the row appearing last in source order wins.
func Normalize(s *models.Series, policy DuplicatePolicy) (*models.Series, error) {
	out := s.Clone()
	if out == nil {
		return models.NewSeries(), nil
	}
	sort.SliceStable(out.Rows, func(i, j int) bool {
		return out.Rows[i].Date.Before(out.Rows[j].Date)
	})

	rows := out.Rows[:0]
	for _, r := range out.Rows {
		if n := len(rows); n > 0 && rows[n-1].Date == r.Date {
			if policy != DuplicatesKeepLast {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateDate, r.Date)
			}
			rows[n-1] = r
			continue
		}
		rows = append(rows, r)
	}
	out.Rows = rows
	return out, nil
}
