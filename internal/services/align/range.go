package align

import (
	"errors"
	"fmt"

	"AstroOverlay/internal/domain/models"
	"AstroOverlay/internal/domain/repository"
)

// ErrInvalidRange is returned when a range starts after it ends.
var ErrInvalidRange = errors.New("invalid date range")

// RangeError carries the offending bounds.
type RangeError struct {
	Start, End models.Date
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v: start %s is after end %s", ErrInvalidRange, e.Start, e.End)
}

func (e *RangeError) Is(target error) bool { return target == ErrInvalidRange }

// Range is a closed date interval.
type Range struct {
	Start models.Date
	End   models.Date
}

// Validate returns a *RangeError when Start is after End.
func (r Range) Validate() error {
	if r.Start.After(r.End) {
		return &RangeError{Start: r.Start, End: r.End}
	}
	return nil
}

// Contains reports whether d lies within the range, bounds included.
func (r Range) Contains(d models.Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Filter returns the rows of s whose date lies in r, in their original order.
func Filter(s *models.Series, r Range) (*models.Series, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := models.NewSeries(s.Fields...)
	for _, row := range s.Rows {
		if r.Contains(row.Date) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

// RangeDefaults fills missing bounds. The lower bound falls back to the local
// series' first date and then to Anchor; the upper bound falls back to today.
type RangeDefaults struct {
	Anchor models.Date
	Clock  repository.Clock
}

// Resolve builds the effective range. Nil or zero bounds are defaulted.
// Only a caller-supplied start can make the range invalid: a defaulted start
// later than end falls back to Anchor, and to end itself when Anchor is
// later too.
func (d RangeDefaults) Resolve(start, end *models.Date, local *models.Series) (Range, error) {
	var r Range
	if end != nil && !end.IsZero() {
		r.End = *end
	} else {
		r.End = models.DateOf(d.Clock.Now())
	}
	if start != nil && !start.IsZero() {
		r.Start = *start
	} else {
		r.Start = d.defaultStart(local, r.End)
	}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func (d RangeDefaults) defaultStart(local *models.Series, end models.Date) models.Date {
	start := d.Anchor
	if first, _, ok := local.Bounds(); ok {
		start = first
	}
	for _, c := range []models.Date{start, d.Anchor} {
		if !c.After(end) {
			return c
		}
	}
	return end
}
