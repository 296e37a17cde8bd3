package util

import (
	"strings"
	"time"
)

// DayMonthYear is the layout of the planetary spreadsheets' date column.
// Day and month may be written with or without a leading zero.
const DayMonthYear = "2-1-2006"

// ParseLayouts tries each layout in order on the trimmed input.
func ParseLayouts(s string, layouts ...string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
