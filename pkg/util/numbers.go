package util

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ParseIntDefault parses s as an int, returning def when s is empty or invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

// numberCleaner drops the spaces spreadsheets export around and inside
// numbers and maps the typographic minus to ASCII.
var numberCleaner = strings.NewReplacer(" ", "", "\u00a0", "", "\u2212", "-")

// groupedRe is a number with comma thousands separators, e.g. "1,234.5".
var groupedRe = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d*)?$`)

// ParseNumber parses a spreadsheet cell such as "1,234.5" or "−12.25".
// A comma is only accepted as a thousands separator, so a decimal comma
// like "12,5" is an error rather than 125. NaN and infinities are errors.
func ParseNumber(s string) (float64, error) {
	clean := numberCleaner.Replace(strings.TrimSpace(s))
	if strings.Contains(clean, ",") {
		if !groupedRe.MatchString(clean) {
			return 0, fmt.Errorf("ambiguous comma in number %q", s)
		}
		clean = strings.ReplaceAll(clean, ",", "")
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return v, nil
}
