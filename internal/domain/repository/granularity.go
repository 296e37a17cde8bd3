package repository

// Granularity is the sampling frequency of the remote series.
type Granularity string

const (
	Daily  Granularity = "daily"
	Weekly Granularity = "weekly"
)

// IsValidGranularity returns true if g is supported.
func IsValidGranularity(g Granularity) bool {
	switch g {
	case Daily, Weekly:
		return true
	default:
		return false
	}
}

// DefaultGranularity returns the default granularity.
func DefaultGranularity() Granularity { return Daily }

// NormalizeGranularity converts raw string to a valid granularity (or default).
func NormalizeGranularity(s string) Granularity {
	if s == "" {
		return DefaultGranularity()
	}
	g := Granularity(s)
	if IsValidGranularity(g) {
		return g
	}
	return DefaultGranularity()
}
