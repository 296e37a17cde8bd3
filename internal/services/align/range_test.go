package align

import (
	"errors"
	"testing"
	"time"

	"AstroOverlay/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterInclusiveBounds(t *testing.T) {
	s := series(t, "venus",
		"2024-01-01", 1,
		"2024-01-02", 2,
		"2024-01-03", 3,
		"2024-01-04", 4,
		"2024-01-05", 5,
	)

	got, err := Filter(s, Range{Start: d("2024-01-02"), End: d("2024-01-04")})
	require.NoError(t, err)
	assert.Equal(t, []models.Date{d("2024-01-02"), d("2024-01-03"), d("2024-01-04")}, got.Dates())
	assert.Equal(t, 5, s.Len(), "source series must not be modified")
}

func TestFilterSingleDay(t *testing.T) {
	s := series(t, "venus", "2024-01-01", 1, "2024-01-02", 2)

	got, err := Filter(s, Range{Start: d("2024-01-02"), End: d("2024-01-02")})
	require.NoError(t, err)
	assert.Equal(t, []models.Date{d("2024-01-02")}, got.Dates())
}

func TestFilterInvalidRange(t *testing.T) {
	s := series(t, "venus", "2024-01-01", 1)

	got, err := Filter(s, Range{Start: d("2024-02-01"), End: d("2024-01-01")})
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrInvalidRange))

	var re *RangeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, d("2024-02-01"), re.Start)
	assert.Equal(t, d("2024-01-01"), re.End)
}

func TestFilterOutsideWindowIsEmpty(t *testing.T) {
	s := series(t, "venus", "2024-01-01", 1, "2024-01-02", 2)

	got, err := Filter(s, Range{Start: d("2025-01-01"), End: d("2025-12-31")})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Equal(t, []string{"venus"}, got.Fields)
}

func TestRangeDefaultsResolve(t *testing.T) {
	clock := fixedClock{t: time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC)}
	defs := RangeDefaults{Anchor: d("2018-01-08"), Clock: clock}
	local := series(t, "venus", "2020-05-01", 1, "2020-05-02", 2)
	explicitStart, explicitEnd := d("2021-01-01"), d("2021-06-30")
	earlyEnd, earliestEnd := d("2019-03-01"), d("2017-06-30")

	tests := []struct {
		name      string
		start     *models.Date
		end       *models.Date
		local     *models.Series
		wantStart models.Date
		wantEnd   models.Date
	}{
		{"anchor and today", nil, nil, nil, d("2018-01-08"), d("2025-03-10")},
		{"local minimum floors start", nil, nil, local, d("2020-05-01"), d("2025-03-10")},
		{"explicit bounds win", &explicitStart, &explicitEnd, local, explicitStart, explicitEnd},
		{"zero start treated as missing", &models.Date{}, &explicitEnd, local, d("2020-05-01"), explicitEnd},
		{"end before local minimum falls back to anchor", nil, &earlyEnd, local, d("2018-01-08"), earlyEnd},
		{"end before anchor collapses to end", nil, &earliestEnd, local, earliestEnd, earliestEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := defs.Resolve(tt.start, tt.end, tt.local)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, r.Start)
			assert.Equal(t, tt.wantEnd, r.End)
		})
	}
}

func TestRangeDefaultsResolveInvalid(t *testing.T) {
	defs := RangeDefaults{Anchor: d("2018-01-08"), Clock: fixedClock{t: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)}}
	start := d("2026-01-01")

	_, err := defs.Resolve(&start, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidRange)
}
