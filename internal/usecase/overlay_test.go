package usecase

import (
	"context"
	"testing"
	"time"

	"AstroOverlay/internal/domain/models"
	domrepo "AstroOverlay/internal/domain/repository"
	"AstroOverlay/internal/services/align"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, 1, 20, 15, 0, 0, 0, time.UTC)

// planets has daily rows 2024-01-01..2024-01-15 with venus = day of month.
func planets(t *testing.T) *models.Series {
	t.Helper()
	s := models.NewSeries("venus", "mars")
	for i := 0; i < 15; i++ {
		day := d("2024-01-01").AddDays(i)
		require.NoError(t, s.Append(day, models.Some(float64(i+1)), models.Some(200)))
	}
	return s
}

func weeklyCloses(t *testing.T) *models.Series {
	t.Helper()
	s := models.NewSeries(models.FieldClose)
	require.NoError(t, s.Append(d("2024-01-01"), models.Some(21700)))
	require.NoError(t, s.Append(d("2024-01-08"), models.Some(21800)))
	require.NoError(t, s.Append(d("2024-01-15"), models.Some(21900)))
	return s
}

type harness struct {
	uc        *OverlayUseCase
	datasets  *fakeDatasets
	history   *fakeHistory
	publisher *fakePublisher
	archive   *fakeArchive
	metrics   *fakeMetrics
}

func newHarness(t *testing.T, local *models.Series, remote func(q domrepo.HistoryQuery) (*models.Series, error)) *harness {
	t.Helper()
	h := &harness{
		datasets:  &fakeDatasets{s: local},
		history:   &fakeHistory{byQuery: remote},
		publisher: &fakePublisher{},
		archive:   &fakeArchive{},
		metrics:   &fakeMetrics{},
	}
	h.uc = NewOverlayUseCase(OverlayDeps{
		Datasets:      h.datasets,
		History:       h.history,
		Publisher:     h.publisher,
		Archive:       h.archive,
		Metrics:       h.metrics,
		Ranges:        align.RangeDefaults{Anchor: d("2018-01-08"), Clock: fixedClock{today}},
		DefaultSymbol: "^NSEI",
	})
	return h
}

func TestBuildWeeklyAlignsOnProviderBars(t *testing.T) {
	h := newHarness(t, planets(t), func(q domrepo.HistoryQuery) (*models.Series, error) {
		return weeklyCloses(t), nil
	})

	ov, err := h.uc.Build(context.Background(), OverlayParams{
		Start:       dp("2024-01-01"),
		End:         dp("2024-01-14"),
		Granularity: domrepo.Weekly,
	})
	require.NoError(t, err)

	assert.Equal(t, "^NSEI", ov.Symbol)
	assert.Equal(t, []models.Date{d("2024-01-01"), d("2024-01-08")}, ov.Table.Dates())
	assert.Equal(t, []models.Value{models.Some(1), models.Some(8)}, ov.Table.Column("venus"))
	assert.Equal(t, []models.Value{models.Some(21700), models.Some(21800)}, ov.Table.Column(models.FieldClose))
	assert.Equal(t, 2, ov.Matched)

	require.Len(t, h.history.queries, 1)
	q := h.history.queries[0]
	assert.Equal(t, domrepo.Weekly, q.Granularity)
	assert.Equal(t, []string{models.FieldClose}, q.Fields)
	assert.Equal(t, d("2024-01-01"), q.Start)
	assert.Equal(t, d("2024-01-14"), q.End)

	require.Len(t, h.publisher.events, 1)
	ev := h.publisher.events[0]
	assert.Equal(t, 14, ev.LocalRows)
	assert.Equal(t, 2, ev.AlignedRows)
	assert.Equal(t, 2, ev.Matched)
	assert.Equal(t, 3, h.archive.stored)
	assert.Equal(t, 1, h.metrics.alignments)
}

func TestBuildDailyKeepsEveryLocalRow(t *testing.T) {
	h := newHarness(t, planets(t), func(q domrepo.HistoryQuery) (*models.Series, error) {
		return weeklyCloses(t), nil
	})

	ov, err := h.uc.Build(context.Background(), OverlayParams{Granularity: domrepo.Daily})
	require.NoError(t, err)

	// Start defaults to the local minimum, end to today.
	assert.Equal(t, d("2024-01-01"), ov.Start)
	assert.Equal(t, d("2024-01-20"), ov.End)
	assert.Equal(t, 15, ov.Table.Len())
	assert.Equal(t, 3, ov.Matched)

	v, ok := ov.Table.Value(1, models.FieldClose)
	require.True(t, ok, "right key present on unmatched row")
	assert.False(t, v.Valid)
}

func TestBuildCandlestickRequestsOHLC(t *testing.T) {
	h := newHarness(t, planets(t), func(q domrepo.HistoryQuery) (*models.Series, error) {
		s := models.NewSeries(q.Fields...)
		require.NoError(t, s.Append(d("2024-01-02"), models.Some(1), models.Some(3), models.Some(0.5), models.Some(2)))
		return s, nil
	})

	ov, err := h.uc.Build(context.Background(), OverlayParams{Mode: models.ModeCandlestick, Symbol: "^GSPC"})
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "high", "low", "close"}, h.history.queries[0].Fields)
	assert.Equal(t, []string{"venus", "mars", "open", "high", "low", "close"}, ov.Table.Fields)
	assert.Equal(t, 1, ov.Matched)
	assert.Equal(t, "^GSPC", ov.Symbol)
}

func TestBuildEmptyRemote(t *testing.T) {
	h := newHarness(t, planets(t), func(q domrepo.HistoryQuery) (*models.Series, error) {
		return models.NewSeries(q.Fields...), nil
	})

	weekly, err := h.uc.Build(context.Background(), OverlayParams{Granularity: domrepo.Weekly})
	require.NoError(t, err)
	assert.Equal(t, 0, weekly.Table.Len())

	daily, err := h.uc.Build(context.Background(), OverlayParams{Granularity: domrepo.Daily})
	require.NoError(t, err)
	assert.Equal(t, 15, daily.Table.Len())
	assert.Equal(t, 0, daily.Matched)
	assert.Equal(t, 0, h.archive.stored)
}

func TestBuildInvalidRange(t *testing.T) {
	h := newHarness(t, planets(t), func(q domrepo.HistoryQuery) (*models.Series, error) {
		t.Fatal("remote must not be called")
		return nil, nil
	})

	_, err := h.uc.Build(context.Background(), OverlayParams{Start: dp("2024-02-01"), End: dp("2024-01-01")})
	require.Error(t, err)
	assert.ErrorIs(t, err, align.ErrInvalidRange)
	assert.Equal(t, []string{"invalid_range"}, h.metrics.errors)
	assert.Empty(t, h.publisher.events)
}

func TestBuildUpstreamFailure(t *testing.T) {
	h := newHarness(t, planets(t), func(q domrepo.HistoryQuery) (*models.Series, error) {
		return nil, errBoom
	})

	_, err := h.uc.Build(context.Background(), OverlayParams{})
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"upstream"}, h.metrics.errors)
}

func TestBuildDatasetErrorPassesThrough(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.datasets.err = domrepo.ErrDatasetNotFound

	_, err := h.uc.Build(context.Background(), OverlayParams{Dataset: "nope"})
	assert.ErrorIs(t, err, domrepo.ErrDatasetNotFound)
	assert.Equal(t, []string{"nope"}, h.datasets.ids)
}

func TestBuildSideEffectFailuresAreNotFatal(t *testing.T) {
	h := newHarness(t, planets(t), func(q domrepo.HistoryQuery) (*models.Series, error) {
		return weeklyCloses(t), nil
	})
	h.publisher.err = errBoom
	h.archive.err = errBoom

	ov, err := h.uc.Build(context.Background(), OverlayParams{})
	require.NoError(t, err)
	assert.NotNil(t, ov)
	assert.ElementsMatch(t, []string{"publish", "archive"}, h.metrics.errors)
}

func TestBuildUnsortedRemoteIsRejected(t *testing.T) {
	h := newHarness(t, planets(t), func(q domrepo.HistoryQuery) (*models.Series, error) {
		s := models.NewSeries(models.FieldClose)
		require.NoError(t, s.Append(d("2024-01-08"), models.Some(2)))
		require.NoError(t, s.Append(d("2024-01-01"), models.Some(1)))
		return s, nil
	})

	_, err := h.uc.Build(context.Background(), OverlayParams{})
	assert.ErrorIs(t, err, align.ErrNotNormalized)
}
