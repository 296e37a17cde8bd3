package align

import (
	"errors"
	"testing"

	"AstroOverlay/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeLeftJoin(t *testing.T) {
	left := series(t, "venus",
		"2024-01-01", 10,
		"2024-01-02", 11,
		"2024-01-03", 12,
	)
	right := series(t, models.FieldClose,
		"2023-12-29", 90, // no left row, must not appear
		"2024-01-01", 100,
		"2024-01-03", 102,
	)

	table, err := Merge(left, right)
	require.NoError(t, err)

	assert.Equal(t, []string{"venus", "close"}, table.Fields)
	assert.Equal(t, left.Dates(), table.Dates())
	assert.Equal(t, []models.Value{models.Some(100), models.Unset, models.Some(102)}, table.Column(models.FieldClose))
	assert.Equal(t, []models.Value{models.Some(10), models.Some(11), models.Some(12)}, table.Column("venus"))
	assert.Equal(t, 2, Matched(table, []string{models.FieldClose}))
}

func TestMergeUnsetKeyStillPresent(t *testing.T) {
	left := series(t, "venus", "2024-01-02", 11)
	right := series(t, models.FieldClose, "2024-01-01", 100)

	table, err := Merge(left, right)
	require.NoError(t, err)

	v, ok := table.Value(0, models.FieldClose)
	assert.True(t, ok, "remote key must exist on every row")
	assert.False(t, v.Valid)
	assert.NotEqual(t, models.Some(0), v)

	_, ok = table.Value(0, "volume")
	assert.False(t, ok)
}

func TestMergeEmptyRemote(t *testing.T) {
	left := series(t, "venus", "2024-01-01", 10, "2024-01-02", 11)
	right := models.NewSeries(models.FieldOpen, models.FieldHigh, models.FieldLow, models.FieldClose)

	table, err := Merge(left, right)
	require.NoError(t, err)
	require.Equal(t, left.Len(), table.Len())
	for i := range table.Rows {
		for _, f := range right.Fields {
			v, ok := table.Value(i, f)
			assert.True(t, ok)
			assert.False(t, v.Valid)
		}
	}
	assert.Equal(t, 0, Matched(table, right.Fields))
}

func TestMergeIsRepeatable(t *testing.T) {
	left := series(t, "venus", "2024-01-01", 10, "2024-01-02", 11, "2024-01-03", 12)
	right := series(t, models.FieldClose, "2024-01-02", 101)
	r := Range{Start: d("2024-01-01"), End: d("2024-01-02")}

	run := func() *models.Series {
		filtered, err := Filter(left, r)
		require.NoError(t, err)
		table, err := Merge(filtered, right)
		require.NoError(t, err)
		return table
	}
	first, second := run(), run()
	assert.Equal(t, first, second)

	// mutating one result must not leak into the inputs
	first.Rows[0].Values[0] = models.Some(-1)
	assert.Equal(t, models.Some(10), left.Rows[0].Values[0])
}

func TestMergeRejectsDuplicateDates(t *testing.T) {
	left := series(t, "venus", "2024-01-01", 10, "2024-01-01", 11)
	right := series(t, models.FieldClose, "2024-01-01", 100)

	_, err := Merge(left, right)
	assert.True(t, errors.Is(err, ErrNotNormalized))

	_, err = Merge(right.Clone(), series(t, "x", "2024-01-02", 1, "2024-01-01", 2))
	assert.True(t, errors.Is(err, ErrNotNormalized))
}

func TestMergeRejectsFieldCollision(t *testing.T) {
	left := series(t, models.FieldClose, "2024-01-01", 10)
	right := series(t, models.FieldClose, "2024-01-01", 100)

	_, err := Merge(left, right)
	assert.ErrorIs(t, err, ErrFieldCollision)
}

func TestWeeklyScenario(t *testing.T) {
	local := series(t, "venus",
		"2024-01-01", 10,
		"2024-01-02", 11,
		"2024-01-08", 12,
	)
	remote := series(t, models.FieldClose, "2024-01-01", 100)

	weekly := Reconcile(local, remote.Dates())
	require.Equal(t, []models.Date{d("2024-01-01")}, weekly.Dates())

	table, err := Merge(weekly, remote)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, d("2024-01-01"), table.Rows[0].Date)
	assert.Equal(t, []models.Value{models.Some(10), models.Some(100)}, table.Rows[0].Values)
}
