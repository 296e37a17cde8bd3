package align

import (
	"testing"
	"time"

	"AstroOverlay/internal/domain/models"

	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func d(s string) models.Date { return models.MustParseDate(s) }

// series builds a one-field series from alternating date/value pairs.
func series(t *testing.T, field string, pairs ...interface{}) *models.Series {
	t.Helper()
	s := models.NewSeries(field)
	for i := 0; i < len(pairs); i += 2 {
		var v models.Value
		switch x := pairs[i+1].(type) {
		case nil:
			v = models.Unset
		case int:
			v = models.Some(float64(x))
		case float64:
			v = models.Some(x)
		}
		require.NoError(t, s.Append(d(pairs[i].(string)), v))
	}
	return s
}
