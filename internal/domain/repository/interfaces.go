package repository

import (
	"context"
	"errors"
	"io"
	"time"

	"AstroOverlay/internal/domain/models"
)

var (
	// ErrParse marks a malformed local source (bad header, date or number).
	ErrParse = errors.New("parse local source")
	// ErrDatasetNotFound is returned for unknown or expired dataset ids.
	ErrDatasetNotFound = errors.New("dataset not found")
)

// HistoryQuery identifies one remote price history snapshot.
type HistoryQuery struct {
	Symbol      string
	Start       models.Date
	End         models.Date // inclusive
	Granularity Granularity
	Fields      []string // subset of open/high/low/close
}

// PlanetaryLoader parses a local planetary-position source into a normalized series.
type PlanetaryLoader interface {
	Load(ctx context.Context, name string, r io.Reader) (*models.Series, error)
	LoadFile(ctx context.Context, path string) (*models.Series, error)
}

// MarketHistory fetches index price history. An empty series is a valid result.
type MarketHistory interface {
	History(ctx context.Context, q HistoryQuery) (*models.Series, error)
}

// EventPublisher emits overlay summaries.
type EventPublisher interface {
	PublishOverlay(ctx context.Context, ev models.OverlayEvent) error
	Close() error
}

// BarArchive keeps fetched price bars for offline analysis.
type BarArchive interface {
	StoreBars(ctx context.Context, symbol string, g Granularity, bars *models.Series) error
	Close() error
}

type Metrics interface {
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordCache(result string)
	RecordAlignment(symbol string, g Granularity, rows, matched int)
}

// Clock supplies "now" so the default upper bound of a range can be pinned.
type Clock interface {
	Now() time.Time
}
