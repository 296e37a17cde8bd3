package repository

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"AstroOverlay/internal/domain/models"
	domrepo "AstroOverlay/internal/domain/repository"
	pkgch "AstroOverlay/pkg/clickhouse"
	applogger "AstroOverlay/pkg/logger"
)

// IndexBarsTable is the archive table for fetched index bars.
const IndexBarsTable = "index_bars"

// IndexBarsSchema creates the archive table. Re-fetched bars replace older
// versions of the same (symbol, granularity, date) on merge.
var IndexBarsSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + IndexBarsTable + ` (
        symbol      LowCardinality(String),
        granularity LowCardinality(String),
        date        Date,
        open        Nullable(Float64),
        high        Nullable(Float64),
        low         Nullable(Float64),
        close       Nullable(Float64),
        fetched_at  DateTime
    ) ENGINE = ReplacingMergeTree(fetched_at)
    ORDER BY (symbol, granularity, date)`,
}

// CHBarArchive implements BarArchive backed by ClickHouse.
type CHBarArchive struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
	now   func() time.Time
	owner io.Closer

	writeTimeout time.Duration
}

func NewCHBarArchive(ch *pkgch.Client, l *applogger.Logger) *CHBarArchive {
	a := newCHBarArchive(ch.DB(), l)
	a.owner = ch
	a.writeTimeout = ch.WriteTimeout()
	return a
}

func newCHBarArchive(db *sql.DB, l *applogger.Logger) *CHBarArchive {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHBarArchive{db: db, table: IndexBarsTable, l: l, now: time.Now}
}

var barColumns = []string{models.FieldOpen, models.FieldHigh, models.FieldLow, models.FieldClose}

// StoreBars inserts bars in chunks of multi-row VALUES.
func (s *CHBarArchive) StoreBars(ctx context.Context, symbol string, g domrepo.Granularity, bars *models.Series) error {
	if bars.Len() == 0 {
		return nil
	}
	q, args := s.insertChunks(symbol, g, bars)
	for i := range q {
		if err := s.exec(ctx, q[i], args[i]); err != nil {
			s.l.Error("clickhouse store_bars exec error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.String("granularity", string(g)),
				applogger.Error(err),
			)
			return fmt.Errorf("store bars: %w", err)
		}
	}
	return nil
}

const archiveChunkSize = 2000

func (s *CHBarArchive) exec(ctx context.Context, q string, args []interface{}) error {
	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

func (s *CHBarArchive) insertChunks(symbol string, g domrepo.Granularity, bars *models.Series) ([]string, [][]interface{}) {
	idx := make([]int, len(barColumns))
	for i, c := range barColumns {
		j, ok := bars.FieldIndex(c)
		if !ok {
			j = -1
		}
		idx[i] = j
	}
	fetched := s.now().UTC().Truncate(time.Second)

	var queries []string
	var argSets [][]interface{}
	for start := 0; start < bars.Len(); start += archiveChunkSize {
		end := start + archiveChunkSize
		if end > bars.Len() {
			end = bars.Len()
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, r := range bars.Rows[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, symbol, string(g), r.Date.Time())
			for _, j := range idx {
				args = append(args, nullable(r, j))
			}
			args = append(args, fetched)
		}
		queries = append(queries, fmt.Sprintf(
			"INSERT INTO %s (symbol, granularity, date, open, high, low, close, fetched_at) VALUES %s",
			s.table, strings.Join(values, ",")))
		argSets = append(argSets, args)
	}
	return queries, argSets
}

func nullable(r models.Row, j int) interface{} {
	if j < 0 || !r.Values[j].Valid {
		return nil
	}
	return r.Values[j].Float
}

// Close releases the ClickHouse client the archive was built from.
func (s *CHBarArchive) Close() error {
	if s.owner == nil {
		return nil
	}
	return s.owner.Close()
}

// NoopArchive discards bars; used when ClickHouse is disabled.
type NoopArchive struct{}

var (
	_ domrepo.BarArchive = (*CHBarArchive)(nil)
	_ domrepo.BarArchive = NoopArchive{}
)

func (NoopArchive) StoreBars(context.Context, string, domrepo.Granularity, *models.Series) error {
	return nil
}
func (NoopArchive) Close() error { return nil }
