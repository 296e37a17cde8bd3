package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AstroOverlay/internal/domain/models"
	domrepo "AstroOverlay/internal/domain/repository"
	"AstroOverlay/internal/services/align"
	applogger "AstroOverlay/pkg/logger"
)

// ErrUpstream marks a failed remote history fetch.
var ErrUpstream = errors.New("market data unavailable")

// DatasetSource resolves a dataset id to an owned local series.
type DatasetSource interface {
	Get(ctx context.Context, id string) (*models.Series, string, error)
}

// OverlayParams selects one render pass. Nil bounds are defaulted.
type OverlayParams struct {
	Dataset     string
	Symbol      string
	Start       *models.Date
	End         *models.Date
	Granularity domrepo.Granularity
	Mode        models.Mode
}

// OverlayUseCase runs load, filter, fetch, reconcile and merge for one request.
type OverlayUseCase struct {
	datasets      DatasetSource
	history       domrepo.MarketHistory
	publisher     domrepo.EventPublisher
	archive       domrepo.BarArchive
	metrics       domrepo.Metrics
	ranges        align.RangeDefaults
	defaultSymbol string
	timeout       time.Duration
	l             *applogger.Logger
}

// OverlayDeps groups the collaborators of OverlayUseCase.
type OverlayDeps struct {
	Datasets      DatasetSource
	History       domrepo.MarketHistory
	Publisher     domrepo.EventPublisher
	Archive       domrepo.BarArchive
	Metrics       domrepo.Metrics
	Ranges        align.RangeDefaults
	DefaultSymbol string
	Timeout       time.Duration
	Logger        *applogger.Logger
}

func NewOverlayUseCase(d OverlayDeps) *OverlayUseCase {
	uc := &OverlayUseCase{
		datasets:      d.Datasets,
		history:       d.History,
		publisher:     d.Publisher,
		archive:       d.Archive,
		metrics:       d.Metrics,
		ranges:        d.Ranges,
		defaultSymbol: d.DefaultSymbol,
		timeout:       d.Timeout,
		l:             d.Logger,
	}
	if uc.timeout <= 0 {
		uc.timeout = 30 * time.Second
	}
	if uc.l == nil {
		uc.l = applogger.Nop()
	}
	return uc
}

// Build runs one render pass and returns the aligned overlay.
func (uc *OverlayUseCase) Build(ctx context.Context, p OverlayParams) (*models.Overlay, error) {
	start := time.Now()
	ov, ev, err := uc.build(ctx, p)
	uc.latency("overlay_build", start)
	if err != nil {
		uc.recordError(err)
		return nil, err
	}

	uc.metricsOrNop().RecordAlignment(ov.Symbol, domrepo.Granularity(ov.Granularity), ov.Table.Len(), ov.Matched)
	uc.emit(ctx, ev, ov)
	return ov, nil
}

func (uc *OverlayUseCase) build(ctx context.Context, p OverlayParams) (*models.Overlay, models.OverlayEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	if p.Symbol == "" {
		p.Symbol = uc.defaultSymbol
	}
	if p.Mode == "" {
		p.Mode = models.ModeLine
	}
	p.Granularity = domrepo.NormalizeGranularity(string(p.Granularity))
	if p.Dataset == "" {
		p.Dataset = DefaultDatasetID
	}

	local, _, err := uc.datasets.Get(ctx, p.Dataset)
	if err != nil {
		return nil, models.OverlayEvent{}, err
	}

	rng, err := uc.ranges.Resolve(p.Start, p.End, local)
	if err != nil {
		return nil, models.OverlayEvent{}, err
	}
	filtered, err := align.Filter(local, rng)
	if err != nil {
		return nil, models.OverlayEvent{}, err
	}

	fields := p.Mode.PriceFields()
	remote, err := uc.history.History(ctx, domrepo.HistoryQuery{
		Symbol:      p.Symbol,
		Start:       rng.Start,
		End:         rng.End,
		Granularity: p.Granularity,
		Fields:      fields,
	})
	if err != nil {
		return nil, models.OverlayEvent{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if remote == nil {
		remote = models.NewSeries(fields...)
	}

	left := filtered
	if p.Granularity == domrepo.Weekly {
		left = align.Reconcile(filtered, remote.Dates())
	}

	table, err := align.Merge(left, remote)
	if err != nil {
		return nil, models.OverlayEvent{}, fmt.Errorf("merge: %w", err)
	}
	matched := align.Matched(table, fields)

	ov := &models.Overlay{
		Symbol:      p.Symbol,
		Granularity: string(p.Granularity),
		Mode:        p.Mode,
		Start:       rng.Start,
		End:         rng.End,
		LocalFields: append([]string(nil), local.Fields...),
		PriceFields: fields,
		Matched:     matched,
		Table:       table,
		Remote:      remote,
		GeneratedAt: uc.ranges.Clock.Now().UTC(),
	}
	ev := models.OverlayEvent{
		Dataset:     p.Dataset,
		Symbol:      p.Symbol,
		Granularity: string(p.Granularity),
		Mode:        p.Mode,
		Start:       rng.Start,
		End:         rng.End,
		LocalRows:   filtered.Len(),
		RemoteRows:  remote.Len(),
		AlignedRows: table.Len(),
		Matched:     matched,
		At:          ov.GeneratedAt,
	}
	return ov, ev, nil
}

// emit publishes the event and archives the bars. Failures are logged only.
func (uc *OverlayUseCase) emit(ctx context.Context, ev models.OverlayEvent, ov *models.Overlay) {
	if uc.publisher != nil {
		if err := uc.publisher.PublishOverlay(ctx, ev); err != nil {
			uc.metricsOrNop().RecordError("publish")
			uc.l.Warn("overlay event publish failed",
				applogger.String("symbol", ev.Symbol),
				applogger.Error(err),
			)
		}
	}
	if uc.archive != nil && ov.Remote.Len() > 0 {
		if err := uc.archive.StoreBars(ctx, ov.Symbol, domrepo.Granularity(ov.Granularity), ov.Remote); err != nil {
			uc.metricsOrNop().RecordError("archive")
			uc.l.Warn("bar archive failed",
				applogger.String("symbol", ov.Symbol),
				applogger.Error(err),
			)
		}
	}
}

func (uc *OverlayUseCase) recordError(err error) {
	kind := "internal"
	switch {
	case errors.Is(err, align.ErrInvalidRange):
		kind = "invalid_range"
	case errors.Is(err, domrepo.ErrDatasetNotFound):
		kind = "dataset_not_found"
	case errors.Is(err, domrepo.ErrParse):
		kind = "parse"
	case errors.Is(err, ErrUpstream):
		kind = "upstream"
	}
	uc.metricsOrNop().RecordError(kind)
}

func (uc *OverlayUseCase) latency(op string, start time.Time) {
	uc.metricsOrNop().RecordLatency(op, time.Since(start).Seconds())
}

func (uc *OverlayUseCase) metricsOrNop() domrepo.Metrics {
	if uc.metrics == nil {
		return nopMetrics{}
	}
	return uc.metrics
}

type nopMetrics struct{}

func (nopMetrics) RecordError(string)                                    {}
func (nopMetrics) RecordLatency(string, float64)                         {}
func (nopMetrics) RecordCache(string)                                    {}
func (nopMetrics) RecordAlignment(string, domrepo.Granularity, int, int) {}
