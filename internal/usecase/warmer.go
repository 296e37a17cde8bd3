package usecase

import (
	"context"
	"fmt"
	"time"

	"AstroOverlay/internal/domain/models"
	domrepo "AstroOverlay/internal/domain/repository"
	"AstroOverlay/internal/services/align"
	pcache "AstroOverlay/pkg/cache"
	applogger "AstroOverlay/pkg/logger"

	"github.com/robfig/cron/v3"
)

const warmupLockKey = "lock:warmup"

// Warmer prefetches the default window for every catalog index so the first
// dashboard load of the day is served from the history memo.
type Warmer struct {
	cron     *cron.Cron
	spec     string
	catalog  []models.IndexInfo
	datasets DatasetSource
	history  domrepo.MarketHistory
	ranges   align.RangeDefaults
	lock     pcache.Service
	lockTTL  time.Duration
	ctx      context.Context
	l        *applogger.Logger
}

func NewWarmer(spec string, catalog []models.IndexInfo, datasets DatasetSource, history domrepo.MarketHistory, ranges align.RangeDefaults, lock pcache.Service, l *applogger.Logger) *Warmer {
	if l == nil {
		l = applogger.Nop()
	}
	return &Warmer{
		cron:     cron.New(cron.WithSeconds()),
		spec:     spec,
		catalog:  catalog,
		datasets: datasets,
		history:  history,
		ranges:   ranges,
		lock:     lock,
		lockTTL:  10 * time.Minute,
		ctx:      context.Background(),
		l:        l,
	}
}

// Start registers the job and starts the scheduler.
func (w *Warmer) Start(ctx context.Context) error {
	w.ctx = ctx
	if _, err := w.cron.AddFunc(w.spec, w.scheduledRun); err != nil {
		return fmt.Errorf("register warmup task: %w", err)
	}
	w.cron.Start()
	symbols := make([]string, 0, len(w.catalog))
	for _, ix := range w.catalog {
		symbols = append(symbols, ix.Symbol)
	}
	w.l.Info("warmup scheduler started",
		applogger.String("cron", w.spec),
		applogger.Strings("symbols", symbols),
	)
	return nil
}

func (w *Warmer) scheduledRun() {
	if _, err := w.RunOnce(w.ctx); err != nil {
		w.l.Warn("warmup run failed", applogger.Error(err))
	}
}

// Stop stops the scheduler and waits for a running job.
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
	w.l.Info("warmup scheduler stopped")
}

// RunOnce prefetches daily and weekly history for each catalog index in both
// close-only and OHLC field sets. It returns the number of successful fetches.
func (w *Warmer) RunOnce(ctx context.Context) (int, error) {
	if w.lock != nil {
		ok, err := w.lock.TryLock(ctx, warmupLockKey, w.lockTTL)
		if err != nil {
			return 0, fmt.Errorf("warmup lock: %w", err)
		}
		if !ok {
			w.l.Debug("warmup skipped, lock held")
			return 0, nil
		}
		defer func() { _ = w.lock.Unlock(context.Background(), warmupLockKey) }()
	}

	var local *models.Series
	if s, _, err := w.datasets.Get(ctx, DefaultDatasetID); err == nil {
		local = s
	} else {
		w.l.Warn("warmup default dataset unavailable, using anchor", applogger.Error(err))
	}
	rng, err := w.ranges.Resolve(nil, nil, local)
	if err != nil {
		return 0, err
	}

	fieldSets := [][]string{models.ModeLine.PriceFields(), models.ModeCandlestick.PriceFields()}
	ok, failed := 0, 0
	for _, idx := range w.catalog {
		for _, g := range []domrepo.Granularity{domrepo.Daily, domrepo.Weekly} {
			for _, fields := range fieldSets {
				if err := ctx.Err(); err != nil {
					return ok, err
				}
				_, err := w.history.History(ctx, domrepo.HistoryQuery{
					Symbol:      idx.Symbol,
					Start:       rng.Start,
					End:         rng.End,
					Granularity: g,
					Fields:      fields,
				})
				if err != nil {
					failed++
					w.l.Warn("warmup fetch failed",
						applogger.String("symbol", idx.Symbol),
						applogger.String("granularity", string(g)),
						applogger.Error(err),
					)
					continue
				}
				ok++
			}
		}
	}
	w.l.Info("warmup finished",
		applogger.Int("ok", ok),
		applogger.Int("failed", failed),
		applogger.String("start", rng.Start.String()),
		applogger.String("end", rng.End.String()),
	)
	return ok, nil
}
