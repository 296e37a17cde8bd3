package repository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"AstroOverlay/internal/domain/models"
	domrepo "AstroOverlay/internal/domain/repository"
	icache "AstroOverlay/internal/service/cache"
	pcache "AstroOverlay/pkg/cache"
	applogger "AstroOverlay/pkg/logger"
)

// CachedHistory memoizes MarketHistory results per (symbol, start, end, granularity, fields).
// Cache failures fall through to the upstream fetch.
type CachedHistory struct {
	next    domrepo.MarketHistory
	cache   icache.BytesCache
	ttl     time.Duration
	metrics domrepo.Metrics
	l       *applogger.Logger
}

var _ domrepo.MarketHistory = (*CachedHistory)(nil)

func NewCachedHistory(next domrepo.MarketHistory, c icache.BytesCache, ttl time.Duration, m domrepo.Metrics, l *applogger.Logger) *CachedHistory {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedHistory{next: next, cache: c, ttl: ttl, metrics: m, l: l}
}

// HistoryKey is the memo key for q.
func HistoryKey(q domrepo.HistoryQuery) string {
	return pcache.GenerateKeyWithParams("history",
		q.Symbol, q.Start, q.End, q.Granularity, strings.Join(q.Fields, ","))
}

func (h *CachedHistory) History(ctx context.Context, q domrepo.HistoryQuery) (*models.Series, error) {
	key := HistoryKey(q)

	if b, ok, err := h.cache.GetBytes(ctx, key); err != nil {
		h.record("error")
		h.l.Warn("history cache read failed", applogger.String("key", key), applogger.Error(err))
	} else if ok {
		var s models.Series
		if err := json.Unmarshal(b, &s); err == nil {
			h.record("hit")
			return &s, nil
		}
		h.record("error")
	} else {
		h.record("miss")
	}

	start := time.Now()
	s, err := h.next.History(ctx, q)
	if h.metrics != nil {
		h.metrics.RecordLatency("history_fetch", time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(s); err == nil {
		if err := h.cache.SetBytes(ctx, key, b, h.ttl); err != nil {
			h.l.Warn("history cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	return s, nil
}

func (h *CachedHistory) record(result string) {
	if h.metrics != nil {
		h.metrics.RecordCache(result)
	}
}
