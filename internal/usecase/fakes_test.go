package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"AstroOverlay/internal/domain/models"
	domrepo "AstroOverlay/internal/domain/repository"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func d(s string) models.Date { return models.MustParseDate(s) }

func dp(s string) *models.Date {
	v := d(s)
	return &v
}

type fakeDatasets struct {
	s   *models.Series
	err error
	ids []string
}

func (f *fakeDatasets) Get(_ context.Context, id string) (*models.Series, string, error) {
	f.ids = append(f.ids, id)
	if f.err != nil {
		return nil, "", f.err
	}
	return f.s.Clone(), "planets.xlsx", nil
}

type fakeHistory struct {
	mu      sync.Mutex
	byQuery func(q domrepo.HistoryQuery) (*models.Series, error)
	queries []domrepo.HistoryQuery
}

func (f *fakeHistory) History(_ context.Context, q domrepo.HistoryQuery) (*models.Series, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return f.byQuery(q)
}

type fakePublisher struct {
	events []models.OverlayEvent
	err    error
}

func (p *fakePublisher) PublishOverlay(_ context.Context, ev models.OverlayEvent) error {
	p.events = append(p.events, ev)
	return p.err
}
func (p *fakePublisher) Close() error { return nil }

type fakeArchive struct {
	stored int
	err    error
}

func (a *fakeArchive) StoreBars(_ context.Context, _ string, _ domrepo.Granularity, bars *models.Series) error {
	a.stored += bars.Len()
	return a.err
}
func (a *fakeArchive) Close() error { return nil }

type fakeMetrics struct {
	errors     []string
	alignments int
}

func (m *fakeMetrics) RecordError(kind string)       { m.errors = append(m.errors, kind) }
func (m *fakeMetrics) RecordLatency(string, float64) {}
func (m *fakeMetrics) RecordCache(string)            {}
func (m *fakeMetrics) RecordAlignment(string, domrepo.Granularity, int, int) {
	m.alignments++
}

var errBoom = errors.New("boom")
