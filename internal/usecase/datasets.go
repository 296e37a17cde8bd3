package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"AstroOverlay/internal/domain/models"
	domrepo "AstroOverlay/internal/domain/repository"
	pcache "AstroOverlay/pkg/cache"
	applogger "AstroOverlay/pkg/logger"

	"github.com/google/uuid"
)

// DefaultDatasetID names the configured planetary file on disk.
const DefaultDatasetID = "default"

// datasetSnapshot is the stored form of an uploaded dataset.
type datasetSnapshot struct {
	Name   string         `json:"name"`
	Series *models.Series `json:"series"`
}

// DatasetRegistry stores uploaded planetary tables and resolves dataset ids to fresh snapshots.
type DatasetRegistry struct {
	loader      domrepo.PlanetaryLoader
	store       pcache.Service
	defaultFile string
	ttl         time.Duration
	l           *applogger.Logger
}

func NewDatasetRegistry(loader domrepo.PlanetaryLoader, store pcache.Service, defaultFile string, ttl time.Duration, l *applogger.Logger) *DatasetRegistry {
	if l == nil {
		l = applogger.Nop()
	}
	return &DatasetRegistry{loader: loader, store: store, defaultFile: defaultFile, ttl: ttl, l: l}
}

func datasetKey(id string) string { return pcache.GenerateKey("dataset", id) }

// Upload parses r and stores it under a new id.
func (r *DatasetRegistry) Upload(ctx context.Context, name string, src io.Reader) (models.DatasetInfo, error) {
	s, err := r.loader.Load(ctx, name, src)
	if err != nil {
		return models.DatasetInfo{}, err
	}

	id := uuid.NewString()
	snap := datasetSnapshot{Name: filepath.Base(name), Series: s}
	if err := r.store.Set(ctx, datasetKey(id), snap, r.ttl); err != nil {
		return models.DatasetInfo{}, fmt.Errorf("store dataset: %w", err)
	}

	info := describe(id, snap.Name, s)
	r.l.Info("dataset uploaded",
		applogger.String("id", id),
		applogger.String("name", snap.Name),
		applogger.Int("rows", info.Rows),
	)
	return info, nil
}

// Get returns an owned snapshot of dataset id. The default dataset is re-read from disk each call.
func (r *DatasetRegistry) Get(ctx context.Context, id string) (*models.Series, string, error) {
	if id == "" || id == DefaultDatasetID {
		if r.defaultFile == "" {
			return nil, "", fmt.Errorf("%w: no default planetary file configured", domrepo.ErrDatasetNotFound)
		}
		s, err := r.loader.LoadFile(ctx, r.defaultFile)
		if err != nil {
			return nil, "", fmt.Errorf("load default dataset: %w", err)
		}
		return s, filepath.Base(r.defaultFile), nil
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, "", fmt.Errorf("%w: %s", domrepo.ErrDatasetNotFound, id)
	}
	var snap datasetSnapshot
	if err := r.store.Get(ctx, datasetKey(id), &snap); err != nil {
		if errors.Is(err, pcache.ErrCacheMiss) {
			return nil, "", fmt.Errorf("%w: %s", domrepo.ErrDatasetNotFound, id)
		}
		return nil, "", fmt.Errorf("read dataset: %w", err)
	}
	if snap.Series == nil {
		snap.Series = models.NewSeries()
	}
	r.touch(ctx, id)
	return snap.Series, snap.Name, nil
}

// touch restarts the retention window of an uploaded dataset on use.
func (r *DatasetRegistry) touch(ctx context.Context, id string) {
	if r.ttl <= 0 {
		return
	}
	if _, err := r.store.Expire(ctx, datasetKey(id), r.ttl); err != nil {
		r.l.Warn("dataset ttl refresh failed", applogger.String("id", id), applogger.Error(err))
	}
}

// Info summarizes dataset id.
func (r *DatasetRegistry) Info(ctx context.Context, id string) (models.DatasetInfo, error) {
	if id == "" {
		id = DefaultDatasetID
	}
	s, name, err := r.Get(ctx, id)
	if err != nil {
		return models.DatasetInfo{}, err
	}
	return describe(id, name, s), nil
}

// Delete removes an uploaded dataset. The default dataset cannot be deleted.
func (r *DatasetRegistry) Delete(ctx context.Context, id string) error {
	if id == DefaultDatasetID {
		return fmt.Errorf("%w: default dataset is read-only", domrepo.ErrDatasetNotFound)
	}
	ok, err := r.store.Exists(ctx, datasetKey(id))
	if err != nil {
		return fmt.Errorf("check dataset: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", domrepo.ErrDatasetNotFound, id)
	}
	return r.store.Delete(ctx, datasetKey(id))
}

func describe(id, name string, s *models.Series) models.DatasetInfo {
	first, last, _ := s.Bounds()
	return models.DatasetInfo{
		ID:     id,
		Name:   name,
		Fields: append([]string(nil), s.Fields...),
		Rows:   s.Len(),
		First:  first,
		Last:   last,
	}
}
