package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"AstroOverlay/internal/domain/models"
	domrepo "AstroOverlay/internal/domain/repository"
	"AstroOverlay/internal/services/align"
	xutil "AstroOverlay/pkg/util"

	"github.com/xuri/excelize/v2"
)

// PlanetaryLoaderConfig describes the expected layout of a planetary table.
type PlanetaryLoaderConfig struct {
	Bodies      []string
	DateColumn  string
	DateLayouts []string
	Duplicates  align.DuplicatePolicy
}

// SheetLoader reads planetary positions from .xlsx/.xlsm workbooks (first sheet) or .csv files.
type SheetLoader struct {
	cfg PlanetaryLoaderConfig
}

var _ domrepo.PlanetaryLoader = (*SheetLoader)(nil)

func NewSheetLoader(cfg PlanetaryLoaderConfig) *SheetLoader {
	if cfg.DateColumn == "" {
		cfg.DateColumn = "date"
	}
	if len(cfg.DateLayouts) == 0 {
		cfg.DateLayouts = []string{xutil.DayMonthYear}
	}
	if cfg.Duplicates == "" {
		cfg.Duplicates = align.DuplicatesReject
	}
	bodies := make([]string, len(cfg.Bodies))
	for i, b := range cfg.Bodies {
		bodies[i] = strings.ToLower(strings.TrimSpace(b))
	}
	cfg.Bodies = bodies
	return &SheetLoader{cfg: cfg}
}

// Fields returns the series field names produced by the loader.
func (l *SheetLoader) Fields() []string {
	return append([]string(nil), l.cfg.Bodies...)
}

// LoadFile opens path and parses it by extension.
func (l *SheetLoader) LoadFile(ctx context.Context, path string) (*models.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open planetary file: %w", err)
	}
	defer f.Close()
	return l.Load(ctx, filepath.Base(path), f)
}

// Load parses r, choosing the format from name's extension.
func (l *SheetLoader) Load(ctx context.Context, name string, r io.Reader) (*models.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		rows [][]string
		f    *excelize.File
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx", ".xlsm":
		f, rows, err = readWorkbook(r)
		if f != nil {
			defer f.Close()
		}
	case ".csv":
		rows, err = readCSV(r)
	case ".xls":
		return nil, fmt.Errorf("%w: legacy .xls not supported, save as .xlsx", domrepo.ErrParse)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", domrepo.ErrParse, ext)
	}
	if err != nil {
		return nil, err
	}

	s, err := l.parseRows(f, rows)
	if err != nil {
		return nil, err
	}
	out, err := align.Normalize(s, l.cfg.Duplicates)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domrepo.ErrParse, err)
	}
	return out, nil
}

func readWorkbook(r io.Reader) (*excelize.File, [][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open workbook: %v", domrepo.ErrParse, err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return f, nil, fmt.Errorf("%w: workbook has no sheets", domrepo.ErrParse)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return f, nil, fmt.Errorf("%w: read sheet %q: %v", domrepo.ErrParse, sheets[0], err)
	}
	return f, rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read csv: %v", domrepo.ErrParse, err)
	}
	return rows, nil
}

func (l *SheetLoader) parseRows(f *excelize.File, rows [][]string) (*models.Series, error) {
	hdr := -1
	for i, row := range rows {
		if !blank(row) {
			hdr = i
			break
		}
	}
	if hdr < 0 {
		return nil, fmt.Errorf("%w: no header row", domrepo.ErrParse)
	}

	cols := make(map[string]int, len(rows[hdr]))
	for i, h := range rows[hdr] {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := cols[key]; key != "" && !dup {
			cols[key] = i
		}
	}
	dateIdx, ok := cols[strings.ToLower(l.cfg.DateColumn)]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q column", domrepo.ErrParse, l.cfg.DateColumn)
	}
	bodyIdx := make([]int, len(l.cfg.Bodies))
	var missing []string
	for i, b := range l.cfg.Bodies {
		idx, ok := cols[b]
		if !ok {
			missing = append(missing, b)
			continue
		}
		bodyIdx[i] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing body columns %s", domrepo.ErrParse, strings.Join(missing, ", "))
	}

	s := models.NewSeries(l.cfg.Bodies...)
	for i := hdr + 1; i < len(rows); i++ {
		row := rows[i]
		if blank(row) {
			continue
		}
		line := i + 1
		d, err := l.parseDate(f, cell(row, dateIdx))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", domrepo.ErrParse, line, err)
		}
		vals := make([]models.Value, len(bodyIdx))
		for j, idx := range bodyIdx {
			v, err := parseValue(cell(row, idx))
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %s: %v", domrepo.ErrParse, line, l.cfg.Bodies[j], err)
			}
			vals[j] = v
		}
		if err := s.Append(d, vals...); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", domrepo.ErrParse, line, err)
		}
	}
	return s, nil
}

// parseDate accepts the configured text layouts, then Excel serial numbers for workbooks.
func (l *SheetLoader) parseDate(f *excelize.File, raw string) (models.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Date{}, errors.New("empty date")
	}
	if t, ok := xutil.ParseLayouts(raw, l.cfg.DateLayouts...); ok {
		return models.DateOf(t), nil
	}
	if f != nil {
		if serial, err := xutil.ParseNumber(raw); err == nil && serial > 0 {
			t, err := excelize.ExcelDateToTime(serial, false)
			if err != nil {
				return models.Date{}, fmt.Errorf("excel date %q: %v", raw, err)
			}
			return models.DateOf(t), nil
		}
	}
	return models.Date{}, fmt.Errorf("unrecognised date %q", raw)
}

func parseValue(raw string) (models.Value, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Unset, nil
	}
	f, err := xutil.ParseNumber(raw)
	if err != nil {
		return models.Unset, fmt.Errorf("not a number: %v", err)
	}
	return models.Some(f), nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
