// Package export renders aligned tables for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"AstroOverlay/internal/domain/models"
)

// WriteCSV writes table as CSV with a leading date column. Unset cells are empty.
func WriteCSV(w io.Writer, table *models.Series) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(table.Fields)+1)
	header = append(header, "date")
	header = append(header, table.Fields...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	rec := make([]string, len(header))
	for _, r := range table.Rows {
		rec[0] = r.Date.String()
		for i, v := range r.Values {
			rec[i+1] = ""
			if v.Valid {
				rec[i+1] = strconv.FormatFloat(v.Float, 'f', -1, 64)
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.Date, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName builds a download name such as "overlay_NSEI_weekly_2024-01-01_2024-01-31.csv".
func FileName(ov *models.Overlay) string {
	sym := make([]rune, 0, len(ov.Symbol))
	for _, c := range ov.Symbol {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '.':
			sym = append(sym, c)
		}
	}
	return fmt.Sprintf("overlay_%s_%s_%s_%s.csv", string(sym), ov.Granularity, ov.Start, ov.End)
}
