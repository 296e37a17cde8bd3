package repository

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"AstroOverlay/internal/domain/models"
	domrepo "AstroOverlay/internal/domain/repository"
	"AstroOverlay/internal/services/align"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testLoader(policy align.DuplicatePolicy) *SheetLoader {
	return NewSheetLoader(PlanetaryLoaderConfig{
		Bodies:      []string{"Venus", "Mars"},
		DateColumn:  "date",
		DateLayouts: []string{"2-1-2006", "2006-01-02"},
		Duplicates:  policy,
	})
}

func TestLoadCSV(t *testing.T) {
	src := "DATE,venus,mars,ignored\n" +
		"15-01-2024,10.5,200,x\n" +
		"01-01-2024,10.25,,y\n" +
		"\n" +
		"08-01-2024,\"1,010.75\",201,z\n"

	s, err := testLoader(align.DuplicatesReject).Load(context.Background(), "planets.csv", strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"venus", "mars"}, s.Fields)
	assert.Equal(t, []models.Date{
		models.MustParseDate("2024-01-01"),
		models.MustParseDate("2024-01-08"),
		models.MustParseDate("2024-01-15"),
	}, s.Dates())

	mars, ok := s.Value(0, "mars")
	require.True(t, ok)
	assert.False(t, mars.Valid, "empty cell is unset")
	venus, _ := s.Value(1, "venus")
	assert.Equal(t, models.Some(1010.75), venus)
}

func TestLoadCSVDuplicates(t *testing.T) {
	src := "Date,Venus,Mars\n01-01-2024,1,2\n01-01-2024,3,4\n"

	_, err := testLoader(align.DuplicatesReject).Load(context.Background(), "p.csv", strings.NewReader(src))
	require.Error(t, err)
	assert.ErrorIs(t, err, domrepo.ErrParse)
	assert.ErrorIs(t, err, align.ErrDuplicateDate)

	s, err := testLoader(align.DuplicatesKeepLast).Load(context.Background(), "p.csv", strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	v, _ := s.Value(0, "venus")
	assert.Equal(t, models.Some(3), v)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		src  string
	}{
		{"missing date column", "p.csv", "day,venus,mars\n01-01-2024,1,2\n"},
		{"missing body column", "p.csv", "date,venus\n01-01-2024,1\n"},
		{"bad date", "p.csv", "date,venus,mars\n2024/13/45,1,2\n"},
		{"bad number", "p.csv", "date,venus,mars\n01-01-2024,abc,2\n"},
		{"empty file", "p.csv", ""},
		{"unsupported type", "p.txt", "date,venus,mars\n"},
		{"corrupt workbook", "p.xlsx", "not a zip"},
		{"legacy workbook", "p.xls", "\xd0\xcf\x11\xe0"},
		{"nan cell", "p.csv", "date,venus,mars\n01-01-2024,NaN,2\n"},
		{"infinite cell", "p.csv", "date,venus,mars\n01-01-2024,1,inf\n"},
		{"decimal comma", "p.csv", "date,venus,mars\n01-01-2024,\"12,5\",2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testLoader(align.DuplicatesReject).Load(context.Background(), tt.file, strings.NewReader(tt.src))
			require.Error(t, err)
			assert.ErrorIs(t, err, domrepo.ErrParse)
		})
	}
}

func TestLoadLegacyWorkbookMessage(t *testing.T) {
	_, err := testLoader(align.DuplicatesReject).Load(context.Background(), "planets.XLS", strings.NewReader(""))
	require.ErrorIs(t, err, domrepo.ErrParse)
	assert.Contains(t, err.Error(), "save as .xlsx")
}

func TestLoadUnpaddedDayMonthYear(t *testing.T) {
	l := NewSheetLoader(PlanetaryLoaderConfig{Bodies: []string{"Venus"}, DateColumn: "Date"})
	src := "Date,venus\n1-2-2024,3\n15-2-2024,4\n03-02-2024,5\n"

	s, err := l.Load(context.Background(), "p.csv", strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []models.Date{
		models.MustParseDate("2024-02-01"),
		models.MustParseDate("2024-02-03"),
		models.MustParseDate("2024-02-15"),
	}, s.Dates())
}

func TestLoadWorkbookTextAndSerialDates(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	require.NoError(t, f.SetCellValue(sheet, "A1", "Date"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "Venus"))
	require.NoError(t, f.SetCellValue(sheet, "C1", "Mars"))

	require.NoError(t, f.SetCellValue(sheet, "A2", "08-01-2024"))
	require.NoError(t, f.SetCellValue(sheet, "B2", 11.5))
	require.NoError(t, f.SetCellValue(sheet, "C2", 201))

	// A real date cell is stored as an Excel serial number.
	require.NoError(t, f.SetCellValue(sheet, "A3", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, f.SetCellValue(sheet, "B3", 10.5))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	s, err := testLoader(align.DuplicatesReject).Load(context.Background(), "planets.XLSX", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, []models.Date{models.MustParseDate("2024-01-01"), models.MustParseDate("2024-01-08")}, s.Dates())
	assert.Equal(t, []models.Value{models.Some(10.5), models.Some(11.5)}, s.Column("venus"))
	assert.Equal(t, []models.Value{models.Unset, models.Some(201)}, s.Column("mars"))
}

func TestLoadHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testLoader(align.DuplicatesReject).Load(ctx, "p.csv", strings.NewReader("date,venus,mars\n"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := testLoader(align.DuplicatesReject).LoadFile(context.Background(), "/nonexistent/planets.xlsx")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domrepo.ErrParse)
}
