package fieldbook

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"altum/internal/leveling"
)

// headerScanRows bounds how far down a sheet the header row is searched.
const headerScanRows = 20

// ReadOptions configures ReadWorkbook.
type ReadOptions struct {
	// Sheet restricts the search to one worksheet. Empty searches all sheets
	// in workbook order.
	Sheet string
	// MaxRows rejects field books with more observation rows. Zero means no limit.
	MaxRows int
	Logger  *slog.Logger
}

// Book is a parsed field book.
type Book struct {
	Sheet        string
	Observations []leveling.Observation
	// SourceRows holds the 1-based worksheet row of each observation.
	SourceRows []int
}

// Survey builds a calculator input from the book.
func (b *Book) Survey(name string, startElevation, targetElevation float64) leveling.Survey {
	return leveling.Survey{
		Name:            name,
		Observations:    b.Observations,
		StartElevation:  startElevation,
		TargetElevation: targetElevation,
	}
}

// ReadFile opens and parses the workbook at path.
func ReadFile(path string, opts ReadOptions) (*Book, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open field book: %w", err)
	}
	defer file.Close()

	return ReadWorkbook(file, opts)
}

// ReadWorkbook parses the first worksheet that carries the field book headers.
// Rows whose five input cells are all blank are skipped.
func ReadWorkbook(r io.Reader, opts ReadOptions) (*Book, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if opts.Sheet != "" {
		sheets = []string{opts.Sheet}
	}

	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}

		headerRow, columns, found := findHeader(rows)
		if !found {
			logger.Debug("sheet has no field book header", slog.String("sheet", sheet))
			continue
		}

		if missing := missingColumns(columns); len(missing) > 0 {
			return nil, &MissingColumnError{Sheet: sheet, Columns: missing}
		}

		book, err := parseRows(sheet, rows, headerRow, columns, opts.MaxRows)
		if err != nil {
			return nil, err
		}

		logger.Info("field book parsed",
			slog.String("sheet", sheet),
			slog.Int("header_row", headerRow+1),
			slog.Int("observations", len(book.Observations)),
		)
		return book, nil
	}

	return nil, ErrNoFieldBook
}

// findHeader returns the first row naming at least three input columns,
// along with the cell index of every column it names.
func findHeader(rows [][]string) (int, [columnCount]int, bool) {
	var columns [columnCount]int

	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		for c := range columns {
			columns[c] = -1
		}
		matched := 0
		for j, cell := range rows[i] {
			col, ok := matchColumn(cell)
			if !ok || columns[col] >= 0 {
				continue
			}
			columns[col] = j
			matched++
		}
		if matched >= 3 {
			return i, columns, true
		}
	}

	return -1, columns, false
}

func missingColumns(columns [columnCount]int) []string {
	var missing []string
	for c, idx := range columns {
		if idx < 0 {
			missing = append(missing, Column(c).String())
		}
	}
	return missing
}

func parseRows(sheet string, rows [][]string, headerRow int, columns [columnCount]int, maxRows int) (*Book, error) {
	book := &Book{Sheet: sheet}

	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		cell := func(c Column) string {
			idx := columns[c]
			if idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		if blankRow(cell) {
			continue
		}
		if maxRows > 0 && len(book.Observations) >= maxRows {
			return nil, fmt.Errorf("%w (%d)", ErrTooManyRows, maxRows)
		}

		obs := leveling.Observation{PointID: cell(ColPoint)}
		targets := []struct {
			col Column
			dst *leveling.Reading
		}{
			{ColDistance, &obs.PartialDistance},
			{ColBacksight, &obs.Backsight},
			{ColIntermediate, &obs.Intermediate},
			{ColForesight, &obs.Foresight},
		}
		for _, t := range targets {
			raw := cell(t.col)
			reading, err := parseReading(raw)
			if err == nil && t.col == ColDistance && reading.Valid && reading.Value < 0 {
				err = ErrNegativeDistance
			}
			if err != nil {
				name, _ := excelize.CoordinatesToCellName(columns[t.col]+1, i+1)
				return nil, &CellError{Sheet: sheet, Cell: name, Column: t.col, Value: raw, Err: err}
			}
			*t.dst = reading
		}

		book.Observations = append(book.Observations, obs)
		book.SourceRows = append(book.SourceRows, i+1)
	}

	if len(book.Observations) == 0 {
		return nil, ErrNoObservations
	}
	return book, nil
}

func blankRow(cell func(Column) string) bool {
	for c := Column(0); c < columnCount; c++ {
		if cell(c) != "" {
			return false
		}
	}
	return true
}

// parseReading accepts a blank cell as absent.
func parseReading(raw string) (leveling.Reading, error) {
	if raw == "" || raw == "-" {
		return leveling.None(), nil
	}
	v, err := ParseDecimal(raw)
	if err != nil {
		return leveling.None(), err
	}
	return leveling.Some(v), nil
}

// ParseDecimal parses a finite decimal number. A single decimal comma is
// read as a point when the text has no point of its own, so "1,5" is 1.5
// while "1,234.5" is rejected. NaN and infinities are rejected.
func ParseDecimal(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil && strings.Count(raw, ",") == 1 && !strings.Contains(raw, ".") {
		v, err = strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	}
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotNumeric
	}
	return v, nil
}
