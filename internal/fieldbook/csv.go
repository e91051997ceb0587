package fieldbook

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"altum/internal/leveling"
)

// CSVOptions configures WriteCSV.
type CSVOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
	Comma     rune
}

// WriteCSV writes the compensation table with the same columns as the
// workbook export. Absent values are written as empty fields.
func WriteCSV(w io.Writer, outcome leveling.Outcome, opts CSVOptions) error {
	if opts.BOMPrefix {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if opts.Comma != 0 {
		writer.Comma = opts.Comma
	}

	if err := writer.Write(ResultHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, row := range outcome.Rows {
		record := []string{
			row.PointID,
			formatFixed(row.PartialDistance, 2),
			row.Backsight.String(),
			row.Intermediate.String(),
			row.Foresight.String(),
			row.InstrumentHeight.String(),
			formatFloat(row.Elevation, 3),
			formatFloat(row.CumulativeDistance, 2),
			"",
			"",
		}
		if i < len(outcome.Adjusted) {
			adj := outcome.Adjusted[i]
			record[8] = formatFloat(adj.Correction, 4)
			record[9] = formatFloat(adj.AdjustedElevation, 3)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64, prec int) string {
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func formatFixed(r leveling.Reading, prec int) string {
	if !r.Valid {
		return ""
	}
	return formatFloat(r.Value, prec)
}
