package fieldbook

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"altum/internal/leveling"
)

// SummarySheet holds the field check next to the compensation table.
const SummarySheet = "Comprobacion"

const (
	numFmtDistance   = "0.00"
	numFmtReading    = "0.000"
	numFmtCorrection = "0.0000"
)

// ExportOptions configures the result workbook.
type ExportOptions struct {
	// Chart embeds the longitudinal profile next to the table.
	Chart bool
	// Summary adds the field check sheet.
	Summary bool
	Title   string
}

// DefaultExportOptions returns the options used by the web and CLI exports.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{Chart: true, Summary: true, Title: "Perfil longitudinal"}
}

// NewResultWorkbook builds the compensation workbook. The caller owns the
// returned file and must Close it.
func NewResultWorkbook(outcome leveling.Outcome, opts ExportOptions) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), ResultSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name result sheet: %w", err)
	}

	if err := writeResultTable(f, outcome); err != nil {
		f.Close()
		return nil, err
	}

	if opts.Chart && len(outcome.Rows) > 1 {
		if err := addProfileChart(f, outcome, opts.Title); err != nil {
			f.Close()
			return nil, err
		}
	}

	if opts.Summary {
		if err := writeSummary(f, outcome.Diagnostics, outcome.Status); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

// WriteWorkbook streams the compensation workbook to w.
func WriteWorkbook(w io.Writer, outcome leveling.Outcome, opts ExportOptions) error {
	f, err := NewResultWorkbook(outcome, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WorkbookBytes renders the compensation workbook into memory.
func WorkbookBytes(outcome leveling.Outcome, opts ExportOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, outcome, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveWorkbook writes the compensation workbook to path.
func SaveWorkbook(path string, outcome leveling.Outcome, opts ExportOptions) error {
	f, err := NewResultWorkbook(outcome, opts)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeResultTable(f *excelize.File, outcome leveling.Outcome) error {
	sheet := ResultSheet
	header := make([]interface{}, len(ResultHeaders))
	for i, h := range ResultHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range outcome.Rows {
		r := i + 2
		cell, err := cellName(1, r)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, row.PointID); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}

		values := []leveling.Reading{
			row.PartialDistance,
			row.Backsight,
			row.Intermediate,
			row.Foresight,
			row.InstrumentHeight,
			leveling.Some(row.Elevation),
			leveling.Some(row.CumulativeDistance),
		}
		if i < len(outcome.Adjusted) {
			adj := outcome.Adjusted[i]
			values = append(values, leveling.Some(adj.Correction), leveling.Some(adj.AdjustedElevation))
		}

		for j, v := range values {
			if !v.Valid {
				continue
			}
			cell, err := cellName(j+2, r)
			if err != nil {
				return err
			}
			if err := f.SetCellFloat(sheet, cell, v.Value, -1, 64); err != nil {
				return fmt.Errorf("failed to write row %d: %w", i, err)
			}
		}
	}

	return styleResultTable(f, len(outcome.Rows)+1)
}

func styleResultTable(f *excelize.File, lastRow int) error {
	sheet := ResultSheet

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DCE6F1"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastHeader, err := cellName(len(ResultHeaders), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	if lastRow < 2 {
		return f.SetColWidth(sheet, "A", "J", 14)
	}

	formats := []struct {
		from, to string
		numFmt   string
	}{
		{"B", "B", numFmtDistance},
		{"C", "G", numFmtReading},
		{"H", "H", numFmtDistance},
		{"I", "I", numFmtCorrection},
		{"J", "J", numFmtReading},
	}
	for _, ft := range formats {
		numFmt := ft.numFmt
		style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
		if err != nil {
			return fmt.Errorf("failed to create number style %s: %w", numFmt, err)
		}
		if err := f.SetCellStyle(sheet, fmt.Sprintf("%s2", ft.from), fmt.Sprintf("%s%d", ft.to, lastRow), style); err != nil {
			return err
		}
	}

	return f.SetColWidth(sheet, "A", "J", 14)
}

func addProfileChart(f *excelize.File, outcome leveling.Outcome, title string) error {
	last := len(outcome.Rows) + 1
	valueCol, seriesName := "G", "Cota_Calc"
	if outcome.Compensated() {
		valueCol, seriesName = "J", "Cota_Compensada"
	}

	chart := &excelize.Chart{
		Type: excelize.Scatter,
		Series: []excelize.ChartSeries{{
			Name:       seriesName,
			Categories: fmt.Sprintf("%s!$H$2:$H$%d", ResultSheet, last),
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", ResultSheet, valueCol, valueCol, last),
			Marker:     excelize.ChartMarker{Symbol: "circle", Size: 5},
		}},
		Title:     []excelize.RichTextRun{{Text: title}},
		Legend:    excelize.ChartLegend{Position: "none"},
		XAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Distancia acumulada (m)"}}},
		YAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Cota (m)"}}},
		Dimension: excelize.ChartDimension{Width: 640, Height: 360},
	}

	if err := f.AddChart(ResultSheet, "L2", chart); err != nil {
		return fmt.Errorf("failed to add profile chart: %w", err)
	}
	return nil
}

// CheckMessage is the field check verdict shown to the surveyor.
func CheckMessage(d leveling.Diagnostics) string {
	if d.ArithmeticOK {
		return "Validación exitosa"
	}
	return "Error matemático"
}

func writeSummary(f *excelize.File, d leveling.Diagnostics, status leveling.Status) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Σ Vistas Atrás", d.SumBacksight},
		{"Σ Vistas Adelante", d.SumForesight},
		{"Dif. Sumas", d.ArithmeticDelta},
		{"Dif. Cotas", d.ElevationDelta},
		{"Discrepancia", d.Discrepancy},
		{"Comprobación", CheckMessage(d)},
		{"Error de Cierre", d.ClosingError},
		{"Distancia Total", d.TotalDistance},
		{"k (m/m)", d.CorrectionRate},
		{"Estado", string(status)},
	}
	for i, row := range rows {
		cell, err := cellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	numFmt := numFmtCorrection
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return err
	}
	lastValue, err := cellName(2, len(rows))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "B1", lastValue, style); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "A", "A", 22)
}

// cellName converts 1-based coordinates to an A1 reference.
func cellName(col, row int) (string, error) {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", fmt.Errorf("invalid cell %d,%d: %w", col, row, err)
	}
	return name, nil
}
