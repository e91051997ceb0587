package fieldbook

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"altum/internal/leveling"
)

// buildWorkbook writes rows to a new workbook starting at A1 and returns it
// serialised.
func buildWorkbook(t *testing.T, sheet string, rows [][]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))

	for i, row := range rows {
		for j, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func sampleOutcome(t *testing.T, target float64) leveling.Outcome {
	t.Helper()
	obs := []leveling.Observation{
		{PointID: "BM1", Backsight: leveling.Some(1.500)},
		{PointID: "1", PartialDistance: leveling.Some(20), Intermediate: leveling.Some(1.800)},
		{PointID: "TP1", PartialDistance: leveling.Some(30), Foresight: leveling.Some(0.900), Backsight: leveling.Some(1.100)},
		{PointID: "BM2", PartialDistance: leveling.Some(50), Foresight: leveling.Some(1.710)},
	}
	rows, err := leveling.Reduce(obs, 725)
	require.NoError(t, err)
	outcome, err := leveling.Compensate(rows, 725, target)
	require.NoError(t, err)
	return outcome
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want Column
	}{
		{"Punto", ColPoint},
		{" PUNTO ", ColPoint},
		{"Point", ColPoint},
		{"Distancia", ColDistance},
		{"Dist.", ColDistance},
		{"Atrás", ColBacksight},
		{"ATRAS", ColBacksight},
		{"Vista_Atrás", ColBacksight},
		{"Backsight", ColBacksight},
		{"Intermedia", ColIntermediate},
		{"intermediate", ColIntermediate},
		{"Adelante", ColForesight},
		{"Foresight", ColForesight},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := matchColumn(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := matchColumn("Cota")
	assert.False(t, ok)
}

func TestReadWorkbook(t *testing.T) {
	buf := buildWorkbook(t, "Registro", [][]interface{}{
		{"Nivelación línea norte"},
		{},
		{"Punto", "Distancia", "Atrás", "Intermedia", "Adelante"},
		{"BM1", nil, 1.5},
		{"1", 20, nil, 1.8},
		{},
		{"TP1", 30.5, 1.1, nil, 0.9},
		{"BM2", "25,5", nil, nil, "1.710"},
	})

	book, err := ReadWorkbook(buf, ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Registro", book.Sheet)
	require.Len(t, book.Observations, 4, "blank rows are skipped")
	assert.Equal(t, []int{4, 5, 7, 8}, book.SourceRows)

	bm := book.Observations[0]
	assert.Equal(t, "BM1", bm.PointID)
	assert.False(t, bm.PartialDistance.Valid)
	assert.Equal(t, leveling.Some(1.5), bm.Backsight)

	tp := book.Observations[2]
	assert.Equal(t, leveling.Some(30.5), tp.PartialDistance)
	assert.Equal(t, leveling.Some(1.1), tp.Backsight)
	assert.Equal(t, leveling.Some(0.9), tp.Foresight)
	assert.False(t, tp.Intermediate.Valid)

	last := book.Observations[3]
	assert.Equal(t, leveling.Some(25.5), last.PartialDistance, "decimal comma")
	assert.Equal(t, leveling.Some(1.71), last.Foresight)

	survey := book.Survey("norte", 725, 725.1)
	assert.Equal(t, "norte", survey.Name)
	assert.Len(t, survey.Observations, 4)
	assert.Equal(t, 725.1, survey.TargetElevation)
}

func TestReadWorkbook_ColumnOrderAndAliases(t *testing.T) {
	buf := buildWorkbook(t, "Sheet1", [][]interface{}{
		{"Foresight", "Point", "Backsight", "Distance", "Intermediate"},
		{nil, "A", 1.25},
		{0.75, "B", nil, 40},
	})

	book, err := ReadWorkbook(buf, ReadOptions{})
	require.NoError(t, err)
	require.Len(t, book.Observations, 2)
	assert.Equal(t, "B", book.Observations[1].PointID)
	assert.Equal(t, leveling.Some(0.75), book.Observations[1].Foresight)
	assert.Equal(t, leveling.Some(40), book.Observations[1].PartialDistance)
}

func TestReadWorkbook_Errors(t *testing.T) {
	t.Run("no header", func(t *testing.T) {
		buf := buildWorkbook(t, "Datos", [][]interface{}{{"a", "b"}, {1, 2}})
		_, err := ReadWorkbook(buf, ReadOptions{})
		assert.ErrorIs(t, err, ErrNoFieldBook)
	})

	t.Run("missing column", func(t *testing.T) {
		buf := buildWorkbook(t, "Datos", [][]interface{}{
			{"Punto", "Distancia", "Atras", "Adelante"},
			{"BM", nil, 1.5},
		})
		_, err := ReadWorkbook(buf, ReadOptions{})
		var missing *MissingColumnError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, []string{"Intermedia"}, missing.Columns)
	})

	for _, raw := range []string{"uno", "inf", "-Inf", "NaN", "1e400", "1,234.5"} {
		t.Run("not numeric "+raw, func(t *testing.T) {
			buf := buildWorkbook(t, "Datos", [][]interface{}{
				{"Punto", "Distancia", "Atras", "Intermedia", "Adelante"},
				{"BM", nil, raw},
			})
			_, err := ReadWorkbook(buf, ReadOptions{})
			var cellErr *CellError
			require.ErrorAs(t, err, &cellErr)
			assert.Equal(t, "C2", cellErr.Cell)
			assert.Equal(t, ColBacksight, cellErr.Column)
			assert.ErrorIs(t, err, ErrNotNumeric)
		})
	}

	t.Run("negative distance", func(t *testing.T) {
		buf := buildWorkbook(t, "Datos", [][]interface{}{
			{"Punto", "Distancia", "Atras", "Intermedia", "Adelante"},
			{"BM", nil, 1.5},
			{"A", -10, nil, nil, 1.2},
		})
		_, err := ReadWorkbook(buf, ReadOptions{})
		assert.ErrorIs(t, err, ErrNegativeDistance)
	})

	t.Run("no observations", func(t *testing.T) {
		buf := buildWorkbook(t, "Datos", [][]interface{}{
			{"Punto", "Distancia", "Atras", "Intermedia", "Adelante"},
		})
		_, err := ReadWorkbook(buf, ReadOptions{})
		assert.ErrorIs(t, err, ErrNoObservations)
	})

	t.Run("too many rows", func(t *testing.T) {
		buf := buildWorkbook(t, "Datos", [][]interface{}{
			{"Punto", "Distancia", "Atras", "Intermedia", "Adelante"},
			{"BM", nil, 1.5},
			{"A", 10, nil, nil, 1.2},
		})
		_, err := ReadWorkbook(buf, ReadOptions{MaxRows: 1})
		assert.ErrorIs(t, err, ErrTooManyRows)
	})

	t.Run("not a workbook", func(t *testing.T) {
		_, err := ReadWorkbook(strings.NewReader("Punto,Distancia"), ReadOptions{})
		assert.Error(t, err)
	})
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{raw: "1.5", want: 1.5},
		{raw: "2,5", want: 2.5},
		{raw: "-0,125", want: -0.125},
		{raw: "725", want: 725},
		{raw: "1e3", want: 1000},
		{raw: "1,234.5", wantErr: true},
		{raw: "1,2,3", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "NaN", wantErr: true},
		{raw: "inf", wantErr: true},
		{raw: "-Infinity", wantErr: true},
		{raw: "1e400", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDecimal(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotNumeric)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestCellName(t *testing.T) {
	tests := []struct {
		name    string
		col     int
		row     int
		want    string
		wantErr bool
	}{
		{name: "first cell", col: 1, row: 1, want: "A1"},
		{name: "last result column", col: len(ResultHeaders), row: 3, want: "J3"},
		{name: "zero column", col: 0, row: 1, wantErr: true},
		{name: "zero row", col: 1, row: 0, wantErr: true},
		{name: "past last column", col: excelize.MaxColumns + 1, row: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cellName(tt.col, tt.row)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSaveWorkbook(t *testing.T) {
	outcome := sampleOutcome(t, 724.990)
	path := filepath.Join(t.TempDir(), ResultFileName)

	require.NoError(t, SaveWorkbook(path, outcome, DefaultExportOptions()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ResultSheet, SummarySheet}, f.GetSheetList())

	rows, err := f.GetRows(ResultSheet)
	require.NoError(t, err)
	require.Len(t, rows, len(outcome.Rows)+1)
	assert.Equal(t, ResultHeaders, rows[0])

	// formatted values follow the column number formats
	last := rows[len(rows)-1]
	assert.Equal(t, "BM2", last[0])
	assert.Equal(t, "50.00", last[1])
	assert.Equal(t, "1.710", last[4])
	assert.Equal(t, "", last[5], "terminal foresight has no instrument height")
	assert.Equal(t, "100.00", last[7])
	assert.Equal(t, "724.990", last[9])

	raw, err := f.GetCellValue(ResultSheet, "I5", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, "Validación exitosa", summary[5][1])
	assert.Equal(t, "compensated", summary[9][1])
}

func TestWriteWorkbook_Uncompensated(t *testing.T) {
	rows, err := leveling.Reduce([]leveling.Observation{{PointID: "BM", Backsight: leveling.Some(1.5)}}, 725)
	require.NoError(t, err)
	outcome, err := leveling.Compensate(rows, 725, 725)
	require.ErrorIs(t, err, leveling.ErrZeroDistance)

	data, err := WorkbookBytes(outcome, DefaultExportOptions())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(ResultSheet)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Len(t, got[1], 8, "no correction columns without compensation")
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	book, err := ReadWorkbook(bytes.NewReader(buf.Bytes()), ReadOptions{})
	assert.ErrorIs(t, err, ErrNoObservations, "template has headers only")
	assert.Nil(t, book)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(TemplateSheet)
	require.NoError(t, err)
	assert.Equal(t, InputHeaders, rows[0])

	dvs, err := f.GetDataValidations(TemplateSheet)
	require.NoError(t, err)
	assert.Len(t, dvs, 2)
}

func TestWriteCSV(t *testing.T) {
	outcome := sampleOutcome(t, 725.000)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, outcome, CSVOptions{BOMPrefix: true}))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))

	records, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, ResultHeaders, records[0])
	assert.Equal(t, []string{"BM1", "", "1.500", "", "", "726.500", "725.000", "0.00", "0.0000", "725.000"}, records[1])
	assert.Equal(t, "", records[4][5])
	assert.Equal(t, "725.000", records[4][9])

	t.Run("semicolon separator", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, WriteCSV(&out, outcome, CSVOptions{Comma: ';'}))
		assert.True(t, strings.HasPrefix(out.String(), "Punto;Distancia;"))
	})
}

func TestProfile(t *testing.T) {
	outcome := sampleOutcome(t, 724.990)
	points := Profile(outcome)
	require.Len(t, points, 4)
	assert.Equal(t, "BM2", points[3].PointID)
	assert.InDelta(t, 100.0, points[3].Distance, 1e-9)
	assert.InDelta(t, 724.990, points[3].Elevation, 1e-9)

	uncompensated := leveling.Outcome{Rows: outcome.Rows}
	points = Profile(uncompensated)
	assert.InDelta(t, outcome.Rows[3].Elevation, points[3].Elevation, 1e-9)

	withInvalid := leveling.Outcome{Rows: append(append([]leveling.ReducedRow(nil), outcome.Rows...), leveling.ReducedRow{Kind: leveling.KindInvalid})}
	assert.Len(t, Profile(withInvalid), 4)
}
