package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"altum/internal/config"
	apierrors "altum/internal/errors"
	"altum/internal/fieldbook"
	"altum/internal/infrastructure"
	"altum/internal/leveling"
)

type serviceFixture struct {
	service *LevelingService
	spans   *tracetest.SpanRecorder
	reader  *sdkmetric.ManualReader
}

func newServiceFixture(t *testing.T, mutate func(*config.LevelingConfig)) *serviceFixture {
	t.Helper()

	cfg := config.Default().Leveling
	if mutate != nil {
		mutate(&cfg)
	}

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	metrics, err := infrastructure.NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &serviceFixture{
		service: NewLevelingService(cfg, tp.Tracer("test"), metrics, logger),
		spans:   spans,
		reader:  reader,
	}
}

// counter sums the data points of an int64 counter, keyed by one attribute.
func (f *serviceFixture) counter(t *testing.T, name, key string) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key(key))
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func closedLine(name string) leveling.Survey {
	return leveling.Survey{
		Name: name,
		Observations: []leveling.Observation{
			{PointID: "BM1", Backsight: leveling.Some(1.500)},
			{PointID: "1", PartialDistance: leveling.Some(20), Intermediate: leveling.Some(1.800)},
			{PointID: "TP1", PartialDistance: leveling.Some(30), Foresight: leveling.Some(0.900), Backsight: leveling.Some(1.100)},
			{PointID: "2", PartialDistance: leveling.Some(25), Intermediate: leveling.Some(2.000)},
			{PointID: "BM2", PartialDistance: leveling.Some(25), Foresight: leveling.Some(1.710)},
		},
		StartElevation:  725,
		TargetElevation: 725,
	}
}

func TestLevelingService_Compute(t *testing.T) {
	f := newServiceFixture(t, nil)

	outcome, err := f.service.Compute(context.Background(), closedLine("L1"))
	require.NoError(t, err)
	assert.True(t, outcome.Compensated())
	assert.InDelta(t, 725.0, outcome.Adjusted[4].AdjustedElevation, 1e-9)

	spans := f.spans.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "leveling.compute", spans[0].Name())

	assert.Equal(t, map[string]int64{"compensated": 1}, f.counter(t, "leveling_computations_total", "status"))
}

func TestLevelingService_ComputeFailures(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	broken := closedLine("broken")
	broken.Observations = append(broken.Observations, leveling.Observation{PointID: "x", PartialDistance: leveling.Some(10)})
	outcome, err := f.service.Compute(ctx, broken)
	var inconsistent *leveling.ArithmeticInconsistencyError
	require.ErrorAs(t, err, &inconsistent)
	assert.Equal(t, leveling.StatusArithmeticInconsistent, outcome.Status)
	assert.Len(t, outcome.Rows, 6)

	_, err = f.service.Compute(ctx, leveling.Survey{Name: "empty"})
	assert.ErrorIs(t, err, leveling.ErrEmptySurvey)

	counts := f.counter(t, "leveling_computations_total", "status")
	assert.Equal(t, int64(1), counts["arithmetic_inconsistent"])
	assert.Equal(t, int64(1), counts["rejected"])
}

func TestLevelingService_MaxRows(t *testing.T) {
	f := newServiceFixture(t, func(c *config.LevelingConfig) { c.MaxRows = 3 })

	_, err := f.service.Compute(context.Background(), closedLine("long"))
	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeValidation, appErr.Type)
}

func TestLevelingService_ComputeBatch(t *testing.T) {
	f := newServiceFixture(t, func(c *config.LevelingConfig) { c.MaxRows = 5 })

	long := closedLine("long")
	long.Observations = append(long.Observations, leveling.Observation{PointID: "X", Foresight: leveling.Some(1)})

	results, err := f.service.ComputeBatch(context.Background(), []leveling.Survey{
		closedLine("a"), long, closedLine("c"),
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a", results[0].Survey)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "long", results[1].Survey)
	var appErr *apierrors.AppError
	assert.ErrorAs(t, results[1].Err, &appErr)
	assert.Equal(t, "c", results[2].Survey)
	assert.True(t, results[2].Outcome.Compensated())
}

func TestLevelingService_ComputeBatchLimit(t *testing.T) {
	f := newServiceFixture(t, func(c *config.LevelingConfig) { c.MaxBatchSurveys = 1 })

	_, err := f.service.ComputeBatch(context.Background(), []leveling.Survey{closedLine("a"), closedLine("b")})
	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Message, "limit is 1")
}

func TestLevelingService_Import(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	xl := excelize.NewFile()
	rows := [][]interface{}{
		{"Punto", "Distancia", "Atras", "Intermedia", "Adelante"},
		{"BM1", nil, 1.5, nil, nil},
		{"A", 50, nil, nil, 1.2},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, xl.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, xl.Write(&buf))

	book, err := f.service.Import(ctx, &buf)
	require.NoError(t, err)
	assert.Len(t, book.Observations, 2)

	_, err = f.service.Import(ctx, strings.NewReader("not a workbook"))
	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeParsing, appErr.Type)

	empty := excelize.NewFile()
	buf.Reset()
	require.NoError(t, empty.Write(&buf))
	_, err = f.service.Import(ctx, &buf)
	assert.ErrorIs(t, err, fieldbook.ErrNoFieldBook)
	assert.False(t, errors.As(err, &appErr), "field book errors keep their own problem type")
}

func TestLevelingService_Export(t *testing.T) {
	f := newServiceFixture(t, nil)
	ctx := context.Background()

	outcome, err := f.service.Compute(ctx, closedLine("L1"))
	require.NoError(t, err)

	var xlsx bytes.Buffer
	require.NoError(t, f.service.Export(ctx, &xlsx, FormatXLSX, outcome, "Perfil L1"))
	book, err := excelize.OpenReader(&xlsx)
	require.NoError(t, err)
	defer book.Close()
	assert.Contains(t, book.GetSheetList(), fieldbook.ResultSheet)

	var csv bytes.Buffer
	require.NoError(t, f.service.Export(ctx, &csv, FormatCSV, outcome, ""))
	assert.True(t, strings.HasPrefix(csv.String(), "\ufeffPunto"))

	err = f.service.Export(ctx, io.Discard, "pdf", outcome, "")
	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)

	var tpl bytes.Buffer
	require.NoError(t, f.service.Template(ctx, &tpl))
	assert.NotZero(t, tpl.Len())

	assert.Equal(t, map[string]int64{"xlsx": 1, "csv": 1, "template": 1},
		f.counter(t, "leveling_exports_total", "format"))
}

func TestLevelingService_Defaults(t *testing.T) {
	f := newServiceFixture(t, func(c *config.LevelingConfig) {
		c.DefaultStartElevation = 100
		c.DefaultTargetElevation = 101.5
	})

	start, target := f.service.Defaults()
	assert.Equal(t, 100.0, start)
	assert.Equal(t, 101.5, target)
}
