package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"altum/internal/config"
	apierrors "altum/internal/errors"
	"altum/internal/fieldbook"
	"altum/internal/infrastructure"
	"altum/internal/leveling"
)

// Export formats accepted by Export.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// LevelingService runs leveling lines through the calculator and moves them
// in and out of field book files, recording spans and metrics on the way.
type LevelingService struct {
	calculator *leveling.Calculator
	cfg        config.LevelingConfig
	tracer     trace.Tracer
	metrics    *infrastructure.Metrics
	logger     *slog.Logger
}

// NewLevelingService creates a new leveling service
func NewLevelingService(cfg config.LevelingConfig, tracer trace.Tracer, metrics *infrastructure.Metrics, logger *slog.Logger) *LevelingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LevelingService{
		calculator: leveling.NewCalculator(logger),
		cfg:        cfg,
		tracer:     tracer,
		metrics:    metrics,
		logger:     logger.With(slog.String("service", "leveling")),
	}
}

// Defaults returns the benchmark elevations used when a request omits them.
func (s *LevelingService) Defaults() (start, target float64) {
	return s.cfg.DefaultStartElevation, s.cfg.DefaultTargetElevation
}

// Compute reduces and compensates one survey. Like leveling.Compensate, a
// closure failure returns the partial outcome together with the error.
func (s *LevelingService) Compute(ctx context.Context, survey leveling.Survey) (leveling.Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "leveling.compute",
		trace.WithAttributes(
			attribute.String("survey.name", survey.Name),
			attribute.Int("survey.observations", len(survey.Observations)),
		),
	)
	defer span.End()

	if s.cfg.MaxRows > 0 && len(survey.Observations) > s.cfg.MaxRows {
		err := apierrors.NewAppError(apierrors.ErrTypeValidation,
			fmt.Sprintf("survey %q has %d observations, the limit is %d", survey.Name, len(survey.Observations), s.cfg.MaxRows), nil)
		infrastructure.RecordError(ctx, err)
		return leveling.Outcome{}, err
	}

	start := time.Now()
	outcome, err := s.calculator.Calculate(ctx, survey)
	s.record(ctx, survey, outcome, err, time.Since(start))

	span.SetAttributes(attribute.String("leveling.status", statusLabel(outcome, err)))
	if err != nil {
		infrastructure.RecordError(ctx, err)
	}
	return outcome, err
}

// ComputeBatch computes independent surveys concurrently, keeping each
// survey's own error in its result.
func (s *LevelingService) ComputeBatch(ctx context.Context, surveys []leveling.Survey) ([]leveling.BatchResult, error) {
	if s.cfg.MaxBatchSurveys > 0 && len(surveys) > s.cfg.MaxBatchSurveys {
		return nil, apierrors.NewAppError(apierrors.ErrTypeValidation,
			fmt.Sprintf("batch has %d surveys, the limit is %d", len(surveys), s.cfg.MaxBatchSurveys), nil)
	}

	ctx, span := s.tracer.Start(ctx, "leveling.compute_batch",
		trace.WithAttributes(attribute.Int("batch.surveys", len(surveys))))
	defer span.End()

	results := make([]leveling.BatchResult, len(surveys))
	accepted := make([]leveling.Survey, 0, len(surveys))
	index := make([]int, 0, len(surveys))
	for i, survey := range surveys {
		if s.cfg.MaxRows > 0 && len(survey.Observations) > s.cfg.MaxRows {
			results[i] = leveling.BatchResult{
				Survey: survey.Name,
				Err: apierrors.NewAppError(apierrors.ErrTypeValidation,
					fmt.Sprintf("survey %q has %d observations, the limit is %d", survey.Name, len(survey.Observations), s.cfg.MaxRows), nil),
			}
			continue
		}
		accepted = append(accepted, survey)
		index = append(index, i)
	}

	start := time.Now()
	computed, err := s.calculator.CalculateBatch(ctx, accepted, s.cfg.BatchConcurrency)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	elapsed := time.Since(start)

	failed := 0
	for j, res := range computed {
		results[index[j]] = res
		s.record(ctx, accepted[j], res.Outcome, res.Err, elapsed/time.Duration(len(computed)))
	}
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}

	span.SetAttributes(attribute.Int("batch.failed", failed))
	return results, nil
}

// Import parses an uploaded workbook into a field book.
func (s *LevelingService) Import(ctx context.Context, r io.Reader) (*fieldbook.Book, error) {
	ctx, span := s.tracer.Start(ctx, "leveling.import")
	defer span.End()

	book, err := fieldbook.ReadWorkbook(r, fieldbook.ReadOptions{
		MaxRows: s.cfg.MaxRows,
		Logger:  s.logger,
	})
	if err != nil {
		if !isFieldBookError(err) {
			err = apierrors.NewParsingError("failed to read workbook", err)
		}
		s.logger.WarnContext(ctx, "field book import failed", slog.String("error", err.Error()))
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("fieldbook.sheet", book.Sheet),
		attribute.Int("fieldbook.observations", len(book.Observations)),
	)
	return book, nil
}

// Export writes the result table in the requested format.
func (s *LevelingService) Export(ctx context.Context, w io.Writer, format string, outcome leveling.Outcome, title string) error {
	ctx, span := s.tracer.Start(ctx, "leveling.export",
		trace.WithAttributes(attribute.String("export.format", format)))
	defer span.End()

	var err error
	switch format {
	case FormatXLSX:
		opts := fieldbook.DefaultExportOptions()
		if title != "" {
			opts.Title = title
		}
		err = fieldbook.WriteWorkbook(w, outcome, opts)
	case FormatCSV:
		err = fieldbook.WriteCSV(w, outcome, fieldbook.CSVOptions{BOMPrefix: true})
	default:
		err = apierrors.NewAppError(apierrors.ErrTypeValidation, fmt.Sprintf("unsupported export format %q", format), nil)
	}
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return err
	}

	s.metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
	s.logger.InfoContext(ctx, "result table exported",
		slog.String("format", format),
		slog.Int("rows", len(outcome.Rows)),
		slog.String("status", string(outcome.Status)),
	)
	return nil
}

// Template writes a blank field book workbook.
func (s *LevelingService) Template(ctx context.Context, w io.Writer) error {
	if err := fieldbook.WriteTemplate(w); err != nil {
		s.logger.ErrorContext(ctx, "failed to write template", slog.String("error", err.Error()))
		return apierrors.NewStorageError("failed to write template", err)
	}
	s.metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", "template")))
	return nil
}

func (s *LevelingService) record(ctx context.Context, survey leveling.Survey, outcome leveling.Outcome, err error, elapsed time.Duration) {
	status := metric.WithAttributes(attribute.String("status", statusLabel(outcome, err)))

	s.metrics.ComputationsTotal.Add(ctx, 1, status)
	s.metrics.ComputationDuration.Record(ctx, elapsed.Seconds(), status)
	s.metrics.ObservationsPerLine.Record(ctx, int64(len(survey.Observations)))

	if len(outcome.Rows) > 0 {
		s.metrics.Discrepancy.Record(ctx, math.Abs(outcome.Diagnostics.Discrepancy))
	}
	if outcome.Compensated() {
		s.metrics.ClosingError.Record(ctx, math.Abs(outcome.Diagnostics.ClosingError))
	}
}

// statusLabel is the outcome status, or "rejected" for lines that never
// reached compensation.
func statusLabel(outcome leveling.Outcome, err error) string {
	if outcome.Status != "" {
		return string(outcome.Status)
	}
	if err != nil {
		return "rejected"
	}
	return string(leveling.StatusCompensated)
}

func isFieldBookError(err error) bool {
	var (
		cellErr    *fieldbook.CellError
		missingErr *fieldbook.MissingColumnError
	)
	return errors.As(err, &cellErr) ||
		errors.As(err, &missingErr) ||
		errors.Is(err, fieldbook.ErrNoFieldBook) ||
		errors.Is(err, fieldbook.ErrNoObservations) ||
		errors.Is(err, fieldbook.ErrTooManyRows)
}
