package leveling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds CalculateBatch when no limit is given.
const DefaultBatchConcurrency = 4

// Calculator orchestrates reduction and compensation of surveys
type Calculator struct {
	logger *slog.Logger
}

// NewCalculator creates a new leveling calculator
func NewCalculator(logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{
		logger: logger.With(slog.String("component", "leveling_calculator")),
	}
}

// Calculate reduces and compensates one survey.
//
// Structural errors (ErrEmptySurvey, ErrMissingBacksight) abort before any
// computation and return a zero Outcome. Closure failures return the partial
// Outcome together with the error, as Compensate does.
func (c *Calculator) Calculate(ctx context.Context, survey Survey) (Outcome, error) {
	start := time.Now()

	c.logger.DebugContext(ctx, "starting leveling calculation",
		slog.String("survey", survey.Name),
		slog.Int("observations", len(survey.Observations)),
		slog.Float64("start_elevation", survey.StartElevation),
		slog.Float64("target_elevation", survey.TargetElevation),
	)

	reduced, err := Reduce(survey.Observations, survey.StartElevation)
	if err != nil {
		c.logger.WarnContext(ctx, "reduction failed",
			slog.String("survey", survey.Name),
			slog.String("error", err.Error()),
		)
		return Outcome{}, fmt.Errorf("reduce %q: %w", survey.Name, err)
	}

	outcome, err := Compensate(reduced, survey.StartElevation, survey.TargetElevation)
	d := outcome.Diagnostics
	attrs := []any{
		slog.String("survey", survey.Name),
		slog.String("status", string(outcome.Status)),
		slog.Float64("discrepancy", d.Discrepancy),
		slog.Float64("closing_error", d.ClosingError),
		slog.Float64("total_distance", d.TotalDistance),
		slog.Duration("duration", time.Since(start)),
	}

	var inconsistent *ArithmeticInconsistencyError
	var invalid *InvalidRowError
	switch {
	case err == nil:
		c.logger.InfoContext(ctx, "leveling line compensated", attrs...)
	case errors.As(err, &inconsistent):
		c.logger.WarnContext(ctx, "field book arithmetic check failed", attrs...)
	case errors.As(err, &invalid):
		c.logger.WarnContext(ctx, "field book has invalid rows",
			append(attrs, slog.Any("rows", invalid.Rows))...)
	case errors.Is(err, ErrZeroDistance):
		c.logger.WarnContext(ctx, "compensation skipped, no distance recorded", attrs...)
	default:
		c.logger.ErrorContext(ctx, "compensation failed", append(attrs, slog.String("error", err.Error()))...)
	}
	if err != nil {
		return outcome, fmt.Errorf("compensate %q: %w", survey.Name, err)
	}

	return outcome, nil
}

// BatchResult is the outcome of one survey within a batch.
type BatchResult struct {
	Survey  string
	Outcome Outcome
	Err     error
}

// CalculateBatch processes independent surveys concurrently. Results are in
// input order and each survey keeps its own error; only context cancellation
// fails the whole batch.
func (c *Calculator) CalculateBatch(ctx context.Context, surveys []Survey, concurrency int) ([]BatchResult, error) {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	results := make([]BatchResult, len(surveys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, survey := range surveys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, err := c.Calculate(gctx, survey)
			results[i] = BatchResult{Survey: survey.Name, Outcome: outcome, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("leveling batch cancelled: %w", err)
	}

	c.logger.InfoContext(ctx, "leveling batch completed",
		slog.Int("surveys", len(surveys)),
		slog.Int("concurrency", concurrency),
	)

	return results, nil
}
