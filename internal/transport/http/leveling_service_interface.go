package http

import (
	"context"
	"io"

	"altum/internal/fieldbook"
	"altum/internal/leveling"
)

// LevelingServiceInterface defines the interface for the leveling service
type LevelingServiceInterface interface {
	Defaults() (start, target float64)
	Compute(ctx context.Context, survey leveling.Survey) (leveling.Outcome, error)
	ComputeBatch(ctx context.Context, surveys []leveling.Survey) ([]leveling.BatchResult, error)
	Import(ctx context.Context, r io.Reader) (*fieldbook.Book, error)
	Export(ctx context.Context, w io.Writer, format string, outcome leveling.Outcome, title string) error
	Template(ctx context.Context, w io.Writer) error
}
