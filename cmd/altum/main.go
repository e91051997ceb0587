package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"altum/internal/config"
	"altum/internal/fieldbook"
	"altum/internal/infrastructure"
	"altum/internal/leveling"
	"altum/internal/services"
	"altum/pkg/contracts"
)

// Exit codes
const (
	exitOK           = 0
	exitFatal        = 1
	exitInconsistent = 2
)

// inputList collects repeated -in flags
type inputList []string

func (l *inputList) String() string { return strings.Join(*l, ",") }

func (l *inputList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type options struct {
	inputs   []string
	start    float64
	target   float64
	out      string
	csv      string
	template string
	logLevel string
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "warning: %v, using defaults\n", err)
		cfg = config.Default()
	}

	opts, err := parseFlags(args, cfg.Leveling, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitFatal
	}

	logger := infrastructure.NewLogger(stderr, opts.logLevel, false)

	if opts.template != "" {
		if err := writeTemplate(opts.template); err != nil {
			logger.Error("Failed to write template", slog.String("error", err.Error()))
			return exitFatal
		}
		fmt.Fprintf(stdout, "template written to %s\n", opts.template)
		if len(opts.inputs) == 0 {
			return exitOK
		}
	}

	if len(opts.inputs) == 0 {
		fmt.Fprintln(stderr, "no field book given, use -in survey.xlsx")
		return exitFatal
	}

	// No batch limit, no scrape endpoint, and stdout is reserved for the summary
	cfg.Leveling.MaxBatchSurveys = 0
	cfg.Telemetry.MetricsEnabled = false
	cfg.Telemetry.TraceExporter = "none"
	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, contracts.Version, logger)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry", slog.String("error", err.Error()))
		return exitFatal
	}
	defer providers.Shutdown(ctx)

	metrics, err := infrastructure.NewMetrics(providers.Meter)
	if err != nil {
		logger.Error("Failed to initialize metrics", slog.String("error", err.Error()))
		return exitFatal
	}

	service := services.NewLevelingService(cfg.Leveling, providers.Tracer, metrics, logger)
	return process(ctx, service, opts, stdout, logger)
}

func parseFlags(args []string, defaults config.LevelingConfig, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("altum", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "%s\n\nUsage: altum -in survey.xlsx [-start 725] [-target 725] [-out result.xlsx] [-csv result.csv] [more.xlsx ...]\n       altum -template Plantilla_ALTUM.xlsx\n\n", contracts.GetVersionString())
		fs.PrintDefaults()
	}

	var (
		opts   options
		inputs inputList
	)
	fs.Var(&inputs, "in", "field book workbook (.xlsx); may be repeated")
	fs.Float64Var(&opts.start, "start", defaults.DefaultStartElevation, "known elevation of the starting benchmark")
	fs.Float64Var(&opts.target, "target", defaults.DefaultTargetElevation, "known elevation of the closing benchmark")
	fs.StringVar(&opts.out, "out", "", "result workbook path; a directory when several field books are given")
	fs.StringVar(&opts.csv, "csv", "", "result CSV path; a directory when several field books are given")
	fs.StringVar(&opts.template, "template", "", "write an empty field book template to this path")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.inputs = append(inputs, fs.Args()...)
	return opts, nil
}

// process computes every field book and returns the exit code. A fatal error
// on any line outranks an arithmetic inconsistency on another.
func process(ctx context.Context, service *services.LevelingService, opts options, stdout io.Writer, logger *slog.Logger) int {
	batch := len(opts.inputs) > 1
	code := exitOK

	surveys := make([]leveling.Survey, 0, len(opts.inputs))
	paths := make([]string, 0, len(opts.inputs))
	for _, path := range opts.inputs {
		book, err := importFile(ctx, service, path)
		if err != nil {
			logger.Error("Failed to read field book", slog.String("file", path), slog.String("error", err.Error()))
			fmt.Fprintf(stdout, "== %s ==\nerror: %v\n\n", path, err)
			code = exitFatal
			continue
		}
		surveys = append(surveys, book.Survey(stem(path), opts.start, opts.target))
		paths = append(paths, path)
	}

	if len(surveys) == 0 {
		return code
	}

	results, err := service.ComputeBatch(ctx, surveys)
	if err != nil {
		logger.Error("Batch computation failed", slog.String("error", err.Error()))
		return exitFatal
	}

	for i, res := range results {
		printSummary(stdout, paths[i], surveys[i], res.Outcome, res.Err)

		var inconsistent *leveling.ArithmeticInconsistencyError
		switch {
		case res.Err == nil || errors.Is(res.Err, leveling.ErrZeroDistance):
		case errors.As(res.Err, &inconsistent):
			if code == exitOK {
				code = exitInconsistent
			}
			continue
		default:
			code = exitFatal
			continue
		}

		if err := export(ctx, service, opts, batch, surveys[i].Name, res.Outcome, stdout); err != nil {
			logger.Error("Export failed", slog.String("file", paths[i]), slog.String("error", err.Error()))
			code = exitFatal
		}
	}

	return code
}

func importFile(ctx context.Context, service *services.LevelingService, path string) (*fieldbook.Book, error) {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return nil, fmt.Errorf("%s is not an .xlsx workbook", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open field book: %w", err)
	}
	defer f.Close()

	return service.Import(ctx, f)
}

func export(ctx context.Context, service *services.LevelingService, opts options, batch bool, name string, outcome leveling.Outcome, stdout io.Writer) error {
	targets := []struct {
		format string
		path   string
	}{
		{services.FormatXLSX, outputPath(opts.out, batch, name, fieldbook.ResultFileName)},
		{services.FormatCSV, outputPath(opts.csv, batch, name, fieldbook.CSVFileName)},
	}

	for _, t := range targets {
		if t.path == "" {
			continue
		}
		if err := writeFile(t.path, func(w io.Writer) error {
			return service.Export(ctx, w, t.format, outcome, name)
		}); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s written to %s\n", strings.ToUpper(t.format), t.path)
	}
	return nil
}

// outputPath returns where one line's result goes. In batch mode base is a
// directory and each line gets its own file.
func outputPath(base string, batch bool, name, fileName string) string {
	if base == "" || !batch {
		return base
	}
	return filepath.Join(base, name+"_"+fileName)
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeTemplate(path string) error {
	return writeFile(path, fieldbook.WriteTemplate)
}

func printSummary(w io.Writer, path string, survey leveling.Survey, outcome leveling.Outcome, err error) {
	fmt.Fprintf(w, "== %s (%s) ==\n", survey.Name, path)

	if len(outcome.Rows) == 0 {
		fmt.Fprintf(w, "error: %v\n\n", err)
		return
	}

	d := outcome.Diagnostics
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Status\t%s\n", outcome.Status)
	fmt.Fprintf(tw, "Observations\t%d\n", len(outcome.Rows))
	fmt.Fprintf(tw, "Sum backsight\t%.3f\n", d.SumBacksight)
	fmt.Fprintf(tw, "Sum foresight\t%.3f\n", d.SumForesight)
	fmt.Fprintf(tw, "Sum difference\t%.3f\n", d.ArithmeticDelta)
	fmt.Fprintf(tw, "Elevation difference\t%.3f\n", d.ElevationDelta)
	fmt.Fprintf(tw, "Field check\t%s (%.4f, tolerance %.3f)\n", fieldbook.CheckMessage(d), d.Discrepancy, leveling.ArithmeticTolerance)
	fmt.Fprintf(tw, "Total distance\t%.2f\n", d.TotalDistance)
	if outcome.Compensated() {
		fmt.Fprintf(tw, "Closing error\t%.4f\n", d.ClosingError)
		fmt.Fprintf(tw, "Correction per meter\t%.6f\n", d.CorrectionRate)
		fmt.Fprintf(tw, "Closing elevation\t%.3f\n", outcome.Adjusted[len(outcome.Adjusted)-1].AdjustedElevation)
	}
	tw.Flush()

	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
	}
	fmt.Fprintln(w)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
