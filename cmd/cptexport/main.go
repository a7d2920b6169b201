// Command cptexport merges CPT workbooks from disk and writes the same chart
// and data exports as the web tool.
//
//	cptexport -project "Quay Wall" -x SBT -formats png,pdf,html -out exports CPT-01.xlsx CPT-02.xlsx
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"cptmerge/internal/chart"
	"cptmerge/internal/config"
	"cptmerge/internal/dataprocessing"
	"cptmerge/internal/exporter"
	"cptmerge/internal/infrastructure"
	"cptmerge/internal/validation"
	"cptmerge/pkg/contracts"
	"cptmerge/pkg/contracts/domain"
)

// options are the parsed command line flags.
type options struct {
	refs       string
	sheet      string
	headerRow  int
	startRow   int
	columns    string
	variable   string
	xmax       float64
	project    string
	outDir     string
	formats    string
	workers    int
	logLevel   string
	version    bool
	inputPaths []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	defaults := domain.DefaultReadOptions()
	o := &options{}

	fs := flag.NewFlagSet("cptexport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.refs, "ref", strconv.FormatFloat(domain.DefaultReferenceElevation, 'f', -1, 64),
		"reference elevation: one value for every sounding, or a comma separated list in input order")
	fs.StringVar(&o.sheet, "sheet", defaults.Sheet, "sheet name or 1-based index (default first sheet)")
	fs.IntVar(&o.headerRow, "header", defaults.HeaderRow, "header row number")
	fs.IntVar(&o.startRow, "start", defaults.DataStartRow, "first data row number")
	fs.StringVar(&o.columns, "cols", defaults.Columns, "depth, qc and Rf column letters")
	fs.StringVar(&o.variable, "x", string(domain.VariableSBT), "x-axis variable: qc, Rf or SBT")
	fs.Float64Var(&o.xmax, "xmax", 0, "x-axis maximum (0 selects the variable default)")
	fs.StringVar(&o.project, "project", "Project", "project name used in titles and file names")
	fs.StringVar(&o.outDir, "out", ".", "output directory")
	fs.StringVar(&o.formats, "formats", "png,pdf,html", "comma separated export formats: png, pdf, html, csv")
	fs.IntVar(&o.workers, "workers", 4, "workbooks parsed in parallel")
	fs.StringVar(&o.logLevel, "log", "warn", "log level: debug, info, warn, error")
	fs.BoolVar(&o.version, "version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.inputPaths = fs.Args()
	if o.version {
		return o, nil
	}
	if len(o.inputPaths) == 0 {
		fs.Usage()
		return nil, errors.New("no input workbooks given")
	}
	if o.workers < 1 {
		o.workers = 1
	}
	return o, nil
}

// parseReferences reads the -ref flag for n soundings. A single value
// applies to all of them.
func parseReferences(raw string, n int) ([]float64, error) {
	parts := strings.Split(raw, ",")
	refs := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid reference elevation %q: %w", p, err)
		}
		refs = append(refs, v)
	}
	if len(refs) == 1 && n > 1 {
		one := refs[0]
		refs = make([]float64, n)
		for i := range refs {
			refs[i] = one
		}
	}
	return refs, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	if o.version {
		fmt.Fprintln(stdout, contracts.GetVersionString())
		return 0
	}

	logger := infrastructure.NewLogger(stderr, config.LoggingConfig{Level: o.logLevel, Format: "text"})
	if err := export(ctx, o, stdout, logger); err != nil {
		logger.Error("Export failed", slog.String("error", err.Error()))
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func export(ctx context.Context, o *options, stdout io.Writer, logger *slog.Logger) error {
	variable, err := domain.ParseVariable(o.variable)
	if err != nil {
		return err
	}
	formats, err := exporter.ParseFormats(o.formats)
	if err != nil {
		return err
	}
	readOpts := domain.ReadOptions{
		Sheet:        o.sheet,
		HeaderRow:    o.headerRow,
		DataStartRow: o.startRow,
		Columns:      o.columns,
	}

	files := validation.NewFileValidator(logger)
	paths, err := files.ExcelFiles(o.inputPaths)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("%w: no workbooks among the inputs", domain.ErrNoData)
	}
	for _, p := range paths {
		if err := files.ValidateExcelFile(p); err != nil {
			return err
		}
	}
	if err := files.ValidateOutputDirectory(o.outDir); err != nil {
		return err
	}

	refs, err := parseReferences(o.refs, len(paths))
	if err != nil {
		return err
	}

	soundings, err := readSoundings(ctx, paths, readOpts, o.workers, logger)
	if err != nil {
		return err
	}
	soundings, err = dataprocessing.ApplyReferences(soundings, refs)
	if err != nil {
		return err
	}

	processed, err := dataprocessing.NewProcessor(logger).ProcessAll(ctx, soundings)
	if err != nil {
		return err
	}

	cfg := config.Default()
	fig, err := chart.Compose(processed, chart.Options{
		Variable: variable,
		XMax:     o.xmax,
		Title:    o.project,
		Width:    cfg.Chart.Width,
		Height:   cfg.Chart.Height,
	})
	if err != nil {
		return err
	}

	exp := exporter.New(cfg.Chart.AssetsHost, nil, logger)
	payload := exporter.Payload{Project: o.project, Figure: fig, Rows: dataprocessing.MergeRows(processed)}
	for _, f := range formats {
		path, err := exp.WriteFile(ctx, o.outDir, payload, f)
		if err != nil {
			return fmt.Errorf("%s export: %w", f, err)
		}
		fmt.Fprintln(stdout, path)
	}

	logger.Info("Export completed",
		slog.Int("soundings", len(soundings)),
		slog.Int("formats", len(formats)),
		slog.String("output_dir", o.outDir))
	return nil
}

// readSoundings parses the workbooks in parallel and keeps input order.
func readSoundings(ctx context.Context, paths []string, opts domain.ReadOptions, workers int, logger *slog.Logger) ([]domain.Sounding, error) {
	parser := dataprocessing.NewParser(logger)
	soundings := make([]domain.Sounding, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range paths {
		g.Go(func() error {
			wb, err := parser.ParseFile(gctx, p, opts)
			if err != nil {
				return err
			}
			base := filepath.Base(p)
			soundings[i] = domain.Sounding{
				ID:         strconv.Itoa(i + 1),
				Name:       strings.TrimSuffix(base, filepath.Ext(base)),
				SourceFile: base,
				Sheet:      wb.Sheet,
				Records:    wb.Records,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return soundings, nil
}
