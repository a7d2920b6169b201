package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cptmerge/internal/chart"
	"cptmerge/internal/dataprocessing"
	"cptmerge/internal/infrastructure"
)

// Payload is everything an export can draw from: the composed figure and
// the merged rows behind it.
type Payload struct {
	Project string
	Figure  *chart.Figure
	Rows    []dataprocessing.MergedRow
}

// Exporter renders payloads into the supported formats.
type Exporter struct {
	html    chart.HTMLRenderer
	raster  chart.RasterRenderer
	csv     *CSVWriter
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// New creates an exporter. assetsHost is passed to the HTML renderer;
// metrics may be nil.
func New(assetsHost string, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Exporter {
	return &Exporter{
		html:    chart.HTMLRenderer{AssetsHost: assetsHost},
		csv:     NewCSVWriter(),
		metrics: metrics,
		logger:  infrastructure.WithComponent(logger, "exporter"),
	}
}

// Filename returns the download name of p in format f.
func (e *Exporter) Filename(p Payload, f Format) string {
	return Filename(p.Project, p.Figure.Variable, f)
}

// Write renders p as f into w.
func (e *Exporter) Write(ctx context.Context, w io.Writer, p Payload, f Format) error {
	start := time.Now()

	var err error
	switch f {
	case FormatPNG, FormatPDF:
		err = e.raster.Render(w, p.Figure, string(f))
	case FormatHTML:
		err = e.html.Render(w, p.Figure)
	case FormatCSV:
		err = e.csv.WriteMerged(w, p.Rows)
	default:
		_, err = ParseFormat(string(f))
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "Export failed",
			slog.String("format", string(f)),
			slog.String("error", err.Error()))
		return fmt.Errorf("export %s: %w", f, err)
	}

	d := time.Since(start)
	e.metrics.RecordExport(ctx, string(f), string(p.Figure.Variable), d)
	e.logger.InfoContext(ctx, "Export written",
		slog.String("format", string(f)),
		slog.String("variable", string(p.Figure.Variable)),
		slog.Int("series", len(p.Figure.Series)),
		slog.Duration("duration", d))
	return nil
}

// WriteFile renders p as f into dir under its download name and returns
// the full path.
func (e *Exporter) WriteFile(ctx context.Context, dir string, p Payload, f Format) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, e.Filename(p, f))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if err := e.Write(ctx, file, p, f); err != nil {
		file.Close()
		os.Remove(path)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return path, nil
}
