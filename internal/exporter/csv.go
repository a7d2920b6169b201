package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"cptmerge/internal/dataprocessing"
)

// MergedHeaders are the columns of the merged data export.
var MergedHeaders = []string{"sounding", "depth", "elevation", "qc", "Rf", "sbt", "zone"}

// CSVWriter writes the merged table as CSV.
type CSVWriter struct {
	// BOMPrefix adds a UTF-8 BOM so spreadsheet applications detect the encoding.
	BOMPrefix bool
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{BOMPrefix: true}
}

// WriteMerged writes a header line and one line per merged record.
func (w *CSVWriter) WriteMerged(out io.Writer, rows []dataprocessing.MergedRow) error {
	if w.BOMPrefix {
		if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(MergedHeaders); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, r := range rows {
		record := []string{
			r.Sounding,
			formatFloat(r.Depth, 3),
			formatFloat(r.Elevation, 3),
			formatFloat(r.QC, 3),
			formatFloat(r.Rf, 3),
			formatFloat(r.SBT, 4),
			strconv.Itoa(r.Zone),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
