// Package exporter writes the merged CPT chart and data to files.
//
// Exporter renders a Payload (figure plus merged rows) as PNG, PDF,
// standalone HTML or CSV. Every export is named
//
//	<project>_merged CPT data_<variable>.<ext>
//
// Example usage:
//
//	exp := exporter.New("", metrics, logger)
//	path, err := exp.WriteFile(ctx, "out", exporter.Payload{Project: "Quay", Figure: fig, Rows: rows}, exporter.FormatPDF)
package exporter
