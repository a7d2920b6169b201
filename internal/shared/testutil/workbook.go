package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Row is one data row of a test sounding: depth, qc and Rf.
type Row [3]float64

// Workbook builds an xlsx with a header row followed by rows on the named
// sheet, using the default A, B, C column layout.
func Workbook(t *testing.T, sheet string, rows []Row) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		require.NoError(t, f.SetSheetName("Sheet1", sheet))
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]string{"Depth (m)", "qc (MPa)", "Rf (%)"}))
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &[]float64{r[0], r[1], r[2]}))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

// WriteWorkbook writes Workbook output to dir/name and returns the path.
func WriteWorkbook(t *testing.T, dir, name string, rows []Row) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, Workbook(t, "", rows), 0o644))
	return path
}
