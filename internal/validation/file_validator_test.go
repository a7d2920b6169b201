package validation

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cptmerge/pkg/contracts/domain"
)

var oleHeader = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0, 0, 0, 0, 0, 0, 0, 0}

func newValidator() *FileValidator {
	return NewFileValidator(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func workbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{0.0, 1.0, 1.0}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestFileValidator_ValidateUpload(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		size    int64
		max     int64
		wantErr error
	}{
		{name: "xlsx", file: "CPT-01.xlsx", size: 10, max: 100},
		{name: "upper case xlsm", file: "CPT-01.XLSM", size: 10, max: 100},
		{name: "no limit", file: "big.xlsx", size: 1 << 30},
		{name: "legacy xls", file: "old.xls", size: 10, max: 100, wantErr: domain.ErrUnsupportedFileExt},
		{name: "csv", file: "data.csv", size: 10, max: 100, wantErr: domain.ErrUnsupportedFileExt},
		{name: "lock file", file: "~$CPT-01.xlsx", size: 10, max: 100, wantErr: ErrTempFile},
		{name: "empty", file: "CPT-01.xlsx", size: 0, max: 100, wantErr: ErrEmptyFile},
		{name: "too large", file: "CPT-01.xlsx", size: 101, max: 100, wantErr: ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newValidator().ValidateUpload(tt.file, tt.size, tt.max)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFileValidator_ValidateContent(t *testing.T) {
	v := newValidator()

	assert.NoError(t, v.ValidateContent("a.xlsx", workbookBytes(t)))
	assert.ErrorIs(t, v.ValidateContent("a.xlsx", oleHeader), domain.ErrUnsupportedFileExt)
	assert.ErrorIs(t, v.ValidateContent("a.xlsx", []byte("depth,qc,rf\n0,1,1\n")), domain.ErrUnsupportedFileExt)
	assert.ErrorIs(t, v.ValidateContent("a.xlsx", nil), ErrEmptyFile)
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
	}{
		{
			name:      "existing directory",
			setupFunc: func(t *testing.T) string { return t.TempDir() },
		},
		{
			name: "non-existent directory (should be created)",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "new", "nested", "dir")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setupFunc(t)
			require.NoError(t, newValidator().ValidateOutputDirectory(dir))

			info, err := os.Stat(dir)
			require.NoError(t, err)
			assert.True(t, info.IsDir())
			_, err = os.Stat(filepath.Join(dir, ".write_test"))
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestFileValidator_ValidateExcelFile(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantErr       bool
		errorContains string
	}{
		{
			name: "valid workbook",
			setupFunc: func(t *testing.T) string {
				return writeFile(t, t.TempDir(), "CPT-01.xlsx", workbookBytes(t))
			},
		},
		{
			name: "xlsx extension with text content",
			setupFunc: func(t *testing.T) string {
				return writeFile(t, t.TempDir(), "fake.xlsx", []byte("test"))
			},
			wantErr:       true,
			errorContains: "unsupported spreadsheet type",
		},
		{
			name: "legacy workbook",
			setupFunc: func(t *testing.T) string {
				return writeFile(t, t.TempDir(), "old.xls", oleHeader)
			},
			wantErr:       true,
			errorContains: "saved as .xlsx",
		},
		{
			name: "temp Excel file",
			setupFunc: func(t *testing.T) string {
				return writeFile(t, t.TempDir(), "~$test.xlsx", workbookBytes(t))
			},
			wantErr:       true,
			errorContains: "temporary",
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.xlsx")
			},
			wantErr:       true,
			errorContains: "does not exist",
		},
		{
			name: "empty file",
			setupFunc: func(t *testing.T) string {
				return writeFile(t, t.TempDir(), "empty.xlsx", nil)
			},
			wantErr:       true,
			errorContains: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newValidator().ValidateExcelFile(tt.setupFunc(t))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFileValidator_ExcelFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.xlsx", []byte("x"))
	writeFile(t, dir, "a.xlsm", []byte("x"))
	writeFile(t, dir, "~$b.xlsx", []byte("x"))
	writeFile(t, dir, "notes.txt", []byte("x"))
	single := writeFile(t, t.TempDir(), "single.xlsx", []byte("x"))

	files, err := newValidator().ExcelFiles([]string{single, dir})
	require.NoError(t, err)
	assert.Equal(t, []string{single, filepath.Join(dir, "a.xlsm"), filepath.Join(dir, "b.xlsx")}, files)

	_, err = newValidator().ExcelFiles([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}
