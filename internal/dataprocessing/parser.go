package dataprocessing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"cptmerge/internal/infrastructure"
	"cptmerge/pkg/contracts/domain"
)

// ColumnSpec holds the 1-based column numbers of the depth, qc and Rf data.
type ColumnSpec struct {
	Depth int
	QC    int
	Rf    int
}

// Letters returns the spreadsheet letters of the three columns.
func (c ColumnSpec) Letters() [3]string {
	var out [3]string
	for i, n := range []int{c.Depth, c.QC, c.Rf} {
		out[i], _ = excelize.ColumnNumberToName(n)
	}
	return out
}

// ParseColumnSpec reads a column list such as "A, B, C" or a three column
// range such as "D:F". Order is depth, qc, Rf.
func ParseColumnSpec(spec string) (ColumnSpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return ColumnSpec{}, fmt.Errorf("%w: empty", domain.ErrInvalidColumnSpec)
	}

	var names []string
	if from, to, ok := strings.Cut(spec, ":"); ok && !strings.Contains(spec, ",") {
		start, err := excelize.ColumnNameToNumber(strings.TrimSpace(from))
		if err != nil {
			return ColumnSpec{}, fmt.Errorf("%w: %q", domain.ErrInvalidColumnSpec, spec)
		}
		end, err := excelize.ColumnNameToNumber(strings.TrimSpace(to))
		if err != nil || end-start != 2 {
			return ColumnSpec{}, fmt.Errorf("%w: range %q must span exactly three columns", domain.ErrInvalidColumnSpec, spec)
		}
		return ColumnSpec{Depth: start, QC: start + 1, Rf: start + 2}, nil
	}

	for _, part := range strings.Split(spec, ",") {
		names = append(names, strings.TrimSpace(part))
	}
	if len(names) != 3 {
		return ColumnSpec{}, fmt.Errorf("%w: %q must name three columns (depth, qc, Rf)", domain.ErrInvalidColumnSpec, spec)
	}

	nums := make([]int, 3)
	seen := make(map[int]bool, 3)
	for i, name := range names {
		n, err := excelize.ColumnNameToNumber(name)
		if err != nil {
			return ColumnSpec{}, fmt.Errorf("%w: bad column %q", domain.ErrInvalidColumnSpec, name)
		}
		if seen[n] {
			return ColumnSpec{}, fmt.Errorf("%w: column %q used twice", domain.ErrInvalidColumnSpec, name)
		}
		seen[n] = true
		nums[i] = n
	}
	return ColumnSpec{Depth: nums[0], QC: nums[1], Rf: nums[2]}, nil
}

// ParsedWorkbook is the raw content extracted from one spreadsheet.
type ParsedWorkbook struct {
	File    string
	Sheet   string
	Headers [3]string
	Records []domain.DepthRecord
}

// Parser extracts depth records from Excel workbooks.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser. A nil logger falls back to the global one.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: infrastructure.WithComponent(logger, "dataprocessing.parser")}
}

// ParseFile opens a workbook from disk.
func (p *Parser) ParseFile(ctx context.Context, path string, opts domain.ReadOptions) (*ParsedWorkbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.ParseError{File: filepath.Base(path), Err: err}
	}
	defer f.Close()
	return p.Parse(ctx, filepath.Base(path), f, opts)
}

// Parse reads one workbook. Any problem with the sheet, the column
// specification or a cell aborts the whole file with a *domain.ParseError.
func (p *Parser) Parse(ctx context.Context, name string, r io.Reader, opts domain.ReadOptions) (*ParsedWorkbook, error) {
	cols, err := ParseColumnSpec(opts.Columns)
	if err != nil {
		return nil, &domain.ParseError{File: name, Err: err}
	}
	if opts.HeaderRow < 1 || opts.DataStartRow <= opts.HeaderRow {
		return nil, &domain.ParseError{File: name, Err: fmt.Errorf("%w: data start row %d must follow header row %d",
			domain.ErrInvalidReadOptions, opts.DataStartRow, opts.HeaderRow)}
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &domain.ParseError{File: name, Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	sheet, err := resolveSheet(f, opts.Sheet)
	if err != nil {
		return nil, &domain.ParseError{File: name, Sheet: opts.Sheet, Err: err}
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &domain.ParseError{File: name, Sheet: sheet, Err: err}
	}

	out := &ParsedWorkbook{File: name, Sheet: sheet}
	if opts.HeaderRow <= len(rows) {
		header := rows[opts.HeaderRow-1]
		for i, c := range []int{cols.Depth, cols.QC, cols.Rf} {
			out.Headers[i] = strings.TrimSpace(cellAt(header, c))
		}
	}

	letters := cols.Letters()
	for rowIdx := opts.DataStartRow - 1; rowIdx < len(rows); rowIdx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := rows[rowIdx]
		raw := [3]string{
			strings.TrimSpace(cellAt(row, cols.Depth)),
			strings.TrimSpace(cellAt(row, cols.QC)),
			strings.TrimSpace(cellAt(row, cols.Rf)),
		}
		if raw[0] == "" && raw[1] == "" && raw[2] == "" {
			continue
		}

		var vals [3]float64
		for i, s := range raw {
			if s == "" {
				return nil, &domain.ParseError{File: name, Sheet: sheet, Row: rowIdx + 1, Column: letters[i],
					Err: fmt.Errorf("%w: empty cell", domain.ErrInvalidCell)}
			}
			v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
			if err != nil {
				return nil, &domain.ParseError{File: name, Sheet: sheet, Row: rowIdx + 1, Column: letters[i],
					Err: fmt.Errorf("%w: %q is not a number", domain.ErrInvalidCell, s)}
			}
			vals[i] = v
		}
		out.Records = append(out.Records, domain.DepthRecord{Depth: vals[0], QC: vals[1], Rf: vals[2], Row: rowIdx + 1})
	}

	if len(out.Records) == 0 {
		return nil, &domain.ParseError{File: name, Sheet: sheet, Row: opts.DataStartRow, Err: domain.ErrNoData}
	}

	p.logger.InfoContext(ctx, "Workbook parsed",
		slog.String("file", name),
		slog.String("sheet", sheet),
		slog.Int("records", len(out.Records)),
		slog.Any("columns", letters))

	return out, nil
}

// resolveSheet maps a selector to a sheet name. An exact name match wins;
// otherwise a number is taken as a 1-based position in the sheet list.
func resolveSheet(f *excelize.File, selector string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", domain.ErrSheetNotFound
	}

	selector = strings.TrimSpace(selector)
	if selector == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s == selector {
			return s, nil
		}
	}
	for _, s := range sheets {
		if strings.EqualFold(s, selector) {
			return s, nil
		}
	}
	if n, err := strconv.Atoi(selector); err == nil {
		if n < 1 || n > len(sheets) {
			return "", fmt.Errorf("%w: index %d outside 1..%d", domain.ErrSheetNotFound, n, len(sheets))
		}
		return sheets[n-1], nil
	}
	return "", fmt.Errorf("%w: %q (available: %s)", domain.ErrSheetNotFound, selector, strings.Join(sheets, ", "))
}

// cellAt returns the cell in 1-based column col, or "" past the row end.
func cellAt(row []string, col int) string {
	if col-1 < len(row) {
		return row[col-1]
	}
	return ""
}
