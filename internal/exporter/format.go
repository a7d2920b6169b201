package exporter

import (
	"fmt"
	"strconv"
	"strings"

	"cptmerge/pkg/contracts/domain"
)

// Format is an export file type.
type Format string

const (
	FormatPNG  Format = "png"
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
	FormatCSV  Format = "csv"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatPNG, FormatPDF, FormatHTML, FormatCSV}

// ParseFormat accepts a format name or extension in any letter case.
func ParseFormat(s string) (Format, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	if s == "htm" {
		s = "html"
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, s)
}

// ParseFormats reads a comma separated list such as "png,pdf,html".
func ParseFormats(list string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := ParseFormat(part)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty list", domain.ErrUnsupportedFormat)
	}
	return out, nil
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	}
	return "application/octet-stream"
}

// Filename builds "<project>_merged CPT data_<variable>.<ext>".
func Filename(project string, v domain.Variable, f Format) string {
	return fmt.Sprintf("%s_merged CPT data_%s.%s", sanitizeName(project), v, f)
}

// sanitizeName drops path separators and control characters so a project
// name is usable as a file name.
func sanitizeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return -1
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, s)
	s = strings.Trim(strings.TrimSpace(s), ".")
	if s == "" {
		return "Project"
	}
	return s
}

// formatFloat formats a value for CSV output with a fixed number of decimals.
func formatFloat(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}
