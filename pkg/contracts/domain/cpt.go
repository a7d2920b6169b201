package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultReferenceElevation is the ground level assigned to a freshly
// uploaded sounding, in mBf.
const DefaultReferenceElevation = 100.01

// Variable selects the quantity plotted on the x-axis.
type Variable string

const (
	VariableQC  Variable = "qc"  // cone resistance [MPa]
	VariableRf  Variable = "Rf"  // friction ratio [%]
	VariableSBT Variable = "SBT" // soil behaviour type index [-]
)

// Variables lists the selectable x-axis quantities in display order.
var Variables = []Variable{VariableQC, VariableRf, VariableSBT}

// ParseVariable accepts any letter case of a known variable name.
func ParseVariable(s string) (Variable, error) {
	for _, v := range Variables {
		if strings.EqualFold(string(v), strings.TrimSpace(s)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want qc, Rf or SBT)", ErrUnknownVariable, s)
}

// DepthRecord is one measurement row as read from a spreadsheet. Depth is
// relative to the sounding's reference elevation and grows downward.
type DepthRecord struct {
	Depth float64 `json:"depth"`
	QC    float64 `json:"qc"`
	Rf    float64 `json:"rf"`
	// Row is the 1-based worksheet row the record was read from, 0 when
	// the record did not come from a workbook.
	Row int `json:"row,omitempty"`
}

// Sounding is one uploaded CPT profile.
type Sounding struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name" validate:"required,max=120"`
	SourceFile         string        `json:"source_file"`
	Sheet              string        `json:"sheet"`
	ReferenceElevation float64       `json:"reference_elevation"`
	Records            []DepthRecord `json:"-"`
	UploadedAt         time.Time     `json:"uploaded_at"`
}

// RowCount reports the number of depth records.
func (s Sounding) RowCount() int {
	return len(s.Records)
}

// Clone returns a deep copy, so stored soundings are never shared.
func (s Sounding) Clone() Sounding {
	out := s
	out.Records = append([]DepthRecord(nil), s.Records...)
	return out
}

// ProcessedRecord carries a depth record together with its derived values.
type ProcessedRecord struct {
	Depth     float64 `json:"depth"`
	Elevation float64 `json:"elevation"`
	QC        float64 `json:"qc"`
	Rf        float64 `json:"rf"`
	SBT       float64 `json:"sbt"`
	Zone      int     `json:"zone"`
}

// ProcessedSounding is a sounding aligned to absolute elevation with the
// SBT index computed for every record.
type ProcessedSounding struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	ReferenceElevation float64           `json:"reference_elevation"`
	Records            []ProcessedRecord `json:"records"`
}

// Elevations returns the absolute elevation column.
func (p ProcessedSounding) Elevations() []float64 {
	out := make([]float64, len(p.Records))
	for i, r := range p.Records {
		out[i] = r.Elevation
	}
	return out
}

// Column returns the values of v in record order.
func (p ProcessedSounding) Column(v Variable) []float64 {
	out := make([]float64, len(p.Records))
	for i, r := range p.Records {
		switch v {
		case VariableQC:
			out[i] = r.QC
		case VariableRf:
			out[i] = r.Rf
		default:
			out[i] = r.SBT
		}
	}
	return out
}

// ReadOptions describes where the data lives inside each workbook.
// Row numbers are 1-based as shown by spreadsheet applications.
type ReadOptions struct {
	// Sheet is a 1-based sheet index or a sheet name; empty selects the first sheet.
	Sheet        string `json:"sheet" validate:"max=64"`
	HeaderRow    int    `json:"header_row" validate:"min=1"`
	DataStartRow int    `json:"data_start_row" validate:"min=2,gtfield=HeaderRow"`
	// Columns lists the depth, qc and Rf column letters, e.g. "A, B, C".
	Columns string `json:"columns" validate:"required"`
}

// DefaultReadOptions matches the layout of a plain export: headers in row 1,
// data from row 2, depth/qc/Rf in the first three columns.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		HeaderRow:    1,
		DataStartRow: 2,
		Columns:      "A, B, C",
	}
}

// Session is one user's private workspace.
type Session struct {
	ID          string     `json:"id"`
	ProjectName string     `json:"project_name"`
	Soundings   []Sounding `json:"soundings"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	out.Soundings = make([]Sounding, len(s.Soundings))
	for i, snd := range s.Soundings {
		out.Soundings[i] = snd.Clone()
	}
	return out
}

// SoundingPatch is a partial update of the editable table.
type SoundingPatch struct {
	Name               *string  `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	ReferenceElevation *float64 `json:"reference_elevation,omitempty"`
}
