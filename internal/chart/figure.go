package chart

import (
	"fmt"
	"math"

	"cptmerge/pkg/contracts/domain"
)

// Default canvas size in pixels.
const (
	DefaultWidth  = 800
	DefaultHeight = 800
)

// BandOpacity is the fill opacity of the soil zone bands.
const BandOpacity = 0.10

// Dash names a boundary line pattern.
type Dash string

const (
	DashDotted  Dash = "dotted"
	DashDashDot Dash = "dashdot"
)

// Point is one (x, elevation) vertex of a series.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Series is the line of one sounding.
type Series struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Axis is a resolved axis: title, range and tick spacing.
type Axis struct {
	Title     string  `json:"title"`
	Position  string  `json:"position"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	MajorTick float64 `json:"major_tick"`
	MinorTick float64 `json:"minor_tick"`
}

// MajorTicks returns the labelled tick values.
func (a Axis) MajorTicks() []float64 { return ticks(a.Min, a.Max, a.MajorTick) }

// MinorTicks returns the gridline values between major ticks.
func (a Axis) MinorTicks() []float64 { return ticks(a.Min, a.Max, a.MinorTick) }

// Band is a shaded vertical soil zone.
type Band struct {
	Zone    int     `json:"zone"`
	Lower   float64 `json:"lower"`
	Upper   float64 `json:"upper"`
	Label   string  `json:"label"`
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
}

// BoundaryLine is a vertical line between two soil zones.
type BoundaryLine struct {
	X     float64 `json:"x"`
	Dash  Dash    `json:"dash"`
	Width float64 `json:"width"`
	Color string  `json:"color"`
}

// Figure is the renderer independent description of the merged chart.
type Figure struct {
	Title    string          `json:"title"`
	Variable domain.Variable `json:"variable"`
	Width    int             `json:"width"`
	Height   int             `json:"height"`
	XAxis    Axis            `json:"x_axis"`
	YAxis    Axis            `json:"y_axis"`
	Series   []Series        `json:"series"`
	Bands    []Band          `json:"bands,omitempty"`
	Lines    []BoundaryLine  `json:"lines,omitempty"`
}

// Options select what the figure shows.
type Options struct {
	Variable domain.Variable
	// XMax is the x-axis maximum; zero selects the variable default.
	XMax   float64
	Title  string
	Width  int
	Height int
}

const boundaryColor = "black"

// Compose builds the figure for the given soundings. Every sounding becomes
// one series; all series share the elevation axis.
func Compose(soundings []domain.ProcessedSounding, o Options) (*Figure, error) {
	axis, err := AxisFor(o.Variable)
	if err != nil {
		return nil, err
	}
	if len(soundings) == 0 {
		return nil, fmt.Errorf("%w: no soundings to plot", domain.ErrNoData)
	}

	fig := &Figure{
		Title:    o.Title,
		Variable: o.Variable,
		Width:    o.Width,
		Height:   o.Height,
		XAxis: Axis{
			Title:     axis.Title,
			Position:  "top",
			Min:       0,
			Max:       axis.ResolveXMax(o.XMax),
			MajorTick: axis.MajorTick,
			MinorTick: axis.MinorTick,
		},
	}
	if fig.Width <= 0 {
		fig.Width = DefaultWidth
	}
	if fig.Height <= 0 {
		fig.Height = DefaultHeight
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range soundings {
		x := s.Column(o.Variable)
		series := Series{ID: s.ID, Name: s.Name, Points: make([]Point, len(s.Records))}
		for i, r := range s.Records {
			series.Points[i] = Point{X: x[i], Y: r.Elevation}
			lo = math.Min(lo, r.Elevation)
			hi = math.Max(hi, r.Elevation)
		}
		fig.Series = append(fig.Series, series)
	}
	if math.IsInf(lo, 1) {
		return nil, fmt.Errorf("%w: soundings have no records", domain.ErrNoData)
	}

	yMin, yMax := snapRange(lo, hi, ElevationMajorTick)
	fig.YAxis = Axis{
		Title:     ElevationTitle,
		Position:  "left",
		Min:       yMin,
		Max:       yMax,
		MajorTick: ElevationMajorTick,
		MinorTick: ElevationMinorTick,
	}

	if o.Variable == domain.VariableSBT {
		fig.Bands, fig.Lines = zoneOverlay(fig.XAxis.Max)
	}
	return fig, nil
}

// zoneOverlay returns the six soil zone bands and the five lines between
// them. The open zone is drawn up to xmax.
func zoneOverlay(xmax float64) ([]Band, []BoundaryLine) {
	bands := make([]Band, len(domain.SoilZones))
	for i, z := range domain.SoilZones {
		upper := z.Upper
		if z.Open() {
			upper = math.Max(xmax, z.Lower)
		}
		bands[i] = Band{
			Zone:    z.Number,
			Lower:   z.Lower,
			Upper:   upper,
			Label:   z.Label,
			Color:   z.Color,
			Opacity: BandOpacity,
		}
	}

	bounds := domain.ZoneBoundaries()
	lines := make([]BoundaryLine, len(bounds))
	for i, b := range bounds {
		lines[i] = BoundaryLine{X: b, Dash: DashDotted, Width: 1, Color: boundaryColor}
		if b == 2.60 {
			lines[i].Dash = DashDashDot
			lines[i].Width = 2
		}
	}
	return bands, lines
}

// PointCounts returns the number of points of every series in order.
func (f *Figure) PointCounts() []int {
	out := make([]int, len(f.Series))
	for i, s := range f.Series {
		out[i] = len(s.Points)
	}
	return out
}
