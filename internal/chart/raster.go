package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	_ "gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgpdf"
)

// screenDPI converts figure pixels to plot lengths.
const screenDPI = 96

var (
	minorGrid = draw.LineStyle{Color: color.Gray{Y: 235}, Width: vg.Points(0.5)}
	majorGrid = draw.LineStyle{Color: color.Gray{Y: 200}, Width: vg.Points(0.75)}
	frame     = draw.LineStyle{Color: color.Black, Width: vg.Points(1)}

	dottedDashes  = []vg.Length{vg.Points(1), vg.Points(2.5)}
	dashDotDashes = []vg.Length{vg.Points(6), vg.Points(2.5), vg.Points(1.5), vg.Points(2.5)}
)

// RasterRenderer draws figures with gonum/plot. It writes PNG images and
// vector PDF documents.
type RasterRenderer struct{}

// Render writes fig in the given format ("png" or "pdf").
func (RasterRenderer) Render(w io.Writer, fig *Figure, format string) error {
	width := vg.Length(fig.Width) * vg.Inch / screenDPI
	height := vg.Length(fig.Height) * vg.Inch / screenDPI

	cw, err := draw.NewFormattedCanvas(width, height, format)
	if err != nil {
		return err
	}

	p, err := buildPlot(fig)
	if err != nil {
		return err
	}

	dc := draw.New(cw)
	tickStyle := p.Y.Tick.Label
	titleStyle := p.Y.Label.TextStyle
	tickLen := p.Y.Tick.Length
	gap := vg.Points(4)

	strip := tickLen + gap + tickStyle.Height("0") + gap + titleStyle.Height(fig.XAxis.Title) + gap
	if fig.Title != "" {
		strip += p.Title.TextStyle.Height(fig.Title) + gap
	}
	right := tickStyle.Width(formatTick(fig.XAxis.Max))/2 + gap

	area := draw.Crop(dc, 0, -right, 0, -strip)
	p.Draw(area)

	data := p.DataCanvas(area)
	drawTopAxis(dc, data, p, fig, gap)
	data.StrokeLines(frame, []vg.Point{
		{X: data.Min.X, Y: data.Min.Y},
		{X: data.Max.X, Y: data.Min.Y},
		{X: data.Max.X, Y: data.Max.Y},
		{X: data.Min.X, Y: data.Max.Y},
		{X: data.Min.X, Y: data.Min.Y},
	})

	if _, err := cw.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	return nil
}

func buildPlot(fig *Figure) (*plot.Plot, error) {
	p := plot.New()
	p.HideX()
	p.X.Min, p.X.Max = fig.XAxis.Min, fig.XAxis.Max
	p.X.Padding = 0
	p.Y.Min, p.Y.Max = fig.YAxis.Min, fig.YAxis.Max
	p.Y.Padding = 0
	p.Y.Label.Text = fig.YAxis.Title
	p.Y.Tick.Marker = stepTicker{major: fig.YAxis.MajorTick, minor: fig.YAxis.MinorTick}
	p.Title.Text = fig.Title
	p.Legend.Left = false
	p.Legend.Top = false
	p.Legend.XOffs = -vg.Points(6)
	p.Legend.YOffs = vg.Points(6)

	for _, b := range fig.Bands {
		poly, err := plotter.NewPolygon(plotter.XYs{
			{X: b.Lower, Y: fig.YAxis.Min},
			{X: b.Upper, Y: fig.YAxis.Min},
			{X: b.Upper, Y: fig.YAxis.Max},
			{X: b.Lower, Y: fig.YAxis.Max},
		})
		if err != nil {
			return nil, fmt.Errorf("band %d: %w", b.Zone, err)
		}
		poly.Color = fade(namedColor(b.Color), b.Opacity)
		poly.LineStyle.Width = 0
		p.Add(poly)
	}

	p.Add(gridLines{x: fig.XAxis, y: fig.YAxis})
	if len(fig.Bands) > 0 {
		p.Add(bandLabels{bands: fig.Bands, xmax: fig.XAxis.Max})
	}

	for _, l := range fig.Lines {
		ln, err := plotter.NewLine(plotter.XYs{{X: l.X, Y: fig.YAxis.Min}, {X: l.X, Y: fig.YAxis.Max}})
		if err != nil {
			return nil, fmt.Errorf("boundary %g: %w", l.X, err)
		}
		ln.LineStyle = draw.LineStyle{Color: namedColor(l.Color), Width: vg.Points(l.Width), Dashes: dottedDashes}
		if l.Dash == DashDashDot {
			ln.LineStyle.Dashes = dashDotDashes
		}
		p.Add(ln)
	}

	for i, s := range fig.Series {
		if len(s.Points) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(s.Points))
		for j, pt := range s.Points {
			xys[j] = plotter.XY{X: pt.X, Y: pt.Y}
		}
		ln, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("series %q: %w", s.Name, err)
		}
		ln.LineStyle.Color = plotutil.Color(i)
		ln.LineStyle.Width = vg.Points(1.5)
		p.Add(ln)
		p.Legend.Add(s.Name, ln)
	}
	return p, nil
}

// drawTopAxis draws the x-axis along the upper edge of the data area:
// axis line, ticks pointing up, labels and title above them.
func drawTopAxis(c draw.Canvas, data draw.Canvas, p *plot.Plot, fig *Figure, gap vg.Length) {
	trX, _ := p.Transforms(&data)
	y0 := data.Max.Y
	tickLen := p.Y.Tick.Length

	c.StrokeLine2(frame, data.Min.X, y0, data.Max.X, y0)
	for _, v := range fig.XAxis.MinorTicks() {
		x := trX(v)
		c.StrokeLine2(p.Y.Tick.LineStyle, x, y0, x, y0+tickLen/2)
	}

	label := p.Y.Tick.Label
	label.XAlign = draw.XCenter
	label.YAlign = draw.YBottom
	for _, v := range fig.XAxis.MajorTicks() {
		x := trX(v)
		c.StrokeLine2(p.Y.Tick.LineStyle, x, y0, x, y0+tickLen)
		c.FillText(label, vg.Point{X: x, Y: y0 + tickLen + gap}, formatTick(v))
	}

	title := p.Y.Label.TextStyle
	title.XAlign = draw.XCenter
	title.YAlign = draw.YBottom
	ty := y0 + tickLen + gap + label.Height("0") + gap
	c.FillText(title, vg.Point{X: (data.Min.X + data.Max.X) / 2, Y: ty}, fig.XAxis.Title)
}

// gridLines draws minor and major gridlines of both axes.
type gridLines struct {
	x, y Axis
}

func (g gridLines) Plot(c draw.Canvas, p *plot.Plot) {
	trX, trY := p.Transforms(&c)
	for _, v := range g.x.MinorTicks() {
		c.StrokeLine2(minorGrid, trX(v), c.Min.Y, trX(v), c.Max.Y)
	}
	for _, v := range g.y.MinorTicks() {
		c.StrokeLine2(minorGrid, c.Min.X, trY(v), c.Max.X, trY(v))
	}
	for _, v := range g.x.MajorTicks() {
		c.StrokeLine2(majorGrid, trX(v), c.Min.Y, trX(v), c.Max.Y)
	}
	for _, v := range g.y.MajorTicks() {
		c.StrokeLine2(majorGrid, c.Min.X, trY(v), c.Max.X, trY(v))
	}
}

// bandLabels writes each band's label vertically, reading upwards from the
// bottom-left corner of the band.
type bandLabels struct {
	bands []Band
	xmax  float64
}

func (b bandLabels) Plot(c draw.Canvas, p *plot.Plot) {
	trX, _ := p.Transforms(&c)
	sty := p.Y.Tick.Label
	sty.Color = color.Gray{Y: 60}
	sty.Rotation = math.Pi / 2
	sty.XAlign = draw.XLeft
	sty.YAlign = draw.YTop
	pad := vg.Points(3)
	for _, band := range b.bands {
		if band.Label == "" || band.Lower >= b.xmax {
			continue
		}
		c.FillText(sty, vg.Point{X: trX(band.Lower) + pad, Y: c.Min.Y + pad}, band.Label)
	}
}

// stepTicker places labelled ticks every major step and unlabelled ones
// every minor step.
type stepTicker struct {
	major, minor float64
}

func (t stepTicker) Ticks(min, max float64) []plot.Tick {
	var out []plot.Tick
	for _, v := range ticks(min, max, t.minor) {
		if !onStep(v, t.major) {
			out = append(out, plot.Tick{Value: v})
		}
	}
	for _, v := range ticks(min, max, t.major) {
		out = append(out, plot.Tick{Value: v, Label: formatTick(v)})
	}
	return out
}

func onStep(v, step float64) bool {
	q := v / step
	return math.Abs(q-math.Round(q)) < 1e-6
}

func formatTick(v float64) string {
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func namedColor(name string) color.Color {
	if c, ok := colornames.Map[name]; ok {
		return c
	}
	return color.Black
}

func fade(c color.Color, opacity float64) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(math.Round(opacity * 255))}
}
