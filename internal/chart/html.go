package chart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// FigureElementID is the id of the script element carrying the figure model
// inside an exported HTML document.
const FigureElementID = "cpt-figure"

// zoneSeriesName names the helper series that carries bands and boundaries.
const zoneSeriesName = "SBT zones"

// dashDotPattern is the echarts dash array for dash-dot boundary lines.
var dashDotPattern = []int{8, 3, 2, 3}

// HTMLRenderer draws figures as standalone interactive echarts pages.
type HTMLRenderer struct {
	// AssetsHost overrides the echarts script location; empty keeps the
	// go-echarts default CDN.
	AssetsHost string
}

// Render writes a complete HTML document. The figure model is embedded as
// JSON so the document can be read back with ReadHTML.
func (r HTMLRenderer) Render(w io.Writer, fig *Figure) error {
	line := r.build(fig)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return fmt.Errorf("render echarts page: %w", err)
	}

	model, err := json.Marshal(fig)
	if err != nil {
		return fmt.Errorf("encode figure: %w", err)
	}
	island := []byte(`<script type="application/json" id="` + FigureElementID + `">` + string(model) + "</script>\n")

	page := buf.Bytes()
	if i := bytes.LastIndex(page, []byte("</body>")); i >= 0 {
		page = append(page[:i:i], append(island, page[i:]...)...)
	} else {
		page = append(page, island...)
	}
	_, err = w.Write(page)
	return err
}

func (r HTMLRenderer) build(fig *Figure) *charts.Line {
	line := charts.NewLine()

	init := opts.Initialization{
		PageTitle: fig.Title,
		Width:     strconv.Itoa(fig.Width) + "px",
		Height:    strconv.Itoa(fig.Height) + "px",
	}
	if r.AssetsHost != "" {
		init.AssetsHost = r.AssetsHost
	}

	names := make([]string, len(fig.Series))
	for i, s := range fig.Series {
		names[i] = s.Name
	}

	line.SetGlobalOptions(
		charts.WithInitializationOpts(init),
		charts.WithTitleOpts(opts.Title{Title: fig.Title, Left: "center", Top: "bottom"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "2%", Top: "12%", Orient: "vertical", Data: names}),
		charts.WithGridOpts(opts.Grid{Top: "80", Left: "70", Right: "40", Bottom: "60"}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:         fig.XAxis.Title,
			Type:         "value",
			Position:     fig.XAxis.Position,
			NameLocation: "middle",
			NameGap:      30,
			Min:          fig.XAxis.Min,
			Max:          fig.XAxis.Max,
			SplitNumber:  majorSplits(fig.XAxis),
			MinInterval:  fig.XAxis.MajorTick,
			MaxInterval:  fig.XAxis.MajorTick,
			SplitLine:    &opts.SplitLine{Show: opts.Bool(true)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:         fig.YAxis.Title,
			Type:         "value",
			NameLocation: "middle",
			NameGap:      45,
			Min:          fig.YAxis.Min,
			Max:          fig.YAxis.Max,
			SplitNumber:  majorSplits(fig.YAxis),
			MinInterval:  fig.YAxis.MajorTick,
			MaxInterval:  fig.YAxis.MajorTick,
			SplitLine:    &opts.SplitLine{Show: opts.Bool(true)},
		}),
	)
	line.Accept(minorAxisVisitor{x: fig.XAxis, y: fig.YAxis})

	for _, s := range fig.Series {
		data := make([]opts.LineData, len(s.Points))
		for i, p := range s.Points {
			data[i] = opts.LineData{Value: []interface{}{p.X, p.Y}}
		}
		line.AddSeries(s.Name, data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: 1.5}),
		)
	}

	if len(fig.Bands) > 0 || len(fig.Lines) > 0 {
		line.AddSeries(zoneSeriesName, []opts.LineData{}, charts.WithSeriesOpts(func(s *charts.SingleSeries) {
			s.MarkAreas = &opts.MarkAreas{Data: markAreaData(fig.Bands)}
			s.MarkLines = &opts.MarkLines{
				Data: markLineData(fig.Lines),
				MarkLineStyle: opts.MarkLineStyle{
					Symbol: []string{"none", "none"},
					Label:  &opts.Label{Show: opts.Bool(false)},
				},
			}
		}))
	}
	return line
}

// markAreaData encodes each band as an echarts [start, end] pair. Only the
// x coordinates are given so the band spans the full height.
func markAreaData(bands []Band) []interface{} {
	out := make([]interface{}, len(bands))
	for i, b := range bands {
		out[i] = []map[string]interface{}{
			{
				"name":      b.Label,
				"xAxis":     b.Lower,
				"itemStyle": map[string]interface{}{"color": b.Color, "opacity": b.Opacity},
				"label": map[string]interface{}{
					"show":     true,
					"position": "insideBottomLeft",
					"rotate":   90,
				},
			},
			{"xAxis": b.Upper},
		}
	}
	return out
}

// minorTick and minorSplitLine are echarts axis options go-echarts does not
// model.
type minorTick struct {
	Show        bool `json:"show"`
	SplitNumber int  `json:"splitNumber,omitempty"`
}

type minorX struct {
	opts.XAxis
	MinorTick      *minorTick      `json:"minorTick,omitempty"`
	MinorSplitLine *opts.SplitLine `json:"minorSplitLine,omitempty"`
}

type minorY struct {
	opts.YAxis
	MinorTick      *minorTick      `json:"minorTick,omitempty"`
	MinorSplitLine *opts.SplitLine `json:"minorSplitLine,omitempty"`
}

// minorAxisVisitor adds minor ticks and minor grid lines to the value axes
// when the serialised option is built.
type minorAxisVisitor struct {
	charts.BaseConfigurationVisitor
	x, y Axis
}

func (v minorAxisVisitor) VisitXAxis(axes []opts.XAxis) interface{} {
	tick, grid := minorOpts(v.x)
	out := make([]minorX, len(axes))
	for i, a := range axes {
		out[i] = minorX{XAxis: a, MinorTick: tick, MinorSplitLine: grid}
	}
	return out
}

func (v minorAxisVisitor) VisitYAxis(axes []opts.YAxis) interface{} {
	tick, grid := minorOpts(v.y)
	out := make([]minorY, len(axes))
	for i, a := range axes {
		out[i] = minorY{YAxis: a, MinorTick: tick, MinorSplitLine: grid}
	}
	return out
}

// minorOpts returns nil options when the axis has no minor spacing finer
// than its major spacing.
func minorOpts(a Axis) (*minorTick, *opts.SplitLine) {
	if a.MinorTick <= 0 || a.MajorTick <= 0 || a.MinorTick >= a.MajorTick {
		return nil, nil
	}
	n := int(math.Round(a.MajorTick / a.MinorTick))
	return &minorTick{Show: true, SplitNumber: n},
		&opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: "#eeeeee"}}
}

// majorSplits is the number of major intervals across the axis range.
func majorSplits(a Axis) int {
	if a.MajorTick <= 0 || a.Max <= a.Min {
		return 0
	}
	return int(math.Round((a.Max - a.Min) / a.MajorTick))
}

func markLineData(lines []BoundaryLine) []interface{} {
	out := make([]interface{}, len(lines))
	for i, l := range lines {
		style := map[string]interface{}{"color": l.Color, "width": l.Width}
		switch l.Dash {
		case DashDashDot:
			style["type"] = dashDotPattern
		default:
			style["type"] = "dotted"
		}
		out[i] = map[string]interface{}{
			"name":      strconv.FormatFloat(l.X, 'f', -1, 64),
			"xAxis":     l.X,
			"lineStyle": style,
		}
	}
	return out
}
