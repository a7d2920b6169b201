package chart

import (
	"bytes"
	"encoding/json"
	"image/png"
	"math"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/recorder"

	"cptmerge/pkg/contracts/domain"
)

func processed(id string, ref float64, rows ...[3]float64) domain.ProcessedSounding {
	p := domain.ProcessedSounding{ID: id, Name: id, ReferenceElevation: ref}
	for _, r := range rows {
		sbt := math.Hypot(3.47-math.Log10(r[1]/0.1), math.Log10(r[2])+1.22)
		p.Records = append(p.Records, domain.ProcessedRecord{
			Depth: r[0], Elevation: ref - r[0], QC: r[1], Rf: r[2], SBT: sbt, Zone: domain.ClassifyZone(sbt),
		})
	}
	return p
}

func twoSoundings() []domain.ProcessedSounding {
	return []domain.ProcessedSounding{
		processed("CPT-1", 100, [3]float64{0, 1, 1}, [3]float64{1, 2, 2}),
		processed("CPT-2", 101.5, [3]float64{0, 5, 0.5}, [3]float64{0.5, 6, 0.6}, [3]float64{2.2, 8, 1.1}),
	}
}

func TestAxisFor(t *testing.T) {
	a, err := AxisFor(domain.VariableQC)
	require.NoError(t, err)
	assert.Equal(t, "qc [MPa]", a.Title)
	assert.Equal(t, 5.0, a.MajorTick)

	_, err = AxisFor("fs")
	assert.ErrorIs(t, err, domain.ErrUnknownVariable)

	all := AllAxes()
	require.Len(t, all, 3)
	assert.Equal(t, domain.VariableSBT, all[2].Variable)
	assert.Equal(t, 6.0, all[2].SliderMax)
}

func TestResolveXMax(t *testing.T) {
	a, _ := AxisFor(domain.VariableRf)
	assert.Equal(t, 5.0, a.ResolveXMax(0))
	assert.Equal(t, 5.0, a.ResolveXMax(-1))
	assert.Equal(t, 3.5, a.ResolveXMax(3.5))
	assert.Equal(t, 10.0, a.ResolveXMax(40))
}

func TestTicks(t *testing.T) {
	assert.Equal(t, []float64{0, 5, 10, 15, 20, 25, 30}, ticks(0, 30, 5))
	assert.Equal(t, []float64{97, 98, 99, 100}, ticks(96.4, 100, 1))
	assert.Len(t, ticks(0, 4, 0.1), 41)
	assert.Nil(t, ticks(1, 0, 1))

	lo, hi := snapRange(97.8, 100.01, 1)
	assert.Equal(t, 97.0, lo)
	assert.Equal(t, 101.0, hi)
	lo, hi = snapRange(100, 100, 1)
	assert.Equal(t, 99.0, lo)
	assert.Equal(t, 100.0, hi)
}

func TestComposeTwoSoundings(t *testing.T) {
	fig, err := Compose(twoSoundings(), Options{Variable: domain.VariableQC, Title: "Quay"})
	require.NoError(t, err)

	require.Len(t, fig.Series, 2)
	assert.Equal(t, []int{2, 3}, fig.PointCounts())
	assert.Equal(t, Point{X: 1, Y: 100}, fig.Series[0].Points[0])
	assert.Equal(t, Point{X: 2, Y: 99}, fig.Series[0].Points[1])

	assert.Equal(t, "top", fig.XAxis.Position)
	assert.Equal(t, 0.0, fig.XAxis.Min)
	assert.Equal(t, 30.0, fig.XAxis.Max)
	assert.Equal(t, "z [mBf]", fig.YAxis.Title)
	assert.Equal(t, 99.0, fig.YAxis.Min)
	assert.Equal(t, 102.0, fig.YAxis.Max)
	for _, s := range fig.Series {
		for _, p := range s.Points {
			assert.True(t, p.Y >= fig.YAxis.Min && p.Y <= fig.YAxis.Max)
		}
	}

	assert.Empty(t, fig.Bands)
	assert.Empty(t, fig.Lines)
	assert.Equal(t, DefaultWidth, fig.Width)
	assert.Equal(t, DefaultHeight, fig.Height)
}

func TestComposeSBTOverlay(t *testing.T) {
	fig, err := Compose(twoSoundings(), Options{Variable: domain.VariableSBT, XMax: 5})
	require.NoError(t, err)

	require.Len(t, fig.Bands, 6)
	require.Len(t, fig.Lines, 5)

	want := []BoundaryLine{
		{X: 1.3, Dash: DashDotted, Width: 1, Color: "black"},
		{X: 2.05, Dash: DashDotted, Width: 1, Color: "black"},
		{X: 2.60, Dash: DashDashDot, Width: 2, Color: "black"},
		{X: 2.95, Dash: DashDotted, Width: 1, Color: "black"},
		{X: 3.6, Dash: DashDotted, Width: 1, Color: "black"},
	}
	if diff := cmp.Diff(want, fig.Lines); diff != "" {
		t.Errorf("boundary lines mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 0.0, fig.Bands[0].Lower)
	assert.Equal(t, 5.0, fig.Bands[5].Upper)
	assert.Equal(t, "navy", fig.Bands[5].Color)
	for _, b := range fig.Bands {
		assert.Equal(t, BandOpacity, b.Opacity)
	}
}

func TestComposeErrors(t *testing.T) {
	_, err := Compose(nil, Options{Variable: domain.VariableQC})
	assert.ErrorIs(t, err, domain.ErrNoData)

	_, err = Compose(twoSoundings(), Options{Variable: "fs"})
	assert.ErrorIs(t, err, domain.ErrUnknownVariable)

	_, err = Compose([]domain.ProcessedSounding{{ID: "e", Name: "e"}}, Options{Variable: domain.VariableQC})
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestHTMLRoundTrip(t *testing.T) {
	for _, v := range domain.Variables {
		t.Run(string(v), func(t *testing.T) {
			fig, err := Compose(twoSoundings(), Options{Variable: v, Title: "Quay <wall>"})
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, HTMLRenderer{AssetsHost: "/assets/"}.Render(&buf, fig))

			page := buf.String()
			assert.True(t, strings.HasPrefix(strings.TrimSpace(page), "<!DOCTYPE html>"))
			assert.Contains(t, page, `"position":"top"`)
			assert.Contains(t, page, "/assets/echarts.min.js")

			back, err := ReadHTML(strings.NewReader(page))
			require.NoError(t, err)
			assert.Len(t, back.Series, len(fig.Series))
			assert.Equal(t, fig.PointCounts(), back.PointCounts())
			if diff := cmp.Diff(fig, back); diff != "" {
				t.Errorf("figure changed in round trip (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHTMLZoneMarks(t *testing.T) {
	fig, err := Compose(twoSoundings(), Options{Variable: domain.VariableSBT})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, HTMLRenderer{}.Render(&buf, fig))
	page := buf.String()

	assert.Contains(t, page, zoneSeriesName)
	assert.Equal(t, 4, strings.Count(page, `"type":"dotted"`))
	assert.Contains(t, page, `"type":[8,3,2,3]`)
	assert.Contains(t, page, `"markArea"`)
}

type echartsAxis struct {
	SplitNumber int `json:"splitNumber"`
	MinorTick   *struct {
		Show        bool `json:"show"`
		SplitNumber int  `json:"splitNumber"`
	} `json:"minorTick"`
	MinorSplitLine *struct {
		Show bool `json:"show"`
	} `json:"minorSplitLine"`
}

type echartsOption struct {
	Series []struct {
		Name string            `json:"name"`
		Data []json.RawMessage `json:"data"`
	} `json:"series"`
	XAxis []echartsAxis `json:"xAxis"`
	YAxis []echartsAxis `json:"yAxis"`
}

var optionPattern = regexp.MustCompile(`let option_\w+ = (\{.*\})`)

// renderedOption renders fig and decodes the option object handed to echarts.
func renderedOption(t *testing.T, fig *Figure) echartsOption {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, HTMLRenderer{}.Render(&buf, fig))

	m := optionPattern.FindSubmatch(buf.Bytes())
	require.NotNil(t, m, "page has no echarts option")
	var opt echartsOption
	require.NoError(t, json.Unmarshal(m[1], &opt))
	return opt
}

func TestHTMLBandLabels(t *testing.T) {
	fig, err := Compose(twoSoundings(), Options{Variable: domain.VariableSBT})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, HTMLRenderer{}.Render(&buf, fig))
	page := buf.String()

	assert.Equal(t, len(fig.Bands), strings.Count(page, `"position":"insideBottomLeft"`))
	assert.Equal(t, len(fig.Bands), strings.Count(page, `"rotate":90`))
	for _, b := range fig.Bands {
		assert.Contains(t, page, `"name":"`+b.Label+`"`)
	}
}

func TestHTMLMinorAxes(t *testing.T) {
	fig, err := Compose(twoSoundings(), Options{Variable: domain.VariableQC})
	require.NoError(t, err)

	opt := renderedOption(t, fig)
	require.Len(t, opt.XAxis, 1)
	require.Len(t, opt.YAxis, 1)

	x := opt.XAxis[0]
	assert.Equal(t, 6, x.SplitNumber)
	require.NotNil(t, x.MinorTick)
	assert.True(t, x.MinorTick.Show)
	assert.Equal(t, 5, x.MinorTick.SplitNumber)
	require.NotNil(t, x.MinorSplitLine)
	assert.True(t, x.MinorSplitLine.Show)

	y := opt.YAxis[0]
	assert.Equal(t, 3, y.SplitNumber)
	require.NotNil(t, y.MinorTick)
	assert.Equal(t, 2, y.MinorTick.SplitNumber)
	require.NotNil(t, y.MinorSplitLine)
	assert.True(t, y.MinorSplitLine.Show)
}

func TestMinorOptsWithoutMinorSpacing(t *testing.T) {
	tick, grid := minorOpts(Axis{Min: 0, Max: 10, MajorTick: 1, MinorTick: 0})
	assert.Nil(t, tick)
	assert.Nil(t, grid)

	tick, grid = minorOpts(Axis{Min: 0, Max: 10, MajorTick: 1, MinorTick: 1})
	assert.Nil(t, tick)
	assert.Nil(t, grid)

	assert.Equal(t, 0, majorSplits(Axis{Min: 1, Max: 1, MajorTick: 1}))
}

func TestHTMLSeriesPointCounts(t *testing.T) {
	for _, v := range domain.Variables {
		t.Run(string(v), func(t *testing.T) {
			fig, err := Compose(twoSoundings(), Options{Variable: v})
			require.NoError(t, err)

			opt := renderedOption(t, fig)
			var counts []int
			var names []string
			for _, s := range opt.Series {
				if s.Name == zoneSeriesName {
					continue
				}
				names = append(names, s.Name)
				counts = append(counts, len(s.Data))
			}
			assert.Equal(t, fig.PointCounts(), counts)
			assert.Equal(t, []string{"CPT-1", "CPT-2"}, names)
		})
	}
}

// drawnText renders fig's plot onto a recording canvas and returns every
// string filled on it.
func drawnText(t *testing.T, fig *Figure) []string {
	t.Helper()
	p, err := buildPlot(fig)
	require.NoError(t, err)

	var rec recorder.Canvas
	p.Draw(draw.NewCanvas(&rec, 8*vg.Inch, 8*vg.Inch))

	var out []string
	for _, a := range rec.Actions {
		if fs, ok := a.(*recorder.FillString); ok {
			out = append(out, fs.String)
		}
	}
	return out
}

func TestRasterBandLabels(t *testing.T) {
	fig, err := Compose(twoSoundings(), Options{Variable: domain.VariableSBT, XMax: 5})
	require.NoError(t, err)

	text := drawnText(t, fig)
	for _, b := range fig.Bands {
		assert.Contains(t, text, b.Label)
	}

	narrow, err := Compose(twoSoundings(), Options{Variable: domain.VariableSBT, XMax: 3})
	require.NoError(t, err)
	text = drawnText(t, narrow)
	last := narrow.Bands[len(narrow.Bands)-1]
	assert.NotContains(t, text, last.Label, "band starting beyond the axis is not labelled")
	assert.Contains(t, text, narrow.Bands[0].Label)

	qc, err := Compose(twoSoundings(), Options{Variable: domain.VariableQC})
	require.NoError(t, err)
	text = drawnText(t, qc)
	for _, b := range fig.Bands {
		assert.NotContains(t, text, b.Label)
	}
}

func TestReadHTMLWithoutFigure(t *testing.T) {
	_, err := ReadHTML(strings.NewReader("<html><body><script>var x = 1;</script></body></html>"))
	assert.ErrorIs(t, err, ErrNoFigure)

	_, err = ReadHTML(strings.NewReader(`<script type="application/json" id="cpt-figure">{not json</script>`))
	assert.Error(t, err)
}

func TestRasterPNG(t *testing.T) {
	fig, err := Compose(twoSoundings(), Options{Variable: domain.VariableSBT, Title: "Quay"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RasterRenderer{}.Render(&buf, fig, "png"))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 800, img.Bounds().Dy())
}

func TestRasterPDF(t *testing.T) {
	fig, err := Compose(twoSoundings(), Options{Variable: domain.VariableRf, Width: 600, Height: 900})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RasterRenderer{}.Render(&buf, fig, "pdf"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestRasterUnknownFormat(t *testing.T) {
	fig, err := Compose(twoSoundings(), Options{Variable: domain.VariableQC})
	require.NoError(t, err)
	assert.Error(t, RasterRenderer{}.Render(&bytes.Buffer{}, fig, "bmp"))
}

func TestStepTicker(t *testing.T) {
	got := stepTicker{major: 1, minor: 0.5}.Ticks(98, 100)
	var major, minor int
	for _, tk := range got {
		if tk.IsMinor() {
			minor++
		} else {
			major++
		}
	}
	assert.Equal(t, 3, major)
	assert.Equal(t, 2, minor)
}
