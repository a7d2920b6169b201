package chart

import (
	"fmt"
	"math"

	"cptmerge/pkg/contracts/domain"
)

// AxisSettings holds the fixed layout of one x-axis variable.
type AxisSettings struct {
	Variable   domain.Variable `json:"variable"`
	Title      string          `json:"title"`
	MajorTick  float64         `json:"major_tick"`
	MinorTick  float64         `json:"minor_tick"`
	DefaultMax float64         `json:"default_max"`
	SliderMax  float64         `json:"slider_max"`
}

var xAxes = map[domain.Variable]AxisSettings{
	domain.VariableQC:  {Variable: domain.VariableQC, Title: "qc [MPa]", MajorTick: 5, MinorTick: 1, DefaultMax: 30, SliderMax: 100},
	domain.VariableRf:  {Variable: domain.VariableRf, Title: "Rf [%]", MajorTick: 0.5, MinorTick: 0.25, DefaultMax: 5, SliderMax: 10},
	domain.VariableSBT: {Variable: domain.VariableSBT, Title: "SBT Index [-]", MajorTick: 0.5, MinorTick: 0.1, DefaultMax: 4, SliderMax: 6},
}

// Elevation axis layout, shared by every variable.
const (
	ElevationTitle     = "z [mBf]"
	ElevationMajorTick = 1.0
	ElevationMinorTick = 0.5
)

// AxisFor returns the axis layout of v.
func AxisFor(v domain.Variable) (AxisSettings, error) {
	s, ok := xAxes[v]
	if !ok {
		return AxisSettings{}, fmt.Errorf("%w: %q", domain.ErrUnknownVariable, v)
	}
	return s, nil
}

// AllAxes lists the axis layouts in display order.
func AllAxes() []AxisSettings {
	out := make([]AxisSettings, 0, len(domain.Variables))
	for _, v := range domain.Variables {
		out = append(out, xAxes[v])
	}
	return out
}

// ResolveXMax applies the default to a missing maximum and caps it at the
// slider limit.
func (s AxisSettings) ResolveXMax(xmax float64) float64 {
	switch {
	case xmax <= 0 || math.IsNaN(xmax):
		return s.DefaultMax
	case xmax > s.SliderMax:
		return s.SliderMax
	}
	return xmax
}

// ticks returns the tick values from lo to hi in steps of step. Values are
// rounded to the step to avoid float drift in labels.
func ticks(lo, hi, step float64) []float64 {
	if step <= 0 || hi < lo {
		return nil
	}
	first := math.Ceil(lo/step-1e-9) * step
	var out []float64
	for i := 0; ; i++ {
		v := first + float64(i)*step
		if v > hi+step*1e-9 {
			break
		}
		out = append(out, math.Round(v/step)*step)
	}
	return out
}

// snapRange widens [lo, hi] outward to whole multiples of step. A flat range
// gets one step of room below.
func snapRange(lo, hi, step float64) (float64, float64) {
	lo = math.Floor(lo/step) * step
	hi = math.Ceil(hi/step) * step
	if hi <= lo {
		lo = hi - step
	}
	return lo, hi
}
