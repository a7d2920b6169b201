package domain

import (
	"encoding/json"
	"math"
)

// SoilZone is one band of the SBT index classification chart.
// Lower is inclusive; the last zone is open-ended (Upper is +Inf).
type SoilZone struct {
	Number int     `json:"number"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Label  string  `json:"label"`
	Color  string  `json:"color"`
}

// Open reports whether the zone has no upper bound.
func (z SoilZone) Open() bool {
	return math.IsInf(z.Upper, 1)
}

// Contains reports whether sbt falls inside the zone.
func (z SoilZone) Contains(sbt float64) bool {
	return sbt >= z.Lower && (z.Open() || sbt < z.Upper)
}

// MarshalJSON writes an open upper bound as null.
func (z SoilZone) MarshalJSON() ([]byte, error) {
	type alias SoilZone
	out := struct {
		alias
		Upper *float64 `json:"upper"`
	}{alias: alias(z)}
	if !z.Open() {
		upper := z.Upper
		out.Upper = &upper
	}
	return json.Marshal(out)
}

// SoilZones is the fixed SBT classification table.
var SoilZones = []SoilZone{
	{Number: 1, Lower: 0, Upper: 1.3, Label: "Dense sand to gravelly sand", Color: "darkorange"},
	{Number: 2, Lower: 1.3, Upper: 2.05, Label: "Sands: clean to silty", Color: "gold"},
	{Number: 3, Lower: 2.05, Upper: 2.60, Label: "Sand mixtures: silty sand to sandy silt", Color: "limegreen"},
	{Number: 4, Lower: 2.60, Upper: 2.95, Label: "Silt mixtures: clayey silt & silty clay", Color: "seagreen"},
	{Number: 5, Lower: 2.95, Upper: 3.6, Label: "Clays: clay to silty clay", Color: "royalblue"},
	{Number: 6, Lower: 3.6, Upper: math.Inf(1), Label: "Clay - organic soil", Color: "navy"},
}

// ZoneBoundaries returns the interior thresholds between adjacent zones.
func ZoneBoundaries() []float64 {
	out := make([]float64, 0, len(SoilZones)-1)
	for _, z := range SoilZones[1:] {
		out = append(out, z.Lower)
	}
	return out
}

// ClassifyZone returns the zone number for an SBT index, or 0 when the
// value is negative or not a number.
func ClassifyZone(sbt float64) int {
	if math.IsNaN(sbt) {
		return 0
	}
	for _, z := range SoilZones {
		if z.Contains(sbt) {
			return z.Number
		}
	}
	return 0
}
